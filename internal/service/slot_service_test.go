package service

import (
	"context"
	"errors"
	"testing"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlotService(slotRepo *mockSlotRepo, requestRepo *mockRequestRepo, audit *mockAuditRepo) SlotService {
	if audit == nil {
		audit = &mockAuditRepo{}
	}
	gen := NewSlotNumberGenerator(slotRepo)
	return NewSlotService(slotRepo, requestRepo, audit, fakeTxManager{}, gen, nil)
}

func TestCreateSlot_GeneratesNumberWhenEmpty(t *testing.T) {
	var created model.ParkingSlot
	slotRepo := &mockSlotRepo{
		existsFn: func(ctx context.Context, slotNumber string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			slot.ID = uuid.New()
			created = *slot
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	resp, err := svc.CreateSlot(context.Background(), uuid.NewString(), CreateSlotDTO{
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
		Location:    model.LocationNorth,
	})

	require.NoError(t, err)
	assert.Regexp(t, `^SLOT-\d{3}$`, resp.SlotNumber)
	assert.Equal(t, model.SlotAvailable, created.Status)
}

func TestCreateSlot_SuppliedNumberKept(t *testing.T) {
	slotRepo := &mockSlotRepo{
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			slot.ID = uuid.New()
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	resp, err := svc.CreateSlot(context.Background(), uuid.NewString(), CreateSlotDTO{
		SlotNumber:  "GARAGE-7",
		VehicleType: model.VehicleTypeTruck,
		Size:        model.SizeLarge,
		Location:    model.LocationWest,
	})

	require.NoError(t, err)
	assert.Equal(t, "GARAGE-7", resp.SlotNumber)
}

func TestCreateSlot_DuplicateNumber(t *testing.T) {
	slotRepo := &mockSlotRepo{
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			return repository.ErrDuplicateEntry
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	_, err := svc.CreateSlot(context.Background(), uuid.NewString(), CreateSlotDTO{
		SlotNumber:  "GARAGE-7",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeSmall,
		Location:    model.LocationEast,
	})

	assert.ErrorIs(t, err, ErrDuplicateSlotNumber)
}

func TestCreateSlot_WritesAuditEntry(t *testing.T) {
	audit := &mockAuditRepo{}
	slotRepo := &mockSlotRepo{
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			slot.ID = uuid.New()
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, audit)
	_, err := svc.CreateSlot(context.Background(), uuid.NewString(), CreateSlotDTO{
		SlotNumber:  "GARAGE-8",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeSmall,
		Location:    model.LocationEast,
	})

	require.NoError(t, err)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionCreateSlot, audit.entries[0].Action)
}

func TestCreateSlotsBulk_SequentialNumbers(t *testing.T) {
	var numbers []string
	slotRepo := &mockSlotRepo{
		numbersByPrefixFn: func(ctx context.Context, prefix string) ([]string, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			slot.ID = uuid.New()
			numbers = append(numbers, slot.SlotNumber)
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	result, err := svc.CreateSlotsBulk(context.Background(), uuid.NewString(), BulkSlotDTO{
		Count:       3,
		Prefix:      "NORTH",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
		Location:    model.LocationNorth,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCreated)
	assert.Equal(t, []string{"NORTH-00001", "NORTH-00002", "NORTH-00003"}, numbers)
}

func TestCreateSlotsBulk_RedrawsOnStaleSnapshot(t *testing.T) {
	// NORTH-00002 gets taken by a concurrent writer after the snapshot.
	var numbers []string
	slotRepo := &mockSlotRepo{
		numbersByPrefixFn: func(ctx context.Context, prefix string) ([]string, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			if slot.SlotNumber == "NORTH-00002" {
				return repository.ErrDuplicateEntry
			}
			slot.ID = uuid.New()
			numbers = append(numbers, slot.SlotNumber)
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	result, err := svc.CreateSlotsBulk(context.Background(), uuid.NewString(), BulkSlotDTO{
		Count:       3,
		Prefix:      "NORTH",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
		Location:    model.LocationNorth,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCreated)
	assert.Empty(t, result.FailedAttempts)
	// Take pre-draws 00001..00003, so the redraw for the collision continues
	// past the batch at 00004 and the remaining pre-drawn number follows.
	assert.Equal(t, []string{"NORTH-00001", "NORTH-00004", "NORTH-00003"}, numbers)
}

func TestCreateSlotsBulk_PartialFailureKeepsSuccesses(t *testing.T) {
	slotRepo := &mockSlotRepo{
		numbersByPrefixFn: func(ctx context.Context, prefix string) ([]string, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			if slot.SlotNumber == "EAST-00002" || slot.SlotNumber == "EAST-00004" {
				return errors.New("disk full")
			}
			slot.ID = uuid.New()
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	result, err := svc.CreateSlotsBulk(context.Background(), uuid.NewString(), BulkSlotDTO{
		Count:       5,
		Prefix:      "EAST",
		VehicleType: model.VehicleTypeMotorcycle,
		Size:        model.SizeSmall,
		Location:    model.LocationEast,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCreated)
	assert.Equal(t, 5, result.RequestedCount)
	require.Len(t, result.FailedAttempts, 2)
	assert.Equal(t, "EAST-00002", result.FailedAttempts[0].SlotNumber)
	assert.Contains(t, result.FailedAttempts[0].Reason, "disk full")
}

func TestCreateSlotsBulk_AuditFailureKeepsReport(t *testing.T) {
	audit := &mockAuditRepo{
		logFn: func(ctx context.Context, entry *model.AuditLog) error {
			return errors.New("audit store down")
		},
	}
	slotRepo := &mockSlotRepo{
		numbersByPrefixFn: func(ctx context.Context, prefix string) ([]string, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, slot *model.ParkingSlot) error {
			slot.ID = uuid.New()
			return nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, audit)
	result, err := svc.CreateSlotsBulk(context.Background(), uuid.NewString(), BulkSlotDTO{
		Count:       2,
		Prefix:      "SOUTH",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
		Location:    model.LocationSouth,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCreated)
	assert.Len(t, result.CreatedSlots, 2)
}

func TestDeleteSlot_BlockedByActiveAssignment(t *testing.T) {
	slotID := uuid.New()
	slotRepo := &mockSlotRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error) {
			return &model.ParkingSlot{ID: slotID, SlotNumber: "SLOT-101", Status: model.SlotOccupied}, nil
		},
	}
	requestRepo := &mockRequestRepo{
		countApprovedFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 1, nil
		},
	}

	svc := newSlotService(slotRepo, requestRepo, nil)
	err := svc.DeleteSlot(context.Background(), uuid.NewString(), slotID.String())

	assert.ErrorIs(t, err, ErrHasActiveAssignment)
}

func TestDeleteSlot_Succeeds(t *testing.T) {
	slotID := uuid.New()
	deleted := false
	slotRepo := &mockSlotRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error) {
			return &model.ParkingSlot{ID: slotID, SlotNumber: "SLOT-101", Status: model.SlotAvailable}, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	requestRepo := &mockRequestRepo{
		countApprovedFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 0, nil
		},
	}

	svc := newSlotService(slotRepo, requestRepo, nil)
	err := svc.DeleteSlot(context.Background(), uuid.NewString(), slotID.String())

	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestFindCompatible_PreferredLocationFirst(t *testing.T) {
	north := model.LocationNorth
	var queried []*string
	slotRepo := &mockSlotRepo{
		findFirstAvailableFn: func(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error) {
			queried = append(queried, location)
			return &model.ParkingSlot{SlotNumber: "SLOT-200", Location: north}, nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	slot, err := svc.FindCompatible(context.Background(), model.VehicleTypeCar, model.SizeMedium, &north)

	require.NoError(t, err)
	assert.Equal(t, "SLOT-200", slot.SlotNumber)
	require.Len(t, queried, 1)
	assert.Equal(t, &north, queried[0])
}

func TestFindCompatible_FallsBackToAnyLocation(t *testing.T) {
	north := model.LocationNorth
	slotRepo := &mockSlotRepo{
		findFirstAvailableFn: func(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error) {
			if location != nil {
				return nil, repository.ErrNotFound
			}
			return &model.ParkingSlot{SlotNumber: "SLOT-300", Location: model.LocationSouth}, nil
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	slot, err := svc.FindCompatible(context.Background(), model.VehicleTypeCar, model.SizeMedium, &north)

	require.NoError(t, err)
	assert.Equal(t, "SLOT-300", slot.SlotNumber)
}

func TestFindCompatible_NoMatchAnywhere(t *testing.T) {
	slotRepo := &mockSlotRepo{
		findFirstAvailableFn: func(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error) {
			return nil, repository.ErrNotFound
		},
	}

	svc := newSlotService(slotRepo, &mockRequestRepo{}, nil)
	_, err := svc.FindCompatible(context.Background(), model.VehicleTypeTruck, model.SizeLarge, nil)

	assert.ErrorIs(t, err, ErrNoCompatibleSlot)
}
