package service

import (
	"context"
	"testing"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVehicle_Success(t *testing.T) {
	audit := &mockAuditRepo{}
	repo := &mockVehicleRepo{
		createFn: func(ctx context.Context, vehicle *model.Vehicle) error {
			vehicle.ID = uuid.New()
			return nil
		},
	}

	svc := NewVehicleService(repo, audit, fakeTxManager{})
	resp, err := svc.CreateVehicle(context.Background(), uuid.NewString(), CreateVehicleDTO{
		PlateNumber: "51A-12345",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
	})

	require.NoError(t, err)
	assert.Equal(t, "51A-12345", resp.PlateNumber)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionCreateVehicle, audit.entries[0].Action)
}

func TestCreateVehicle_DuplicatePlate(t *testing.T) {
	repo := &mockVehicleRepo{
		createFn: func(ctx context.Context, vehicle *model.Vehicle) error {
			return repository.ErrDuplicateEntry
		},
	}

	svc := NewVehicleService(repo, &mockAuditRepo{}, fakeTxManager{})
	_, err := svc.CreateVehicle(context.Background(), uuid.NewString(), CreateVehicleDTO{
		PlateNumber: "51A-12345",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
	})

	assert.ErrorIs(t, err, ErrDuplicatePlateNumber)
}

func TestUpdateVehicle_NotOwned(t *testing.T) {
	repo := &mockVehicleRepo{
		findOwnedFn: func(ctx context.Context, id, userID uuid.UUID) (*model.Vehicle, error) {
			return nil, repository.ErrNotFound
		},
	}

	svc := NewVehicleService(repo, &mockAuditRepo{}, fakeTxManager{})
	_, err := svc.UpdateVehicle(context.Background(), uuid.NewString(), uuid.NewString(), UpdateVehicleDTO{
		Size: model.SizeLarge,
	})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVehicle_Success(t *testing.T) {
	userID := uuid.New()
	vehicleID := uuid.New()
	deleted := false
	repo := &mockVehicleRepo{
		findOwnedFn: func(ctx context.Context, id, uid uuid.UUID) (*model.Vehicle, error) {
			return &model.Vehicle{ID: vehicleID, UserID: userID, PlateNumber: "51A-12345"}, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}

	svc := NewVehicleService(repo, &mockAuditRepo{}, fakeTxManager{})
	err := svc.DeleteVehicle(context.Background(), vehicleID.String(), userID.String())

	require.NoError(t, err)
	assert.True(t, deleted)
}
