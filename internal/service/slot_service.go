package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"
	ws "parking-backend/internal/websocket"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateSlotDTO struct {
	SlotNumber  string `json:"slot_number" binding:"omitempty,max=30"` // optional, generated when empty
	VehicleType string `json:"vehicle_type" binding:"required,oneof=CAR MOTORCYCLE TRUCK"`
	Size        string `json:"size" binding:"required,oneof=SMALL MEDIUM LARGE"`
	Location    string `json:"location" binding:"required,oneof=NORTH EAST SOUTH WEST"`
	Status      string `json:"status" binding:"omitempty,oneof=AVAILABLE OCCUPIED UNAVAILABLE"`
}

type BulkSlotDTO struct {
	Count       int    `json:"count" binding:"required,min=1,max=500"`
	Prefix      string `json:"prefix" binding:"required,max=10"`
	VehicleType string `json:"vehicle_type" binding:"required,oneof=CAR MOTORCYCLE TRUCK"`
	Size        string `json:"size" binding:"required,oneof=SMALL MEDIUM LARGE"`
	Location    string `json:"location" binding:"required,oneof=NORTH EAST SOUTH WEST"`
}

type UpdateSlotDTO struct {
	SlotNumber  string `json:"slot_number" binding:"omitempty,max=30"`
	VehicleType string `json:"vehicle_type" binding:"omitempty,oneof=CAR MOTORCYCLE TRUCK"`
	Size        string `json:"size" binding:"omitempty,oneof=SMALL MEDIUM LARGE"`
	Location    string `json:"location" binding:"omitempty,oneof=NORTH EAST SOUTH WEST"`
	Status      string `json:"status" binding:"omitempty,oneof=AVAILABLE OCCUPIED UNAVAILABLE"`
}

// AssignedTo identifies the holder of an occupied slot, derived from its
// APPROVED request.
type AssignedTo struct {
	UserID       string `json:"user_id"`
	VehicleID    string `json:"vehicle_id"`
	VehiclePlate string `json:"vehicle_plate"`
}

type SlotResponse struct {
	ID          string      `json:"id"`
	SlotNumber  string      `json:"slot_number"`
	VehicleType string      `json:"vehicle_type"`
	Size        string      `json:"size"`
	Location    string      `json:"location"`
	Status      string      `json:"status"`
	AssignedTo  *AssignedTo `json:"assigned_to,omitempty"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

// SlotFailure records one slot of a bulk request that could not be created
// for a non-collision reason.
type SlotFailure struct {
	SlotNumber string `json:"slot_number"`
	Reason     string `json:"reason"`
}

// BulkSlotResult reports created count vs requested count plus per-slot
// failures. Successes are never rolled back on partial failure.
type BulkSlotResult struct {
	CreatedSlots   []SlotResponse `json:"created_slots"`
	TotalCreated   int            `json:"total_created"`
	RequestedCount int            `json:"requested_count"`
	FailedAttempts []SlotFailure  `json:"failed_attempts"`
}

// --- Interface ---

// SlotService owns the parking slot lifecycle: number assignment, creation
// (single and bulk), administrative edits, the deletion guard, listing, and
// the compatible-slot lookup consumed by request approval.
type SlotService interface {
	CreateSlot(ctx context.Context, actorID string, req CreateSlotDTO) (SlotResponse, error)
	CreateSlotsBulk(ctx context.Context, actorID string, req BulkSlotDTO) (BulkSlotResult, error)
	GetSlot(ctx context.Context, id string) (SlotResponse, error)
	ListSlots(ctx context.Context, filter repository.SlotFilter) ([]SlotResponse, int64, error)
	UpdateSlot(ctx context.Context, actorID, id string, req UpdateSlotDTO) (SlotResponse, error)
	DeleteSlot(ctx context.Context, actorID, id string) error
	FindCompatible(ctx context.Context, vehicleType, size string, preferredLocation *string) (*model.ParkingSlot, error)
}

type slotService struct {
	slotRepo    repository.SlotRepository
	requestRepo repository.SlotRequestRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	generator   *SlotNumberGenerator
	hub         *ws.Hub
}

func NewSlotService(
	slotRepo repository.SlotRepository,
	requestRepo repository.SlotRequestRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	generator *SlotNumberGenerator,
	hub *ws.Hub,
) SlotService {
	return &slotService{
		slotRepo:    slotRepo,
		requestRepo: requestRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		generator:   generator,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *slotService) CreateSlot(ctx context.Context, actorID string, req CreateSlotDTO) (SlotResponse, error) {
	slotNumber := req.SlotNumber
	if slotNumber == "" {
		generated, err := s.generator.GenerateUnique(ctx, DefaultSlotPrefix)
		if err != nil {
			return SlotResponse{}, err
		}
		slotNumber = generated
	}

	status := req.Status
	if status == "" {
		status = model.SlotAvailable
	}

	slot := model.ParkingSlot{
		SlotNumber:  slotNumber,
		VehicleType: req.VehicleType,
		Size:        req.Size,
		Location:    req.Location,
		Status:      status,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.slotRepo.Create(txCtx, &slot); createErr != nil {
			if repository.IsUniqueViolation(createErr) {
				return fmt.Errorf("%w: %s", ErrDuplicateSlotNumber, slot.SlotNumber)
			}
			return fmt.Errorf("failed to create slot: %w", createErr)
		}
		return s.logAction(txCtx, actorID, model.ActionCreateSlot, slot.ID.String(), slot.SlotNumber, req)
	})
	if err != nil {
		return SlotResponse{}, err
	}

	s.broadcast("slot_created", slot.ID.String(), slot.SlotNumber, slot.Status)
	return toSlotResponse(slot), nil
}

// CreateSlotsBulk inserts each slot independently: an insert-time unique
// violation (stale snapshot under concurrent writers) draws the next sequence
// number and retries that slot; any other failure is recorded and the batch
// moves on. Successes are kept even when some slots fail.
func (s *slotService) CreateSlotsBulk(ctx context.Context, actorID string, req BulkSlotDTO) (BulkSlotResult, error) {
	seq, err := s.generator.Sequence(ctx, req.Prefix)
	if err != nil {
		return BulkSlotResult{}, err
	}

	result := BulkSlotResult{
		CreatedSlots:   make([]SlotResponse, 0, req.Count),
		RequestedCount: req.Count,
		FailedAttempts: []SlotFailure{},
	}

	for _, slotNumber := range seq.Take(req.Count) {
		for {
			slot := model.ParkingSlot{
				SlotNumber:  slotNumber,
				VehicleType: req.VehicleType,
				Size:        req.Size,
				Location:    req.Location,
				Status:      model.SlotAvailable,
			}

			createErr := s.slotRepo.Create(ctx, &slot)
			if createErr == nil {
				result.CreatedSlots = append(result.CreatedSlots, toSlotResponse(slot))
				break
			}
			if repository.IsUniqueViolation(createErr) {
				// Another writer took this number after the snapshot.
				slotNumber = seq.Next()
				continue
			}
			result.FailedAttempts = append(result.FailedAttempts, SlotFailure{
				SlotNumber: slotNumber,
				Reason:     createErr.Error(),
			})
			break
		}
	}

	result.TotalCreated = len(result.CreatedSlots)

	details := map[string]interface{}{
		"prefix":          req.Prefix,
		"requested_count": req.Count,
		"total_created":   result.TotalCreated,
		"failed":          len(result.FailedAttempts),
	}
	// The slots are already inserted; losing the audit row must not cost the
	// caller the created/failed report.
	if auditErr := s.logAction(ctx, actorID, model.ActionCreateSlotsBulk, req.Prefix, req.Prefix, details); auditErr != nil {
		log.Printf("audit log for bulk slot create %s failed: %v", req.Prefix, auditErr)
	}

	s.broadcast("slots_bulk_created", req.Prefix, fmt.Sprintf("%d/%d", result.TotalCreated, req.Count), model.SlotAvailable)
	return result, nil
}

func (s *slotService) GetSlot(ctx context.Context, id string) (SlotResponse, error) {
	slotID, err := uuid.Parse(id)
	if err != nil {
		return SlotResponse{}, fmt.Errorf("%w: invalid slot id", ErrInvalidInput)
	}

	slot, err := s.slotRepo.FindByIDWithAssignment(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SlotResponse{}, fmt.Errorf("%w: parking slot", ErrNotFound)
		}
		return SlotResponse{}, err
	}

	return toSlotResponse(*slot), nil
}

func (s *slotService) ListSlots(ctx context.Context, filter repository.SlotFilter) ([]SlotResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	slots, total, err := s.slotRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch slots: %w", err)
	}

	responses := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		responses = append(responses, toSlotResponse(slot))
	}

	return responses, total, nil
}

func (s *slotService) UpdateSlot(ctx context.Context, actorID, id string, req UpdateSlotDTO) (SlotResponse, error) {
	slotID, err := uuid.Parse(id)
	if err != nil {
		return SlotResponse{}, fmt.Errorf("%w: invalid slot id", ErrInvalidInput)
	}

	var updated model.ParkingSlot
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		slot, findErr := s.slotRepo.FindByID(txCtx, slotID)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrNotFound) {
				return fmt.Errorf("%w: parking slot", ErrNotFound)
			}
			return findErr
		}

		if req.SlotNumber != "" {
			slot.SlotNumber = req.SlotNumber
		}
		if req.VehicleType != "" {
			slot.VehicleType = req.VehicleType
		}
		if req.Size != "" {
			slot.Size = req.Size
		}
		if req.Location != "" {
			slot.Location = req.Location
		}
		if req.Status != "" {
			slot.Status = req.Status
		}

		if saveErr := s.slotRepo.Update(txCtx, slot); saveErr != nil {
			if repository.IsUniqueViolation(saveErr) {
				return fmt.Errorf("%w: %s", ErrDuplicateSlotNumber, req.SlotNumber)
			}
			return fmt.Errorf("failed to update slot: %w", saveErr)
		}

		updated = *slot
		return s.logAction(txCtx, actorID, model.ActionUpdateSlot, slot.ID.String(), slot.SlotNumber, req)
	})
	if err != nil {
		return SlotResponse{}, err
	}

	s.broadcast("slot_updated", updated.ID.String(), updated.SlotNumber, updated.Status)
	return toSlotResponse(updated), nil
}

// DeleteSlot refuses to remove a slot any APPROVED request still references.
// The guard and the delete share one transaction so a concurrent approval
// cannot slip between them.
func (s *slotService) DeleteSlot(ctx context.Context, actorID, id string) error {
	slotID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid slot id", ErrInvalidInput)
	}

	var deleted model.ParkingSlot
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		slot, findErr := s.slotRepo.FindByID(txCtx, slotID)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrNotFound) {
				return fmt.Errorf("%w: parking slot", ErrNotFound)
			}
			return findErr
		}

		approved, countErr := s.requestRepo.CountApprovedBySlot(txCtx, slotID)
		if countErr != nil {
			return countErr
		}
		if approved > 0 {
			return ErrHasActiveAssignment
		}

		if delErr := s.slotRepo.Delete(txCtx, slotID); delErr != nil {
			return fmt.Errorf("failed to delete slot: %w", delErr)
		}

		deleted = *slot
		return s.logAction(txCtx, actorID, model.ActionDeleteSlot, slot.ID.String(), slot.SlotNumber, nil)
	})
	if err != nil {
		return err
	}

	s.broadcast("slot_deleted", deleted.ID.String(), deleted.SlotNumber, deleted.Status)
	return nil
}

// FindCompatible returns the oldest AVAILABLE slot whose vehicle type and size
// exactly match. A preferred location narrows the candidates when a match
// exists there; otherwise any location serves.
func (s *slotService) FindCompatible(ctx context.Context, vehicleType, size string, preferredLocation *string) (*model.ParkingSlot, error) {
	if preferredLocation != nil {
		slot, err := s.slotRepo.FindFirstAvailable(ctx, vehicleType, size, preferredLocation)
		if err == nil {
			return slot, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	slot, err := s.slotRepo.FindFirstAvailable(ctx, vehicleType, size, nil)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCompatibleSlot
		}
		return nil, err
	}
	return slot, nil
}

// --- Helpers ---

func (s *slotService) logAction(ctx context.Context, actorID, action, entityID, entityName string, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *slotService) broadcast(event, slotID, slotNumber, status string) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"event":       event,
		"slot_id":     slotID,
		"slot_number": slotNumber,
		"status":      status,
		"at":          time.Now().Format(time.RFC3339),
	})
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func toSlotResponse(slot model.ParkingSlot) SlotResponse {
	resp := SlotResponse{
		ID:          slot.ID.String(),
		SlotNumber:  slot.SlotNumber,
		VehicleType: slot.VehicleType,
		Size:        slot.Size,
		Location:    slot.Location,
		Status:      slot.Status,
		CreatedAt:   slot.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   slot.UpdatedAt.Format(time.RFC3339),
	}

	for _, req := range slot.SlotRequests {
		if req.Status != model.RequestApproved {
			continue
		}
		assigned := &AssignedTo{
			UserID:    req.UserID.String(),
			VehicleID: req.VehicleID.String(),
		}
		if req.Vehicle != nil {
			assigned.VehiclePlate = req.Vehicle.PlateNumber
		}
		resp.AssignedTo = assigned
		break
	}

	return resp
}
