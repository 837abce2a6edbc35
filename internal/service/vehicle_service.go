package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateVehicleDTO struct {
	PlateNumber string          `json:"plate_number" binding:"required,max=20"`
	VehicleType string          `json:"vehicle_type" binding:"required,oneof=CAR MOTORCYCLE TRUCK"`
	Size        string          `json:"size" binding:"required,oneof=SMALL MEDIUM LARGE"`
	Attributes  json.RawMessage `json:"attributes" binding:"omitempty"`
}

type UpdateVehicleDTO struct {
	PlateNumber string          `json:"plate_number" binding:"omitempty,max=20"`
	VehicleType string          `json:"vehicle_type" binding:"omitempty,oneof=CAR MOTORCYCLE TRUCK"`
	Size        string          `json:"size" binding:"omitempty,oneof=SMALL MEDIUM LARGE"`
	Attributes  json.RawMessage `json:"attributes" binding:"omitempty"`
}

type VehicleResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	PlateNumber string          `json:"plate_number"`
	VehicleType string          `json:"vehicle_type"`
	Size        string          `json:"size"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// --- Interface ---

// VehicleService manages each user's registered vehicles. All mutations are
// owner-scoped; plate numbers are unique across the fleet.
type VehicleService interface {
	CreateVehicle(ctx context.Context, userID string, req CreateVehicleDTO) (VehicleResponse, error)
	GetVehicle(ctx context.Context, id, userID string) (VehicleResponse, error)
	ListVehicles(ctx context.Context, filter repository.VehicleFilter) ([]VehicleResponse, int64, error)
	UpdateVehicle(ctx context.Context, id, userID string, req UpdateVehicleDTO) (VehicleResponse, error)
	DeleteVehicle(ctx context.Context, id, userID string) error
}

type vehicleService struct {
	vehicleRepo repository.VehicleRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewVehicleService(
	vehicleRepo repository.VehicleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) VehicleService {
	return &vehicleService{
		vehicleRepo: vehicleRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

func (s *vehicleService) CreateVehicle(ctx context.Context, userID string, req CreateVehicleDTO) (VehicleResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return VehicleResponse{}, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}

	vehicle := model.Vehicle{
		UserID:      uid,
		PlateNumber: req.PlateNumber,
		VehicleType: req.VehicleType,
		Size:        req.Size,
		Attributes:  string(req.Attributes),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.vehicleRepo.Create(txCtx, &vehicle); createErr != nil {
			if repository.IsUniqueViolation(createErr) {
				return fmt.Errorf("%w: %s", ErrDuplicatePlateNumber, req.PlateNumber)
			}
			return fmt.Errorf("failed to create vehicle: %w", createErr)
		}
		return s.logAction(txCtx, uid, model.ActionCreateVehicle, vehicle.ID.String(), req.PlateNumber, req)
	})
	if err != nil {
		return VehicleResponse{}, err
	}

	return toVehicleResponse(vehicle), nil
}

func (s *vehicleService) GetVehicle(ctx context.Context, id, userID string) (VehicleResponse, error) {
	vehicleID, uid, err := parseVehicleIDs(id, userID)
	if err != nil {
		return VehicleResponse{}, err
	}

	vehicle, err := s.vehicleRepo.FindOwned(ctx, vehicleID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return VehicleResponse{}, fmt.Errorf("%w: vehicle", ErrNotFound)
		}
		return VehicleResponse{}, err
	}

	return toVehicleResponse(*vehicle), nil
}

func (s *vehicleService) ListVehicles(ctx context.Context, filter repository.VehicleFilter) ([]VehicleResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	vehicles, total, err := s.vehicleRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	responses := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		responses = append(responses, toVehicleResponse(v))
	}

	return responses, total, nil
}

func (s *vehicleService) UpdateVehicle(ctx context.Context, id, userID string, req UpdateVehicleDTO) (VehicleResponse, error) {
	vehicleID, uid, err := parseVehicleIDs(id, userID)
	if err != nil {
		return VehicleResponse{}, err
	}

	var updated model.Vehicle
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vehicle, findErr := s.vehicleRepo.FindOwned(txCtx, vehicleID, uid)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrNotFound) {
				return fmt.Errorf("%w: vehicle", ErrNotFound)
			}
			return findErr
		}

		if req.PlateNumber != "" {
			vehicle.PlateNumber = req.PlateNumber
		}
		if req.VehicleType != "" {
			vehicle.VehicleType = req.VehicleType
		}
		if req.Size != "" {
			vehicle.Size = req.Size
		}
		if len(req.Attributes) > 0 {
			vehicle.Attributes = string(req.Attributes)
		}

		if saveErr := s.vehicleRepo.Update(txCtx, vehicle); saveErr != nil {
			if repository.IsUniqueViolation(saveErr) {
				return fmt.Errorf("%w: %s", ErrDuplicatePlateNumber, req.PlateNumber)
			}
			return fmt.Errorf("failed to update vehicle: %w", saveErr)
		}

		updated = *vehicle
		return s.logAction(txCtx, uid, model.ActionUpdateVehicle, vehicle.ID.String(), vehicle.PlateNumber, req)
	})
	if err != nil {
		return VehicleResponse{}, err
	}

	return toVehicleResponse(updated), nil
}

func (s *vehicleService) DeleteVehicle(ctx context.Context, id, userID string) error {
	vehicleID, uid, err := parseVehicleIDs(id, userID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vehicle, findErr := s.vehicleRepo.FindOwned(txCtx, vehicleID, uid)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrNotFound) {
				return fmt.Errorf("%w: vehicle", ErrNotFound)
			}
			return findErr
		}

		if delErr := s.vehicleRepo.Delete(txCtx, vehicleID); delErr != nil {
			return fmt.Errorf("failed to delete vehicle: %w", delErr)
		}

		return s.logAction(txCtx, uid, model.ActionDeleteVehicle, vehicle.ID.String(), vehicle.PlateNumber, nil)
	})
}

// --- Helpers ---

func parseVehicleIDs(id, userID string) (uuid.UUID, uuid.UUID, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid vehicle id", ErrInvalidInput)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return vehicleID, uid, nil
}

func (s *vehicleService) logAction(ctx context.Context, actorID uuid.UUID, action, entityID, entityName string, payload interface{}) error {
	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     &actorID,
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

func toVehicleResponse(v model.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:          v.ID.String(),
		UserID:      v.UserID.String(),
		PlateNumber: v.PlateNumber,
		VehicleType: v.VehicleType,
		Size:        v.Size,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   v.UpdatedAt.Format(time.RFC3339),
	}
	if v.Attributes != "" {
		resp.Attributes = json.RawMessage(v.Attributes)
	}
	return resp
}
