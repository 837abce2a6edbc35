package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"
	ws "parking-backend/internal/websocket"

	"github.com/google/uuid"
)

// ApprovalNotifier delivers the "slot approved" notification. Failures are
// logged and never affect the outcome of an approval.
type ApprovalNotifier interface {
	NotifyApproval(ctx context.Context, recipient, slotNumber, plateNumber string, approvedAt time.Time) error
}

// --- DTOs ---

type CreateSlotRequestDTO struct {
	VehicleID         string `json:"vehicle_id" binding:"required,uuid"`
	PreferredLocation string `json:"preferred_location" binding:"omitempty,oneof=NORTH EAST SOUTH WEST"`
	StartDate         string `json:"start_date" binding:"omitempty"` // RFC 3339
	EndDate           string `json:"end_date" binding:"omitempty"`   // RFC 3339
	Notes             string `json:"notes" binding:"omitempty,max=500"`
}

type UpdateSlotRequestDTO struct {
	VehicleID         string `json:"vehicle_id" binding:"omitempty,uuid"`
	PreferredLocation string `json:"preferred_location" binding:"omitempty,oneof=NORTH EAST SOUTH WEST"`
	StartDate         string `json:"start_date" binding:"omitempty"`
	EndDate           string `json:"end_date" binding:"omitempty"`
	Notes             string `json:"notes" binding:"omitempty,max=500"`
}

type ApproveSlotRequestDTO struct {
	SlotID string `json:"slot_id" binding:"omitempty,uuid"` // explicit admin override
}

type RejectSlotRequestDTO struct {
	Reason string `json:"reason" binding:"required"`
}

type AssignedSlot struct {
	ID         string `json:"id"`
	SlotNumber string `json:"slot_number"`
}

type SlotRequestResponse struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	UserName          string        `json:"user_name,omitempty"`
	VehicleID         string        `json:"vehicle_id"`
	VehiclePlate      string        `json:"vehicle_plate,omitempty"`
	VehicleType       string        `json:"vehicle_type,omitempty"`
	PreferredLocation *string       `json:"preferred_location,omitempty"`
	StartDate         *string       `json:"start_date,omitempty"`
	EndDate           *string       `json:"end_date,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	Status            string        `json:"status"`
	AssignedSlot      *AssignedSlot `json:"assigned_slot,omitempty"`
	RejectionReason   string        `json:"rejection_reason,omitempty"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
}

// RejectionReasonResponse answers the "why was the request for this slot
// rejected" lookup.
type RejectionReasonResponse struct {
	RequestID       string `json:"request_id"`
	RejectionReason string `json:"rejection_reason"`
}

// --- Interface ---

// SlotRequestService drives the slot request state machine:
// PENDING -approve-> APPROVED, PENDING -reject-> REJECTED,
// PENDING -cancel-> removed, PENDING -edit-> PENDING. APPROVED and REJECTED
// are terminal. Creation never reserves a slot; matching happens at approval.
type SlotRequestService interface {
	CreateRequest(ctx context.Context, userID string, req CreateSlotRequestDTO) (SlotRequestResponse, error)
	UpdateRequest(ctx context.Context, id, userID string, req UpdateSlotRequestDTO) (SlotRequestResponse, error)
	CancelRequest(ctx context.Context, id, userID string) error
	ApproveRequest(ctx context.Context, id, actorID string, explicitSlotID string) (SlotRequestResponse, error)
	RejectRequest(ctx context.Context, id, actorID, reason string) (SlotRequestResponse, error)
	ListRequests(ctx context.Context, filter repository.RequestFilter) ([]SlotRequestResponse, int64, error)
	RejectionReasonForSlot(ctx context.Context, slotID string) (RejectionReasonResponse, error)
}

type slotRequestService struct {
	requestRepo repository.SlotRequestRepository
	slotRepo    repository.SlotRepository
	vehicleRepo repository.VehicleRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	slots       SlotService
	notifier    ApprovalNotifier
	hub         *ws.Hub
}

func NewSlotRequestService(
	requestRepo repository.SlotRequestRepository,
	slotRepo repository.SlotRepository,
	vehicleRepo repository.VehicleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	slots SlotService,
	notifier ApprovalNotifier,
	hub *ws.Hub,
) SlotRequestService {
	return &slotRequestService{
		requestRepo: requestRepo,
		slotRepo:    slotRepo,
		vehicleRepo: vehicleRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		slots:       slots,
		notifier:    notifier,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *slotRequestService) CreateRequest(ctx context.Context, userID string, req CreateSlotRequestDTO) (SlotRequestResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return SlotRequestResponse{}, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return SlotRequestResponse{}, fmt.Errorf("%w: invalid vehicle id", ErrInvalidInput)
	}

	if _, err := s.vehicleRepo.FindOwned(ctx, vehicleID, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SlotRequestResponse{}, ErrVehicleNotOwned
		}
		return SlotRequestResponse{}, err
	}

	startDate, endDate, err := parseRequestWindow(req.StartDate, req.EndDate)
	if err != nil {
		return SlotRequestResponse{}, err
	}

	request := model.SlotRequest{
		UserID:    uid,
		VehicleID: vehicleID,
		StartDate: startDate,
		EndDate:   endDate,
		Notes:     req.Notes,
		Status:    model.RequestPending,
	}
	if req.PreferredLocation != "" {
		loc := req.PreferredLocation
		request.PreferredLocation = &loc
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create slot request: %w", createErr)
		}
		return s.logAction(txCtx, uid, model.ActionCreateSlotRequest, request.ID.String(), req.VehicleID, req)
	})
	if err != nil {
		return SlotRequestResponse{}, err
	}

	return toRequestResponse(request), nil
}

func (s *slotRequestService) UpdateRequest(ctx context.Context, id, userID string, req UpdateSlotRequestDTO) (SlotRequestResponse, error) {
	requestID, uid, err := parseRequestIDs(id, userID)
	if err != nil {
		return SlotRequestResponse{}, err
	}

	var updated model.SlotRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, guardErr := s.pendingOwned(txCtx, requestID, uid)
		if guardErr != nil {
			return guardErr
		}

		if req.VehicleID != "" {
			vehicleID, parseErr := uuid.Parse(req.VehicleID)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid vehicle id", ErrInvalidInput)
			}
			// Ownership must be re-validated when the vehicle changes.
			if _, ownErr := s.vehicleRepo.FindOwned(txCtx, vehicleID, uid); ownErr != nil {
				if errors.Is(ownErr, repository.ErrNotFound) {
					return ErrVehicleNotOwned
				}
				return ownErr
			}
			request.VehicleID = vehicleID
		}

		if req.StartDate != "" || req.EndDate != "" {
			startDate, endDate, windowErr := parseRequestWindow(req.StartDate, req.EndDate)
			if windowErr != nil {
				return windowErr
			}
			if startDate != nil {
				request.StartDate = startDate
			}
			if endDate != nil {
				request.EndDate = endDate
			}
			// A one-sided patch must keep the merged window valid against the
			// bound already stored on the request.
			if request.StartDate != nil && request.EndDate != nil && request.EndDate.Before(*request.StartDate) {
				return fmt.Errorf("%w: end_date must not be earlier than start_date", ErrInvalidInput)
			}
		}
		if req.PreferredLocation != "" {
			loc := req.PreferredLocation
			request.PreferredLocation = &loc
		}
		if req.Notes != "" {
			request.Notes = req.Notes
		}

		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update slot request: %w", saveErr)
		}

		updated = *request
		return s.logAction(txCtx, uid, model.ActionUpdateSlotRequest, request.ID.String(), request.VehicleID.String(), req)
	})
	if err != nil {
		return SlotRequestResponse{}, err
	}

	return toRequestResponse(updated), nil
}

func (s *slotRequestService) CancelRequest(ctx context.Context, id, userID string) error {
	requestID, uid, err := parseRequestIDs(id, userID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, guardErr := s.pendingOwned(txCtx, requestID, uid)
		if guardErr != nil {
			return guardErr
		}

		if delErr := s.requestRepo.Delete(txCtx, requestID); delErr != nil {
			return fmt.Errorf("failed to delete slot request: %w", delErr)
		}

		return s.logAction(txCtx, uid, model.ActionCancelSlotRequest, request.ID.String(), request.VehicleID.String(), nil)
	})
}

// ApproveRequest matches the request to a slot (or validates the explicit
// admin override), then atomically flips the request to APPROVED and the slot
// to OCCUPIED. The slot flip is conditional on the slot still being AVAILABLE,
// so two approvals racing for the same slot produce exactly one winner; the
// loser surfaces ErrSlotUnavailable. The approval notification is sent after
// commit and is best-effort.
func (s *slotRequestService) ApproveRequest(ctx context.Context, id, actorID string, explicitSlotID string) (SlotRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return SlotRequestResponse{}, fmt.Errorf("%w: invalid request id", ErrInvalidInput)
	}

	actorUID, err := uuid.Parse(actorID)
	if err != nil {
		return SlotRequestResponse{}, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}

	var approved model.SlotRequest
	var slot model.ParkingSlot

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDWithRelations(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrNotFound) {
				return fmt.Errorf("%w: slot request", ErrNotFound)
			}
			return findErr
		}
		if request.Status != model.RequestPending {
			return fmt.Errorf("%w: request is already %s", ErrInvalidStateTransition, request.Status)
		}
		if request.Vehicle == nil {
			return fmt.Errorf("slot request %s has no vehicle loaded", request.ID)
		}

		candidate, matchErr := s.matchSlot(txCtx, request, explicitSlotID)
		if matchErr != nil {
			return matchErr
		}

		occupied, occErr := s.slotRepo.OccupyIfAvailable(txCtx, candidate.ID)
		if occErr != nil {
			return fmt.Errorf("failed to occupy slot %s: %w", candidate.SlotNumber, occErr)
		}
		if !occupied {
			return fmt.Errorf("%w: %s", ErrSlotUnavailable, candidate.SlotNumber)
		}

		request.Status = model.RequestApproved
		request.SlotID = &candidate.ID
		request.SlotNumber = candidate.SlotNumber
		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update slot request: %w", saveErr)
		}

		approved = *request
		slot = *candidate
		return s.logAction(txCtx, actorUID, model.ActionApproveSlotRequest, request.ID.String(), candidate.SlotNumber, map[string]string{
			"slot_id":     candidate.ID.String(),
			"slot_number": candidate.SlotNumber,
		})
	})
	if err != nil {
		return SlotRequestResponse{}, err
	}

	// Approval is the source of truth; notification is best-effort.
	if s.notifier != nil && approved.User != nil && approved.Vehicle != nil {
		if notifyErr := s.notifier.NotifyApproval(ctx, approved.User.Email, slot.SlotNumber, approved.Vehicle.PlateNumber, time.Now()); notifyErr != nil {
			log.Printf("approval notification for request %s failed: %v", approved.ID, notifyErr)
		}
	}
	s.broadcast("request_approved", approved.ID.String(), slot.SlotNumber)

	return toRequestResponse(approved), nil
}

func (s *slotRequestService) RejectRequest(ctx context.Context, id, actorID, reason string) (SlotRequestResponse, error) {
	if strings.TrimSpace(reason) == "" {
		return SlotRequestResponse{}, ErrRejectionReasonRequired
	}

	requestID, err := uuid.Parse(id)
	if err != nil {
		return SlotRequestResponse{}, fmt.Errorf("%w: invalid request id", ErrInvalidInput)
	}

	actorUID, err := uuid.Parse(actorID)
	if err != nil {
		return SlotRequestResponse{}, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}

	var rejected model.SlotRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDWithRelations(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrNotFound) {
				return fmt.Errorf("%w: slot request", ErrNotFound)
			}
			return findErr
		}
		if request.Status != model.RequestPending {
			return fmt.Errorf("%w: request is already %s", ErrInvalidStateTransition, request.Status)
		}

		request.Status = model.RequestRejected
		request.RejectionReason = reason
		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update slot request: %w", saveErr)
		}

		rejected = *request
		return s.logAction(txCtx, actorUID, model.ActionRejectSlotRequest, request.ID.String(), request.VehicleID.String(), map[string]string{
			"reason": reason,
		})
	})
	if err != nil {
		return SlotRequestResponse{}, err
	}

	s.broadcast("request_rejected", rejected.ID.String(), "")
	return toRequestResponse(rejected), nil
}

func (s *slotRequestService) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]SlotRequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	requests, total, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch slot requests: %w", err)
	}

	responses := make([]SlotRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, toRequestResponse(r))
	}

	return responses, total, nil
}

// RejectionReasonForSlot looks up the most recent request referencing slotID.
func (s *slotRequestService) RejectionReasonForSlot(ctx context.Context, slotID string) (RejectionReasonResponse, error) {
	sid, err := uuid.Parse(slotID)
	if err != nil {
		return RejectionReasonResponse{}, fmt.Errorf("%w: invalid slot id", ErrInvalidInput)
	}

	request, err := s.requestRepo.FindLatestBySlotID(ctx, sid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RejectionReasonResponse{}, fmt.Errorf("%w: no request references this slot", ErrNotFound)
		}
		return RejectionReasonResponse{}, err
	}

	if request.Status != model.RequestRejected {
		return RejectionReasonResponse{}, ErrNotRejected
	}

	return RejectionReasonResponse{
		RequestID:       request.ID.String(),
		RejectionReason: request.RejectionReason,
	}, nil
}

// --- Helpers ---

// matchSlot resolves the slot to assign. An explicit admin override is
// authoritative on type/size: only existence and availability are checked.
func (s *slotRequestService) matchSlot(ctx context.Context, request *model.SlotRequest, explicitSlotID string) (*model.ParkingSlot, error) {
	if explicitSlotID != "" {
		slotID, err := uuid.Parse(explicitSlotID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid slot id", ErrInvalidInput)
		}
		slot, err := s.slotRepo.FindByID(ctx, slotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: parking slot", ErrNotFound)
			}
			return nil, err
		}
		if slot.Status != model.SlotAvailable {
			return nil, fmt.Errorf("%w: %s", ErrSlotUnavailable, slot.SlotNumber)
		}
		return slot, nil
	}

	return s.slots.FindCompatible(ctx, request.Vehicle.VehicleType, request.Vehicle.Size, request.PreferredLocation)
}

func (s *slotRequestService) pendingOwned(ctx context.Context, requestID, userID uuid.UUID) (*model.SlotRequest, error) {
	request, err := s.requestRepo.FindPendingOwned(ctx, requestID, userID)
	if err == nil {
		return request, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// Distinguish "not yours / missing" from "no longer pending" for the caller.
	existing, findErr := s.requestRepo.FindByID(ctx, requestID)
	if findErr != nil {
		if errors.Is(findErr, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: slot request", ErrNotFound)
		}
		return nil, findErr
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("%w: slot request", ErrNotFound)
	}
	return nil, fmt.Errorf("%w: request is already %s", ErrInvalidStateTransition, existing.Status)
}

// parseRequestWindow validates the optional requested window: startDate must
// not be before today (date-only comparison) and endDate must not be before
// startDate.
func parseRequestWindow(startStr, endStr string) (*time.Time, *time.Time, error) {
	var startDate, endDate *time.Time

	if startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: start_date must be RFC 3339", ErrInvalidInput)
		}
		startDay := truncateToDay(parsed)
		if startDay.Before(truncateToDay(time.Now())) {
			return nil, nil, fmt.Errorf("%w: start_date must not be earlier than today", ErrInvalidInput)
		}
		startDate = &parsed
	}

	if endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: end_date must be RFC 3339", ErrInvalidInput)
		}
		if startDate != nil && parsed.Before(*startDate) {
			return nil, nil, fmt.Errorf("%w: end_date must not be earlier than start_date", ErrInvalidInput)
		}
		endDate = &parsed
	}

	return startDate, endDate, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseRequestIDs(id, userID string) (uuid.UUID, uuid.UUID, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid request id", ErrInvalidInput)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return requestID, uid, nil
}

func (s *slotRequestService) logAction(ctx context.Context, actorID uuid.UUID, action, entityID, entityName string, payload interface{}) error {
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

func (s *slotRequestService) broadcast(event, requestID, slotNumber string) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"event":       event,
		"request_id":  requestID,
		"slot_number": slotNumber,
		"at":          time.Now().Format(time.RFC3339),
	})
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func toRequestResponse(r model.SlotRequest) SlotRequestResponse {
	resp := SlotRequestResponse{
		ID:                r.ID.String(),
		UserID:            r.UserID.String(),
		VehicleID:         r.VehicleID.String(),
		PreferredLocation: r.PreferredLocation,
		Notes:             r.Notes,
		Status:            r.Status,
		RejectionReason:   r.RejectionReason,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.Format(time.RFC3339),
	}

	if r.User != nil {
		resp.UserName = r.User.Name
	}
	if r.Vehicle != nil {
		resp.VehiclePlate = r.Vehicle.PlateNumber
		resp.VehicleType = r.Vehicle.VehicleType
	}
	if r.StartDate != nil {
		v := r.StartDate.Format(time.RFC3339)
		resp.StartDate = &v
	}
	if r.EndDate != nil {
		v := r.EndDate.Format(time.RFC3339)
		resp.EndDate = &v
	}
	if r.SlotID != nil {
		resp.AssignedSlot = &AssignedSlot{
			ID:         r.SlotID.String(),
			SlotNumber: r.SlotNumber,
		}
	}

	return resp
}
