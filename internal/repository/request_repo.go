package repository

import (
	"context"

	"parking-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows List results. UserID scopes the listing to one owner
// (nil for admin-wide listings); Search matches the vehicle plate or the
// assigned slot number as a case-insensitive substring.
type RequestFilter struct {
	UserID *uuid.UUID
	Status string
	Search string
	Page   int
	Limit  int
}

type SlotRequestRepository interface {
	Create(ctx context.Context, req *model.SlotRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error)
	FindPendingOwned(ctx context.Context, id, userID uuid.UUID) (*model.SlotRequest, error)
	FindLatestBySlotID(ctx context.Context, slotID uuid.UUID) (*model.SlotRequest, error)
	CountApprovedBySlot(ctx context.Context, slotID uuid.UUID) (int64, error)
	List(ctx context.Context, filter RequestFilter) ([]model.SlotRequest, int64, error)
	Update(ctx context.Context, req *model.SlotRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type slotRequestRepository struct {
	db *gorm.DB
}

func NewSlotRequestRepository(db *gorm.DB) SlotRequestRepository {
	return &slotRequestRepository{db: db}
}

func (r *slotRequestRepository) Create(ctx context.Context, req *model.SlotRequest) error {
	return translate(GetDB(ctx, r.db).Create(req).Error)
}

func (r *slotRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error) {
	var req model.SlotRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *slotRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error) {
	var req model.SlotRequest
	err := GetDB(ctx, r.db).
		Preload("User").
		Preload("Vehicle").
		Preload("Slot").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// FindPendingOwned looks the request up by id, owner, and PENDING status in one
// query, the guard used by edit and cancel.
func (r *slotRequestRepository) FindPendingOwned(ctx context.Context, id, userID uuid.UUID) (*model.SlotRequest, error) {
	var req model.SlotRequest
	err := GetDB(ctx, r.db).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, model.RequestPending).
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *slotRequestRepository) FindLatestBySlotID(ctx context.Context, slotID uuid.UUID) (*model.SlotRequest, error) {
	var req model.SlotRequest
	err := GetDB(ctx, r.db).
		Where("slot_id = ?", slotID).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *slotRequestRepository) CountApprovedBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SlotRequest{}).
		Where("slot_id = ? AND status = ?", slotID, model.RequestApproved).
		Count(&count).Error
	return count, err
}

func (r *slotRequestRepository) List(ctx context.Context, filter RequestFilter) ([]model.SlotRequest, int64, error) {
	query := applyRequestFilter(GetDB(ctx, r.db).Model(&model.SlotRequest{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var requests []model.SlotRequest
	fetchQuery := applyRequestFilter(GetDB(ctx, r.db).Model(&model.SlotRequest{}), filter).
		Preload("User").
		Preload("Vehicle").
		Preload("Slot")
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func applyRequestFilter(query *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("slot_requests.user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("slot_requests.status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.
			Joins("LEFT JOIN vehicles ON vehicles.id = slot_requests.vehicle_id").
			Where("vehicles.plate_number ILIKE ? OR slot_requests.slot_number ILIKE ?", pattern, pattern)
	}
	return query
}

func (r *slotRequestRepository) Update(ctx context.Context, req *model.SlotRequest) error {
	return translate(GetDB(ctx, r.db).Save(req).Error)
}

func (r *slotRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.SlotRequest{}).Error
}
