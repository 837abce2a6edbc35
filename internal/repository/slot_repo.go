package repository

import (
	"context"
	"strings"

	"parking-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SlotFilter narrows List results. Search matches the slot number as a
// case-insensitive substring, OR-combined with exact location/vehicle type
// matches when the uppercased search text parses as one of those enums.
type SlotFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

type SlotRepository interface {
	Create(ctx context.Context, slot *model.ParkingSlot) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error)
	FindByIDWithAssignment(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error)
	ExistsBySlotNumber(ctx context.Context, slotNumber string) (bool, error)
	NumbersByPrefix(ctx context.Context, prefix string) ([]string, error)
	List(ctx context.Context, filter SlotFilter) ([]model.ParkingSlot, int64, error)
	FindFirstAvailable(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error)
	OccupyIfAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, slot *model.ParkingSlot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type slotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) Create(ctx context.Context, slot *model.ParkingSlot) error {
	return translate(GetDB(ctx, r.db).Create(slot).Error)
}

func (r *slotRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error) {
	var slot model.ParkingSlot
	if err := GetDB(ctx, r.db).First(&slot, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

func (r *slotRepository) FindByIDWithAssignment(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error) {
	var slot model.ParkingSlot
	err := GetDB(ctx, r.db).
		Preload("SlotRequests", "status = ?", model.RequestApproved).
		Preload("SlotRequests.Vehicle").
		First(&slot, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

func (r *slotRepository) ExistsBySlotNumber(ctx context.Context, slotNumber string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ParkingSlot{}).
		Where("slot_number = ?", slotNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *slotRepository) NumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	err := GetDB(ctx, r.db).Model(&model.ParkingSlot{}).
		Where("slot_number LIKE ?", prefix+"-%").
		Pluck("slot_number", &numbers).Error
	return numbers, err
}

func (r *slotRepository) List(ctx context.Context, filter SlotFilter) ([]model.ParkingSlot, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.ParkingSlot{})
	query = applySlotFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var slots []model.ParkingSlot
	fetchQuery := GetDB(ctx, r.db).
		Preload("SlotRequests", "status = ?", model.RequestApproved).
		Preload("SlotRequests.Vehicle")
	fetchQuery = applySlotFilter(fetchQuery, filter)
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&slots).Error; err != nil {
		return nil, 0, err
	}

	return slots, total, nil
}

func applySlotFilter(query *gorm.DB, filter SlotFilter) *gorm.DB {
	if filter.Search != "" {
		upper := strings.ToUpper(filter.Search)
		cond := query.Session(&gorm.Session{NewDB: true}).
			Where("slot_number ILIKE ?", "%"+filter.Search+"%")
		if model.IsValidLocation(upper) {
			cond = cond.Or("location = ?", upper)
		}
		if model.IsValidVehicleType(upper) {
			cond = cond.Or("vehicle_type = ?", upper)
		}
		query = query.Where(cond)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

// FindFirstAvailable returns the oldest AVAILABLE slot exactly matching the
// vehicle type and size, optionally narrowed by location. Oldest-first keeps
// the matching policy auditable.
func (r *slotRepository) FindFirstAvailable(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error) {
	query := GetDB(ctx, r.db).
		Where("status = ? AND vehicle_type = ? AND size = ?", model.SlotAvailable, vehicleType, size)
	if location != nil {
		query = query.Where("location = ?", *location)
	}

	var slot model.ParkingSlot
	if err := query.Order("created_at ASC").First(&slot).Error; err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

// OccupyIfAvailable flips the slot to OCCUPIED only if it is still AVAILABLE.
// The conditional WHERE makes concurrent approvals race to exactly one winner.
func (r *slotRepository) OccupyIfAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.ParkingSlot{}).
		Where("id = ? AND status = ?", id, model.SlotAvailable).
		Update("status", model.SlotOccupied)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *slotRepository) Update(ctx context.Context, slot *model.ParkingSlot) error {
	return translate(GetDB(ctx, r.db).Save(slot).Error)
}

func (r *slotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ParkingSlot{}).Error
}
