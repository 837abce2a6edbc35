package repository

import (
	"context"
	"strings"

	"parking-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleFilter narrows List results. Search matches the plate number as a
// case-insensitive substring, OR-combined with an exact vehicle type match
// when the uppercased search text parses as one.
type VehicleFilter struct {
	UserID *uuid.UUID
	Search string
	Page   int
	Limit  int
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Vehicle, error)
	List(ctx context.Context, filter VehicleFilter) ([]model.Vehicle, int64, error)
	Update(ctx context.Context, vehicle *model.Vehicle) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return translate(GetDB(ctx, r.db).Create(vehicle).Error)
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := GetDB(ctx, r.db).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &vehicle, nil
}

// FindOwned is the vehicle-directory lookup used by the request lifecycle:
// the vehicle must exist AND belong to userID.
func (r *vehicleRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := GetDB(ctx, r.db).
		Where("id = ? AND user_id = ?", id, userID).
		First(&vehicle).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vehicle, nil
}

func (r *vehicleRepository) List(ctx context.Context, filter VehicleFilter) ([]model.Vehicle, int64, error) {
	query := applyVehicleFilter(GetDB(ctx, r.db).Model(&model.Vehicle{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var vehicles []model.Vehicle
	fetchQuery := applyVehicleFilter(GetDB(ctx, r.db).Model(&model.Vehicle{}), filter)
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}

	return vehicles, total, nil
}

func applyVehicleFilter(query *gorm.DB, filter VehicleFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Search != "" {
		upper := strings.ToUpper(filter.Search)
		cond := query.Session(&gorm.Session{NewDB: true}).
			Where("plate_number ILIKE ?", "%"+filter.Search+"%")
		if model.IsValidVehicleType(upper) {
			cond = cond.Or("vehicle_type = ?", upper)
		}
		query = query.Where(cond)
	}
	return query
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	return translate(GetDB(ctx, r.db).Save(vehicle).Error)
}

func (r *vehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Vehicle{}).Error
}
