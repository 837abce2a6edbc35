package model

import (
	"time"

	"github.com/google/uuid"
)

// VehicleType enum constants
const (
	VehicleTypeCar        = "CAR"
	VehicleTypeMotorcycle = "MOTORCYCLE"
	VehicleTypeTruck      = "TRUCK"
)

// VehicleSize enum constants
const (
	SizeSmall  = "SMALL"
	SizeMedium = "MEDIUM"
	SizeLarge  = "LARGE"
)

// Vehicle belongs to a user and is matched against parking slots by type and size.
type Vehicle struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PlateNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"plate_number"`
	VehicleType string    `gorm:"type:varchar(20);not null" json:"vehicle_type"` // CAR, MOTORCYCLE, TRUCK
	Size        string    `gorm:"type:varchar(20);not null" json:"size"`         // SMALL, MEDIUM, LARGE
	Attributes  string    `gorm:"type:jsonb" json:"attributes,omitempty"`        // Free-form extras (color, model, ...)
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidVehicleType reports whether s is one of the vehicle type enum values.
func IsValidVehicleType(s string) bool {
	return s == VehicleTypeCar || s == VehicleTypeMotorcycle || s == VehicleTypeTruck
}

// IsValidSize reports whether s is one of the size enum values.
func IsValidSize(s string) bool {
	return s == SizeSmall || s == SizeMedium || s == SizeLarge
}
