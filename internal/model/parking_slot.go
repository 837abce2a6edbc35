package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotLocation enum constants
const (
	LocationNorth = "NORTH"
	LocationEast  = "EAST"
	LocationSouth = "SOUTH"
	LocationWest  = "WEST"
)

// SlotStatus enum constants
const (
	SlotAvailable   = "AVAILABLE"
	SlotOccupied    = "OCCUPIED"
	SlotUnavailable = "UNAVAILABLE"
)

// ParkingSlot is a physical parking space with a unique human-readable number.
// A slot in OCCUPIED status has exactly one APPROVED slot request referencing it;
// an AVAILABLE slot has none.
type ParkingSlot struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SlotNumber   string        `gorm:"type:varchar(30);uniqueIndex;not null" json:"slot_number"` // e.g. SLOT-042, A-00017
	VehicleType  string        `gorm:"type:varchar(20);not null;index" json:"vehicle_type"`      // CAR, MOTORCYCLE, TRUCK
	Size         string        `gorm:"type:varchar(20);not null;index" json:"size"`              // SMALL, MEDIUM, LARGE
	Location     string        `gorm:"type:varchar(20);not null" json:"location"`                // NORTH, EAST, SOUTH, WEST
	Status       string        `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	SlotRequests []SlotRequest `gorm:"foreignKey:SlotID" json:"-"`
	CreatedAt    time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidLocation reports whether s is one of the location enum values.
func IsValidLocation(s string) bool {
	return s == LocationNorth || s == LocationEast || s == LocationSouth || s == LocationWest
}

// IsValidSlotStatus reports whether s is one of the slot status enum values.
func IsValidSlotStatus(s string) bool {
	return s == SlotAvailable || s == SlotOccupied || s == SlotUnavailable
}
