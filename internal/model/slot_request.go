package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus enum constants
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)

// SlotRequest is a user's ask to be assigned a parking slot for one of their
// vehicles. It is mutable only while PENDING; APPROVED and REJECTED are terminal.
// SlotID/SlotNumber are set only on approval, RejectionReason only on rejection.
type SlotRequest struct {
	ID                uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User              *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	VehicleID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle           *Vehicle     `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	PreferredLocation *string      `gorm:"type:varchar(20)" json:"preferred_location"` // NORTH, EAST, SOUTH, WEST
	StartDate         *time.Time   `json:"start_date"`
	EndDate           *time.Time   `json:"end_date"`
	Notes             string       `gorm:"type:text" json:"notes"`
	Status            string       `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	SlotID            *uuid.UUID   `gorm:"type:uuid;index" json:"slot_id"`
	Slot              *ParkingSlot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	SlotNumber        string       `gorm:"type:varchar(30)" json:"slot_number"`
	RejectionReason   string       `gorm:"type:text" json:"rejection_reason"`
	CreatedAt         time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidRequestStatus reports whether s is one of the request status enum values.
func IsValidRequestStatus(s string) bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}
