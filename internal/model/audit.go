package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionRegister      = "REGISTER"
	ActionLogin         = "LOGIN"
	ActionCreateVehicle = "CREATE_VEHICLE"
	ActionUpdateVehicle = "UPDATE_VEHICLE"
	ActionDeleteVehicle = "DELETE_VEHICLE"

	// Slot registry actions
	ActionCreateSlot      = "CREATE_SLOT"
	ActionCreateSlotsBulk = "CREATE_SLOTS_BULK"
	ActionUpdateSlot      = "UPDATE_SLOT"
	ActionDeleteSlot      = "DELETE_SLOT"

	// Request lifecycle actions
	ActionCreateSlotRequest  = "CREATE_SLOT_REQUEST"
	ActionUpdateSlotRequest  = "UPDATE_SLOT_REQUEST"
	ActionCancelSlotRequest  = "CANCEL_SLOT_REQUEST"
	ActionApproveSlotRequest = "APPROVE_SLOT_REQUEST"
	ActionRejectSlotRequest  = "REJECT_SLOT_REQUEST"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
