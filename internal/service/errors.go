package service

import "errors"

// Service-level error taxonomy. Handlers map these onto HTTP statuses with
// errors.Is; anything not listed here is treated as an opaque internal error.
var (
	ErrNotFound                = errors.New("record not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrDuplicateSlotNumber     = errors.New("slot number already exists")
	ErrDuplicatePlateNumber    = errors.New("plate number already exists")
	ErrInvalidStateTransition  = errors.New("request is no longer pending")
	ErrVehicleNotOwned         = errors.New("vehicle not found or does not belong to user")
	ErrNoCompatibleSlot        = errors.New("no compatible slot available")
	ErrSlotUnavailable         = errors.New("slot is no longer available")
	ErrGenerationExhausted     = errors.New("failed to generate unique slot number after multiple attempts")
	ErrHasActiveAssignment     = errors.New("cannot delete a slot with approved requests")
	ErrNotRejected             = errors.New("latest request for slot is not rejected")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
)
