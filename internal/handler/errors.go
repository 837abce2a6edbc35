package handler

import (
	"errors"
	"net/http"

	"parking-backend/internal/service"
	"parking-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError translates service sentinel errors into HTTP status codes
// and writes the standard error envelope.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrVehicleNotOwned):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrSlotUnavailable):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDuplicateSlotNumber),
		errors.Is(err, service.ErrDuplicatePlateNumber),
		errors.Is(err, service.ErrNoCompatibleSlot),
		errors.Is(err, service.ErrHasActiveAssignment),
		errors.Is(err, service.ErrNotRejected),
		errors.Is(err, service.ErrRejectionReasonRequired):
		status = http.StatusBadRequest
	}

	c.JSON(status, response.Error(status, err.Error()))
}
