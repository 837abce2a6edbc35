package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"
	"parking-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock SlotRequestService ---

type mockRequestService struct {
	createFn          func(ctx context.Context, userID string, req service.CreateSlotRequestDTO) (service.SlotRequestResponse, error)
	updateFn          func(ctx context.Context, id, userID string, req service.UpdateSlotRequestDTO) (service.SlotRequestResponse, error)
	cancelFn          func(ctx context.Context, id, userID string) error
	approveFn         func(ctx context.Context, id, actorID, explicitSlotID string) (service.SlotRequestResponse, error)
	rejectFn          func(ctx context.Context, id, actorID, reason string) (service.SlotRequestResponse, error)
	listFn            func(ctx context.Context, filter repository.RequestFilter) ([]service.SlotRequestResponse, int64, error)
	rejectionReasonFn func(ctx context.Context, slotID string) (service.RejectionReasonResponse, error)
}

func (m *mockRequestService) CreateRequest(ctx context.Context, userID string, req service.CreateSlotRequestDTO) (service.SlotRequestResponse, error) {
	return m.createFn(ctx, userID, req)
}
func (m *mockRequestService) UpdateRequest(ctx context.Context, id, userID string, req service.UpdateSlotRequestDTO) (service.SlotRequestResponse, error) {
	return m.updateFn(ctx, id, userID, req)
}
func (m *mockRequestService) CancelRequest(ctx context.Context, id, userID string) error {
	return m.cancelFn(ctx, id, userID)
}
func (m *mockRequestService) ApproveRequest(ctx context.Context, id, actorID, explicitSlotID string) (service.SlotRequestResponse, error) {
	return m.approveFn(ctx, id, actorID, explicitSlotID)
}
func (m *mockRequestService) RejectRequest(ctx context.Context, id, actorID, reason string) (service.SlotRequestResponse, error) {
	return m.rejectFn(ctx, id, actorID, reason)
}
func (m *mockRequestService) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]service.SlotRequestResponse, int64, error) {
	return m.listFn(ctx, filter)
}
func (m *mockRequestService) RejectionReasonForSlot(ctx context.Context, slotID string) (service.RejectionReasonResponse, error) {
	return m.rejectionReasonFn(ctx, slotID)
}

// injectAuth stands in for the JWT middleware in tests.
func injectAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

func setupRequestRouter(svc service.SlotRequestService, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(injectAuth(userID, role))

	h := NewRequestHandler(svc)
	router.POST("/slot-requests", h.CreateRequest)
	router.GET("/slot-requests", h.ListRequests)
	router.PUT("/slot-requests/:id", h.UpdateRequest)
	router.DELETE("/slot-requests/:id", h.CancelRequest)
	router.POST("/slot-requests/:id/approve", h.ApproveRequest)
	router.POST("/slot-requests/:id/reject", h.RejectRequest)
	router.GET("/slots/:id/rejection-reason", h.RejectionReasonForSlot)
	return router
}

func TestCreateRequestHandler_Success(t *testing.T) {
	userID := uuid.NewString()
	svc := &mockRequestService{
		createFn: func(ctx context.Context, uid string, req service.CreateSlotRequestDTO) (service.SlotRequestResponse, error) {
			assert.Equal(t, userID, uid)
			return service.SlotRequestResponse{ID: uuid.NewString(), Status: model.RequestPending}, nil
		},
	}
	router := setupRequestRouter(svc, userID, model.RoleUser)

	body, _ := json.Marshal(map[string]string{"vehicle_id": uuid.NewString()})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/slot-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), model.RequestPending)
}

func TestCreateRequestHandler_InvalidPayload(t *testing.T) {
	router := setupRequestRouter(&mockRequestService{}, uuid.NewString(), model.RoleUser)

	// vehicle_id is required and must be a UUID
	body := []byte(`{"vehicle_id": "not-a-uuid"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/slot-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRequestsHandler_UserScopedToOwn(t *testing.T) {
	userID := uuid.New()
	var captured repository.RequestFilter
	svc := &mockRequestService{
		listFn: func(ctx context.Context, filter repository.RequestFilter) ([]service.SlotRequestResponse, int64, error) {
			captured = filter
			return []service.SlotRequestResponse{}, 0, nil
		},
	}
	router := setupRequestRouter(svc, userID.String(), model.RoleUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/slot-requests?status=PENDING", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, userID, *captured.UserID)
	assert.Equal(t, model.RequestPending, captured.Status)
}

func TestListRequestsHandler_AdminSeesAll(t *testing.T) {
	var captured repository.RequestFilter
	svc := &mockRequestService{
		listFn: func(ctx context.Context, filter repository.RequestFilter) ([]service.SlotRequestResponse, int64, error) {
			captured = filter
			return []service.SlotRequestResponse{}, 0, nil
		},
	}
	router := setupRequestRouter(svc, uuid.NewString(), model.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/slot-requests", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, captured.UserID)
}

func TestApproveRequestHandler_EmptyBodyAllowed(t *testing.T) {
	requestID := uuid.NewString()
	svc := &mockRequestService{
		approveFn: func(ctx context.Context, id, actorID, explicitSlotID string) (service.SlotRequestResponse, error) {
			assert.Equal(t, requestID, id)
			assert.Empty(t, explicitSlotID)
			return service.SlotRequestResponse{ID: id, Status: model.RequestApproved}, nil
		},
	}
	router := setupRequestRouter(svc, uuid.NewString(), model.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/slot-requests/%s/approve", requestID), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), model.RequestApproved)
}

func TestApproveRequestHandler_SlotUnavailableConflict(t *testing.T) {
	svc := &mockRequestService{
		approveFn: func(ctx context.Context, id, actorID, explicitSlotID string) (service.SlotRequestResponse, error) {
			return service.SlotRequestResponse{}, service.ErrSlotUnavailable
		},
	}
	router := setupRequestRouter(svc, uuid.NewString(), model.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/slot-requests/%s/approve", uuid.NewString()), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRejectRequestHandler_MissingReason(t *testing.T) {
	router := setupRequestRouter(&mockRequestService{}, uuid.NewString(), model.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/slot-requests/%s/reject", uuid.NewString()), bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelRequestHandler_NotPendingConflict(t *testing.T) {
	svc := &mockRequestService{
		cancelFn: func(ctx context.Context, id, userID string) error {
			return fmt.Errorf("%w: request is already APPROVED", service.ErrInvalidStateTransition)
		},
	}
	router := setupRequestRouter(svc, uuid.NewString(), model.RoleUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/slot-requests/%s", uuid.NewString()), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRejectionReasonHandler_NotFound(t *testing.T) {
	svc := &mockRequestService{
		rejectionReasonFn: func(ctx context.Context, slotID string) (service.RejectionReasonResponse, error) {
			return service.RejectionReasonResponse{}, service.ErrNotFound
		},
	}
	router := setupRequestRouter(svc, uuid.NewString(), model.RoleUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/slots/%s/rejection-reason", uuid.NewString()), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
