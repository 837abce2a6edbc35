package handler

import (
	"net/http"

	"parking-backend/internal/middleware"
	"parking-backend/internal/model"
	"parking-backend/internal/repository"
	"parking-backend/internal/service"
	"parking-backend/pkg/pagination"
	"parking-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService service.SlotRequestService
}

// NewRequestHandler sets up the routing dependencies for slot request endpoints
func NewRequestHandler(requestService service.SlotRequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/slot-requests")
	{
		requests.POST("", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.CreateRequest)
		requests.GET("", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.ListRequests)
		requests.PUT("/:id", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.UpdateRequest)
		requests.DELETE("/:id", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.CancelRequest)
		requests.POST("/:id/approve", middleware.RequireRole(model.RoleAdmin), h.ApproveRequest)
		requests.POST("/:id/reject", middleware.RequireRole(model.RoleAdmin), h.RejectRequest)
	}

	// Rejection reason lookup keyed by slot rather than request
	router.GET("/slots/:id/rejection-reason", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.RejectionReasonForSlot)
}

// CreateRequest handles POST /slot-requests
// @Summary      Create slot request
// @Description  Submits a pending request for one of the caller's vehicles; no slot is reserved until approval
// @Tags         slot-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSlotRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.SlotRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /slot-requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateSlotRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.requestService.CreateRequest(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// ListRequests handles GET /slot-requests. Regular users see only their own
// requests; admins see everything.
// @Summary      List slot requests
// @Description  Paginated request listing with status and search filters; non-admins are scoped to their own requests
// @Tags         slot-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status (PENDING, APPROVED, REJECTED)"
// @Param        search  query     string  false  "Search by plate or slot number"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /slot-requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.RequestFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	if c.GetString("userRole") != model.RoleAdmin {
		uid, err := uuid.Parse(c.GetString("userID"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
			return
		}
		filter.UserID = &uid
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// UpdateRequest handles PUT /slot-requests/:id
// @Summary      Update slot request
// @Description  Edits a pending request owned by the caller; approved and rejected requests are immutable
// @Tags         slot-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Request ID"
// @Param        payload  body      service.UpdateSlotRequestDTO  true  "Update Request Payload"
// @Success      200      {object}  response.Response{data=service.SlotRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /slot-requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var req service.UpdateSlotRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	updated, err := h.requestService.UpdateRequest(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// CancelRequest handles DELETE /slot-requests/:id
// @Summary      Cancel slot request
// @Description  Removes a pending request owned by the caller
// @Tags         slot-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /slot-requests/{id} [delete]
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	if err := h.requestService.CancelRequest(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Request cancelled"))
}

// ApproveRequest handles POST /slot-requests/:id/approve
// @Summary      Approve slot request
// @Description  Assigns a compatible slot (or the explicitly chosen one) and marks the request APPROVED
// @Tags         slot-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true   "Request ID"
// @Param        payload  body      service.ApproveSlotRequestDTO  false  "Optional explicit slot"
// @Success      200      {object}  response.Response{data=service.SlotRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /slot-requests/{id}/approve [post]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	var req service.ApproveSlotRequestDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	approved, err := h.requestService.ApproveRequest(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.SlotID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approved))
}

// RejectRequest handles POST /slot-requests/:id/reject
// @Summary      Reject slot request
// @Description  Marks a pending request REJECTED with a mandatory reason
// @Tags         slot-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Request ID"
// @Param        payload  body      service.RejectSlotRequestDTO  true  "Rejection Reason"
// @Success      200      {object}  response.Response{data=service.SlotRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /slot-requests/{id}/reject [post]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var req service.RejectSlotRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rejected, err := h.requestService.RejectRequest(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rejected))
}

// RejectionReasonForSlot handles GET /slots/:id/rejection-reason
// @Summary      Get rejection reason for a slot
// @Description  Returns the rejection reason from the most recent request that references the slot
// @Tags         slot-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Slot ID"
// @Success      200  {object}  response.Response{data=service.RejectionReasonResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /slots/{id}/rejection-reason [get]
func (h *RequestHandler) RejectionReasonForSlot(c *gin.Context) {
	reason, err := h.requestService.RejectionReasonForSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, reason))
}
