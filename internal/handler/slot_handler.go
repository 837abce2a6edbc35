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
)

type SlotHandler struct {
	slotService service.SlotService
}

// NewSlotHandler sets up the routing dependencies for parking slot endpoints
func NewSlotHandler(slotService service.SlotService) *SlotHandler {
	return &SlotHandler{slotService: slotService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *SlotHandler) RegisterRoutes(router *gin.RouterGroup) {
	slots := router.Group("/slots")
	{
		slots.GET("", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.ListSlots)
		slots.GET("/:id", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.GetSlot)
		slots.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateSlot)
		slots.POST("/bulk", middleware.RequireRole(model.RoleAdmin), h.CreateSlotsBulk)
		slots.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateSlot)
		slots.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteSlot)
	}
}

// CreateSlot handles POST /slots
// @Summary      Create a parking slot
// @Description  Creates a slot; generates a unique slot number when none is supplied
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSlotDTO  true  "Create Slot Payload"
// @Success      201      {object}  response.Response{data=service.SlotResponse}
// @Failure      400      {object}  response.Response
// @Router       /slots [post]
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var req service.CreateSlotDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	slot, err := h.slotService.CreateSlot(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, slot))
}

// CreateSlotsBulk handles POST /slots/bulk
// @Summary      Create parking slots in bulk
// @Description  Creates up to 500 sequentially numbered slots; reports per-slot failures without aborting the batch
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BulkSlotDTO  true  "Bulk Create Payload"
// @Success      201      {object}  response.Response{data=service.BulkSlotResult}
// @Failure      400      {object}  response.Response
// @Router       /slots/bulk [post]
func (h *SlotHandler) CreateSlotsBulk(c *gin.Context) {
	var req service.BulkSlotDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.slotService.CreateSlotsBulk(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListSlots handles GET /slots with search and status filters
// @Summary      List parking slots
// @Description  Paginated slot listing; search matches slot number, location and vehicle type
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term"
// @Param        status  query     string  false  "Filter by status (AVAILABLE, OCCUPIED, UNAVAILABLE)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /slots [get]
func (h *SlotHandler) ListSlots(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.SlotFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	slots, total, err := h.slotService.ListSlots(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"slots": slots,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetSlot handles GET /slots/:id
// @Summary      Get parking slot by ID
// @Description  Fetch a single slot with its current assignment, if any
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Slot ID"
// @Success      200  {object}  response.Response{data=service.SlotResponse}
// @Failure      404  {object}  response.Response
// @Router       /slots/{id} [get]
func (h *SlotHandler) GetSlot(c *gin.Context) {
	slot, err := h.slotService.GetSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, slot))
}

// UpdateSlot handles PUT /slots/:id
// @Summary      Update parking slot
// @Description  Updates slot attributes and status
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Slot ID"
// @Param        payload  body      service.UpdateSlotDTO  true  "Update Slot Payload"
// @Success      200      {object}  response.Response{data=service.SlotResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /slots/{id} [put]
func (h *SlotHandler) UpdateSlot(c *gin.Context) {
	var req service.UpdateSlotDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	slot, err := h.slotService.UpdateSlot(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, slot))
}

// DeleteSlot handles DELETE /slots/:id
// @Summary      Delete parking slot
// @Description  Deletes a slot unless it has an active approved assignment
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Slot ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /slots/{id} [delete]
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	if err := h.slotService.DeleteSlot(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Slot deleted successfully"))
}
