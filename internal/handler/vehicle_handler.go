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

type VehicleHandler struct {
	vehicleService service.VehicleService
}

// NewVehicleHandler sets up the routing dependencies for vehicle endpoints
func NewVehicleHandler(vehicleService service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *VehicleHandler) RegisterRoutes(router *gin.RouterGroup) {
	vehicles := router.Group("/vehicles")
	vehicles.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	{
		vehicles.POST("", h.CreateVehicle)
		vehicles.GET("", h.ListVehicles)
		vehicles.GET("/:id", h.GetVehicle)
		vehicles.PUT("/:id", h.UpdateVehicle)
		vehicles.DELETE("/:id", h.DeleteVehicle)
	}
}

// CreateVehicle handles POST /vehicles
// @Summary      Register a vehicle
// @Description  Adds a vehicle to the caller's fleet; plate numbers must be unique
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateVehicleDTO  true  "Create Vehicle Payload"
// @Success      201      {object}  response.Response{data=service.VehicleResponse}
// @Failure      400      {object}  response.Response
// @Router       /vehicles [post]
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var req service.CreateVehicleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vehicle, err := h.vehicleService.CreateVehicle(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vehicle))
}

// ListVehicles handles GET /vehicles. Regular users see only their own
// vehicles; admins see everything.
// @Summary      List vehicles
// @Description  Paginated vehicle listing; search matches plate and vehicle type
// @Tags         vehicles
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /vehicles [get]
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.VehicleFilter{
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

	vehicles, total, err := h.vehicleService.ListVehicles(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetVehicle handles GET /vehicles/:id
// @Summary      Get vehicle by ID
// @Description  Fetch one of the caller's vehicles
// @Tags         vehicles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Vehicle ID"
// @Success      200  {object}  response.Response{data=service.VehicleResponse}
// @Failure      404  {object}  response.Response
// @Router       /vehicles/{id} [get]
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.GetVehicle(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

// UpdateVehicle handles PUT /vehicles/:id
// @Summary      Update vehicle
// @Description  Updates one of the caller's vehicles
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Vehicle ID"
// @Param        payload  body      service.UpdateVehicleDTO  true  "Update Vehicle Payload"
// @Success      200      {object}  response.Response{data=service.VehicleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /vehicles/{id} [put]
func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	var req service.UpdateVehicleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vehicle, err := h.vehicleService.UpdateVehicle(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

// DeleteVehicle handles DELETE /vehicles/:id
// @Summary      Delete vehicle
// @Description  Removes one of the caller's vehicles
// @Tags         vehicles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Vehicle ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /vehicles/{id} [delete]
func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	if err := h.vehicleService.DeleteVehicle(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Vehicle deleted successfully"))
}
