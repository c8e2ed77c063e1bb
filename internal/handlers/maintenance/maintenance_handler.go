// internal/handlers/maintenance/maintenance_handler.go
package maintenance

import (
	"net/http"
	"strconv"

	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/middleware"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/pkg/response"
	service "fleetrent-service/internal/service/maintenance"

	"github.com/gin-gonic/gin"
)

type MaintenanceHandler struct {
	maintenanceService *service.MaintenanceService
}

func NewMaintenanceHandler(maintenanceService *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService}
}

// CreateBlock - POST /admin/vehicles/:id/maintenance
func (h *MaintenanceHandler) CreateBlock(c *gin.Context) {
	vehicleID, ok := pathID(c, "invalid vehicle id")
	if !ok {
		return
	}

	var req maintenance.CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rng, err := daterange.Parse(req.StartDate, req.EndDate)
	if err != nil {
		response.FromError(c, "invalid maintenance period", err)
		return
	}

	block, err := h.maintenanceService.CreateBlock(c.Request.Context(), vehicleID, rng, req.Reason, middleware.ActorFromContext(c))
	if err != nil {
		response.FromError(c, "failed to schedule maintenance", err)
		return
	}

	response.Success(c, http.StatusCreated, "maintenance scheduled", block)
}

// ListBlocks - GET /admin/vehicles/:id/maintenance
func (h *MaintenanceHandler) ListBlocks(c *gin.Context) {
	vehicleID, ok := pathID(c, "invalid vehicle id")
	if !ok {
		return
	}

	blocks, err := h.maintenanceService.ListBlocks(c.Request.Context(), vehicleID)
	if err != nil {
		response.FromError(c, "failed to list maintenance", err)
		return
	}

	response.Success(c, http.StatusOK, "maintenance retrieved", blocks)
}

// DeleteBlock - DELETE /admin/maintenance/:id
func (h *MaintenanceHandler) DeleteBlock(c *gin.Context) {
	id, ok := pathID(c, "invalid maintenance id")
	if !ok {
		return
	}

	if err := h.maintenanceService.DeleteBlock(c.Request.Context(), id, middleware.ActorFromContext(c)); err != nil {
		response.FromError(c, "failed to remove maintenance", err)
		return
	}

	response.Success(c, http.StatusOK, "maintenance removed", nil)
}

func pathID(c *gin.Context, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, message, xerrors.ErrInvalidInput)
		return 0, false
	}
	return id, true
}
