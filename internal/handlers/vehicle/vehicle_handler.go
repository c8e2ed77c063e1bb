// internal/handlers/vehicle/vehicle_handler.go
package vehicle

import (
	"net/http"
	"strconv"

	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/pkg/response"
	"fleetrent-service/internal/service/availability"
	reservationsvc "fleetrent-service/internal/service/reservation"

	"github.com/gin-gonic/gin"
)

// VehicleHandler serves the read-only booking views of a vehicle.
type VehicleHandler struct {
	checker            *availability.Checker
	reservationService *reservationsvc.ReservationService
}

func NewVehicleHandler(checker *availability.Checker, reservationService *reservationsvc.ReservationService) *VehicleHandler {
	return &VehicleHandler{
		checker:            checker,
		reservationService: reservationService,
	}
}

// CheckAvailability - GET /vehicles/:id/availability?start=&end=&exclude=
func (h *VehicleHandler) CheckAvailability(c *gin.Context) {
	vehicleID, ok := parseVehicleID(c)
	if !ok {
		return
	}

	rng, err := daterange.Parse(c.Query("start"), c.Query("end"))
	if err != nil {
		response.FromError(c, "invalid rental period", err)
		return
	}

	var exclude int64
	if raw := c.Query("exclude"); raw != "" {
		exclude, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid exclude id", xerrors.ErrInvalidInput)
			return
		}
	}

	result, err := h.checker.Check(c.Request.Context(), vehicleID, rng, exclude)
	if err != nil {
		response.FromError(c, "failed to check availability", err)
		return
	}

	message := "vehicle is available"
	if !result.Available {
		message = "vehicle is not available"
	}
	response.Success(c, http.StatusOK, message, result)
}

// GetCalendar - GET /vehicles/:id/calendar?from=&to=
// Without from/to the default window starting today is used.
func (h *VehicleHandler) GetCalendar(c *gin.Context) {
	vehicleID, ok := parseVehicleID(c)
	if !ok {
		return
	}

	var window daterange.Range
	from, to := c.Query("from"), c.Query("to")
	if from != "" || to != "" {
		var err error
		window, err = daterange.Parse(from, to)
		if err != nil {
			response.FromError(c, "invalid calendar window", err)
			return
		}
	}

	cal, err := h.checker.Calendar(c.Request.Context(), vehicleID, window)
	if err != nil {
		response.FromError(c, "failed to load calendar", err)
		return
	}

	response.Success(c, http.StatusOK, "calendar retrieved", cal)
}

// Quote - POST /vehicles/:id/quote
func (h *VehicleHandler) Quote(c *gin.Context) {
	vehicleID, ok := parseVehicleID(c)
	if !ok {
		return
	}

	var req reservation.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rng, err := daterange.Parse(req.StartDate, req.EndDate)
	if err != nil {
		response.FromError(c, "invalid rental period", err)
		return
	}

	quote, err := h.reservationService.Quote(c.Request.Context(), vehicleID, rng, req.Addons)
	if err != nil {
		response.FromError(c, "failed to price rental", err)
		return
	}

	response.Success(c, http.StatusOK, "quote calculated", quote)
}

func parseVehicleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid vehicle id", xerrors.ErrInvalidInput)
		return 0, false
	}
	return id, true
}
