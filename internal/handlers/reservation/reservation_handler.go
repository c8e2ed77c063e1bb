// internal/handlers/reservation/reservation_handler.go
package reservation

import (
	"fmt"
	"net/http"
	"strconv"

	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/middleware"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/pkg/response"
	service "fleetrent-service/internal/service/reservation"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
}

func NewReservationHandler(reservationService *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
	}
}

// ========== Creation ==========

// CreateReservation - POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req reservation.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rng, err := daterange.Parse(req.StartDate, req.EndDate)
	if err != nil {
		response.FromError(c, "invalid rental period", err)
		return
	}

	actor := middleware.ActorFromContext(c)
	res, err := h.reservationService.CreateReservation(c.Request.Context(), &reservation.NewReservation{
		VehicleID:  req.VehicleID,
		CustomerID: actor.ID,
		Range:      rng,
		Addons:     req.Addons,
		Channel:    req.Channel,
		Actor:      actor,
	})
	if err != nil {
		response.FromError(c, "failed to create reservation", err)
		return
	}

	response.Success(c, http.StatusCreated, "reservation created", res)
}

// CreateManualReservation - POST /admin/reservations/manual
func (h *ReservationHandler) CreateManualReservation(c *gin.Context) {
	var req reservation.CreateManualReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rng, err := daterange.Parse(req.StartDate, req.EndDate)
	if err != nil {
		response.FromError(c, "invalid rental period", err)
		return
	}

	res, err := h.reservationService.CreateManualReservation(c.Request.Context(), &reservation.NewReservation{
		VehicleID:  req.VehicleID,
		CustomerID: req.CustomerID,
		Range:      rng,
		Addons:     req.Addons,
		Channel:    reservation.ChannelManual,
		Actor:      middleware.ActorFromContext(c),
	})
	if err != nil {
		response.FromError(c, "failed to create manual reservation", err)
		return
	}

	response.Success(c, http.StatusCreated, "reservation confirmed", res)
}

// ========== Reads ==========

// ListReservations - GET /reservations
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var filters reservation.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.reservationService.ListReservations(c.Request.Context(), middleware.ActorFromContext(c), &filters)
	if err != nil {
		response.FromError(c, "failed to list reservations", err)
		return
	}

	response.Success(c, http.StatusOK, "reservations retrieved", result)
}

// GetReservation - GET /reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	res, err := h.reservationService.GetReservation(c.Request.Context(), id, middleware.ActorFromContext(c))
	if err != nil {
		response.FromError(c, "failed to get reservation", err)
		return
	}

	response.Success(c, http.StatusOK, "reservation retrieved", res)
}

// ========== Lifecycle ==========

// TransitionStatus - PATCH /reservations/:id/status
func (h *ReservationHandler) TransitionStatus(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	var req reservation.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	to, err := reservation.ParseBookingStatus(req.Status)
	if err != nil {
		response.FromError(c, "invalid status", err)
		return
	}

	res, err := h.reservationService.TransitionBookingStatus(c.Request.Context(), id, to, middleware.ActorFromContext(c), req.Reason)
	if err != nil {
		response.FromError(c, "failed to update reservation status", err)
		return
	}

	response.Success(c, http.StatusOK, fmt.Sprintf("reservation %s", res.Status), res)
}

func (h *ReservationHandler) payment(message string, do func(c *gin.Context, id int64, actor reservation.Actor) (*reservation.Reservation, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reservationID(c)
		if !ok {
			return
		}

		res, err := do(c, id, middleware.ActorFromContext(c))
		if err != nil {
			response.FromError(c, "failed to update payment", err)
			return
		}

		response.Success(c, http.StatusOK, message, res)
	}
}

// MarkPaid - POST /reservations/:id/payment/paid
func (h *ReservationHandler) MarkPaid() gin.HandlerFunc {
	return h.payment("payment recorded", func(c *gin.Context, id int64, actor reservation.Actor) (*reservation.Reservation, error) {
		return h.reservationService.MarkPaid(c.Request.Context(), id, actor)
	})
}

// MarkFailed - POST /reservations/:id/payment/failed
func (h *ReservationHandler) MarkFailed() gin.HandlerFunc {
	return h.payment("payment marked failed", func(c *gin.Context, id int64, actor reservation.Actor) (*reservation.Reservation, error) {
		return h.reservationService.MarkFailed(c.Request.Context(), id, actor)
	})
}

// RetryPayment - POST /reservations/:id/payment/retry
func (h *ReservationHandler) RetryPayment() gin.HandlerFunc {
	return h.payment("payment reset to pending", func(c *gin.Context, id int64, actor reservation.Actor) (*reservation.Reservation, error) {
		return h.reservationService.RetryPayment(c.Request.Context(), id, actor)
	})
}

// Refund - POST /reservations/:id/payment/refund
func (h *ReservationHandler) Refund() gin.HandlerFunc {
	return h.payment("payment refunded", func(c *gin.Context, id int64, actor reservation.Actor) (*reservation.Reservation, error) {
		return h.reservationService.Refund(c.Request.Context(), id, actor)
	})
}

func reservationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid reservation id", xerrors.ErrInvalidInput)
		return 0, false
	}
	return id, true
}
