package reservation

import (
	"time"

	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
)

// CreateReservationRequest is the one accepted request shape for new reservations.
type CreateReservationRequest struct {
	VehicleID int64   `json:"vehicle_id" binding:"required,min=1"`
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Addons    Addons  `json:"addons"`
	Channel   Channel `json:"channel,omitempty" binding:"omitempty,oneof=online api"`
}

// CreateManualReservationRequest is used by staff booking on behalf of a customer.
type CreateManualReservationRequest struct {
	VehicleID  int64  `json:"vehicle_id" binding:"required,min=1"`
	CustomerID int64  `json:"customer_id" binding:"required,min=1"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Addons     Addons `json:"addons"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason,omitempty" binding:"max=1000"`
}

type QuoteRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Addons    Addons `json:"addons"`
}

// QuoteLine is one priced component of a quote.
type QuoteLine struct {
	Item     string `json:"item"`
	Rule     string `json:"rule"`
	Quantity int    `json:"quantity"`
	Unit     int64  `json:"unit_price"`
	Amount   int64  `json:"amount"`
}

// Quote is the priced breakdown for a range and add-on selection.
type Quote struct {
	Days        int         `json:"days"`
	DailyRate   int64       `json:"daily_rate"`
	Base        int64       `json:"base"`
	AddonsTotal int64       `json:"addons_total"`
	Total       int64       `json:"total"`
	Lines       []QuoteLine `json:"lines,omitempty"`
}

type QuoteResponse struct {
	Vehicle vehicle.Summary `json:"vehicle"`
	Range   daterange.Range `json:"range"`
	Quote   *Quote          `json:"quote"`
}

type ListFilters struct {
	VehicleID     *int64         `form:"vehicle_id"`
	CustomerID    *int64         `form:"customer_id"`
	Status        *BookingStatus `form:"status"`
	PaymentStatus *PaymentStatus `form:"payment_status"`
	From          *time.Time     `form:"from" time_format:"2006-01-02"`
	To            *time.Time     `form:"to" time_format:"2006-01-02"`
	Page          int            `form:"page"`
	PageSize      int            `form:"page_size" binding:"omitempty,max=100"`
}

type ListResponse struct {
	Reservations []Reservation `json:"reservations"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
}
