// internal/domain/reservation/entity.go
package reservation

import (
	"time"

	"fleetrent-service/internal/pkg/daterange"
)

type BookingStatus string
type PaymentStatus string
type Channel string
type Role string
type InsuranceTier string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"

	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"

	ChannelOnline Channel = "online"
	ChannelManual Channel = "manual"
	ChannelAPI    Channel = "api"

	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"

	InsuranceNone    InsuranceTier = ""
	InsuranceBasic   InsuranceTier = "basic"
	InsurancePremium InsuranceTier = "premium"
)

// Actor is whoever asks for a change: a signed-in user or the system itself.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// SystemActor performs time-based transitions.
var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

// Addons is the optional extras selection priced on top of the daily rate.
type Addons struct {
	Driver             bool          `json:"driver"`
	ExtraDistanceUnits int           `json:"extra_distance_units" binding:"min=0,max=1000"`
	Delivery           bool          `json:"delivery"`
	ChildSeat          bool          `json:"child_seat"`
	Navigation         bool          `json:"navigation"`
	Insurance          InsuranceTier `json:"insurance,omitempty"`
}

// Reservation carries two independent state machines: the booking status and
// the payment status.
type Reservation struct {
	ID                 int64         `json:"id" db:"id"`
	Reference          string        `json:"reference" db:"reference"`
	VehicleID          int64         `json:"vehicle_id" db:"vehicle_id"`
	CustomerID         int64         `json:"customer_id" db:"customer_id"`
	StartDate          time.Time     `json:"start_date" db:"start_date"`
	EndDate            time.Time     `json:"end_date" db:"end_date"`
	BaseAmount         int64         `json:"base_amount" db:"base_amount"`
	AddonsAmount       int64         `json:"addons_amount" db:"addons_amount"`
	TotalAmount        int64         `json:"total_amount" db:"total_amount"`
	Status             BookingStatus `json:"status" db:"booking_status"`
	PaymentStatus      PaymentStatus `json:"payment_status" db:"payment_status"`
	Channel            Channel       `json:"channel" db:"channel"`
	Addons             Addons        `json:"addons" db:"addons"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledBy        *int64        `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	PaidAt             *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CreatedBy          int64         `json:"created_by" db:"created_by"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

func (r *Reservation) Range() daterange.Range {
	return daterange.Range{Start: r.StartDate, End: r.EndDate}
}

// IsPastDue reports whether a confirmed reservation has run out and should be completed.
func (r *Reservation) IsPastDue(now time.Time) bool {
	return r.Status == BookingConfirmed && r.EndDate.Before(now)
}

// NewReservation is the canonical, already-parsed input of the orchestrator.
type NewReservation struct {
	VehicleID  int64
	CustomerID int64
	Range      daterange.Range
	Addons     Addons
	Channel    Channel
	Actor      Actor
}

// StatusChange is a conditional booking-status write: it only applies while the
// stored status still equals From.
type StatusChange struct {
	ReservationID int64
	From          BookingStatus
	To            BookingStatus
	Reason        *string
	ActorID       *int64
	At            time.Time
}

// PaymentChange is a conditional payment-status write.
type PaymentChange struct {
	ReservationID int64
	From          PaymentStatus
	To            PaymentStatus
	At            time.Time
}
