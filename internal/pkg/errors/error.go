package xerrors

import (
	"errors"
	"fmt"
	"time"
)

// Common reusable application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized access")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict: requested range is not available")
	ErrInternal          = errors.New("internal server error")
	ErrRateLimited       = errors.New("too many requests")
	ErrBadRequest        = errors.New("bad request")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrReasonRequired    = errors.New("cancellation reason is required")
)

// Reservation-engine validation errors
var (
	ErrInvalidRange    = errors.New("invalid date range")
	ErrRangeTooShort   = errors.New("rental period is shorter than the vehicle minimum")
	ErrRangeTooLong    = errors.New("rental period is longer than the vehicle maximum")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrVehicleInactive = errors.New("vehicle is not available for booking")
)

// ConflictKind tells the caller what blocked the requested range.
type ConflictKind string

const (
	ConflictReservation ConflictKind = "reservation"
	ConflictMaintenance ConflictKind = "maintenance"
)

// ConflictError carries the blocking interval so callers can react to it.
// It unwraps to ErrConflict.
type ConflictError struct {
	Kind          ConflictKind `json:"kind"`
	VehicleID     int64        `json:"vehicle_id"`
	ConflictingID int64        `json:"conflicting_id,omitempty"`
	Start         time.Time    `json:"start"`
	End           time.Time    `json:"end"`
}

func (e *ConflictError) Error() string {
	if e.Start.IsZero() {
		return fmt.Sprintf("conflict: vehicle %d already has a confirmed reservation in that range", e.VehicleID)
	}
	return fmt.Sprintf("conflict: vehicle %d is blocked by %s %d from %s to %s",
		e.VehicleID, e.Kind, e.ConflictingID, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// AsConflict extracts the conflict details, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
