package reservation

import (
	"context"
	"time"

	"fleetrent-service/internal/pkg/daterange"
)

// Repository is what the engine needs from the reservation store.
//
// Create and UpdateStatus must reject, with an error wrapping ErrConflict, any
// write that would leave two overlapping confirmed reservations on one vehicle.
// Conditional writes whose expected current status no longer matches fail
// with ErrIllegalTransition.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	FindByID(ctx context.Context, id int64) (*Reservation, error)
	List(ctx context.Context, filters *ListFilters) ([]Reservation, int64, error)
	ListConfirmedOverlapping(ctx context.Context, vehicleID int64, r daterange.Range, excludeID int64) ([]Reservation, error)
	UpdateStatus(ctx context.Context, change *StatusChange) (*Reservation, error)
	UpdatePaymentStatus(ctx context.Context, change *PaymentChange) (*Reservation, error)

	// CompletePast moves confirmed reservations whose end date is before now to
	// completed. With ids == nil every eligible row is swept. It returns the rows
	// this call changed; applying it again is a no-op.
	CompletePast(ctx context.Context, ids []int64, now time.Time) ([]Reservation, error)
}

// TxManager runs fn inside one storage transaction. Repositories called with
// the context handed to fn take part in that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
