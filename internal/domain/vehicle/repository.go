// internal/domain/vehicle/repository.go
package vehicle

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int64) (*Vehicle, error)

	// LockForBooking takes a row lock on the vehicle for the rest of the
	// surrounding transaction, serialising confirmations for that vehicle.
	LockForBooking(ctx context.Context, id int64) error
}
