// internal/repository/postgres/vehicle_repo.go
package postgres

import (
	"context"
	"fmt"

	"fleetrent-service/internal/domain/vehicle"
	xerrors "fleetrent-service/internal/pkg/errors"
)

// VehicleRepository reads the fleet table. Vehicles are written by fleet
// management, never by this service.
type VehicleRepository struct {
	db *DB
}

func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) FindByID(ctx context.Context, id int64) (*vehicle.Vehicle, error) {
	query := `
		SELECT id, name, make, model, number_plate, daily_rate,
		       min_rental_days, max_rental_days, status, created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`

	var v vehicle.Vehicle
	err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(
		&v.ID, &v.Name, &v.Make, &v.Model, &v.NumberPlate, &v.DailyRate,
		&v.MinRentalDays, &v.MaxRentalDays, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}

	return &v, nil
}

// LockForBooking takes a row lock on the vehicle for the rest of the
// surrounding transaction, serialising confirmations per vehicle.
func (r *VehicleRepository) LockForBooking(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT id FROM vehicles WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if isNoRows(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock vehicle: %w", err)
	}
	return nil
}
