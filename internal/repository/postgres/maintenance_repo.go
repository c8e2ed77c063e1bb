// internal/repository/postgres/maintenance_repo.go
package postgres

import (
	"context"
	"fmt"

	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type MaintenanceRepository struct {
	db *DB
}

func NewMaintenanceRepository(db *DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

const maintenanceColumns = `id, vehicle_id, start_date, end_date, reason, created_by, created_at`

func scanBlock(row pgx.Row) (*maintenance.Block, error) {
	var b maintenance.Block
	if err := row.Scan(&b.ID, &b.VehicleID, &b.StartDate, &b.EndDate, &b.Reason, &b.CreatedBy, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *MaintenanceRepository) Create(ctx context.Context, b *maintenance.Block) error {
	query := `
		INSERT INTO maintenance_blocks (vehicle_id, start_date, end_date, reason, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		b.VehicleID, b.StartDate, b.EndDate, b.Reason, b.CreatedBy,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create maintenance block: %w", err)
	}
	return nil
}

func (r *MaintenanceRepository) FindByID(ctx context.Context, id int64) (*maintenance.Block, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_blocks WHERE id = $1`

	b, err := scanBlock(r.db.conn(ctx).QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find maintenance block: %w", err)
	}
	return b, nil
}

// ListOverlapping uses the same half-open rule as daterange.Overlaps.
func (r *MaintenanceRepository) ListOverlapping(ctx context.Context, vehicleID int64, rng daterange.Range) ([]maintenance.Block, error) {
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance_blocks
		WHERE vehicle_id = $1 AND start_date < $3 AND end_date > $2
		ORDER BY start_date
	`
	return r.list(ctx, query, vehicleID, rng.Start, rng.End)
}

func (r *MaintenanceRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]maintenance.Block, error) {
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance_blocks
		WHERE vehicle_id = $1
		ORDER BY start_date
	`
	return r.list(ctx, query, vehicleID)
}

func (r *MaintenanceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM maintenance_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance block: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *MaintenanceRepository) list(ctx context.Context, query string, args ...any) ([]maintenance.Block, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance blocks: %w", err)
	}
	defer rows.Close()

	blocks := []maintenance.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance block: %w", err)
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}
