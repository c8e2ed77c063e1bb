// internal/repository/postgres/reservation_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

// ReservationRepository stores reservations. The reservations_no_overlap
// exclusion constraint is the last line against double-booking; its
// violations surface as *xerrors.ConflictError.
type ReservationRepository struct {
	db *DB
}

func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `
	id, reference, vehicle_id, customer_id, start_date, end_date,
	base_amount, addons_amount, total_amount, booking_status, payment_status,
	channel, addons, cancellation_reason, cancelled_by, cancelled_at, paid_at,
	created_by, created_at, updated_at`

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var res reservation.Reservation
	var addonsJSON []byte

	err := row.Scan(
		&res.ID, &res.Reference, &res.VehicleID, &res.CustomerID, &res.StartDate, &res.EndDate,
		&res.BaseAmount, &res.AddonsAmount, &res.TotalAmount, &res.Status, &res.PaymentStatus,
		&res.Channel, &addonsJSON, &res.CancellationReason, &res.CancelledBy, &res.CancelledAt, &res.PaidAt,
		&res.CreatedBy, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addonsJSON) > 0 {
		if err := json.Unmarshal(addonsJSON, &res.Addons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal addons: %w", err)
		}
	}
	return &res, nil
}

func collectReservations(rows pgx.Rows) ([]reservation.Reservation, error) {
	defer rows.Close()

	out := []reservation.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	query := `
		INSERT INTO reservations (
			reference, vehicle_id, customer_id, start_date, end_date,
			base_amount, addons_amount, total_amount, booking_status, payment_status,
			channel, addons, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	addonsJSON, err := json.Marshal(res.Addons)
	if err != nil {
		return fmt.Errorf("failed to marshal addons: %w", err)
	}

	err = r.db.conn(ctx).QueryRow(ctx, query,
		res.Reference, res.VehicleID, res.CustomerID, res.StartDate, res.EndDate,
		res.BaseAmount, res.AddonsAmount, res.TotalAmount, res.Status, res.PaymentStatus,
		res.Channel, addonsJSON, res.CreatedBy,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if conflict := classify(err, res.VehicleID); conflict != err {
			return conflict
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.db.conn(ctx).QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) List(ctx context.Context, filters *reservation.ListFilters) ([]reservation.Reservation, int64, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argPos := 1

	add := func(clause string, value any) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if filters.VehicleID != nil {
		add("vehicle_id = $%d", *filters.VehicleID)
	}
	if filters.CustomerID != nil {
		add("customer_id = $%d", *filters.CustomerID)
	}
	if filters.Status != nil {
		add("booking_status = $%d", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		add("payment_status = $%d", *filters.PaymentStatus)
	}
	// From/To select reservations overlapping the window
	if filters.From != nil {
		add("end_date > $%d", daterange.Truncate(*filters.From))
	}
	if filters.To != nil {
		add("start_date < $%d", daterange.Truncate(*filters.To))
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reservations WHERE %s", whereClause)
	if err := r.db.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	page, pageSize := filters.Page, filters.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE %s
		ORDER BY id DESC
		LIMIT $%d OFFSET $%d
	`, reservationColumns, whereClause, argPos, argPos+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	list, err := collectReservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListConfirmedOverlapping mirrors daterange.Overlaps: [a,b) and [c,d)
// overlap iff a < d and c < b.
func (r *ReservationRepository) ListConfirmedOverlapping(ctx context.Context, vehicleID int64, rng daterange.Range, excludeID int64) ([]reservation.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE vehicle_id = $1
		  AND booking_status = 'confirmed'
		  AND start_date < $3 AND end_date > $2
		  AND id <> $4
		ORDER BY start_date
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, vehicleID, rng.Start, rng.End, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overlapping reservations: %w", err)
	}
	return collectReservations(rows)
}

// UpdateStatus applies the change only while booking_status still equals
// change.From.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, change *reservation.StatusChange) (*reservation.Reservation, error) {
	set := "booking_status = $3, updated_at = $4"
	args := []any{change.ReservationID, change.From, change.To, change.At}
	if change.To == reservation.BookingCancelled {
		set += ", cancellation_reason = $5, cancelled_by = $6, cancelled_at = $4"
		args = append(args, change.Reason, change.ActorID)
	}

	query := fmt.Sprintf(`
		UPDATE reservations
		SET %s
		WHERE id = $1 AND booking_status = $2
		RETURNING %s
	`, set, reservationColumns)

	res, err := scanReservation(r.db.conn(ctx).QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return nil, r.staleStatus(ctx, change.ReservationID, func(cur *reservation.Reservation) error {
			return fmt.Errorf("%w: reservation %d is %s, not %s", xerrors.ErrIllegalTransition, cur.ID, cur.Status, change.From)
		})
	}
	if err != nil {
		if conflict := classify(err, 0); conflict != err {
			return nil, conflict
		}
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) UpdatePaymentStatus(ctx context.Context, change *reservation.PaymentChange) (*reservation.Reservation, error) {
	query := `
		UPDATE reservations
		SET payment_status = $3,
		    updated_at = $4,
		    paid_at = CASE WHEN $3 = 'paid' THEN COALESCE(paid_at, $4) ELSE paid_at END
		WHERE id = $1 AND payment_status = $2
		RETURNING ` + reservationColumns

	res, err := scanReservation(r.db.conn(ctx).QueryRow(ctx, query,
		change.ReservationID, change.From, change.To, change.At,
	))
	if isNoRows(err) {
		return nil, r.staleStatus(ctx, change.ReservationID, func(cur *reservation.Reservation) error {
			return fmt.Errorf("%w: payment of reservation %d is %s, not %s", xerrors.ErrIllegalTransition, cur.ID, cur.PaymentStatus, change.From)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	return res, nil
}

// CompletePast is a single conditional UPDATE, so concurrent sweeps and
// lazy completions never complete the same row twice.
func (r *ReservationRepository) CompletePast(ctx context.Context, ids []int64, now time.Time) ([]reservation.Reservation, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}

	query := `
		UPDATE reservations
		SET booking_status = 'completed', updated_at = $1::timestamptz
		WHERE booking_status = 'confirmed' AND end_date < $1::timestamptz`
	args := []any{now}
	if ids != nil {
		query += ` AND id = ANY($2)`
		args = append(args, ids)
	}
	query += ` RETURNING ` + reservationColumns

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to complete past reservations: %w", err)
	}
	return collectReservations(rows)
}

// staleStatus explains why a conditional update matched no row.
func (r *ReservationRepository) staleStatus(ctx context.Context, id int64, mismatch func(*reservation.Reservation) error) error {
	cur, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return mismatch(cur)
}
