// Package memory is an in-process store with the same guarantees as the
// Postgres repositories: confirmed reservations on one vehicle never overlap
// and status writes are conditional. It backs the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
)

type Store struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	vehicles     map[int64]vehicle.Vehicle
	reservations map[int64]reservation.Reservation
	blocks       map[int64]maintenance.Block
	nextID       int64
	now          func() time.Time
}

func New() *Store {
	return &Store{
		vehicles:     make(map[int64]vehicle.Vehicle),
		reservations: make(map[int64]reservation.Reservation),
		blocks:       make(map[int64]maintenance.Block),
		now:          time.Now,
	}
}

// PutVehicle inserts or replaces a vehicle.
func (s *Store) PutVehicle(v vehicle.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

// WithinTx serialises fn against other transactions.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// Confirmed returns every confirmed reservation on a vehicle.
func (s *Store) Confirmed(vehicleID int64) []reservation.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range s.reservations {
		if r.VehicleID == vehicleID && r.Status == reservation.BookingConfirmed {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (s *Store) Vehicles() *VehicleRepository         { return &VehicleRepository{s} }
func (s *Store) Reservations() *ReservationRepository { return &ReservationRepository{s} }
func (s *Store) Maintenance() *MaintenanceRepository  { return &MaintenanceRepository{s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// confirmedConflict must be called with mu held.
func (s *Store) confirmedConflict(vehicleID int64, r daterange.Range, excludeID int64) *xerrors.ConflictError {
	for _, other := range s.reservations {
		if other.ID == excludeID || other.VehicleID != vehicleID || other.Status != reservation.BookingConfirmed {
			continue
		}
		if r.Overlaps(other.Range()) {
			return &xerrors.ConflictError{
				Kind:          xerrors.ConflictReservation,
				VehicleID:     vehicleID,
				ConflictingID: other.ID,
				Start:         other.StartDate,
				End:           other.EndDate,
			}
		}
	}
	return nil
}

// ========== Vehicles ==========

type VehicleRepository struct{ s *Store }

func (r *VehicleRepository) FindByID(ctx context.Context, id int64) (*vehicle.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &v, nil
}

func (r *VehicleRepository) LockForBooking(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vehicles[id]; !ok {
		return xerrors.ErrNotFound
	}
	return nil
}

// ========== Reservations ==========

type ReservationRepository struct{ s *Store }

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if res.Status == reservation.BookingConfirmed {
		if conflict := r.s.confirmedConflict(res.VehicleID, res.Range(), 0); conflict != nil {
			return conflict
		}
	}

	now := r.s.now().UTC()
	res.ID = r.s.id()
	res.CreatedAt = now
	res.UpdatedAt = now
	r.s.reservations[res.ID] = *res
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &res, nil
}

func (r *ReservationRepository) List(ctx context.Context, f *reservation.ListFilters) ([]reservation.Reservation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []reservation.Reservation
	for _, res := range r.s.reservations {
		switch {
		case f.VehicleID != nil && res.VehicleID != *f.VehicleID:
			continue
		case f.CustomerID != nil && res.CustomerID != *f.CustomerID:
			continue
		case f.Status != nil && res.Status != *f.Status:
			continue
		case f.PaymentStatus != nil && res.PaymentStatus != *f.PaymentStatus:
			continue
		case f.From != nil && !res.EndDate.After(*f.From):
			continue
		case f.To != nil && !res.StartDate.Before(*f.To):
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	total := int64(len(out))
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	from := (page - 1) * size
	if from >= len(out) {
		return []reservation.Reservation{}, total, nil
	}
	to := from + size
	if to > len(out) {
		to = len(out)
	}
	return out[from:to], total, nil
}

func (r *ReservationRepository) ListConfirmedOverlapping(ctx context.Context, vehicleID int64, rng daterange.Range, excludeID int64) ([]reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []reservation.Reservation
	for _, res := range r.s.reservations {
		if res.VehicleID == vehicleID && res.ID != excludeID &&
			res.Status == reservation.BookingConfirmed && rng.Overlaps(res.Range()) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, c *reservation.StatusChange) (*reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[c.ReservationID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if res.Status != c.From {
		return nil, fmt.Errorf("%w: reservation %d is %s, not %s", xerrors.ErrIllegalTransition, res.ID, res.Status, c.From)
	}
	if c.To == reservation.BookingConfirmed {
		if conflict := r.s.confirmedConflict(res.VehicleID, res.Range(), res.ID); conflict != nil {
			return nil, conflict
		}
	}

	res.Status = c.To
	res.UpdatedAt = c.At
	if c.To == reservation.BookingCancelled {
		res.CancellationReason = c.Reason
		res.CancelledBy = c.ActorID
		at := c.At
		res.CancelledAt = &at
	}
	r.s.reservations[res.ID] = res
	return &res, nil
}

func (r *ReservationRepository) UpdatePaymentStatus(ctx context.Context, c *reservation.PaymentChange) (*reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[c.ReservationID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if res.PaymentStatus != c.From {
		return nil, fmt.Errorf("%w: payment of reservation %d is %s, not %s", xerrors.ErrIllegalTransition, res.ID, res.PaymentStatus, c.From)
	}

	res.PaymentStatus = c.To
	res.UpdatedAt = c.At
	if c.To == reservation.PaymentPaid && res.PaidAt == nil {
		at := c.At
		res.PaidAt = &at
	}
	r.s.reservations[res.ID] = res
	return &res, nil
}

func (r *ReservationRepository) CompletePast(ctx context.Context, ids []int64, now time.Time) ([]reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	candidates := ids
	if candidates == nil {
		for id := range r.s.reservations {
			candidates = append(candidates, id)
		}
	}

	var done []reservation.Reservation
	for _, id := range candidates {
		res, ok := r.s.reservations[id]
		if !ok || !res.IsPastDue(now) {
			continue
		}
		res.Status = reservation.BookingCompleted
		res.UpdatedAt = now
		r.s.reservations[id] = res
		done = append(done, res)
	}
	return done, nil
}

// ========== Maintenance ==========

type MaintenanceRepository struct{ s *Store }

func (r *MaintenanceRepository) Create(ctx context.Context, b *maintenance.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ID = r.s.id()
	b.CreatedAt = r.s.now().UTC()
	r.s.blocks[b.ID] = *b
	return nil
}

func (r *MaintenanceRepository) FindByID(ctx context.Context, id int64) (*maintenance.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.blocks[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &b, nil
}

func (r *MaintenanceRepository) ListOverlapping(ctx context.Context, vehicleID int64, rng daterange.Range) ([]maintenance.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []maintenance.Block
	for _, b := range r.s.blocks {
		if b.VehicleID == vehicleID && rng.Overlaps(b.Range()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *MaintenanceRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]maintenance.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []maintenance.Block{}
	for _, b := range r.s.blocks {
		if b.VehicleID == vehicleID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *MaintenanceRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.blocks[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.s.blocks, id)
	return nil
}
