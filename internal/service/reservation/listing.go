// internal/service/reservation/listing.go
package reservation

import (
	"context"
	"fmt"

	"fleetrent-service/internal/domain/reservation"
	xerrors "fleetrent-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// ListReservations returns one page of reservations. Customers only see their
// own. Confirmed rows on the page whose end date has passed are completed
// before they are returned.
func (s *ReservationService) ListReservations(ctx context.Context, actor reservation.Actor, filters *reservation.ListFilters) (*reservation.ListResponse, error) {
	if actor.Role == reservation.RoleCustomer {
		customerID := actor.ID
		filters.CustomerID = &customerID
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	items, total, err := s.reservations.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	s.completeLazily(ctx, items)

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &reservation.ListResponse{
		Reservations: items,
		Total:        total,
		Page:         filters.Page,
		PageSize:     filters.PageSize,
		TotalPages:   totalPages,
	}, nil
}

// GetReservation returns one reservation. A customer asking for someone
// else's reservation gets ErrForbidden.
func (s *ReservationService) GetReservation(ctx context.Context, id int64, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == reservation.RoleCustomer && res.CustomerID != actor.ID {
		return nil, fmt.Errorf("%w: reservation belongs to another customer", xerrors.ErrForbidden)
	}

	items := []reservation.Reservation{*res}
	s.completeLazily(ctx, items)
	return &items[0], nil
}

// AutoCompletePast completes every confirmed reservation whose end date has
// passed and returns how many changed.
func (s *ReservationService) AutoCompletePast(ctx context.Context) (int, error) {
	done, err := s.reservations.CompletePast(ctx, nil, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to complete past reservations: %w", err)
	}
	s.afterCompletion(ctx, done)
	return len(done), nil
}

// completeLazily rewrites items in place. Rows completed concurrently by
// another reader are re-read so the caller never sees a stale status.
// Failures are logged; the listing is still returned.
func (s *ReservationService) completeLazily(ctx context.Context, items []reservation.Reservation) {
	now := s.now().UTC()

	var ids []int64
	index := make(map[int64]int)
	for i := range items {
		if items[i].IsPastDue(now) {
			ids = append(ids, items[i].ID)
			index[items[i].ID] = i
		}
	}
	if len(ids) == 0 {
		return
	}

	done, err := s.reservations.CompletePast(ctx, ids, now)
	if err != nil {
		s.logger.Warn("lazy completion failed", zap.Int64s("reservation_ids", ids), zap.Error(err))
		return
	}

	for _, res := range done {
		items[index[res.ID]] = res
		delete(index, res.ID)
	}
	for id, i := range index {
		fresh, err := s.reservations.FindByID(ctx, id)
		if err != nil {
			s.logger.Warn("failed to reload reservation after completion", zap.Int64("reservation_id", id), zap.Error(err))
			continue
		}
		items[i] = *fresh
	}

	s.afterCompletion(ctx, done)
}

func (s *ReservationService) afterCompletion(ctx context.Context, done []reservation.Reservation) {
	if len(done) == 0 {
		return
	}
	vehicles := make(map[int64]bool)
	for i := range done {
		res := &done[i]
		vehicles[res.VehicleID] = true
		s.notifyBookingChange(ctx, res, reservation.SystemActor, "")
	}
	for vehicleID := range vehicles {
		s.checker.Invalidate(ctx, vehicleID)
	}
	s.logger.Info("reservations completed", zap.Int("count", len(done)))
}
