package reservation

import (
	"context"
	"testing"

	"fleetrent-service/internal/domain/notification"
	"fleetrent-service/internal/domain/reservation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListReservations_LazyCompletion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	past, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{
		VehicleID: 1, CustomerID: customer.ID, Range: rng(-10, -5), Actor: staff,
	})
	require.NoError(t, err)
	current, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{
		VehicleID: 1, CustomerID: customer.ID, Range: rng(-1, 3), Actor: staff,
	})
	require.NoError(t, err)
	pending := e.request(t, 2, 4, 8)

	list, err := e.svc.ListReservations(ctx, customer, &reservation.ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Reservations, 3)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, 1, list.TotalPages)

	byID := map[int64]reservation.Reservation{}
	for _, r := range list.Reservations {
		byID[r.ID] = r
	}
	assert.Equal(t, reservation.BookingCompleted, byID[past.ID].Status)
	assert.Equal(t, reservation.BookingConfirmed, byID[current.ID].Status)
	assert.Equal(t, reservation.BookingPending, byID[pending.ID].Status)
	assert.Len(t, e.notifier.ofType(notification.TypeReservationCompleted), 1)

	// a second read is a no-op
	list, err = e.svc.ListReservations(ctx, customer, &reservation.ListFilters{})
	require.NoError(t, err)
	for _, r := range list.Reservations {
		if r.ID == past.ID {
			assert.Equal(t, reservation.BookingCompleted, r.Status)
		}
	}
	assert.Len(t, e.notifier.ofType(notification.TypeReservationCompleted), 1)

	n, err := e.svc.AutoCompletePast(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// completed is terminal
	_, err = e.svc.TransitionBookingStatus(ctx, past.ID, reservation.BookingCancelled, staff, "late")
	assert.Error(t, err)
}

func TestListReservations_Scoping(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.request(t, 1, 1, 3)
	e.request(t, 1, 5, 7)
	_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{
		VehicleID: 2, CustomerID: 55, Range: rng(1, 4), Actor: staff,
	})
	require.NoError(t, err)

	mine, err := e.svc.ListReservations(ctx, customer, &reservation.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	// customers cannot widen the scope
	other := int64(55)
	mine, err = e.svc.ListReservations(ctx, customer, &reservation.ListFilters{CustomerID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	all, err := e.svc.ListReservations(ctx, staff, &reservation.ListFilters{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Reservations, 2)
	assert.Equal(t, 2, all.TotalPages)

	confirmed := reservation.BookingConfirmed
	onlyConfirmed, err := e.svc.ListReservations(ctx, admin, &reservation.ListFilters{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), onlyConfirmed.Total)
}

func TestAutoCompletePast(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, r := range [][2]int{{-20, -15}, {-14, -10}, {-3, 2}} {
		_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{
			VehicleID: 1, CustomerID: 9, Range: rng(r[0], r[1]), Actor: staff,
		})
		require.NoError(t, err)
	}

	n, err := e.svc.AutoCompletePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.svc.AutoCompletePast(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, e.store.Confirmed(1), 1)
}
