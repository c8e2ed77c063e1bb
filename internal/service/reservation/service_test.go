package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/domain/notification"
	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/repository/memory"
	"fleetrent-service/internal/service/availability"
	"fleetrent-service/internal/service/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	today    = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	customer = reservation.Actor{ID: 100, Role: reservation.RoleCustomer}
	stranger = reservation.Actor{ID: 101, Role: reservation.RoleCustomer}
	staff    = reservation.Actor{ID: 200, Role: reservation.RoleStaff}
	admin    = reservation.Actor{ID: 300, Role: reservation.RoleAdmin}
	system   = reservation.Actor{Role: reservation.RoleSystem}
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) ofType(t notification.NotificationType) []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Message
	for _, m := range n.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

type stubLimiter struct {
	allow bool
	err   error
}

func (l stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.allow, l.err
}

type env struct {
	store    *memory.Store
	svc      *ReservationService
	notifier *recordingNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	store.PutVehicle(vehicle.Vehicle{ID: 1, Name: "Corolla", DailyRate: 100, MinRentalDays: 1, MaxRentalDays: 30, Status: vehicle.StatusActive})
	store.PutVehicle(vehicle.Vehicle{ID: 2, Name: "Hilux", DailyRate: 200, MinRentalDays: 3, MaxRentalDays: 7, Status: vehicle.StatusActive})
	store.PutVehicle(vehicle.Vehicle{ID: 3, Name: "Old van", DailyRate: 50, Status: vehicle.StatusInactive})

	checker := availability.NewChecker(store.Vehicles(), store.Reservations(), store.Maintenance(), nil, zap.NewNop())
	calc := pricing.NewCalculator(pricing.AddonPrices{DriverPerDay: 50, DeliveryFlat: 30})
	notifier := &recordingNotifier{}

	svc := NewReservationService(store.Reservations(), store.Vehicles(), store, checker, calc, notifier, nil, zap.NewNop())
	svc.now = func() time.Time { return today }

	return &env{store: store, svc: svc, notifier: notifier}
}

// day returns today + n days as YYYY-MM-DD.
func day(n int) string {
	return today.AddDate(0, 0, n).Format(daterange.Layout)
}

func rng(from, to int) daterange.Range {
	return daterange.MustParse(day(from), day(to))
}

func (e *env) request(t *testing.T, vehicleID int64, from, to int) *reservation.Reservation {
	t.Helper()
	res, err := e.svc.CreateReservation(context.Background(), &reservation.NewReservation{
		VehicleID: vehicleID,
		Range:     rng(from, to),
		Actor:     customer,
	})
	require.NoError(t, err)
	return res
}

func TestCreateReservation(t *testing.T) {
	e := newEnv(t)

	res, err := e.svc.CreateReservation(context.Background(), &reservation.NewReservation{
		VehicleID:  1,
		CustomerID: 999, // ignored for customers
		Range:      rng(2, 7),
		Addons:     reservation.Addons{Driver: true},
		Actor:      customer,
	})
	require.NoError(t, err)

	assert.NotZero(t, res.ID)
	assert.Regexp(t, `^RSV-[0-9A-Z]{26}$`, res.Reference)
	assert.Equal(t, int64(100), res.CustomerID)
	assert.Equal(t, reservation.BookingPending, res.Status)
	assert.Equal(t, reservation.PaymentPending, res.PaymentStatus)
	assert.Equal(t, reservation.ChannelOnline, res.Channel)
	assert.Equal(t, int64(500), res.BaseAmount)
	assert.Equal(t, int64(250), res.AddonsAmount)
	assert.Equal(t, int64(750), res.TotalAmount)

	created := e.notifier.ofType(notification.TypeReservationCreated)
	require.Len(t, created, 1)
	assert.ElementsMatch(t, []string{"staff", "admin"}, created[0].TargetRoles)
	assert.Equal(t, "/reservations/1", created[0].Link)

	// a pending reservation holds nothing
	assert.Empty(t, e.store.Confirmed(1))
	e.request(t, 1, 2, 7)
}

func TestCreateReservation_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   reservation.NewReservation
		want []error
	}{
		{
			name: "start in the past",
			in:   reservation.NewReservation{VehicleID: 1, Range: rng(-2, 3), Actor: customer},
			want: []error{xerrors.ErrInvalidRange},
		},
		{
			name: "empty range",
			in:   reservation.NewReservation{VehicleID: 1, Range: daterange.Range{Start: rng(2, 3).Start, End: rng(2, 3).Start}, Actor: customer},
			want: []error{xerrors.ErrInvalidRange},
		},
		{
			name: "unknown vehicle",
			in:   reservation.NewReservation{VehicleID: 42, Range: rng(1, 3), Actor: customer},
			want: []error{xerrors.ErrVehicleNotFound},
		},
		{
			name: "inactive vehicle",
			in:   reservation.NewReservation{VehicleID: 3, Range: rng(1, 3), Actor: customer},
			want: []error{xerrors.ErrVehicleInactive},
		},
		{
			name: "too short",
			in:   reservation.NewReservation{VehicleID: 2, Range: rng(1, 3), Actor: customer},
			want: []error{xerrors.ErrRangeTooShort, xerrors.ErrInvalidRange},
		},
		{
			name: "too long",
			in:   reservation.NewReservation{VehicleID: 2, Range: rng(1, 10), Actor: customer},
			want: []error{xerrors.ErrRangeTooLong, xerrors.ErrInvalidRange},
		},
		{
			name: "bad addons",
			in:   reservation.NewReservation{VehicleID: 1, Range: rng(1, 3), Addons: reservation.Addons{ExtraDistanceUnits: -3}, Actor: customer},
			want: []error{xerrors.ErrInvalidInput},
		},
		{
			name: "extra distance past the ceiling",
			in:   reservation.NewReservation{VehicleID: 1, Range: rng(1, 3), Addons: reservation.Addons{ExtraDistanceUnits: 1 << 59}, Actor: customer},
			want: []error{xerrors.ErrInvalidInput},
		},
		{
			name: "manual channel on the customer path",
			in:   reservation.NewReservation{VehicleID: 1, Range: rng(1, 3), Channel: reservation.ChannelManual, Actor: customer},
			want: []error{xerrors.ErrInvalidInput},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			_, err := e.svc.CreateReservation(ctx, &in)
			require.Error(t, err)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestCreateManualReservation_RejectsOverflowingAddons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{
		VehicleID: 1, CustomerID: 7, Range: rng(1, 3), Actor: staff,
		Addons: reservation.Addons{ExtraDistanceUnits: 1 << 59},
	})
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	// nothing was stored, so the range is still free
	res := e.request(t, 1, 1, 3)
	assert.Positive(t, res.TotalAmount)
}

func TestCreateReservation_Conflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed reservation", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{VehicleID: 1, CustomerID: 7, Range: rng(5, 10), Actor: staff})
		require.NoError(t, err)

		_, err = e.svc.CreateReservation(ctx, &reservation.NewReservation{VehicleID: 1, Range: rng(8, 12), Actor: customer})
		require.ErrorIs(t, err, xerrors.ErrConflict)
		conflict, ok := xerrors.AsConflict(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.ConflictReservation, conflict.Kind)
		assert.Equal(t, rng(5, 10).Start, conflict.Start)

		// turnaround on the drop-off day is fine
		e.request(t, 1, 10, 12)
	})

	t.Run("maintenance block with no reservations", func(t *testing.T) {
		e := newEnv(t)
		require.NoError(t, e.store.Maintenance().Create(ctx, &maintenance.Block{
			VehicleID: 1, StartDate: rng(3, 4).Start, EndDate: rng(3, 4).End, Reason: "brakes",
		}))

		_, err := e.svc.CreateReservation(ctx, &reservation.NewReservation{VehicleID: 1, Range: rng(1, 6), Actor: customer})
		require.ErrorIs(t, err, xerrors.ErrConflict)
		conflict, ok := xerrors.AsConflict(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.ConflictMaintenance, conflict.Kind)
	})
}

func TestCreateManualReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{
		VehicleID: 1, CustomerID: 7, Range: rng(1, 6), Actor: staff,
	})
	require.NoError(t, err)
	assert.Equal(t, reservation.BookingConfirmed, res.Status)
	assert.Equal(t, reservation.PaymentPending, res.PaymentStatus)
	assert.Equal(t, reservation.ChannelManual, res.Channel)
	assert.Equal(t, int64(7), res.CustomerID)
	assert.Equal(t, staff.ID, res.CreatedBy)

	// the range is blocked for customers right away
	_, err = e.svc.CreateReservation(ctx, &reservation.NewReservation{VehicleID: 1, Range: rng(1, 6), Actor: customer})
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	confirmed := e.notifier.ofType(notification.TypeReservationConfirmed)
	require.Len(t, confirmed, 1)
	require.NotNil(t, confirmed[0].IdentityID)
	assert.Equal(t, int64(7), *confirmed[0].IdentityID)

	t.Run("customers cannot book manually", func(t *testing.T) {
		_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{VehicleID: 1, CustomerID: 7, Range: rng(20, 22), Actor: customer})
		assert.ErrorIs(t, err, xerrors.ErrForbidden)
	})

	t.Run("customer is required", func(t *testing.T) {
		_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{VehicleID: 1, Range: rng(20, 22), Actor: staff})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})

	t.Run("staff may book a past start", func(t *testing.T) {
		_, err := e.svc.CreateManualReservation(ctx, &reservation.NewReservation{VehicleID: 1, CustomerID: 7, Range: rng(-3, 1), Actor: admin})
		assert.NoError(t, err)
	})
}

func TestConcurrentManualBookings(t *testing.T) {
	e := newEnv(t)

	const n = 10
	var (
		wg        sync.WaitGroup
		successes int
		conflicts int
		mu        sync.Mutex
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.CreateManualReservation(context.Background(), &reservation.NewReservation{
				VehicleID: 1, CustomerID: 7, Range: rng(1, 6), Actor: staff,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, xerrors.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, e.store.Confirmed(1), 1)
}

func TestRateLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.svc.limiter = stubLimiter{allow: false}
	_, err := e.svc.CreateReservation(ctx, &reservation.NewReservation{VehicleID: 1, Range: rng(1, 3), Actor: customer})
	assert.ErrorIs(t, err, xerrors.ErrRateLimited)

	// staff are never limited
	_, err = e.svc.CreateReservation(ctx, &reservation.NewReservation{VehicleID: 1, CustomerID: 7, Range: rng(1, 3), Actor: staff})
	assert.NoError(t, err)

	// a broken limiter lets requests through
	e.svc.limiter = stubLimiter{err: errors.New("redis down")}
	_, err = e.svc.CreateReservation(ctx, &reservation.NewReservation{VehicleID: 1, Range: rng(1, 3), Actor: customer})
	assert.NoError(t, err)
}

func TestQuote(t *testing.T) {
	e := newEnv(t)

	q, err := e.svc.Quote(context.Background(), 1, rng(0, 5), reservation.Addons{Delivery: true})
	require.NoError(t, err)
	assert.Equal(t, "Corolla", q.Vehicle.Name)
	assert.Equal(t, int64(500), q.Quote.Base)
	assert.Equal(t, int64(30), q.Quote.AddonsTotal)
	assert.Equal(t, int64(530), q.Quote.Total)

	_, err = e.svc.Quote(context.Background(), 3, rng(0, 5), reservation.Addons{})
	assert.ErrorIs(t, err, xerrors.ErrVehicleInactive)
}

func TestGetReservation_Ownership(t *testing.T) {
	e := newEnv(t)
	res := e.request(t, 1, 1, 3)

	got, err := e.svc.GetReservation(context.Background(), res.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, res.Reference, got.Reference)

	_, err = e.svc.GetReservation(context.Background(), res.ID, stranger)
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	_, err = e.svc.GetReservation(context.Background(), res.ID, staff)
	assert.NoError(t, err)

	_, err = e.svc.GetReservation(context.Background(), 9999, staff)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
