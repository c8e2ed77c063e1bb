package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetrent-service/internal/domain/availability"
	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store   *memory.Store
	checker *Checker
}

func newFixture(t *testing.T, cache availability.CalendarCache) *fixture {
	t.Helper()
	store := memory.New()
	store.PutVehicle(vehicle.Vehicle{ID: 1, DailyRate: 10000, MinRentalDays: 1, MaxRentalDays: 30, Status: vehicle.StatusActive})
	store.PutVehicle(vehicle.Vehicle{ID: 2, DailyRate: 10000, MinRentalDays: 3, Status: vehicle.StatusActive})
	store.PutVehicle(vehicle.Vehicle{ID: 3, DailyRate: 10000, Status: vehicle.StatusMaintenance})

	checker := NewChecker(store.Vehicles(), store.Reservations(), store.Maintenance(), cache, zap.NewNop())
	checker.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return &fixture{store: store, checker: checker}
}

func (f *fixture) reserve(t *testing.T, vehicleID int64, start, end string, status reservation.BookingStatus) int64 {
	t.Helper()
	rng := daterange.MustParse(start, end)
	res := &reservation.Reservation{
		VehicleID: vehicleID, CustomerID: 7, StartDate: rng.Start, EndDate: rng.End,
		Status: status, PaymentStatus: reservation.PaymentPending, Channel: reservation.ChannelOnline,
	}
	require.NoError(t, f.store.Reservations().Create(context.Background(), res))
	return res.ID
}

func (f *fixture) block(t *testing.T, vehicleID int64, start, end string) int64 {
	t.Helper()
	rng := daterange.MustParse(start, end)
	b := &maintenance.Block{VehicleID: vehicleID, StartDate: rng.Start, EndDate: rng.End, Reason: "service"}
	require.NoError(t, f.store.Maintenance().Create(context.Background(), b))
	return b.ID
}

func TestChecker_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("free range", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-10", "2025-03-15"), 0)
		require.NoError(t, err)
		assert.True(t, res.Available)
		assert.Nil(t, res.Conflict)
	})

	t.Run("pending reservations never block", func(t *testing.T) {
		f := newFixture(t, nil)
		f.reserve(t, 1, "2025-03-10", "2025-03-15", reservation.BookingPending)

		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-10", "2025-03-15"), 0)
		require.NoError(t, err)
		assert.True(t, res.Available)
	})

	t.Run("confirmed reservation blocks", func(t *testing.T) {
		f := newFixture(t, nil)
		id := f.reserve(t, 1, "2025-03-10", "2025-03-15", reservation.BookingConfirmed)

		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-14", "2025-03-20"), 0)
		require.NoError(t, err)
		assert.False(t, res.Available)
		assert.Equal(t, xerrors.ConflictReservation, res.ConflictKind)
		require.NotNil(t, res.Conflict)
		assert.Equal(t, id, res.Conflict.ConflictingID)
		assert.True(t, errors.Is(res.Conflict, xerrors.ErrConflict))
	})

	t.Run("same day turnaround is allowed", func(t *testing.T) {
		f := newFixture(t, nil)
		f.reserve(t, 1, "2025-03-10", "2025-03-15", reservation.BookingConfirmed)

		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-15", "2025-03-18"), 0)
		require.NoError(t, err)
		assert.True(t, res.Available)

		res, err = f.checker.Check(ctx, 1, daterange.MustParse("2025-03-05", "2025-03-10"), 0)
		require.NoError(t, err)
		assert.True(t, res.Available)
	})

	t.Run("excluded reservation is ignored", func(t *testing.T) {
		f := newFixture(t, nil)
		id := f.reserve(t, 1, "2025-03-10", "2025-03-15", reservation.BookingConfirmed)

		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-10", "2025-03-15"), id)
		require.NoError(t, err)
		assert.True(t, res.Available)
	})

	t.Run("maintenance block", func(t *testing.T) {
		f := newFixture(t, nil)
		id := f.block(t, 1, "2025-03-12", "2025-03-13")

		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-10", "2025-03-15"), 0)
		require.NoError(t, err)
		assert.False(t, res.Available)
		assert.Equal(t, xerrors.ConflictMaintenance, res.ConflictKind)
		assert.Equal(t, id, res.Conflict.ConflictingID)
	})

	t.Run("other vehicles do not interfere", func(t *testing.T) {
		f := newFixture(t, nil)
		f.reserve(t, 2, "2025-03-10", "2025-03-15", reservation.BookingConfirmed)
		f.block(t, 2, "2025-03-10", "2025-03-15")

		res, err := f.checker.Check(ctx, 1, daterange.MustParse("2025-03-10", "2025-03-15"), 0)
		require.NoError(t, err)
		assert.True(t, res.Available)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.checker.Check(ctx, 99, daterange.MustParse("2025-03-10", "2025-03-15"), 0)
		assert.ErrorIs(t, err, xerrors.ErrVehicleNotFound)
	})

	t.Run("inactive vehicle", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.checker.Check(ctx, 3, daterange.MustParse("2025-03-10", "2025-03-15"), 0)
		assert.ErrorIs(t, err, xerrors.ErrVehicleNotFound)
		assert.ErrorIs(t, err, xerrors.ErrVehicleInactive)
	})

	t.Run("day bounds", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.checker.Check(ctx, 2, daterange.MustParse("2025-03-10", "2025-03-12"), 0)
		assert.ErrorIs(t, err, xerrors.ErrRangeTooShort)
		assert.ErrorIs(t, err, xerrors.ErrInvalidRange)

		_, err = f.checker.Check(ctx, 1, daterange.MustParse("2025-03-01", "2025-04-15"), 0)
		assert.ErrorIs(t, err, xerrors.ErrRangeTooLong)
		assert.ErrorIs(t, err, xerrors.ErrInvalidRange)
	})
}

type countingCache struct {
	stored      map[int64]*availability.Calendar
	storedAt    map[int64]int64
	versions    map[int64]int64
	gets, sets  int
	invalidated []int64
	failReads   bool
	beforeSet   func()
}

func newCountingCache() *countingCache {
	return &countingCache{
		stored:   map[int64]*availability.Calendar{},
		storedAt: map[int64]int64{},
		versions: map[int64]int64{},
	}
}

func (c *countingCache) CalendarVersion(ctx context.Context, vehicleID int64) (int64, error) {
	return c.versions[vehicleID], nil
}

func (c *countingCache) GetCalendar(ctx context.Context, vehicleID, version int64, from, to time.Time) (*availability.Calendar, bool, error) {
	c.gets++
	if c.failReads {
		return nil, false, errors.New("cache down")
	}
	cal, ok := c.stored[vehicleID]
	if !ok || c.storedAt[vehicleID] != version || !cal.From.Equal(from) || !cal.To.Equal(to) {
		return nil, false, nil
	}
	return cal, true, nil
}

func (c *countingCache) SetCalendar(ctx context.Context, version int64, cal *availability.Calendar) error {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	c.sets++
	c.stored[cal.VehicleID] = cal
	c.storedAt[cal.VehicleID] = version
	return nil
}

func (c *countingCache) InvalidateVehicle(ctx context.Context, vehicleID int64) error {
	c.invalidated = append(c.invalidated, vehicleID)
	c.versions[vehicleID]++
	delete(c.stored, vehicleID)
	return nil
}

func TestChecker_Calendar(t *testing.T) {
	ctx := context.Background()
	cache := newCountingCache()
	f := newFixture(t, cache)

	resID := f.reserve(t, 1, "2025-03-20", "2025-03-25", reservation.BookingConfirmed)
	f.reserve(t, 1, "2025-03-05", "2025-03-07", reservation.BookingPending)
	blockID := f.block(t, 1, "2025-03-10", "2025-03-12")
	f.reserve(t, 1, "2026-01-01", "2026-01-05", reservation.BookingConfirmed)

	window := daterange.MustParse("2025-03-01", "2025-04-01")
	cal, err := f.checker.Calendar(ctx, 1, window)
	require.NoError(t, err)
	require.Len(t, cal.Blocked, 2)

	assert.Equal(t, xerrors.ConflictMaintenance, cal.Blocked[0].Kind)
	assert.Equal(t, blockID, cal.Blocked[0].SourceID)
	assert.Equal(t, xerrors.ConflictReservation, cal.Blocked[1].Kind)
	assert.Equal(t, resID, cal.Blocked[1].SourceID)
	assert.Equal(t, 1, cache.sets)

	again, err := f.checker.Calendar(ctx, 1, window)
	require.NoError(t, err)
	assert.Same(t, cal, again)
	assert.Equal(t, 1, cache.sets)

	f.checker.Invalidate(ctx, 1)
	assert.Equal(t, []int64{1}, cache.invalidated)
}

func TestChecker_Calendar_InvalidationDuringFill(t *testing.T) {
	ctx := context.Background()
	cache := newCountingCache()
	f := newFixture(t, cache)
	window := daterange.MustParse("2025-03-01", "2025-04-01")

	var lateID int64
	// a confirmation commits and invalidates after storage was read but
	// before the fill is written
	cache.beforeSet = func() {
		lateID = f.reserve(t, 1, "2025-03-10", "2025-03-12", reservation.BookingConfirmed)
		f.checker.Invalidate(ctx, 1)
	}

	stale, err := f.checker.Calendar(ctx, 1, window)
	require.NoError(t, err)
	assert.Empty(t, stale.Blocked)

	fresh, err := f.checker.Calendar(ctx, 1, window)
	require.NoError(t, err)
	require.Len(t, fresh.Blocked, 1)
	assert.Equal(t, lateID, fresh.Blocked[0].SourceID)
	assert.Equal(t, 2, cache.sets)
}

func TestChecker_Calendar_DefaultWindowAndCacheFailure(t *testing.T) {
	cache := newCountingCache()
	cache.failReads = true
	f := newFixture(t, cache)

	cal, err := f.checker.Calendar(context.Background(), 1, daterange.Range{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), cal.From)
	assert.Equal(t, time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC), cal.To)
	assert.Empty(t, cal.Blocked)

	_, err = f.checker.Calendar(context.Background(), 1, daterange.MustParse("2025-01-01", "2026-06-01"))
	assert.ErrorIs(t, err, xerrors.ErrInvalidRange)

	_, err = f.checker.Calendar(context.Background(), 99, daterange.MustParse("2025-01-01", "2025-02-01"))
	assert.ErrorIs(t, err, xerrors.ErrVehicleNotFound)
}
