package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"fleetrent-service/internal/domain/availability"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHashes struct {
	data     map[string]map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
	failGet  error
}

func newFakeHashes() *fakeHashes {
	return &fakeHashes{
		data:     map[string]map[string]string{},
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
	}
}

func (f *fakeHashes) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.counters[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(v, 10), nil)
}

func (f *fakeHashes) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeHashes) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeHashes) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.data[key] == nil {
		f.data[key] = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		var v string
		switch val := values[i+1].(type) {
		case []byte:
			v = string(val)
		case string:
			v = val
		}
		f.data[key][values[i].(string)] = v
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHashes) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeHashes) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
		delete(f.ttls, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func sampleCalendar() *availability.Calendar {
	window := daterange.MustParse("2025-03-01", "2025-04-01")
	booked := daterange.MustParse("2025-03-05", "2025-03-08")
	return &availability.Calendar{
		VehicleID: 4,
		From:      window.Start,
		To:        window.End,
		Blocked: []availability.BlockedInterval{
			{Start: booked.Start, End: booked.End, Kind: xerrors.ConflictReservation, SourceID: 11},
		},
	}
}

func TestCalendarCache_RoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := newFakeHashes()
	c := NewCalendarCache(store, time.Minute)
	cal := sampleCalendar()

	version, err := c.CalendarVersion(ctx, cal.VehicleID)
	require.NoError(t, err)
	assert.Zero(t, version)

	_, ok, err := c.GetCalendar(ctx, cal.VehicleID, version, cal.From, cal.To)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache is a miss, not an error")

	require.NoError(t, c.SetCalendar(ctx, version, cal))
	assert.Equal(t, time.Minute, store.ttls["calendar:vehicle:4"])
	assert.Contains(t, store.data["calendar:vehicle:4"], "v0:2025-03-01:2025-04-01")

	got, ok, err := c.GetCalendar(ctx, cal.VehicleID, version, cal.From, cal.To)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Blocked, 1)
	assert.Equal(t, int64(11), got.Blocked[0].SourceID)
	assert.True(t, got.Blocked[0].Start.Equal(cal.Blocked[0].Start))

	_, ok, _ = c.GetCalendar(ctx, cal.VehicleID, version, cal.From, cal.To.AddDate(0, 0, 1))
	assert.False(t, ok, "a different window is a different entry")

	require.NoError(t, c.InvalidateVehicle(ctx, cal.VehicleID))
	_, ok, err = c.GetCalendar(ctx, cal.VehicleID, version, cal.From, cal.To)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), store.counters["calendar:vehicle:4:version"])
	_, ttl := store.ttls["calendar:vehicle:4:version"]
	assert.False(t, ttl, "version counter never expires")
}

func TestCalendarCache_LateFillAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	store := newFakeHashes()
	c := NewCalendarCache(store, time.Minute)
	cal := sampleCalendar()

	// reader takes the version, then a writer invalidates before the fill lands
	before, err := c.CalendarVersion(ctx, cal.VehicleID)
	require.NoError(t, err)
	require.NoError(t, c.InvalidateVehicle(ctx, cal.VehicleID))
	require.NoError(t, c.SetCalendar(ctx, before, cal))

	now, err := c.CalendarVersion(ctx, cal.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, before+1, now)

	_, ok, err := c.GetCalendar(ctx, cal.VehicleID, now, cal.From, cal.To)
	require.NoError(t, err)
	assert.False(t, ok, "stale fill must not be served")

	fresh := sampleCalendar()
	fresh.Blocked = nil
	require.NoError(t, c.SetCalendar(ctx, now, fresh))
	got, ok, err := c.GetCalendar(ctx, cal.VehicleID, now, cal.From, cal.To)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.Blocked)
}

func TestCalendarCache_ReadError(t *testing.T) {
	store := newFakeHashes()
	store.failGet = errors.New("connection refused")
	c := NewCalendarCache(store, 0)

	_, ok, err := c.GetCalendar(context.Background(), 1, 0, time.Now(), time.Now())
	assert.Error(t, err)
	assert.False(t, ok)

	_, err = c.CalendarVersion(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 10*time.Minute, c.ttl)
}
