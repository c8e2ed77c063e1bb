// internal/cache/calendar.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetrent-service/internal/domain/availability"
	"fleetrent-service/internal/pkg/daterange"

	"github.com/redis/go-redis/v9"
)

// hashStore is the subset of *redis.Client the calendar cache uses.
type hashStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CalendarCache keeps every cached window of a vehicle in one hash, so a
// single DEL invalidates all of them. Fields carry the vehicle's version
// counter; invalidation bumps it before the DEL so a fill that read storage
// earlier writes a field nobody asks for again. The counter has no TTL.
type CalendarCache struct {
	client hashStore
	ttl    time.Duration
}

func NewCalendarCache(client hashStore, ttl time.Duration) *CalendarCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CalendarCache{client: client, ttl: ttl}
}

func calendarKey(vehicleID int64) string {
	return fmt.Sprintf("calendar:vehicle:%d", vehicleID)
}

func versionKey(vehicleID int64) string {
	return fmt.Sprintf("calendar:vehicle:%d:version", vehicleID)
}

func windowField(version int64, from, to time.Time) string {
	return fmt.Sprintf("v%d:%s:%s", version, from.Format(daterange.Layout), to.Format(daterange.Layout))
}

// CalendarVersion returns 0 for a vehicle that was never invalidated.
func (c *CalendarCache) CalendarVersion(ctx context.Context, vehicleID int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(vehicleID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read calendar version: %w", err)
	}
	return v, nil
}

func (c *CalendarCache) GetCalendar(ctx context.Context, vehicleID, version int64, from, to time.Time) (*availability.Calendar, bool, error) {
	data, err := c.client.HGet(ctx, calendarKey(vehicleID), windowField(version, from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read calendar: %w", err)
	}

	var cal availability.Calendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal calendar: %w", err)
	}
	return &cal, true, nil
}

// SetCalendar refreshes the TTL of the whole vehicle hash.
func (c *CalendarCache) SetCalendar(ctx context.Context, version int64, cal *availability.Calendar) error {
	data, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("failed to marshal calendar: %w", err)
	}

	key := calendarKey(cal.VehicleID)
	if err := c.client.HSet(ctx, key, windowField(version, cal.From, cal.To), data).Err(); err != nil {
		return fmt.Errorf("failed to store calendar: %w", err)
	}
	if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set calendar ttl: %w", err)
	}
	return nil
}

func (c *CalendarCache) InvalidateVehicle(ctx context.Context, vehicleID int64) error {
	if err := c.client.Incr(ctx, versionKey(vehicleID)).Err(); err != nil {
		return fmt.Errorf("failed to bump calendar version: %w", err)
	}
	if err := c.client.Del(ctx, calendarKey(vehicleID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate calendar: %w", err)
	}
	return nil
}
