// internal/service/availability/checker.go
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fleetrent-service/internal/domain/availability"
	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCalendarDays = 180
	maxCalendarDays     = 366
)

type confirmedLister interface {
	ListConfirmedOverlapping(ctx context.Context, vehicleID int64, r daterange.Range, excludeID int64) ([]reservation.Reservation, error)
}

type blockLister interface {
	ListOverlapping(ctx context.Context, vehicleID int64, r daterange.Range) ([]maintenance.Block, error)
}

// Checker answers availability questions from confirmed reservations and
// maintenance blocks. It never writes.
type Checker struct {
	vehicles     vehicle.Repository
	reservations confirmedLister
	blocks       blockLister
	cache        availability.CalendarCache
	logger       *zap.Logger
	now          func() time.Time
}

// NewChecker builds a checker. cache may be nil.
func NewChecker(vehicles vehicle.Repository, reservations confirmedLister, blocks blockLister, cache availability.CalendarCache, logger *zap.Logger) *Checker {
	return &Checker{
		vehicles:     vehicles,
		reservations: reservations,
		blocks:       blocks,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// LoadVehicle returns the vehicle or an error wrapping ErrVehicleNotFound.
func (c *Checker) LoadVehicle(ctx context.Context, vehicleID int64) (*vehicle.Vehicle, error) {
	v, err := c.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", xerrors.ErrVehicleNotFound, vehicleID)
		}
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	return v, nil
}

// Check loads the vehicle and reports whether r is free. A vehicle that is not
// active fails with an error matching both ErrVehicleInactive and ErrVehicleNotFound.
func (c *Checker) Check(ctx context.Context, vehicleID int64, r daterange.Range, excludeID int64) (*availability.Result, error) {
	v, err := c.LoadVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !v.IsBookable() {
		return nil, fmt.Errorf("%w: vehicle %d is %s (%w)",
			xerrors.ErrVehicleInactive, v.ID, v.Status, xerrors.ErrVehicleNotFound)
	}
	return c.CheckVehicle(ctx, v, r, excludeID)
}

// CheckVehicle validates r against the vehicle's day bounds and looks for
// overlapping confirmed reservations (other than excludeID) and maintenance blocks.
// Pending reservations never block.
func (c *Checker) CheckVehicle(ctx context.Context, v *vehicle.Vehicle, r daterange.Range, excludeID int64) (*availability.Result, error) {
	if err := ValidateBounds(v, r); err != nil {
		return nil, err
	}

	// One query at a time: inside a booking transaction both share a connection.
	confirmed, err := c.reservations.ListConfirmedOverlapping(ctx, v.ID, r, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed reservations: %w", err)
	}
	blocks, err := c.blocks.ListOverlapping(ctx, v.ID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance blocks: %w", err)
	}

	result := &availability.Result{VehicleID: v.ID, Start: r.Start, End: r.End, Available: true}

	for _, res := range confirmed {
		if res.ID == excludeID || res.Status != reservation.BookingConfirmed {
			continue
		}
		if r.Overlaps(res.Range()) {
			result.MarkConflict(xerrors.ConflictReservation, v.ID, res.ID, res.StartDate, res.EndDate)
			return result, nil
		}
	}
	for _, b := range blocks {
		if r.Overlaps(b.Range()) {
			result.MarkConflict(xerrors.ConflictMaintenance, v.ID, b.ID, b.StartDate, b.EndDate)
			return result, nil
		}
	}

	return result, nil
}

// Require is CheckVehicle turned into an error: nil when free, a *ConflictError otherwise.
func (c *Checker) Require(ctx context.Context, v *vehicle.Vehicle, r daterange.Range, excludeID int64) error {
	result, err := c.CheckVehicle(ctx, v, r, excludeID)
	if err != nil {
		return err
	}
	if !result.Available {
		return result.Conflict
	}
	return nil
}

// ValidateBounds enforces the vehicle's minimum and maximum rental days.
func ValidateBounds(v *vehicle.Vehicle, r daterange.Range) error {
	days := r.Days()
	if days <= 0 {
		return fmt.Errorf("%w: start must be before end", xerrors.ErrInvalidRange)
	}
	if v.MinRentalDays > 0 && days < v.MinRentalDays {
		return fmt.Errorf("%w: %w: %d days, minimum is %d",
			xerrors.ErrInvalidRange, xerrors.ErrRangeTooShort, days, v.MinRentalDays)
	}
	if v.MaxRentalDays > 0 && days > v.MaxRentalDays {
		return fmt.Errorf("%w: %w: %d days, maximum is %d",
			xerrors.ErrInvalidRange, xerrors.ErrRangeTooLong, days, v.MaxRentalDays)
	}
	return nil
}

// ========== Calendar ==========

// DefaultWindow is today through the next 180 days.
func (c *Checker) DefaultWindow() daterange.Range {
	today := daterange.Truncate(c.now())
	return daterange.Range{Start: today, End: today.AddDate(0, 0, defaultCalendarDays)}
}

// Calendar lists every blocked interval on the vehicle that touches window,
// sorted by start date. The result is served from cache when possible.
func (c *Checker) Calendar(ctx context.Context, vehicleID int64, window daterange.Range) (*availability.Calendar, error) {
	if window.Start.IsZero() || window.End.IsZero() {
		window = c.DefaultWindow()
	}
	if window.Days() > maxCalendarDays {
		return nil, fmt.Errorf("%w: calendar window is limited to %d days", xerrors.ErrInvalidRange, maxCalendarDays)
	}

	// The version is read before storage so an invalidation racing this
	// fill leaves the entry unreachable.
	var version int64
	cached := c.cache != nil
	if cached {
		v, err := c.cache.CalendarVersion(ctx, vehicleID)
		if err != nil {
			c.logger.Warn("calendar cache version read failed", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
			cached = false
		} else {
			version = v
			cal, ok, err := c.cache.GetCalendar(ctx, vehicleID, version, window.Start, window.End)
			if err != nil {
				c.logger.Warn("calendar cache read failed", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
			} else if ok {
				return cal, nil
			}
		}
	}

	if _, err := c.LoadVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	var (
		confirmed []reservation.Reservation
		blocks    []maintenance.Block
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		confirmed, err = c.reservations.ListConfirmedOverlapping(gctx, vehicleID, window, 0)
		return err
	})
	g.Go(func() (err error) {
		blocks, err = c.blocks.ListOverlapping(gctx, vehicleID, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build calendar: %w", err)
	}

	cal := &availability.Calendar{
		VehicleID: vehicleID,
		From:      window.Start,
		To:        window.End,
		Blocked:   make([]availability.BlockedInterval, 0, len(confirmed)+len(blocks)),
	}
	for _, res := range confirmed {
		if res.Status != reservation.BookingConfirmed || !window.Overlaps(res.Range()) {
			continue
		}
		cal.Blocked = append(cal.Blocked, availability.BlockedInterval{
			Start: res.StartDate, End: res.EndDate, Kind: xerrors.ConflictReservation, SourceID: res.ID,
		})
	}
	for _, b := range blocks {
		if !window.Overlaps(b.Range()) {
			continue
		}
		cal.Blocked = append(cal.Blocked, availability.BlockedInterval{
			Start: b.StartDate, End: b.EndDate, Kind: xerrors.ConflictMaintenance, SourceID: b.ID,
		})
	}
	sort.SliceStable(cal.Blocked, func(i, j int) bool {
		return cal.Blocked[i].Start.Before(cal.Blocked[j].Start)
	})

	if cached {
		if err := c.cache.SetCalendar(ctx, version, cal); err != nil {
			c.logger.Warn("calendar cache write failed", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
		}
	}

	return cal, nil
}

// Invalidate drops cached calendars of a vehicle. Cache errors are logged only.
func (c *Checker) Invalidate(ctx context.Context, vehicleID int64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateVehicle(ctx, vehicleID); err != nil {
		c.logger.Warn("calendar cache invalidation failed", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
	}
}
