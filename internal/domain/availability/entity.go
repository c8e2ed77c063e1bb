// Package availability holds the read models produced by the availability checker.
package availability

import (
	"context"
	"time"

	xerrors "fleetrent-service/internal/pkg/errors"
)

// Result answers "is this vehicle free for the requested range".
type Result struct {
	VehicleID    int64                  `json:"vehicle_id"`
	Start        time.Time              `json:"start"`
	End          time.Time              `json:"end"`
	Available    bool                   `json:"available"`
	ConflictKind xerrors.ConflictKind   `json:"conflict_kind,omitempty"`
	Conflict     *xerrors.ConflictError `json:"conflict,omitempty"`
}

// BlockedInterval is one entry of a vehicle calendar.
type BlockedInterval struct {
	Start    time.Time            `json:"start"`
	End      time.Time            `json:"end"`
	Kind     xerrors.ConflictKind `json:"kind"`
	SourceID int64                `json:"source_id"`
}

// Calendar is the union of confirmed reservations and maintenance blocks in a window.
type Calendar struct {
	VehicleID int64             `json:"vehicle_id"`
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Blocked   []BlockedInterval `json:"blocked"`
}

// CalendarCache stores computed calendars per vehicle. Implementations may
// lose entries at any time; callers fall back to storage.
//
// Entries are tagged with the vehicle's cache version. Callers read the
// version before loading from storage and pass it to Get and Set.
// InvalidateVehicle bumps the version, so a calendar built from reads that
// began before an invalidation is never served after it.
type CalendarCache interface {
	CalendarVersion(ctx context.Context, vehicleID int64) (int64, error)
	GetCalendar(ctx context.Context, vehicleID, version int64, from, to time.Time) (*Calendar, bool, error)
	SetCalendar(ctx context.Context, version int64, cal *Calendar) error
	InvalidateVehicle(ctx context.Context, vehicleID int64) error
}

// MarkConflict records what blocks the requested range.
func (r *Result) MarkConflict(kind xerrors.ConflictKind, vehicleID, sourceID int64, start, end time.Time) {
	r.Available = false
	r.ConflictKind = kind
	r.Conflict = &xerrors.ConflictError{
		Kind:          kind,
		VehicleID:     vehicleID,
		ConflictingID: sourceID,
		Start:         start,
		End:           end,
	}
}
