// Package daterange holds the half-open date interval used for every
// availability and pricing decision.
package daterange

import (
	"fmt"
	"time"

	xerrors "fleetrent-service/internal/pkg/errors"
)

// Layout is the wire format for rental dates.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// Range is the half-open interval [Start, End). End is the hand-over day and is not occupied.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Adjacent intervals (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// New builds a range truncated to UTC calendar days. start must be before end.
func New(start, end time.Time) (Range, error) {
	r := Range{Start: Truncate(start), End: Truncate(end)}
	if !r.Start.Before(r.End) {
		return Range{}, fmt.Errorf("%w: start %s must be before end %s",
			xerrors.ErrInvalidRange, r.Start.Format(Layout), r.End.Format(Layout))
	}
	return r, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (Range, error) {
	s, err := time.Parse(Layout, start)
	if err != nil {
		return Range{}, fmt.Errorf("%w: start date %q: expected YYYY-MM-DD", xerrors.ErrInvalidRange, start)
	}
	e, err := time.Parse(Layout, end)
	if err != nil {
		return Range{}, fmt.Errorf("%w: end date %q: expected YYYY-MM-DD", xerrors.ErrInvalidRange, end)
	}
	return New(s, e)
}

// MustParse is Parse for fixed inputs; it panics on error.
func MustParse(start, end string) Range {
	r, err := Parse(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Truncate drops the time of day, in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether r and o intersect under the half-open rule.
func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.Start, r.End, o.Start, o.End)
}

// Days is the number of whole rental days in r, rounded up.
func (r Range) Days() int {
	return DaysBetween(r.Start, r.End)
}

// DaysBetween returns the ceiling of the day difference between start and end,
// or 0 when end is not after start.
func DaysBetween(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(Layout), r.End.Format(Layout))
}
