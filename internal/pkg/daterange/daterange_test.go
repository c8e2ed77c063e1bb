package daterange

import (
	"math/rand"
	"testing"
	"time"

	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want bool
	}{
		{"identical", MustParse("2025-03-01", "2025-03-06"), MustParse("2025-03-01", "2025-03-06"), true},
		{"partial left", MustParse("2025-03-01", "2025-03-06"), MustParse("2025-02-27", "2025-03-02"), true},
		{"contained", MustParse("2025-03-01", "2025-03-10"), MustParse("2025-03-03", "2025-03-04"), true},
		{"adjacent after", MustParse("2025-03-01", "2025-03-06"), MustParse("2025-03-06", "2025-03-08"), false},
		{"adjacent before", MustParse("2025-03-06", "2025-03-08"), MustParse("2025-03-01", "2025-03-06"), false},
		{"disjoint", MustParse("2025-03-01", "2025-03-03"), MustParse("2025-04-01", "2025-04-03"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.a.Start, tt.a.End, tt.b.Start, tt.b.End))
		})
	}
}

func TestOverlaps_SymmetricAndAdjacentNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := date("2025-01-01")

	for i := 0; i < 2000; i++ {
		as := base.AddDate(0, 0, rng.Intn(60))
		ae := as.AddDate(0, 0, 1+rng.Intn(10))
		bs := base.AddDate(0, 0, rng.Intn(60))
		be := bs.AddDate(0, 0, 1+rng.Intn(10))

		assert.Equal(t, Overlaps(as, ae, bs, be), Overlaps(bs, be, as, ae))
		assert.False(t, Overlaps(as, ae, ae, ae.AddDate(0, 0, 1+rng.Intn(5))))
	}
}

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		r, err := Parse("2025-03-01", "2025-03-06")
		require.NoError(t, err)
		assert.Equal(t, 5, r.Days())
		assert.Equal(t, "[2025-03-01, 2025-03-06)", r.String())
	})

	t.Run("Bad format", func(t *testing.T) {
		_, err := Parse("03/01/2025", "2025-03-06")
		assert.ErrorIs(t, err, xerrors.ErrInvalidRange)
	})

	t.Run("End not after start", func(t *testing.T) {
		_, err := Parse("2025-03-06", "2025-03-06")
		assert.ErrorIs(t, err, xerrors.ErrInvalidRange)

		_, err = Parse("2025-03-07", "2025-03-06")
		assert.ErrorIs(t, err, xerrors.ErrInvalidRange)
	})
}

func TestDaysBetween(t *testing.T) {
	start := date("2025-03-01")

	assert.Equal(t, 0, DaysBetween(start, start))
	assert.Equal(t, 1, DaysBetween(start, start.Add(3*time.Hour)))
	assert.Equal(t, 2, DaysBetween(start, start.Add(25*time.Hour)))
	assert.Equal(t, 5, DaysBetween(start, start.AddDate(0, 0, 5)))
	assert.Equal(t, 0, DaysBetween(start, start.AddDate(0, 0, -1)))
}

func TestNew_TruncatesToUTCDays(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	r, err := New(time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC), time.Date(2025, 3, 4, 2, 0, 0, 0, loc))
	require.NoError(t, err)

	assert.Equal(t, date("2025-03-01"), r.Start)
	assert.Equal(t, date("2025-03-03"), r.End)
	assert.Equal(t, 2, r.Days())
}
