// internal/service/pricing/pricing.go
package pricing

import (
	"fmt"
	"math"
	"time"

	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
)

// Rule says how an add-on unit price scales with the rental.
type Rule string

const (
	PerDay  Rule = "per_day"
	PerUnit Rule = "per_unit"
	Flat    Rule = "flat"
)

// AddonPrices are unit prices in minor currency units.
type AddonPrices struct {
	DriverPerDay           int64
	ExtraDistancePerUnit   int64
	DeliveryFlat           int64
	ChildSeatPerDay        int64
	NavigationPerDay       int64
	InsuranceBasicPerDay   int64
	InsurancePremiumPerDay int64

	// ExtraDistanceMaxUnits caps packs per reservation below the domain
	// ceiling; 0 leaves only reservation.MaxExtraDistanceUnits.
	ExtraDistanceMaxUnits int
}

// DefaultAddonPrices is used when nothing is configured.
var DefaultAddonPrices = AddonPrices{
	DriverPerDay:           5000,
	ExtraDistancePerUnit:   50,
	DeliveryFlat:           2500,
	ChildSeatPerDay:        800,
	NavigationPerDay:       500,
	InsuranceBasicPerDay:   1500,
	InsurancePremiumPerDay: 3000,
	ExtraDistanceMaxUnits:  200,
}

type Calculator struct {
	prices AddonPrices
}

func NewCalculator(prices AddonPrices) *Calculator {
	return &Calculator{prices: prices}
}

// Days returns the billable day count for [start, end), rounded up.
func Days(start, end time.Time) int {
	return daterange.DaysBetween(start, end)
}

// Price computes base = dailyRate * days and adds the selected add-ons.
// A range with no billable days is rejected.
func (c *Calculator) Price(dailyRate int64, start, end time.Time, addons reservation.Addons) (*reservation.Quote, error) {
	days := Days(start, end)
	if days <= 0 {
		return nil, fmt.Errorf("%w: rental must last at least one day", xerrors.ErrInvalidRange)
	}
	if dailyRate < 0 {
		return nil, fmt.Errorf("%w: negative daily rate", xerrors.ErrInvalidInput)
	}
	if err := addons.Validate(); err != nil {
		return nil, err
	}
	if limit := c.prices.ExtraDistanceMaxUnits; limit > 0 && addons.ExtraDistanceUnits > limit {
		return nil, fmt.Errorf("%w: at most %d extra distance units per reservation", xerrors.ErrInvalidInput, limit)
	}

	base, err := multiply(dailyRate, days)
	if err != nil {
		return nil, err
	}
	q := &reservation.Quote{
		Days:      days,
		DailyRate: dailyRate,
		Base:      base,
	}
	q.Lines = append(q.Lines, reservation.QuoteLine{
		Item: "rental", Rule: string(PerDay), Quantity: days, Unit: dailyRate, Amount: q.Base,
	})

	lines, err := c.addonLines(days, addons)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if q.AddonsTotal, err = sum(q.AddonsTotal, line.Amount); err != nil {
			return nil, err
		}
		q.Lines = append(q.Lines, line)
	}
	if q.Total, err = sum(q.Base, q.AddonsTotal); err != nil {
		return nil, err
	}

	return q, nil
}

func (c *Calculator) addonLines(days int, a reservation.Addons) ([]reservation.QuoteLine, error) {
	var (
		lines []reservation.QuoteLine
		err   error
	)
	add := func(item string, rule Rule, qty int, unit int64) {
		if qty <= 0 || err != nil {
			return
		}
		var amount int64
		if amount, err = multiply(unit, qty); err != nil {
			err = fmt.Errorf("%s: %w", item, err)
			return
		}
		lines = append(lines, reservation.QuoteLine{
			Item: item, Rule: string(rule), Quantity: qty, Unit: unit, Amount: amount,
		})
	}

	if a.Driver {
		add("driver", PerDay, days, c.prices.DriverPerDay)
	}
	if a.ExtraDistanceUnits > 0 {
		add("extra_distance", PerUnit, a.ExtraDistanceUnits, c.prices.ExtraDistancePerUnit)
	}
	if a.Delivery {
		add("delivery", Flat, 1, c.prices.DeliveryFlat)
	}
	if a.ChildSeat {
		add("child_seat", PerDay, days, c.prices.ChildSeatPerDay)
	}
	if a.Navigation {
		add("navigation", PerDay, days, c.prices.NavigationPerDay)
	}
	switch a.Insurance {
	case reservation.InsuranceBasic:
		add("insurance_basic", PerDay, days, c.prices.InsuranceBasicPerDay)
	case reservation.InsurancePremium:
		add("insurance_premium", PerDay, days, c.prices.InsurancePremiumPerDay)
	}

	return lines, err
}

// multiply is unit * qty for non-negative operands, failing instead of
// wrapping around.
func multiply(unit int64, qty int) (int64, error) {
	if unit < 0 || qty < 0 {
		return 0, fmt.Errorf("%w: negative price component", xerrors.ErrInvalidInput)
	}
	if qty != 0 && unit > math.MaxInt64/int64(qty) {
		return 0, fmt.Errorf("%w: amount out of range", xerrors.ErrInvalidInput)
	}
	return unit * int64(qty), nil
}

func sum(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: amount out of range", xerrors.ErrInvalidInput)
	}
	return a + b, nil
}
