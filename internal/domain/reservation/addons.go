package reservation

import (
	"fmt"

	xerrors "fleetrent-service/internal/pkg/errors"
)

// MaxExtraDistanceUnits is the hard ceiling on extra-distance packs per
// reservation. Keep the binding tag on Addons in sync.
const MaxExtraDistanceUnits = 1000

// Validate rejects selections no price rule can apply to.
func (a Addons) Validate() error {
	if a.ExtraDistanceUnits < 0 || a.ExtraDistanceUnits > MaxExtraDistanceUnits {
		return fmt.Errorf("%w: extra_distance_units must be between 0 and %d",
			xerrors.ErrInvalidInput, MaxExtraDistanceUnits)
	}
	switch a.Insurance {
	case InsuranceNone, InsuranceBasic, InsurancePremium:
	default:
		return fmt.Errorf("%w: unknown insurance tier %q", xerrors.ErrInvalidInput, a.Insurance)
	}
	return nil
}
