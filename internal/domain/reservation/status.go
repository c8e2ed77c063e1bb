package reservation

import (
	"fmt"
	"strings"

	xerrors "fleetrent-service/internal/pkg/errors"
)

type bookingRule struct {
	actors []Role
	// staff must give a reason; customers may omit it
	reasonFromStaff bool
}

var (
	staffRoles     = []Role{RoleStaff, RoleAdmin}
	staffOrOwner   = []Role{RoleCustomer, RoleStaff, RoleAdmin}
	systemOnly     = []Role{RoleSystem}
	terminalStates = map[BookingStatus]bool{
		BookingRejected:  true,
		BookingCancelled: true,
		BookingCompleted: true,
	}
)

var bookingTransitions = map[BookingStatus]map[BookingStatus]bookingRule{
	BookingPending: {
		BookingConfirmed: {actors: staffRoles},
		BookingRejected:  {actors: staffRoles},
		BookingCancelled: {actors: staffOrOwner, reasonFromStaff: true},
	},
	BookingConfirmed: {
		BookingCancelled: {actors: staffRoles, reasonFromStaff: true},
		BookingCompleted: {actors: systemOnly},
	},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPending},
	PaymentPaid:    {PaymentRefunded},
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRejected, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s BookingStatus) IsTerminal() bool {
	return terminalStates[s]
}

func (s BookingStatus) String() string { return string(s) }

// ParseBookingStatus converts a string to a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown booking status %q", xerrors.ErrInvalidInput, s)
	}
	return status, nil
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) String() string { return string(s) }

func (c Channel) IsValid() bool {
	return c == ChannelOnline || c == ChannelManual || c == ChannelAPI
}

// CustomerInitiated reports whether the channel is driven by the customer,
// which forbids start dates in the past.
func (c Channel) CustomerInitiated() bool {
	return c != ChannelManual
}

// CheckBookingTransition validates from -> to for the given actor role.
// A role that may not make the move gets an error matching both
// ErrIllegalTransition and ErrForbidden. A staff cancellation without a reason
// fails with ErrReasonRequired.
func CheckBookingTransition(from, to BookingStatus, role Role, reason string) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", xerrors.ErrIllegalTransition, from)
	}

	rule, ok := bookingTransitions[from][to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", xerrors.ErrIllegalTransition, from, to)
	}

	if !hasRole(rule.actors, role) {
		return fmt.Errorf("%w: %w: role %q cannot move a reservation from %s to %s",
			xerrors.ErrIllegalTransition, xerrors.ErrForbidden, role, from, to)
	}

	if rule.reasonFromStaff && (role == RoleStaff || role == RoleAdmin) && strings.TrimSpace(reason) == "" {
		return xerrors.ErrReasonRequired
	}

	return nil
}

// CheckPaymentTransition validates from -> to on the payment sub-status.
func CheckPaymentTransition(from, to PaymentStatus) error {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: payment %s -> %s", xerrors.ErrIllegalTransition, from, to)
}

func hasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
