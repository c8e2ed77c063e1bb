package reservation

import (
	"testing"

	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingRejected, BookingCancelled, BookingCompleted}
var allRoles = []Role{RoleCustomer, RoleStaff, RoleAdmin, RoleSystem}

func TestCheckBookingTransition(t *testing.T) {
	tests := []struct {
		from   BookingStatus
		to     BookingStatus
		role   Role
		reason string
		want   error
	}{
		{BookingPending, BookingConfirmed, RoleStaff, "", nil},
		{BookingPending, BookingConfirmed, RoleAdmin, "", nil},
		{BookingPending, BookingConfirmed, RoleCustomer, "", xerrors.ErrForbidden},
		{BookingPending, BookingConfirmed, RoleSystem, "", xerrors.ErrForbidden},
		{BookingPending, BookingRejected, RoleStaff, "", nil},
		{BookingPending, BookingRejected, RoleCustomer, "", xerrors.ErrForbidden},
		{BookingPending, BookingCancelled, RoleCustomer, "", nil},
		{BookingPending, BookingCancelled, RoleStaff, "", xerrors.ErrReasonRequired},
		{BookingPending, BookingCancelled, RoleAdmin, "duplicate", nil},
		{BookingPending, BookingCompleted, RoleSystem, "", xerrors.ErrIllegalTransition},
		{BookingConfirmed, BookingCancelled, RoleStaff, "", xerrors.ErrReasonRequired},
		{BookingConfirmed, BookingCancelled, RoleStaff, "damaged", nil},
		{BookingConfirmed, BookingCancelled, RoleCustomer, "please", xerrors.ErrForbidden},
		{BookingConfirmed, BookingCompleted, RoleSystem, "", nil},
		{BookingConfirmed, BookingCompleted, RoleAdmin, "", xerrors.ErrForbidden},
		{BookingConfirmed, BookingPending, RoleAdmin, "", xerrors.ErrIllegalTransition},
		{BookingConfirmed, BookingRejected, RoleAdmin, "", xerrors.ErrIllegalTransition},
		{BookingPending, BookingPending, RoleAdmin, "", xerrors.ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to)+"/"+string(tt.role), func(t *testing.T) {
			err := CheckBookingTransition(tt.from, tt.to, tt.role, tt.reason)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			if tt.want == xerrors.ErrForbidden {
				assert.ErrorIs(t, err, xerrors.ErrIllegalTransition)
			}
		})
	}
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	for _, from := range []BookingStatus{BookingRejected, BookingCancelled, BookingCompleted} {
		assert.True(t, from.IsTerminal())
		for _, to := range allStatuses {
			for _, role := range allRoles {
				err := CheckBookingTransition(from, to, role, "some reason")
				assert.ErrorIs(t, err, xerrors.ErrIllegalTransition, "%s -> %s as %s", from, to, role)
			}
		}
	}
	assert.False(t, BookingPending.IsTerminal())
	assert.False(t, BookingConfirmed.IsTerminal())
}

func TestCheckPaymentTransition(t *testing.T) {
	allowed := map[[2]PaymentStatus]bool{
		{PaymentPending, PaymentPaid}:   true,
		{PaymentPending, PaymentFailed}: true,
		{PaymentFailed, PaymentPending}: true,
		{PaymentPaid, PaymentRefunded}:  true,
	}
	all := []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

	for _, from := range all {
		for _, to := range all {
			err := CheckPaymentTransition(from, to)
			if allowed[[2]PaymentStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, xerrors.ErrIllegalTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestParseBookingStatus(t *testing.T) {
	s, err := ParseBookingStatus(" Confirmed ")
	assert.NoError(t, err)
	assert.Equal(t, BookingConfirmed, s)

	_, err = ParseBookingStatus("approved")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestAddons(t *testing.T) {
	assert.NoError(t, Addons{Insurance: InsurancePremium, ExtraDistanceUnits: 3}.Validate())
	assert.ErrorIs(t, Addons{Insurance: "platinum"}.Validate(), xerrors.ErrInvalidInput)
	assert.NoError(t, Addons{ExtraDistanceUnits: MaxExtraDistanceUnits}.Validate())
	assert.ErrorIs(t, Addons{ExtraDistanceUnits: MaxExtraDistanceUnits + 1}.Validate(), xerrors.ErrInvalidInput)
	assert.ErrorIs(t, Addons{ExtraDistanceUnits: 1 << 59}.Validate(), xerrors.ErrInvalidInput)
}

func TestChannel(t *testing.T) {
	assert.True(t, ChannelOnline.CustomerInitiated())
	assert.True(t, ChannelAPI.CustomerInitiated())
	assert.False(t, ChannelManual.CustomerInitiated())
	assert.False(t, Channel("fax").IsValid())
}
