// internal/service/reservation/service.go
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fleetrent-service/internal/domain/notification"
	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"
	"fleetrent-service/internal/service/availability"
	"fleetrent-service/internal/service/pricing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

var staffRoles = []string{string(reservation.RoleStaff), string(reservation.RoleAdmin)}

// RateLimiter caps how often one key may perform an action.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ReservationService runs the reservation lifecycle: creation, booking and
// payment transitions, listing with lazy completion.
type ReservationService struct {
	reservations reservation.Repository
	vehicles     vehicle.Repository
	tx           reservation.TxManager
	checker      *availability.Checker
	pricing      *pricing.Calculator
	notifier     notification.Notifier
	limiter      RateLimiter
	logger       *zap.Logger
	now          func() time.Time
}

func NewReservationService(
	reservations reservation.Repository,
	vehicles vehicle.Repository,
	tx reservation.TxManager,
	checker *availability.Checker,
	calc *pricing.Calculator,
	notifier notification.Notifier,
	limiter RateLimiter,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		vehicles:     vehicles,
		tx:           tx,
		checker:      checker,
		pricing:      calc,
		notifier:     notifier,
		limiter:      limiter,
		logger:       logger,
		now:          time.Now,
	}
}

// ========== Creation ==========

// CreateReservation books a vehicle for a customer. The reservation starts
// pending and holds nothing until staff confirm it.
func (s *ReservationService) CreateReservation(ctx context.Context, in *reservation.NewReservation) (*reservation.Reservation, error) {
	if in.Channel == "" {
		in.Channel = reservation.ChannelOnline
	}
	if in.Channel == reservation.ChannelManual {
		return nil, fmt.Errorf("%w: manual reservations go through the staff endpoint", xerrors.ErrInvalidInput)
	}
	if in.Actor.Role == reservation.RoleCustomer {
		in.CustomerID = in.Actor.ID
	}

	if err := s.validate(in); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, in.Actor); err != nil {
		return nil, err
	}

	v, quote, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	res := s.newReservation(in, quote, reservation.BookingPending)
	if err := s.reservations.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.logger.Info("reservation created",
		zap.Int64("reservation_id", res.ID),
		zap.String("reference", res.Reference),
		zap.Int64("vehicle_id", v.ID),
		zap.Int64("customer_id", res.CustomerID),
		zap.String("channel", string(res.Channel)),
	)

	s.notify(ctx, notification.Message{
		Title: "New reservation request",
		Body: fmt.Sprintf("Reservation %s for %s %s is awaiting confirmation.",
			res.Reference, vehicleLabel(v), res.Range()),
		Type: notification.TypeReservationCreated,
	}.ToRoles(staffRoles...), res)

	return res, nil
}

// CreateManualReservation is the staff path: the reservation is written as
// confirmed, under the vehicle lock and with a final availability check.
func (s *ReservationService) CreateManualReservation(ctx context.Context, in *reservation.NewReservation) (*reservation.Reservation, error) {
	if !in.Actor.IsStaff() {
		return nil, fmt.Errorf("%w: only staff can create manual reservations", xerrors.ErrForbidden)
	}
	if in.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer_id is required", xerrors.ErrInvalidInput)
	}
	in.Channel = reservation.ChannelManual

	if err := s.validate(in); err != nil {
		return nil, err
	}

	v, quote, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	res := s.newReservation(in, quote, reservation.BookingConfirmed)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.vehicles.LockForBooking(ctx, v.ID); err != nil {
			return fmt.Errorf("failed to lock vehicle: %w", err)
		}
		if err := s.checker.Require(ctx, v, in.Range, 0); err != nil {
			return err
		}
		return s.reservations.Create(ctx, res)
	})
	if err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create manual reservation: %w", err)
	}

	s.checker.Invalidate(ctx, v.ID)

	s.logger.Info("manual reservation created",
		zap.Int64("reservation_id", res.ID),
		zap.String("reference", res.Reference),
		zap.Int64("vehicle_id", v.ID),
		zap.Int64("customer_id", res.CustomerID),
		zap.Int64("staff_id", in.Actor.ID),
	)

	s.notify(ctx, notification.Message{
		Title: "Reservation confirmed",
		Body:  fmt.Sprintf("Your reservation %s for %s %s is confirmed.", res.Reference, vehicleLabel(v), res.Range()),
		Type:  notification.TypeReservationConfirmed,
	}.ToIdentity(res.CustomerID), res)

	return res, nil
}

// Quote prices a range without checking availability or writing anything.
func (s *ReservationService) Quote(ctx context.Context, vehicleID int64, rng daterange.Range, addons reservation.Addons) (*reservation.QuoteResponse, error) {
	v, err := s.bookableVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if err := availability.ValidateBounds(v, rng); err != nil {
		return nil, err
	}
	q, err := s.pricing.Price(v.DailyRate, rng.Start, rng.End, addons)
	if err != nil {
		return nil, err
	}
	return &reservation.QuoteResponse{
		Vehicle: vehicle.Summary{ID: v.ID, Name: v.Name, NumberPlate: v.NumberPlate},
		Range:   rng,
		Quote:   q,
	}, nil
}

// validate rejects malformed input before any read.
func (s *ReservationService) validate(in *reservation.NewReservation) error {
	if in.VehicleID <= 0 {
		return fmt.Errorf("%w: vehicle_id is required", xerrors.ErrInvalidInput)
	}
	if !in.Channel.IsValid() {
		return fmt.Errorf("%w: unknown channel %q", xerrors.ErrInvalidInput, in.Channel)
	}
	if !in.Range.Start.Before(in.Range.End) {
		return fmt.Errorf("%w: start must be before end", xerrors.ErrInvalidRange)
	}
	if in.Channel.CustomerInitiated() && in.Range.Start.Before(daterange.Truncate(s.now())) {
		return fmt.Errorf("%w: start date %s is in the past", xerrors.ErrInvalidRange, in.Range.Start.Format(daterange.Layout))
	}
	return in.Addons.Validate()
}

// prepare loads the vehicle, checks day bounds and availability, then prices the range.
func (s *ReservationService) prepare(ctx context.Context, in *reservation.NewReservation) (*vehicle.Vehicle, *reservation.Quote, error) {
	v, err := s.bookableVehicle(ctx, in.VehicleID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checker.Require(ctx, v, in.Range, 0); err != nil {
		return nil, nil, err
	}
	quote, err := s.pricing.Price(v.DailyRate, in.Range.Start, in.Range.End, in.Addons)
	if err != nil {
		return nil, nil, err
	}
	return v, quote, nil
}

func (s *ReservationService) bookableVehicle(ctx context.Context, vehicleID int64) (*vehicle.Vehicle, error) {
	v, err := s.checker.LoadVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !v.IsBookable() {
		return nil, fmt.Errorf("%w: vehicle %d is %s", xerrors.ErrVehicleInactive, v.ID, v.Status)
	}
	return v, nil
}

func (s *ReservationService) newReservation(in *reservation.NewReservation, q *reservation.Quote, status reservation.BookingStatus) *reservation.Reservation {
	return &reservation.Reservation{
		Reference:     "RSV-" + ulid.Make().String(),
		VehicleID:     in.VehicleID,
		CustomerID:    in.CustomerID,
		StartDate:     in.Range.Start,
		EndDate:       in.Range.End,
		BaseAmount:    q.Base,
		AddonsAmount:  q.AddonsTotal,
		TotalAmount:   q.Total,
		Status:        status,
		PaymentStatus: reservation.PaymentPending,
		Channel:       in.Channel,
		Addons:        in.Addons,
		CreatedBy:     in.Actor.ID,
	}
}

// checkRateLimit fails open when the limiter itself errors.
func (s *ReservationService) checkRateLimit(ctx context.Context, actor reservation.Actor) error {
	if s.limiter == nil || actor.Role != reservation.RoleCustomer {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, "reservations:customer:"+strconv.FormatInt(actor.ID, 10))
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.Int64("customer_id", actor.ID), zap.Error(err))
		return nil
	}
	if !ok {
		return xerrors.ErrRateLimited
	}
	return nil
}

func (s *ReservationService) notify(ctx context.Context, msg notification.Message, res *reservation.Reservation) {
	if s.notifier == nil {
		return
	}
	msg.Link = "/reservations/" + strconv.FormatInt(res.ID, 10)
	if msg.Metadata == nil {
		msg.Metadata = map[string]interface{}{}
	}
	msg.Metadata["reservation_id"] = res.ID
	msg.Metadata["reference"] = res.Reference
	s.notifier.Notify(ctx, msg)
}

func vehicleLabel(v *vehicle.Vehicle) string {
	if v.Name != "" {
		return v.Name
	}
	return "vehicle " + strconv.FormatInt(v.ID, 10)
}
