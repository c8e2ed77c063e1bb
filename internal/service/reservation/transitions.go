// internal/service/reservation/transitions.go
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fleetrent-service/internal/domain/notification"
	"fleetrent-service/internal/domain/reservation"
	xerrors "fleetrent-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// ========== Booking status ==========

// TransitionBookingStatus moves a reservation along the booking state machine.
// Confirmation re-checks availability under the vehicle lock.
func (s *ReservationService) TransitionBookingStatus(ctx context.Context, id int64, to reservation.BookingStatus, actor reservation.Actor, reason string) (*reservation.Reservation, error) {
	res, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == reservation.RoleCustomer && res.CustomerID != actor.ID {
		return nil, fmt.Errorf("%w: %w: reservation belongs to another customer",
			xerrors.ErrIllegalTransition, xerrors.ErrForbidden)
	}

	reason = strings.TrimSpace(reason)
	if err := reservation.CheckBookingTransition(res.Status, to, actor.Role, reason); err != nil {
		return nil, err
	}

	change := &reservation.StatusChange{
		ReservationID: res.ID,
		From:          res.Status,
		To:            to,
		At:            s.now().UTC(),
	}
	if to == reservation.BookingCancelled {
		if reason != "" {
			change.Reason = &reason
		}
		if actor.ID != 0 {
			actorID := actor.ID
			change.ActorID = &actorID
		}
	}

	var updated *reservation.Reservation
	if to == reservation.BookingConfirmed {
		updated, err = s.confirm(ctx, res, change)
	} else {
		updated, err = s.reservations.UpdateStatus(ctx, change)
	}
	if err != nil {
		if errors.Is(err, xerrors.ErrConflict) || errors.Is(err, xerrors.ErrIllegalTransition) {
			s.logger.Info("booking transition rejected",
				zap.Int64("reservation_id", res.ID),
				zap.String("from", string(res.Status)),
				zap.String("to", string(to)),
				zap.Error(err),
			)
			return nil, err
		}
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	if res.Status == reservation.BookingConfirmed || to == reservation.BookingConfirmed {
		s.checker.Invalidate(ctx, res.VehicleID)
	}

	s.logger.Info("booking status changed",
		zap.Int64("reservation_id", updated.ID),
		zap.String("from", string(res.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_role", string(actor.Role)),
		zap.Int64("actor_id", actor.ID),
	)

	s.notifyBookingChange(ctx, updated, actor, reason)
	return updated, nil
}

func (s *ReservationService) confirm(ctx context.Context, res *reservation.Reservation, change *reservation.StatusChange) (*reservation.Reservation, error) {
	var updated *reservation.Reservation
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.vehicles.LockForBooking(ctx, res.VehicleID); err != nil {
			return fmt.Errorf("failed to lock vehicle: %w", err)
		}
		result, err := s.checker.Check(ctx, res.VehicleID, res.Range(), res.ID)
		if err != nil {
			return err
		}
		if !result.Available {
			return result.Conflict
		}
		updated, err = s.reservations.UpdateStatus(ctx, change)
		return err
	})
	return updated, err
}

func (s *ReservationService) notifyBookingChange(ctx context.Context, res *reservation.Reservation, actor reservation.Actor, reason string) {
	switch res.Status {
	case reservation.BookingConfirmed:
		s.notify(ctx, notification.Message{
			Title: "Reservation confirmed",
			Body:  fmt.Sprintf("Your reservation %s %s is confirmed.", res.Reference, res.Range()),
			Type:  notification.TypeReservationConfirmed,
		}.ToIdentity(res.CustomerID), res)

	case reservation.BookingRejected:
		body := fmt.Sprintf("Your reservation %s %s could not be accepted.", res.Reference, res.Range())
		if reason != "" {
			body += " Reason: " + reason
		}
		s.notify(ctx, notification.Message{
			Title: "Reservation rejected",
			Body:  body,
			Type:  notification.TypeReservationRejected,
		}.ToIdentity(res.CustomerID), res)

	case reservation.BookingCancelled:
		msg := notification.Message{
			Title: "Reservation cancelled",
			Type:  notification.TypeReservationCancelled,
		}
		if actor.IsStaff() {
			msg.Body = fmt.Sprintf("Your reservation %s %s was cancelled. Reason: %s", res.Reference, res.Range(), reason)
			msg = msg.ToIdentity(res.CustomerID)
		} else {
			msg.Body = fmt.Sprintf("Customer cancelled reservation %s %s.", res.Reference, res.Range())
			msg = msg.ToRoles(staffRoles...)
		}
		s.notify(ctx, msg, res)

	case reservation.BookingCompleted:
		s.notify(ctx, notification.Message{
			Title: "Rental completed",
			Body:  fmt.Sprintf("Your rental %s has ended. Thank you!", res.Reference),
			Type:  notification.TypeReservationCompleted,
		}.ToIdentity(res.CustomerID), res)
	}
}

// ========== Payment status ==========

// MarkPaid records a successful payment. It never touches the booking status.
// Only staff and the payment callback (system) may settle a payment.
// Repeating the call on a paid reservation is a no-op.
func (s *ReservationService) MarkPaid(ctx context.Context, paymentID int64, actor reservation.Actor) (*reservation.Reservation, error) {
	if !canSettlePayment(actor) {
		return nil, fmt.Errorf("%w: only staff or the payment provider can mark a payment paid", xerrors.ErrForbidden)
	}
	res, err := s.payable(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	if res.PaymentStatus == reservation.PaymentPaid {
		return res, nil
	}

	updated, err := s.changePayment(ctx, res, reservation.PaymentPaid)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Message{
		Title: "Payment received",
		Body:  fmt.Sprintf("Payment for reservation %s has been received.", updated.Reference),
		Type:  notification.TypePaymentPaid,
	}.ToIdentity(updated.CustomerID).ToRoles(staffRoles...), updated)

	return updated, nil
}

// MarkFailed records a failed payment attempt. Repeating it is a no-op.
func (s *ReservationService) MarkFailed(ctx context.Context, paymentID int64, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.payable(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	if res.PaymentStatus == reservation.PaymentFailed {
		return res, nil
	}

	updated, err := s.changePayment(ctx, res, reservation.PaymentFailed)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Message{
		Title: "Payment failed",
		Body:  fmt.Sprintf("Payment for reservation %s did not go through. You can retry it.", updated.Reference),
		Type:  notification.TypePaymentFailed,
	}.ToIdentity(updated.CustomerID), updated)

	return updated, nil
}

// RetryPayment moves a failed payment back to pending.
func (s *ReservationService) RetryPayment(ctx context.Context, paymentID int64, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.payable(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	return s.changePayment(ctx, res, reservation.PaymentPending)
}

// Refund is a staff action on a paid reservation, allowed in any booking status.
func (s *ReservationService) Refund(ctx context.Context, paymentID int64, actor reservation.Actor) (*reservation.Reservation, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: only staff can refund", xerrors.ErrForbidden)
	}
	res, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.changePayment(ctx, res, reservation.PaymentRefunded)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Message{
		Title: "Payment refunded",
		Body:  fmt.Sprintf("Payment for reservation %s has been refunded.", updated.Reference),
		Type:  notification.TypePaymentRefunded,
	}.ToIdentity(updated.CustomerID), updated)

	return updated, nil
}

// payable loads the reservation behind a payment and checks that actor may
// report on it and that the booking is still open.
func (s *ReservationService) payable(ctx context.Context, paymentID int64, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !canReportPayment(actor, res) {
		return nil, fmt.Errorf("%w: not allowed to update this payment", xerrors.ErrForbidden)
	}
	if res.Status != reservation.BookingPending && res.Status != reservation.BookingConfirmed {
		return nil, fmt.Errorf("%w: reservation is %s", xerrors.ErrIllegalTransition, res.Status)
	}
	return res, nil
}

func canSettlePayment(actor reservation.Actor) bool {
	return actor.IsStaff() || actor.Role == reservation.RoleSystem
}

func canReportPayment(actor reservation.Actor, res *reservation.Reservation) bool {
	switch actor.Role {
	case reservation.RoleStaff, reservation.RoleAdmin, reservation.RoleSystem:
		return true
	case reservation.RoleCustomer:
		return actor.ID == res.CustomerID
	}
	return false
}

func (s *ReservationService) changePayment(ctx context.Context, res *reservation.Reservation, to reservation.PaymentStatus) (*reservation.Reservation, error) {
	if err := reservation.CheckPaymentTransition(res.PaymentStatus, to); err != nil {
		return nil, err
	}

	updated, err := s.reservations.UpdatePaymentStatus(ctx, &reservation.PaymentChange{
		ReservationID: res.ID,
		From:          res.PaymentStatus,
		To:            to,
		At:            s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, xerrors.ErrIllegalTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	s.logger.Info("payment status changed",
		zap.Int64("reservation_id", updated.ID),
		zap.String("from", string(res.PaymentStatus)),
		zap.String("to", string(updated.PaymentStatus)),
	)
	return updated, nil
}

func (s *ReservationService) find(ctx context.Context, id int64) (*reservation.Reservation, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: reservation %d", xerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	return res, nil
}
