package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/codr1/Playfield/internal/db"
	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
)

// Confirm records payment for a PENDING hold. The conditional update and the
// sweeper race on the same row; whichever commits first wins.
func (m *Manager) Confirm(ctx context.Context, bookingID string) (models.Booking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var confirmed models.Booking
	err := m.db.RunInTx(ctx, func(txdb *db.DB) error {
		now := m.clock.Now().UTC()

		affected, err := txdb.Queries.ConfirmPendingBooking(ctx, dbgen.ConfirmPendingBookingParams{
			PaidAt: now,
			ID:     bookingID,
			Now:    now,
		})
		if err != nil {
			return &models.StorageError{Op: "confirm booking", Err: err}
		}

		booking, err := m.loadBooking(ctx, txdb.Queries, bookingID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return confirmRejection(booking, now)
		}
		confirmed = booking.AtTime(now)
		return nil
	})
	if err != nil {
		err = classify("confirm booking", err)
		m.logFailure(ctx, err).Str("booking_id", bookingID).Msg("Booking confirmation rejected")
		return models.Booking{}, err
	}

	m.log(ctx).Info().
		Str("booking_id", bookingID).
		Str("sub_field_id", confirmed.SubFieldID).
		Int64("total_price", confirmed.TotalPrice).
		Msg("Booking confirmed")
	return confirmed, nil
}

// confirmRejection explains why a booking could not move to CONFIRMED.
func confirmRejection(booking models.Booking, now time.Time) error {
	switch booking.Status {
	case models.BookingStatusConfirmed, models.BookingStatusCompleted:
		return fmt.Errorf("booking %s: %w", booking.ID, models.ErrAlreadyConfirmed)
	case models.BookingStatusPending:
		if booking.HoldExpired(now) {
			return fmt.Errorf("booking %s: %w", booking.ID, models.ErrSlotExpired)
		}
		return fmt.Errorf("%w: booking %s is still pending", models.ErrInvalidState, booking.ID)
	case models.BookingStatusCanceled:
		if booking.CancelReason == models.CancelReasonExpired {
			return fmt.Errorf("booking %s: %w", booking.ID, models.ErrSlotExpired)
		}
		return fmt.Errorf("%w: booking %s is canceled", models.ErrInvalidState, booking.ID)
	default:
		return fmt.Errorf("%w: booking %s has status %s", models.ErrInvalidState, booking.ID, booking.Status)
	}
}

// ConfirmRecurring records payment for every held occurrence of a series in
// one transaction.
func (m *Manager) ConfirmRecurring(ctx context.Context, recurringBookingID string) (models.RecurringBooking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var confirmed int64
	err := m.db.RunInTx(ctx, func(txdb *db.DB) error {
		now := m.clock.Now().UTC()

		series, err := m.loadRecurring(ctx, txdb.Queries, recurringBookingID)
		if err != nil {
			return err
		}
		if err := seriesConfirmable(series, now); err != nil {
			return err
		}

		confirmed, err = txdb.Queries.ConfirmPendingOccurrences(ctx, dbgen.ConfirmPendingOccurrencesParams{
			PaidAt:             now,
			RecurringBookingID: recurringBookingID,
			Now:                now,
		})
		if err != nil {
			return &models.StorageError{Op: "confirm occurrences", Err: err}
		}
		return nil
	})
	if err != nil {
		err = classify("confirm recurring booking", err)
		m.logFailure(ctx, err).Str("recurring_booking_id", recurringBookingID).Msg("Recurring booking confirmation rejected")
		return models.RecurringBooking{}, err
	}

	m.log(ctx).Info().
		Str("recurring_booking_id", recurringBookingID).
		Int64("occurrences", confirmed).
		Msg("Recurring booking confirmed")
	return m.loadRecurring(ctx, m.db.Queries, recurringBookingID)
}

// seriesConfirmable reports whether any occurrence still holds its slot and,
// if none does, which failure applies.
func seriesConfirmable(series models.RecurringBooking, now time.Time) error {
	var live, paid, expired int
	for _, occurrence := range series.Occurrences {
		switch {
		case occurrence.Status == models.BookingStatusPending && !occurrence.HoldExpired(now):
			live++
		case occurrence.Status == models.BookingStatusPending:
			expired++
		case occurrence.Status == models.BookingStatusCanceled && occurrence.CancelReason == models.CancelReasonExpired:
			expired++
		case occurrence.Status == models.BookingStatusConfirmed, occurrence.Status == models.BookingStatusCompleted:
			paid++
		}
	}

	switch {
	case series.Status == models.RecurringStatusActive && live > 0:
		return nil
	case expired > 0:
		return fmt.Errorf("recurring booking %s: %w", series.ID, models.ErrSlotExpired)
	case series.Status == models.RecurringStatusActive && paid > 0:
		return fmt.Errorf("recurring booking %s: %w", series.ID, models.ErrAlreadyConfirmed)
	default:
		return fmt.Errorf("%w: recurring booking %s is %s", models.ErrInvalidState, series.ID, series.Status)
	}
}

// Cancel releases a booking. A confirmed booking can only be canceled before
// it starts.
func (m *Manager) Cancel(ctx context.Context, bookingID string, actor models.Actor) (models.Booking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var canceled models.Booking
	err := m.db.RunInTx(ctx, func(txdb *db.DB) error {
		now := m.clock.Now().UTC()

		booking, err := m.loadBooking(ctx, txdb.Queries, bookingID)
		if err != nil {
			return err
		}
		if !actor.CanActOn(booking.PlayerID) {
			return fmt.Errorf("booking %s: %w", bookingID, models.ErrNotPermitted)
		}
		if err := cancelRejection(booking, now); err != nil {
			return err
		}

		affected, err := txdb.Queries.CancelBooking(ctx, dbgen.CancelBookingParams{
			CanceledAt:   now,
			CanceledBy:   canceledBy(actor),
			CancelReason: actor.CancelReason(),
			ID:           bookingID,
		})
		if err != nil {
			return &models.StorageError{Op: "cancel booking", Err: err}
		}
		if affected == 0 {
			return fmt.Errorf("%w: booking %s changed during cancellation", models.ErrInvalidState, bookingID)
		}

		canceled, err = m.loadBooking(ctx, txdb.Queries, bookingID)
		return err
	})
	if err != nil {
		err = classify("cancel booking", err)
		m.logFailure(ctx, err).
			Str("booking_id", bookingID).
			Str("actor_role", string(actor.Role)).
			Msg("Booking cancellation rejected")
		return models.Booking{}, err
	}

	m.log(ctx).Info().
		Str("booking_id", bookingID).
		Str("canceled_by", canceled.CanceledBy).
		Str("reason", canceled.CancelReason).
		Msg("Booking canceled")
	return canceled, nil
}

func cancelRejection(booking models.Booking, now time.Time) error {
	switch booking.EffectiveStatus(now) {
	case models.BookingStatusPending:
		return nil
	case models.BookingStatusConfirmed:
		if !now.Before(booking.StartTime) {
			return fmt.Errorf("booking %s: %w", booking.ID, models.ErrAlreadyStarted)
		}
		return nil
	case models.BookingStatusCompleted:
		return fmt.Errorf("booking %s: %w", booking.ID, models.ErrAlreadyStarted)
	default:
		return fmt.Errorf("%w: booking %s is %s", models.ErrInvalidState, booking.ID, booking.Status)
	}
}

// CancelRecurring cancels a series and every occurrence that has not started.
// Past occurrences keep their status.
func (m *Manager) CancelRecurring(ctx context.Context, recurringBookingID string, actor models.Actor) (models.RecurringBooking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var released int64
	err := m.db.RunInTx(ctx, func(txdb *db.DB) error {
		now := m.clock.Now().UTC()

		row, err := txdb.Queries.GetRecurringBooking(ctx, recurringBookingID)
		if err != nil {
			if isNoRows(err) {
				return fmt.Errorf("recurring booking %s: %w", recurringBookingID, models.ErrNotFound)
			}
			return &models.StorageError{Op: "load recurring booking", Err: err}
		}
		if !actor.CanActOn(row.PlayerID) {
			return fmt.Errorf("recurring booking %s: %w", recurringBookingID, models.ErrNotPermitted)
		}

		affected, err := txdb.Queries.CancelRecurringBooking(ctx, dbgen.CancelRecurringBookingParams{
			CanceledAt: now,
			ID:         recurringBookingID,
		})
		if err != nil {
			return &models.StorageError{Op: "cancel recurring booking", Err: err}
		}
		if affected == 0 {
			return fmt.Errorf("%w: recurring booking %s is already canceled", models.ErrInvalidState, recurringBookingID)
		}

		released, err = txdb.Queries.CancelFutureOccurrences(ctx, dbgen.CancelFutureOccurrencesParams{
			CanceledAt:         now,
			CanceledBy:         canceledBy(actor),
			CancelReason:       models.CancelReasonSeriesCanceled,
			RecurringBookingID: recurringBookingID,
			Now:                now,
		})
		if err != nil {
			return &models.StorageError{Op: "cancel occurrences", Err: err}
		}
		return nil
	})
	if err != nil {
		err = classify("cancel recurring booking", err)
		m.logFailure(ctx, err).
			Str("recurring_booking_id", recurringBookingID).
			Str("actor_role", string(actor.Role)).
			Msg("Recurring booking cancellation rejected")
		return models.RecurringBooking{}, err
	}

	m.log(ctx).Info().
		Str("recurring_booking_id", recurringBookingID).
		Int64("occurrences_released", released).
		Msg("Recurring booking canceled")
	return m.loadRecurring(ctx, m.db.Queries, recurringBookingID)
}

// canceledBy records who canceled: the player id, or the role for managers
// acting without an id.
func canceledBy(actor models.Actor) string {
	if actor.ID != "" {
		return actor.ID
	}
	return string(actor.Role)
}
