package reservations

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/codr1/Playfield/internal/db"
	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
)

func bookingFromRow(row dbgen.Booking) models.Booking {
	return models.Booking{
		ID:                 row.ID,
		SubFieldID:         row.SubFieldID,
		PlayerID:           row.PlayerID,
		RecurringBookingID: row.RecurringBookingID.String,
		StartTime:          row.StartTime.UTC(),
		EndTime:            row.EndTime.UTC(),
		Status:             models.BookingStatus(row.Status),
		TotalPrice:         row.TotalPrice,
		ContactPhone:       row.ContactPhone.String,
		CreatedAt:          row.CreatedAt.UTC(),
		ExpiresAt:          timePtr(row.ExpiresAt),
		PaidAt:             timePtr(row.PaidAt),
		CanceledAt:         timePtr(row.CanceledAt),
		CanceledBy:         row.CanceledBy.String,
		CancelReason:       row.CancelReason.String,
	}
}

func recurringFromRow(row dbgen.RecurringBooking) (models.RecurringBooking, error) {
	startDate, err := models.ParseDate(row.StartDate)
	if err != nil {
		return models.RecurringBooking{}, fmt.Errorf("%w: recurring booking %s start_date: %v", models.ErrInvalidState, row.ID, err)
	}
	endDate, err := models.ParseDate(row.EndDate)
	if err != nil {
		return models.RecurringBooking{}, fmt.Errorf("%w: recurring booking %s end_date: %v", models.ErrInvalidState, row.ID, err)
	}

	series := models.RecurringBooking{
		ID:             row.ID,
		SubFieldID:     row.SubFieldID,
		PlayerID:       row.PlayerID,
		RecurrenceType: models.RecurrenceType(row.RecurrenceType),
		StartTime:      models.TimeOfDay(row.StartMinute),
		EndTime:        models.TimeOfDay(row.EndMinute),
		StartDate:      startDate,
		EndDate:        endDate,
		Status:         models.RecurringStatus(row.Status),
		TotalPrice:     row.TotalPrice,
		CreatedAt:      row.CreatedAt.UTC(),
		CanceledAt:     timePtr(row.CanceledAt),
	}
	if row.DayOfWeek.Valid {
		day := time.Weekday(row.DayOfWeek.Int64)
		series.DayOfWeek = &day
	}
	return series, nil
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

// normalizePhone returns the E.164 form of raw, or "" when raw is blank.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", models.InvalidInputf("contact_phone: %v", err)
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", models.InvalidInputf("contact_phone %q is not a valid number", raw)
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// classify leaves taxonomy errors untouched and reports anything else as a
// transient storage failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if models.KindOf(err) != models.KindUnknown {
		return err
	}
	return &models.StorageError{Op: op, Err: err}
}

// retryable reports whether a storage failure came from contention or a
// deadline rather than a broken statement.
func retryable(err error) bool {
	var storageErr *models.StorageError
	if errors.As(err, &storageErr) {
		return db.IsTransient(storageErr.Err)
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
