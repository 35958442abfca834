package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const recurringBookingColumns = `id, sub_field_id, player_id, recurrence_type, day_of_week, start_minute, end_minute, start_date, end_date, status, total_price, created_at, canceled_at`

func scanRecurringBooking(row rowScanner) (RecurringBooking, error) {
	var i RecurringBooking
	err := row.Scan(
		&i.ID,
		&i.SubFieldID,
		&i.PlayerID,
		&i.RecurrenceType,
		&i.DayOfWeek,
		&i.StartMinute,
		&i.EndMinute,
		&i.StartDate,
		&i.EndDate,
		&i.Status,
		&i.TotalPrice,
		&i.CreatedAt,
		&i.CanceledAt,
	)
	return i, err
}

const createRecurringBooking = `-- name: CreateRecurringBooking :exec
INSERT INTO recurring_bookings (
    id, sub_field_id, player_id, recurrence_type, day_of_week, start_minute,
    end_minute, start_date, end_date, status, total_price, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'ACTIVE', ?, ?)
`

type CreateRecurringBookingParams struct {
	ID             string        `json:"id"`
	SubFieldID     string        `json:"sub_field_id"`
	PlayerID       string        `json:"player_id"`
	RecurrenceType string        `json:"recurrence_type"`
	DayOfWeek      sql.NullInt64 `json:"day_of_week"`
	StartMinute    int64         `json:"start_minute"`
	EndMinute      int64         `json:"end_minute"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	TotalPrice     int64         `json:"total_price"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (q *Queries) CreateRecurringBooking(ctx context.Context, arg CreateRecurringBookingParams) error {
	_, err := q.db.ExecContext(ctx, createRecurringBooking,
		arg.ID,
		arg.SubFieldID,
		arg.PlayerID,
		arg.RecurrenceType,
		arg.DayOfWeek,
		arg.StartMinute,
		arg.EndMinute,
		arg.StartDate,
		arg.EndDate,
		arg.TotalPrice,
		arg.CreatedAt,
	)
	return err
}

const getRecurringBooking = `-- name: GetRecurringBooking :one
SELECT ` + recurringBookingColumns + ` FROM recurring_bookings WHERE id = ?
`

func (q *Queries) GetRecurringBooking(ctx context.Context, id string) (RecurringBooking, error) {
	return scanRecurringBooking(q.db.QueryRowContext(ctx, getRecurringBooking, id))
}

const cancelRecurringBooking = `-- name: CancelRecurringBooking :execrows
UPDATE recurring_bookings
SET status = 'CANCELED', canceled_at = ?
WHERE id = ?
  AND status = 'ACTIVE'
`

type CancelRecurringBookingParams struct {
	CanceledAt time.Time `json:"canceled_at"`
	ID         string    `json:"id"`
}

func (q *Queries) CancelRecurringBooking(ctx context.Context, arg CancelRecurringBookingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelRecurringBooking, arg.CanceledAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countRecurringBookings = `-- name: CountRecurringBookings :one
SELECT COUNT(*) FROM recurring_bookings
`

func (q *Queries) CountRecurringBookings(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countRecurringBookings).Scan(&count)
	return count, err
}

const countBookingsForSubField = `-- name: CountBookingsForSubField :one
SELECT COUNT(*) FROM bookings WHERE sub_field_id = ?
`

func (q *Queries) CountBookingsForSubField(ctx context.Context, subFieldID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countBookingsForSubField, subFieldID).Scan(&count)
	return count, err
}

const cancelLapsedRecurringBookings = `-- name: CancelLapsedRecurringBookings :execrows
UPDATE recurring_bookings
SET status = 'CANCELED', canceled_at = ?
WHERE status = 'ACTIVE'
  AND EXISTS (
    SELECT 1 FROM bookings b
    WHERE b.recurring_booking_id = recurring_bookings.id
      AND b.cancel_reason = 'expired'
  )
  AND NOT EXISTS (
    SELECT 1 FROM bookings b
    WHERE b.recurring_booking_id = recurring_bookings.id
      AND b.status IN ('PENDING', 'CONFIRMED')
  )
`

// CancelLapsedRecurringBookings closes series whose holds all lapsed unpaid.
func (q *Queries) CancelLapsedRecurringBookings(ctx context.Context, canceledAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelLapsedRecurringBookings, canceledAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
