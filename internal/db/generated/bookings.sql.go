package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const bookingColumns = `id, sub_field_id, player_id, recurring_booking_id, start_time, end_time, status, total_price, contact_phone, created_at, expires_at, paid_at, canceled_at, canceled_by, cancel_reason`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (Booking, error) {
	var i Booking
	err := row.Scan(
		&i.ID,
		&i.SubFieldID,
		&i.PlayerID,
		&i.RecurringBookingID,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.TotalPrice,
		&i.ContactPhone,
		&i.CreatedAt,
		&i.ExpiresAt,
		&i.PaidAt,
		&i.CanceledAt,
		&i.CanceledBy,
		&i.CancelReason,
	)
	return i, err
}

func (q *Queries) listBookings(ctx context.Context, query string, args ...interface{}) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Booking{}
	for rows.Next() {
		i, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createBooking = `-- name: CreateBooking :exec
INSERT INTO bookings (
    id, sub_field_id, player_id, recurring_booking_id, start_time, end_time,
    status, total_price, contact_phone, created_at, expires_at
) VALUES (?, ?, ?, ?, ?, ?, 'PENDING', ?, ?, ?, ?)
`

type CreateBookingParams struct {
	ID                 string         `json:"id"`
	SubFieldID         string         `json:"sub_field_id"`
	PlayerID           string         `json:"player_id"`
	RecurringBookingID sql.NullString `json:"recurring_booking_id"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	TotalPrice         int64          `json:"total_price"`
	ContactPhone       sql.NullString `json:"contact_phone"`
	CreatedAt          time.Time      `json:"created_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) error {
	_, err := q.db.ExecContext(ctx, createBooking,
		arg.ID,
		arg.SubFieldID,
		arg.PlayerID,
		arg.RecurringBookingID,
		arg.StartTime,
		arg.EndTime,
		arg.TotalPrice,
		arg.ContactPhone,
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return err
}

const getBooking = `-- name: GetBooking :one
SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?
`

func (q *Queries) GetBooking(ctx context.Context, id string) (Booking, error) {
	return scanBooking(q.db.QueryRowContext(ctx, getBooking, id))
}

const listBlockingBookings = `-- name: ListBlockingBookings :many
SELECT ` + bookingColumns + `
FROM bookings
WHERE sub_field_id = ?
  AND start_time < ?
  AND end_time > ?
  AND (
    status IN ('CONFIRMED', 'COMPLETED')
    OR (status = 'PENDING' AND expires_at > ?)
  )
ORDER BY start_time, id
`

type ListBlockingBookingsParams struct {
	SubFieldID  string    `json:"sub_field_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Now         time.Time `json:"now"`
}

// ListBlockingBookings returns bookings that occupy any part of
// [WindowStart, WindowEnd): confirmed or completed rows and holds still
// unexpired at Now.
func (q *Queries) ListBlockingBookings(ctx context.Context, arg ListBlockingBookingsParams) ([]Booking, error) {
	return q.listBookings(ctx, listBlockingBookings,
		arg.SubFieldID,
		arg.WindowEnd,
		arg.WindowStart,
		arg.Now,
	)
}

const listBookingsForSubField = `-- name: ListBookingsForSubField :many
SELECT ` + bookingColumns + `
FROM bookings
WHERE sub_field_id = ?
  AND start_time < ?
  AND end_time > ?
ORDER BY start_time, id
`

type ListBookingsForSubFieldParams struct {
	SubFieldID string    `json:"sub_field_id"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

func (q *Queries) ListBookingsForSubField(ctx context.Context, arg ListBookingsForSubFieldParams) ([]Booking, error) {
	return q.listBookings(ctx, listBookingsForSubField, arg.SubFieldID, arg.To, arg.From)
}

const listBookingsForRecurring = `-- name: ListBookingsForRecurring :many
SELECT ` + bookingColumns + `
FROM bookings
WHERE recurring_booking_id = ?
ORDER BY start_time, id
`

func (q *Queries) ListBookingsForRecurring(ctx context.Context, recurringBookingID string) ([]Booking, error) {
	return q.listBookings(ctx, listBookingsForRecurring, recurringBookingID)
}

const confirmPendingBooking = `-- name: ConfirmPendingBooking :execrows
UPDATE bookings
SET status = 'CONFIRMED', paid_at = ?
WHERE id = ?
  AND status = 'PENDING'
  AND expires_at > ?
`

type ConfirmPendingBookingParams struct {
	PaidAt time.Time `json:"paid_at"`
	ID     string    `json:"id"`
	Now    time.Time `json:"now"`
}

// ConfirmPendingBooking affects zero rows when the booking is no longer an
// unexpired hold.
func (q *Queries) ConfirmPendingBooking(ctx context.Context, arg ConfirmPendingBookingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, confirmPendingBooking, arg.PaidAt, arg.ID, arg.Now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const confirmPendingOccurrences = `-- name: ConfirmPendingOccurrences :execrows
UPDATE bookings
SET status = 'CONFIRMED', paid_at = ?
WHERE recurring_booking_id = ?
  AND status = 'PENDING'
  AND expires_at > ?
`

type ConfirmPendingOccurrencesParams struct {
	PaidAt             time.Time `json:"paid_at"`
	RecurringBookingID string    `json:"recurring_booking_id"`
	Now                time.Time `json:"now"`
}

func (q *Queries) ConfirmPendingOccurrences(ctx context.Context, arg ConfirmPendingOccurrencesParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, confirmPendingOccurrences, arg.PaidAt, arg.RecurringBookingID, arg.Now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cancelBooking = `-- name: CancelBooking :execrows
UPDATE bookings
SET status = 'CANCELED', canceled_at = ?, canceled_by = ?, cancel_reason = ?
WHERE id = ?
  AND status IN ('PENDING', 'CONFIRMED')
`

type CancelBookingParams struct {
	CanceledAt   time.Time `json:"canceled_at"`
	CanceledBy   string    `json:"canceled_by"`
	CancelReason string    `json:"cancel_reason"`
	ID           string    `json:"id"`
}

func (q *Queries) CancelBooking(ctx context.Context, arg CancelBookingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelBooking,
		arg.CanceledAt,
		arg.CanceledBy,
		arg.CancelReason,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cancelFutureOccurrences = `-- name: CancelFutureOccurrences :execrows
UPDATE bookings
SET status = 'CANCELED', canceled_at = ?, canceled_by = ?, cancel_reason = ?
WHERE recurring_booking_id = ?
  AND status IN ('PENDING', 'CONFIRMED')
  AND start_time > ?
`

type CancelFutureOccurrencesParams struct {
	CanceledAt         time.Time `json:"canceled_at"`
	CanceledBy         string    `json:"canceled_by"`
	CancelReason       string    `json:"cancel_reason"`
	RecurringBookingID string    `json:"recurring_booking_id"`
	Now                time.Time `json:"now"`
}

func (q *Queries) CancelFutureOccurrences(ctx context.Context, arg CancelFutureOccurrencesParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelFutureOccurrences,
		arg.CanceledAt,
		arg.CanceledBy,
		arg.CancelReason,
		arg.RecurringBookingID,
		arg.Now,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listExpiredHolds = `-- name: ListExpiredHolds :many
SELECT ` + bookingColumns + `
FROM bookings
WHERE status = 'PENDING'
  AND expires_at <= ?
ORDER BY expires_at, id
`

func (q *Queries) ListExpiredHolds(ctx context.Context, now time.Time) ([]Booking, error) {
	return q.listBookings(ctx, listExpiredHolds, now)
}

const expirePendingBookings = `-- name: ExpirePendingBookings :execrows
UPDATE bookings
SET status = 'CANCELED', canceled_at = ?, canceled_by = 'system', cancel_reason = 'expired'
WHERE status = 'PENDING'
  AND expires_at <= ?
`

// ExpirePendingBookings cancels every hold whose deadline is at or before now.
func (q *Queries) ExpirePendingBookings(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, expirePendingBookings, now, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
