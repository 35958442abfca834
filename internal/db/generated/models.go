package dbgen

import (
	"database/sql"
	"time"
)

type Complex struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

type SubField struct {
	ID        string    `json:"id"`
	ComplexID string    `json:"complex_id"`
	Name      string    `json:"name"`
	SportType string    `json:"sport_type"`
	Capacity  int64     `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

type PricingRule struct {
	ID          string    `json:"id"`
	SubFieldID  string    `json:"sub_field_id"`
	DayOfWeek   int64     `json:"day_of_week"`
	StartMinute int64     `json:"start_minute"`
	EndMinute   int64     `json:"end_minute"`
	BasePrice   int64     `json:"base_price"`
	CreatedAt   time.Time `json:"created_at"`
}

type RecurringBooking struct {
	ID             string        `json:"id"`
	SubFieldID     string        `json:"sub_field_id"`
	PlayerID       string        `json:"player_id"`
	RecurrenceType string        `json:"recurrence_type"`
	DayOfWeek      sql.NullInt64 `json:"day_of_week"`
	StartMinute    int64         `json:"start_minute"`
	EndMinute      int64         `json:"end_minute"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	Status         string        `json:"status"`
	TotalPrice     int64         `json:"total_price"`
	CreatedAt      time.Time     `json:"created_at"`
	CanceledAt     sql.NullTime  `json:"canceled_at"`
}

type Booking struct {
	ID                 string         `json:"id"`
	SubFieldID         string         `json:"sub_field_id"`
	PlayerID           string         `json:"player_id"`
	RecurringBookingID sql.NullString `json:"recurring_booking_id"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	Status             string         `json:"status"`
	TotalPrice         int64          `json:"total_price"`
	ContactPhone       sql.NullString `json:"contact_phone"`
	CreatedAt          time.Time      `json:"created_at"`
	ExpiresAt          sql.NullTime   `json:"expires_at"`
	PaidAt             sql.NullTime   `json:"paid_at"`
	CanceledAt         sql.NullTime   `json:"canceled_at"`
	CanceledBy         sql.NullString `json:"canceled_by"`
	CancelReason       sql.NullString `json:"cancel_reason"`
}
