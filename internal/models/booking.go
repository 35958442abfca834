// internal/models/booking.go
package models

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCanceled  BookingStatus = "CANCELED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type RecurringStatus string

const (
	RecurringStatusActive   RecurringStatus = "ACTIVE"
	RecurringStatusCanceled RecurringStatus = "CANCELED"
)

type RecurrenceType string

const (
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
)

// Cancellation reasons recorded on canceled bookings.
const (
	CancelReasonPlayer         = "player"
	CancelReasonManager        = "manager"
	CancelReasonExpired        = "expired"
	CancelReasonSeriesCanceled = "series_canceled"
)

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: start.UTC(), End: end.UTC()}
}

func (w Window) Valid() bool {
	return !w.Start.IsZero() && w.End.After(w.Start)
}

// Overlaps reports whether the two windows intersect. Touching endpoints do not.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339))
}

type Booking struct {
	ID                 string        `json:"id"`
	SubFieldID         string        `json:"sub_field_id"`
	PlayerID           string        `json:"player_id"`
	RecurringBookingID string        `json:"recurring_booking_id,omitempty"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Status             BookingStatus `json:"status"`
	TotalPrice         int64         `json:"total_price"`
	ContactPhone       string        `json:"contact_phone,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty"`
	PaidAt             *time.Time    `json:"paid_at,omitempty"`
	CanceledAt         *time.Time    `json:"canceled_at,omitempty"`
	CanceledBy         string        `json:"canceled_by,omitempty"`
	CancelReason       string        `json:"cancel_reason,omitempty"`
}

func (b Booking) Window() Window {
	return Window{Start: b.StartTime, End: b.EndTime}
}

// HoldExpired reports whether a PENDING hold has passed its deadline.
func (b Booking) HoldExpired(now time.Time) bool {
	if b.Status != BookingStatusPending {
		return false
	}
	return b.ExpiresAt == nil || !now.Before(*b.ExpiresAt)
}

// EffectiveStatus derives COMPLETED for confirmed bookings whose window has elapsed.
func (b Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.Status == BookingStatusConfirmed && !now.Before(b.EndTime) {
		return BookingStatusCompleted
	}
	return b.Status
}

// BlocksSlot reports whether the booking occupies its window at now.
func (b Booking) BlocksSlot(now time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed, BookingStatusCompleted:
		return true
	case BookingStatusPending:
		return !b.HoldExpired(now)
	default:
		return false
	}
}

// AtTime returns a copy with the derived status applied.
func (b Booking) AtTime(now time.Time) Booking {
	b.Status = b.EffectiveStatus(now)
	return b
}

type RecurringBooking struct {
	ID             string          `json:"id"`
	SubFieldID     string          `json:"sub_field_id"`
	PlayerID       string          `json:"player_id"`
	RecurrenceType RecurrenceType  `json:"recurrence_type"`
	DayOfWeek      *time.Weekday   `json:"day_of_week,omitempty"`
	StartTime      TimeOfDay       `json:"start_time"`
	EndTime        TimeOfDay       `json:"end_time"`
	StartDate      Date            `json:"start_date"`
	EndDate        Date            `json:"end_date"`
	Status         RecurringStatus `json:"status"`
	TotalPrice     int64           `json:"total_price"`
	CreatedAt      time.Time       `json:"created_at"`
	CanceledAt     *time.Time      `json:"canceled_at,omitempty"`
	Occurrences    []Booking       `json:"occurrences,omitempty"`
}

type ActorRole string

const (
	ActorPlayer  ActorRole = "player"
	ActorManager ActorRole = "manager"
)

// Actor identifies who requested a state change.
type Actor struct {
	ID   string
	Role ActorRole
}

// CanActOn reports whether the actor may change a booking owned by playerID.
func (a Actor) CanActOn(playerID string) bool {
	if a.Role == ActorManager {
		return true
	}
	return a.ID != "" && a.ID == playerID
}

func (a Actor) CancelReason() string {
	if a.Role == ActorManager {
		return CancelReasonManager
	}
	return CancelReasonPlayer
}
