package recurrence

import (
	"time"

	"github.com/codr1/Playfield/internal/models"
)

// DefaultMaxOccurrences bounds a series to roughly one year of weekly play.
const DefaultMaxOccurrences = 52

// Recurrence describes a repeating booking template. Dates and times of day
// are local to the sub-field's complex.
type Recurrence struct {
	Type models.RecurrenceType `json:"recurrence_type"`
	// DayOfWeek is used by weekly recurrences only.
	DayOfWeek time.Weekday     `json:"day_of_week"`
	StartTime models.TimeOfDay `json:"start_time"`
	EndTime   models.TimeOfDay `json:"end_time"`
	StartDate models.Date      `json:"start_date"`
	EndDate   models.Date      `json:"end_date"`
}

// Occurrence is one concrete date of a recurrence.
type Occurrence struct {
	Date      models.Date      `json:"date"`
	StartTime models.TimeOfDay `json:"start_time"`
	EndTime   models.TimeOfDay `json:"end_time"`
}

// Window converts the occurrence to an absolute UTC window.
func (o Occurrence) Window(loc *time.Location) models.Window {
	if loc == nil {
		loc = time.UTC
	}
	return models.NewWindow(o.Date.At(o.StartTime, loc), o.Date.At(o.EndTime, loc))
}

// Expander turns recurrences into occurrence lists. It holds no state beyond
// its limit, so Expand is a pure function of its input.
type Expander struct {
	maxOccurrences int
}

// NewExpander returns an Expander that refuses series longer than max.
// A non-positive max uses DefaultMaxOccurrences.
func NewExpander(max int) *Expander {
	if max <= 0 {
		max = DefaultMaxOccurrences
	}
	return &Expander{maxOccurrences: max}
}

func (e *Expander) MaxOccurrences() int {
	return e.maxOccurrences
}

// Validate checks the recurrence shape without expanding it.
func (r Recurrence) Validate() error {
	switch r.Type {
	case models.RecurrenceWeekly:
		if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
			return models.InvalidInputf("day_of_week must be between 0 and 6")
		}
	case models.RecurrenceMonthly:
	default:
		return models.InvalidInputf("recurrence_type must be WEEKLY or MONTHLY")
	}
	if !r.StartTime.Valid() || !r.EndTime.Valid() || r.StartTime.Minutes() >= 24*60 {
		return models.InvalidInputf("recurrence times must be within 00:00 and 24:00")
	}
	if r.EndTime <= r.StartTime {
		return models.InvalidInputf("recurrence end_time must be after start_time")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return models.InvalidInputf("start_date and end_date are required")
	}
	return nil
}

// Expand returns the occurrences of r in date order. It fails with
// models.ErrNoOccurrencesGenerated when the range holds none and with
// models.ErrTooManyOccurrences when the series exceeds the limit.
func (e *Expander) Expand(r Recurrence) ([]Occurrence, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.EndDate.Before(r.StartDate) {
		return nil, models.ErrNoOccurrencesGenerated
	}

	var dates []models.Date
	var err error
	switch r.Type {
	case models.RecurrenceWeekly:
		dates, err = e.weeklyDates(r)
	case models.RecurrenceMonthly:
		dates, err = e.monthlyDates(r)
	}
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, models.ErrNoOccurrencesGenerated
	}

	occurrences := make([]Occurrence, 0, len(dates))
	for _, date := range dates {
		occurrences = append(occurrences, Occurrence{
			Date:      date,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		})
	}
	return occurrences, nil
}

func (e *Expander) weeklyDates(r Recurrence) ([]models.Date, error) {
	offset := (int(r.DayOfWeek) - int(r.StartDate.Weekday()) + 7) % 7
	var dates []models.Date
	for date := r.StartDate.AddDays(offset); !date.After(r.EndDate); date = date.AddDays(7) {
		if len(dates) == e.maxOccurrences {
			return nil, models.ErrTooManyOccurrences
		}
		dates = append(dates, date)
	}
	return dates, nil
}

// monthlyDates lands on the start date's day of month and skips months that
// are too short to have it.
func (e *Expander) monthlyDates(r Recurrence) ([]models.Date, error) {
	day := r.StartDate.Day
	var dates []models.Date
	for i := 0; ; i++ {
		firstOfMonth := models.DateOf(time.Date(r.StartDate.Year, r.StartDate.Month+time.Month(i), 1, 0, 0, 0, 0, time.UTC))
		if firstOfMonth.After(r.EndDate) {
			break
		}
		if day > models.DaysIn(firstOfMonth.Year, firstOfMonth.Month) {
			continue
		}
		date := models.Date{Year: firstOfMonth.Year, Month: firstOfMonth.Month, Day: day}
		if date.After(r.EndDate) {
			break
		}
		if len(dates) == e.maxOccurrences {
			return nil, models.ErrTooManyOccurrences
		}
		dates = append(dates, date)
	}
	return dates, nil
}
