// Package pricing resolves the price of a booking window from a sub-field's
// day-of-week and time-of-day rules.
package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
)

// Rule prices one [Start, End) time-of-day range on one day of the week.
// BasePrice is in minor currency units per hour.
type Rule struct {
	ID        string           `json:"id"`
	DayOfWeek time.Weekday     `json:"day_of_week"`
	Start     models.TimeOfDay `json:"start_time"`
	End       models.TimeOfDay `json:"end_time"`
	BasePrice int64            `json:"base_price"`
}

func (r Rule) width() int {
	return r.End.Minutes() - r.Start.Minutes()
}

func (r Rule) contains(start, end models.TimeOfDay) bool {
	return r.Start <= start && end <= r.End
}

// Overlaps reports whether two rules on the same day intersect.
func (r Rule) Overlaps(other Rule) bool {
	return r.DayOfWeek == other.DayOfWeek && r.Start < other.End && other.Start < r.End
}

// Validate checks the rule bounds.
func (r Rule) Validate() error {
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return models.InvalidInputf("day_of_week must be between 0 and 6")
	}
	if !r.Start.Valid() || !r.End.Valid() || r.Start.Minutes() >= 24*60 {
		return models.InvalidInputf("rule times must be within 00:00 and 24:00")
	}
	if r.End <= r.Start {
		return models.InvalidInputf("rule end_time must be after start_time")
	}
	if r.BasePrice < 0 {
		return models.InvalidInputf("base_price must be 0 or greater")
	}
	return nil
}

// Quote is the outcome of pricing one window.
type Quote struct {
	Window models.Window `json:"window"`
	RuleID string        `json:"rule_id"`
	Price  int64         `json:"price"`
	// Degraded is set when more than one rule covered the window. The rules
	// overlap, which the catalog refuses to store; the narrowest rule was used.
	Degraded bool `json:"degraded,omitempty"`
}

// Schedule is the full rule set of one sub-field with the location its
// day-of-week and time-of-day values are evaluated in.
type Schedule struct {
	SubFieldID string
	Location   *time.Location
	Rules      []Rule
}

// Price resolves the price of one window. The window must lie within a single
// local day; a window that crosses midnight is not covered by any rule and
// fails with models.ErrNoPricingCoverage (see SplitAtMidnight).
func (s Schedule) Price(window models.Window) (Quote, error) {
	if !window.Valid() {
		return Quote{}, models.InvalidInputf("window end must be after start")
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	localStart := window.Start.In(loc)
	localEnd := window.End.In(loc)
	startTOD := models.TimeOfDayOf(localStart)
	endTOD, ok := endTimeOfDay(localStart, localEnd)
	if !ok || localStart.Second() != 0 || localStart.Nanosecond() != 0 {
		return Quote{}, &models.PricingError{SubFieldID: s.SubFieldID, Window: window}
	}

	var candidates []Rule
	for _, rule := range s.Rules {
		if rule.DayOfWeek != localStart.Weekday() {
			continue
		}
		if rule.contains(startTOD, endTOD) {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		return Quote{}, &models.PricingError{SubFieldID: s.SubFieldID, Window: window}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].width() != candidates[j].width() {
			return candidates[i].width() < candidates[j].width()
		}
		return candidates[i].BasePrice < candidates[j].BasePrice
	})
	chosen := candidates[0]

	return Quote{
		Window:   window,
		RuleID:   chosen.ID,
		Price:    PriceFor(chosen.BasePrice, window.Duration()),
		Degraded: len(candidates) > 1,
	}, nil
}

// endTimeOfDay returns the local end as a time of day on the start's date.
// An end at the following midnight maps to 24:00; anything later, or an end
// that is not minute aligned, is rejected.
func endTimeOfDay(localStart, localEnd time.Time) (models.TimeOfDay, bool) {
	if localEnd.Second() != 0 || localEnd.Nanosecond() != 0 {
		return 0, false
	}
	startDate := models.DateOf(localStart)
	endDate := models.DateOf(localEnd)
	if endDate == startDate {
		return models.TimeOfDayOf(localEnd), true
	}
	if endDate == startDate.AddDays(1) && localEnd.Hour() == 0 && localEnd.Minute() == 0 {
		return models.NewTimeOfDay(24, 0), true
	}
	return 0, false
}

// PriceFor charges hourlyRate pro rata for d, rounding half a unit up.
func PriceFor(hourlyRate int64, d time.Duration) int64 {
	seconds := int64(d / time.Second)
	return (hourlyRate*seconds + 1800) / 3600
}

// SplitAtMidnight cuts a window at every local midnight it crosses, so each
// piece can be priced on its own day.
func SplitAtMidnight(window models.Window, loc *time.Location) []models.Window {
	if loc == nil {
		loc = time.UTC
	}
	var pieces []models.Window
	start := window.Start
	for start.Before(window.End) {
		local := start.In(loc)
		nextMidnight := models.DateOf(local).AddDays(1).In(loc)
		end := window.End
		if nextMidnight.Before(end) {
			end = nextMidnight
		}
		pieces = append(pieces, models.NewWindow(start, end))
		start = end
	}
	return pieces
}

// LoadSchedule reads the sub-field, its complex time zone and its rules.
func LoadSchedule(ctx context.Context, q *dbgen.Queries, subFieldID string) (Schedule, error) {
	subField, err := q.GetSubFieldWithTimezone(ctx, subFieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Schedule{}, fmt.Errorf("sub-field %s: %w", subFieldID, models.ErrNotFound)
		}
		return Schedule{}, &models.StorageError{Op: "load sub-field", Err: err}
	}

	loc, err := time.LoadLocation(subField.Timezone)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: complex %s time zone %q: %v", models.ErrInvalidState, subField.ComplexID, subField.Timezone, err)
	}

	rows, err := q.ListPricingRules(ctx, subFieldID)
	if err != nil {
		return Schedule{}, &models.StorageError{Op: "list pricing rules", Err: err}
	}

	return Schedule{
		SubFieldID: subFieldID,
		Location:   loc,
		Rules:      RulesFromRows(rows),
	}, nil
}

// ResolvePrice prices a single window on a sub-field.
func ResolvePrice(ctx context.Context, q *dbgen.Queries, subFieldID string, start, end time.Time) (Quote, error) {
	schedule, err := LoadSchedule(ctx, q, subFieldID)
	if err != nil {
		return Quote{}, err
	}
	return schedule.Price(models.NewWindow(start, end))
}

func RuleFromRow(row dbgen.PricingRule) Rule {
	return Rule{
		ID:        row.ID,
		DayOfWeek: time.Weekday(row.DayOfWeek),
		Start:     models.TimeOfDay(row.StartMinute),
		End:       models.TimeOfDay(row.EndMinute),
		BasePrice: row.BasePrice,
	}
}

func RulesFromRows(rows []dbgen.PricingRule) []Rule {
	rules := make([]Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, RuleFromRow(row))
	}
	return rules
}
