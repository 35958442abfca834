package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/Playfield/internal/db"
	dbgen "github.com/codr1/Playfield/internal/db/generated"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// RuleSpec is a pricing rule to seed: day of week, HH:MM bounds as minutes and
// an hourly price.
type RuleSpec struct {
	DayOfWeek time.Weekday
	Start     int
	End       int
	BasePrice int64
}

// EveryDay returns the same rule for all seven days.
func EveryDay(start, end int, basePrice int64) []RuleSpec {
	rules := make([]RuleSpec, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		rules = append(rules, RuleSpec{DayOfWeek: day, Start: start, End: end, BasePrice: basePrice})
	}
	return rules
}

// SeedSubField inserts a complex in timezone and one sub-field priced by
// rules, returning the sub-field id.
func SeedSubField(t *testing.T, database *db.DB, timezone string, rules []RuleSpec) string {
	t.Helper()

	ctx := context.Background()
	createdAt := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)

	complexID := uuid.NewString()
	if err := database.Queries.CreateComplex(ctx, dbgen.CreateComplexParams{
		ID:        complexID,
		Name:      "Test Complex",
		Timezone:  timezone,
		CreatedAt: createdAt,
	}); err != nil {
		t.Fatalf("insert complex: %v", err)
	}

	subFieldID := uuid.NewString()
	if err := database.Queries.CreateSubField(ctx, dbgen.CreateSubFieldParams{
		ID:        subFieldID,
		ComplexID: complexID,
		Name:      "Field A",
		SportType: "futsal",
		Capacity:  10,
		CreatedAt: createdAt,
	}); err != nil {
		t.Fatalf("insert sub-field: %v", err)
	}

	for _, rule := range rules {
		if err := database.Queries.CreatePricingRule(ctx, dbgen.CreatePricingRuleParams{
			ID:          uuid.NewString(),
			SubFieldID:  subFieldID,
			DayOfWeek:   int64(rule.DayOfWeek),
			StartMinute: int64(rule.Start),
			EndMinute:   int64(rule.End),
			BasePrice:   rule.BasePrice,
			CreatedAt:   createdAt,
		}); err != nil {
			t.Fatalf("insert pricing rule: %v", err)
		}
	}

	return subFieldID
}

// SeedBooking inserts a booking row directly with the given status.
func SeedBooking(t *testing.T, database *db.DB, subFieldID string, start, end time.Time, status string, expiresAt time.Time) string {
	t.Helper()

	ctx := context.Background()
	id := uuid.NewString()
	if err := database.Queries.CreateBooking(ctx, dbgen.CreateBookingParams{
		ID:         id,
		SubFieldID: subFieldID,
		PlayerID:   "seed-player",
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		TotalPrice: 0,
		CreatedAt:  start.Add(-24 * time.Hour).UTC(),
		ExpiresAt:  expiresAt.UTC(),
	}); err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	if status != "PENDING" {
		if _, err := database.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id); err != nil {
			t.Fatalf("set booking status: %v", err)
		}
	}
	return id
}
