// Package catalog manages complexes, their sub-fields and the pricing rules
// bookings are priced with.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Playfield/internal/clock"
	"github.com/codr1/Playfield/internal/db"
	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
	"github.com/codr1/Playfield/internal/pricing"
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
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db    *db.DB
	clock clock.Clock
}

func NewService(database *db.DB, c clock.Clock) *Service {
	return &Service{db: database, clock: clock.OrReal(c)}
}

// CreateComplex stores a venue. An empty timezone means UTC.
func (s *Service) CreateComplex(ctx context.Context, name, timezone string) (Complex, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Complex{}, models.InvalidInputf("name is required")
	}
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return Complex{}, models.InvalidInputf("timezone %q is not a known IANA zone", timezone)
	}

	venue := Complex{
		ID:        uuid.NewString(),
		Name:      name,
		Timezone:  timezone,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.db.Queries.CreateComplex(ctx, dbgen.CreateComplexParams{
		ID:        venue.ID,
		Name:      venue.Name,
		Timezone:  venue.Timezone,
		CreatedAt: venue.CreatedAt,
	}); err != nil {
		return Complex{}, &models.StorageError{Op: "insert complex", Err: err}
	}

	log.Ctx(ctx).Info().
		Str("complex_id", venue.ID).
		Str("timezone", venue.Timezone).
		Msg("Complex created")
	return venue, nil
}

func (s *Service) CreateSubField(ctx context.Context, complexID, name, sportType string, capacity int) (SubField, error) {
	name = strings.TrimSpace(name)
	sportType = strings.TrimSpace(sportType)
	if name == "" {
		return SubField{}, models.InvalidInputf("name is required")
	}
	if sportType == "" {
		return SubField{}, models.InvalidInputf("sport_type is required")
	}
	if capacity <= 0 {
		return SubField{}, models.InvalidInputf("capacity must be positive")
	}

	if _, err := s.db.Queries.GetComplex(ctx, complexID); err != nil {
		if isNoRows(err) {
			return SubField{}, fmt.Errorf("complex %s: %w", complexID, models.ErrNotFound)
		}
		return SubField{}, &models.StorageError{Op: "load complex", Err: err}
	}

	subField := SubField{
		ID:        uuid.NewString(),
		ComplexID: complexID,
		Name:      name,
		SportType: sportType,
		Capacity:  capacity,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.db.Queries.CreateSubField(ctx, dbgen.CreateSubFieldParams{
		ID:        subField.ID,
		ComplexID: subField.ComplexID,
		Name:      subField.Name,
		SportType: subField.SportType,
		Capacity:  int64(subField.Capacity),
		CreatedAt: subField.CreatedAt,
	}); err != nil {
		return SubField{}, &models.StorageError{Op: "insert sub-field", Err: err}
	}

	log.Ctx(ctx).Info().
		Str("complex_id", complexID).
		Str("sub_field_id", subField.ID).
		Msg("Sub-field created")
	return subField, nil
}

// AddPricingRule stores a rule unless it overlaps another rule of the same
// sub-field and day.
func (s *Service) AddPricingRule(ctx context.Context, subFieldID string, rule pricing.Rule) (pricing.Rule, error) {
	if err := rule.Validate(); err != nil {
		return pricing.Rule{}, err
	}

	rule.ID = uuid.NewString()
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		if _, err := txdb.Queries.GetSubField(ctx, subFieldID); err != nil {
			if isNoRows(err) {
				return fmt.Errorf("sub-field %s: %w", subFieldID, models.ErrNotFound)
			}
			return &models.StorageError{Op: "load sub-field", Err: err}
		}

		rows, err := txdb.Queries.ListPricingRules(ctx, subFieldID)
		if err != nil {
			return &models.StorageError{Op: "list pricing rules", Err: err}
		}
		for _, existing := range pricing.RulesFromRows(rows) {
			if rule.Overlaps(existing) {
				return models.InvalidInputf("rule %s-%s on %s overlaps rule %s (%s-%s)",
					rule.Start, rule.End, rule.DayOfWeek, existing.ID, existing.Start, existing.End)
			}
		}

		if err := txdb.Queries.CreatePricingRule(ctx, dbgen.CreatePricingRuleParams{
			ID:          rule.ID,
			SubFieldID:  subFieldID,
			DayOfWeek:   int64(rule.DayOfWeek),
			StartMinute: int64(rule.Start.Minutes()),
			EndMinute:   int64(rule.End.Minutes()),
			BasePrice:   rule.BasePrice,
			CreatedAt:   s.clock.Now().UTC(),
		}); err != nil {
			return &models.StorageError{Op: "insert pricing rule", Err: err}
		}
		return nil
	})
	if err != nil {
		return pricing.Rule{}, classify("add pricing rule", err)
	}

	log.Ctx(ctx).Info().
		Str("sub_field_id", subFieldID).
		Str("rule_id", rule.ID).
		Str("day", rule.DayOfWeek.String()).
		Str("start", rule.Start.String()).
		Str("end", rule.End.String()).
		Int64("base_price", rule.BasePrice).
		Msg("Pricing rule added")
	return rule, nil
}

func (s *Service) ListPricingRules(ctx context.Context, subFieldID string) ([]pricing.Rule, error) {
	if _, err := s.db.Queries.GetSubField(ctx, subFieldID); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("sub-field %s: %w", subFieldID, models.ErrNotFound)
		}
		return nil, &models.StorageError{Op: "load sub-field", Err: err}
	}
	rows, err := s.db.Queries.ListPricingRules(ctx, subFieldID)
	if err != nil {
		return nil, &models.StorageError{Op: "list pricing rules", Err: err}
	}
	return pricing.RulesFromRows(rows), nil
}

// DeletePricingRule removes a rule. Existing bookings keep the price they
// were created with.
func (s *Service) DeletePricingRule(ctx context.Context, ruleID string) error {
	deleted, err := s.db.Queries.DeletePricingRule(ctx, ruleID)
	if err != nil {
		return &models.StorageError{Op: "delete pricing rule", Err: err}
	}
	if deleted == 0 {
		return fmt.Errorf("pricing rule %s: %w", ruleID, models.ErrNotFound)
	}
	log.Ctx(ctx).Info().Str("rule_id", ruleID).Msg("Pricing rule deleted")
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func classify(op string, err error) error {
	if models.KindOf(err) != models.KindUnknown {
		return err
	}
	return &models.StorageError{Op: op, Err: err}
}
