// Package reservations runs the booking lifecycle: holds, payment
// confirmation, cancellation and reclaiming of expired holds.
package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Playfield/internal/availability"
	"github.com/codr1/Playfield/internal/clock"
	"github.com/codr1/Playfield/internal/db"
	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
	"github.com/codr1/Playfield/internal/pricing"
	"github.com/codr1/Playfield/internal/recurrence"
)

const (
	DefaultHoldDuration     = 15 * time.Minute
	DefaultOperationTimeout = 5 * time.Second
	DefaultPhoneRegion      = "US"
)

type Config struct {
	HoldDuration     time.Duration
	MaxOccurrences   int
	OperationTimeout time.Duration
	PhoneRegion      string
	Clock            clock.Clock
}

// Manager is safe for concurrent use. Writers are serialised by the
// database's immediate transactions.
type Manager struct {
	db       *db.DB
	expander *recurrence.Expander
	clock    clock.Clock
	hold     time.Duration
	timeout  time.Duration
	region   string
	logger   zerolog.Logger
}

func NewManager(database *db.DB, cfg Config) (*Manager, error) {
	if database == nil {
		return nil, fmt.Errorf("reservation manager requires database")
	}
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = DefaultHoldDuration
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = DefaultPhoneRegion
	}
	return &Manager{
		db:       database,
		expander: recurrence.NewExpander(cfg.MaxOccurrences),
		clock:    clock.OrReal(cfg.Clock),
		hold:     cfg.HoldDuration,
		timeout:  cfg.OperationTimeout,
		region:   cfg.PhoneRegion,
		logger:   log.With().Str("component", "reservations").Logger(),
	}, nil
}

// HoldDuration is how long a new PENDING booking keeps its slot.
func (m *Manager) HoldDuration() time.Duration {
	return m.hold
}

func (m *Manager) MaxOccurrences() int {
	return m.expander.MaxOccurrences()
}

// SingleRequest asks for one hold on a sub-field.
type SingleRequest struct {
	SubFieldID   string
	PlayerID     string
	Window       models.Window
	ContactPhone string
}

// RecurringRequest asks for a series of holds on a sub-field.
type RecurringRequest struct {
	SubFieldID   string
	PlayerID     string
	Recurrence   recurrence.Recurrence
	ContactPhone string
}

// batch is the shared shape of single and recurring creation.
type batch struct {
	subFieldID string
	playerID   string
	phone      string
	// windows converts the request to UTC windows once the complex time zone
	// is known.
	windows func(loc *time.Location) []models.Window
	series  *recurrence.Recurrence
}

type batchResult struct {
	seriesID   string
	bookingIDs []string
}

// CreateSingle places a PENDING hold on one window.
func (m *Manager) CreateSingle(ctx context.Context, req SingleRequest) (models.Booking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if req.SubFieldID == "" {
		return models.Booking{}, models.InvalidInputf("sub_field_id is required")
	}
	if req.PlayerID == "" {
		return models.Booking{}, models.InvalidInputf("player_id is required")
	}
	window := models.NewWindow(req.Window.Start, req.Window.End)
	if !window.Valid() {
		return models.Booking{}, models.InvalidInputf("end_time must be after start_time")
	}
	phone, err := normalizePhone(req.ContactPhone, m.region)
	if err != nil {
		return models.Booking{}, err
	}

	result, err := m.createBatch(ctx, batch{
		subFieldID: req.SubFieldID,
		playerID:   req.PlayerID,
		phone:      phone,
		windows: func(*time.Location) []models.Window {
			return []models.Window{window}
		},
	})
	if err != nil {
		return models.Booking{}, err
	}

	booking, err := m.loadBooking(ctx, m.db.Queries, result.bookingIDs[0])
	if err != nil {
		return models.Booking{}, err
	}
	return booking.AtTime(m.clock.Now()), nil
}

// CreateRecurring expands a recurrence and holds every occurrence, or none.
func (m *Manager) CreateRecurring(ctx context.Context, req RecurringRequest) (models.RecurringBooking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if req.SubFieldID == "" {
		return models.RecurringBooking{}, models.InvalidInputf("sub_field_id is required")
	}
	if req.PlayerID == "" {
		return models.RecurringBooking{}, models.InvalidInputf("player_id is required")
	}
	phone, err := normalizePhone(req.ContactPhone, m.region)
	if err != nil {
		return models.RecurringBooking{}, err
	}

	occurrences, err := m.expander.Expand(req.Recurrence)
	if err != nil {
		return models.RecurringBooking{}, err
	}

	series := req.Recurrence
	result, err := m.createBatch(ctx, batch{
		subFieldID: req.SubFieldID,
		playerID:   req.PlayerID,
		phone:      phone,
		series:     &series,
		windows: func(loc *time.Location) []models.Window {
			windows := make([]models.Window, 0, len(occurrences))
			for _, occurrence := range occurrences {
				windows = append(windows, occurrence.Window(loc))
			}
			return windows
		},
	})
	if err != nil {
		return models.RecurringBooking{}, err
	}

	return m.loadRecurring(ctx, m.db.Queries, result.seriesID)
}

// createBatch prices and checks every window, then inserts all holds with one
// shared deadline inside a single write transaction.
func (m *Manager) createBatch(ctx context.Context, b batch) (batchResult, error) {
	var result batchResult
	var total int64
	var degraded int

	err := m.db.RunInTx(ctx, func(txdb *db.DB) error {
		now := m.clock.Now().UTC()

		schedule, err := pricing.LoadSchedule(ctx, txdb.Queries, b.subFieldID)
		if err != nil {
			return err
		}

		windows := b.windows(schedule.Location)
		if len(windows) == 0 {
			return models.ErrNoOccurrencesGenerated
		}

		quotes := make([]pricing.Quote, 0, len(windows))
		for _, window := range windows {
			quote, err := schedule.Price(window)
			if err != nil {
				return err
			}
			if quote.Degraded {
				degraded++
			}
			total += quote.Price
			quotes = append(quotes, quote)
		}

		if err := availability.CheckAvailable(ctx, txdb.Queries, b.subFieldID, windows, now); err != nil {
			return err
		}

		expiresAt := now.Add(m.hold)
		var seriesRef sql.NullString
		if b.series != nil {
			result.seriesID = uuid.NewString()
			seriesRef = sql.NullString{String: result.seriesID, Valid: true}
			if err := txdb.Queries.CreateRecurringBooking(ctx, recurringParams(result.seriesID, b, total, now)); err != nil {
				return &models.StorageError{Op: "insert recurring booking", Err: err}
			}
		}

		for _, quote := range quotes {
			id := uuid.NewString()
			if err := txdb.Queries.CreateBooking(ctx, dbgen.CreateBookingParams{
				ID:                 id,
				SubFieldID:         b.subFieldID,
				PlayerID:           b.playerID,
				RecurringBookingID: seriesRef,
				StartTime:          quote.Window.Start.UTC(),
				EndTime:            quote.Window.End.UTC(),
				TotalPrice:         quote.Price,
				ContactPhone:       nullString(b.phone),
				CreatedAt:          now,
				ExpiresAt:          expiresAt,
			}); err != nil {
				return &models.StorageError{Op: "insert booking", Err: err}
			}
			result.bookingIDs = append(result.bookingIDs, id)
		}
		return nil
	})
	if err != nil {
		err = classify("create booking", err)
		m.logFailure(ctx, err).
			Str("sub_field_id", b.subFieldID).
			Str("player_id", b.playerID).
			Bool("recurring", b.series != nil).
			Msg("Booking hold rejected")
		return batchResult{}, err
	}

	logger := m.log(ctx)
	if degraded > 0 {
		logger.Warn().
			Str("sub_field_id", b.subFieldID).
			Int("windows", degraded).
			Msg("Overlapping pricing rules matched; narrowest rule applied")
	}
	event := logger.Info().
		Str("sub_field_id", b.subFieldID).
		Str("player_id", b.playerID).
		Int("occurrences", len(result.bookingIDs)).
		Int64("total_price", total)
	if result.seriesID != "" {
		event.Str("recurring_booking_id", result.seriesID)
	} else {
		event.Str("booking_id", result.bookingIDs[0])
	}
	event.Msg("Booking hold placed")

	return result, nil
}

func recurringParams(id string, b batch, total int64, now time.Time) dbgen.CreateRecurringBookingParams {
	r := b.series
	var dayOfWeek sql.NullInt64
	if r.Type == models.RecurrenceWeekly {
		dayOfWeek = sql.NullInt64{Int64: int64(r.DayOfWeek), Valid: true}
	}
	return dbgen.CreateRecurringBookingParams{
		ID:             id,
		SubFieldID:     b.subFieldID,
		PlayerID:       b.playerID,
		RecurrenceType: string(r.Type),
		DayOfWeek:      dayOfWeek,
		StartMinute:    int64(r.StartTime.Minutes()),
		EndMinute:      int64(r.EndTime.Minutes()),
		StartDate:      r.StartDate.String(),
		EndDate:        r.EndDate.String(),
		TotalPrice:     total,
		CreatedAt:      now,
	}
}

// Get returns a booking with its derived status.
func (m *Manager) Get(ctx context.Context, bookingID string) (models.Booking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	booking, err := m.loadBooking(ctx, m.db.Queries, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	return booking.AtTime(m.clock.Now()), nil
}

// GetRecurring returns a series with its occurrences.
func (m *Manager) GetRecurring(ctx context.Context, recurringBookingID string) (models.RecurringBooking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.loadRecurring(ctx, m.db.Queries, recurringBookingID)
}

// ListForSubField returns every booking on the sub-field that intersects
// [from, to), whatever its status.
func (m *Manager) ListForSubField(ctx context.Context, subFieldID string, from, to time.Time) ([]models.Booking, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	span := models.NewWindow(from, to)
	if !span.Valid() {
		return nil, models.InvalidInputf("to must be after from")
	}
	if _, err := m.db.Queries.GetSubField(ctx, subFieldID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sub-field %s: %w", subFieldID, models.ErrNotFound)
		}
		return nil, classify("load sub-field", err)
	}

	rows, err := m.db.Queries.ListBookingsForSubField(ctx, dbgen.ListBookingsForSubFieldParams{
		SubFieldID: subFieldID,
		From:       span.Start,
		To:         span.End,
	})
	if err != nil {
		return nil, classify("list bookings", err)
	}

	now := m.clock.Now()
	bookings := make([]models.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, bookingFromRow(row).AtTime(now))
	}
	return bookings, nil
}

// Quote prices a window without holding it.
func (m *Manager) Quote(ctx context.Context, subFieldID string, window models.Window) (pricing.Quote, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	quote, err := pricing.ResolvePrice(ctx, m.db.Queries, subFieldID, window.Start, window.End)
	if err != nil {
		return pricing.Quote{}, classify("quote", err)
	}
	if quote.Degraded {
		m.log(ctx).Warn().
			Str("sub_field_id", subFieldID).
			Str("rule_id", quote.RuleID).
			Msg("Overlapping pricing rules matched; narrowest rule applied")
	}
	return quote, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Manager) loadBooking(ctx context.Context, q *dbgen.Queries, bookingID string) (models.Booking, error) {
	row, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, fmt.Errorf("booking %s: %w", bookingID, models.ErrNotFound)
		}
		return models.Booking{}, classify("load booking", err)
	}
	return bookingFromRow(row), nil
}

func (m *Manager) loadRecurring(ctx context.Context, q *dbgen.Queries, recurringBookingID string) (models.RecurringBooking, error) {
	row, err := q.GetRecurringBooking(ctx, recurringBookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecurringBooking{}, fmt.Errorf("recurring booking %s: %w", recurringBookingID, models.ErrNotFound)
		}
		return models.RecurringBooking{}, classify("load recurring booking", err)
	}
	series, err := recurringFromRow(row)
	if err != nil {
		return models.RecurringBooking{}, err
	}

	rows, err := q.ListBookingsForRecurring(ctx, recurringBookingID)
	if err != nil {
		return models.RecurringBooking{}, classify("list occurrences", err)
	}
	now := m.clock.Now()
	series.Occurrences = make([]models.Booking, 0, len(rows))
	for _, occurrence := range rows {
		series.Occurrences = append(series.Occurrences, bookingFromRow(occurrence).AtTime(now))
	}
	return series, nil
}

// logFailure picks the level for a rejected operation: business outcomes are
// informational, storage failures are errors.
func (m *Manager) logFailure(ctx context.Context, err error) *zerolog.Event {
	logger := m.log(ctx)
	if errors.Is(err, models.ErrTransientStorage) {
		return logger.Error().Err(err).Bool("retryable", retryable(err))
	}
	return logger.Info().Err(err).Str("kind", string(models.KindOf(err)))
}

// log prefers the request logger carried by ctx.
func (m *Manager) log(ctx context.Context) *zerolog.Logger {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		return &m.logger
	}
	return logger
}
