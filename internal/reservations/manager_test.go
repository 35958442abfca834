package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codr1/Playfield/internal/db"
	"github.com/codr1/Playfield/internal/models"
	"github.com/codr1/Playfield/internal/recurrence"
	"github.com/codr1/Playfield/internal/testutil"
)

type harness struct {
	manager    *Manager
	db         *db.DB
	clock      *testutil.FakeClock
	subFieldID string
}

// newHarness builds a manager over a UTC sub-field priced 1000 per hour all day.
func newHarness(t *testing.T, cfg Config) harness {
	t.Helper()

	database := testutil.NewTestDB(t)
	fakeClock := testutil.NewFakeClock(time.Time{})
	subFieldID := testutil.SeedSubField(t, database, "UTC", testutil.EveryDay(0, 24*60, 1000))

	cfg.Clock = fakeClock
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 10 * time.Second
	}
	manager, err := NewManager(database, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return harness{manager: manager, db: database, clock: fakeClock, subFieldID: subFieldID}
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

func window(day, startHour, endHour int) models.Window {
	return models.NewWindow(at(day, startHour), at(day, endHour))
}

func (h harness) hold(t *testing.T, playerID string, w models.Window) models.Booking {
	t.Helper()
	booking, err := h.manager.CreateSingle(context.Background(), SingleRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   playerID,
		Window:     w,
	})
	if err != nil {
		t.Fatalf("CreateSingle %s: %v", w, err)
	}
	return booking
}

func (h harness) countBookings(t *testing.T) int64 {
	t.Helper()
	count, err := h.db.Queries.CountBookingsForSubField(context.Background(), h.subFieldID)
	if err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	return count
}

func mondaysInJanuary(start, end models.TimeOfDay) recurrence.Recurrence {
	return recurrence.Recurrence{
		Type:      models.RecurrenceWeekly,
		DayOfWeek: time.Monday,
		StartTime: start,
		EndTime:   end,
		StartDate: models.Date{Year: 2024, Month: time.January, Day: 1},
		EndDate:   models.Date{Year: 2024, Month: time.January, Day: 31},
	}
}

func TestCreateSingle_PlacesPricedHold(t *testing.T) {
	h := newHarness(t, Config{})
	now := h.clock.Now()

	booking, err := h.manager.CreateSingle(context.Background(), SingleRequest{
		SubFieldID:   h.subFieldID,
		PlayerID:     "player-1",
		Window:       window(2, 18, 20),
		ContactPhone: "(202) 456-1111",
	})
	if err != nil {
		t.Fatalf("CreateSingle: %v", err)
	}

	if booking.Status != models.BookingStatusPending {
		t.Fatalf("expected PENDING, got %s", booking.Status)
	}
	if booking.TotalPrice != 2000 {
		t.Fatalf("expected price 2000, got %d", booking.TotalPrice)
	}
	if booking.ExpiresAt == nil || !booking.ExpiresAt.Equal(now.Add(DefaultHoldDuration)) {
		t.Fatalf("expected expires_at %s, got %v", now.Add(DefaultHoldDuration), booking.ExpiresAt)
	}
	if booking.ContactPhone != "+12024561111" {
		t.Fatalf("expected E.164 phone, got %q", booking.ContactPhone)
	}
	if !booking.StartTime.Equal(at(2, 18)) || !booking.EndTime.Equal(at(2, 20)) {
		t.Fatalf("unexpected window %s", booking.Window())
	}
}

func TestCreateSingle_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  SingleRequest
	}{
		{"missing player", SingleRequest{SubFieldID: h.subFieldID, Window: window(2, 18, 20)}},
		{"reversed window", SingleRequest{SubFieldID: h.subFieldID, PlayerID: "p", Window: models.Window{Start: at(2, 20), End: at(2, 18)}}},
		{"bad phone", SingleRequest{SubFieldID: h.subFieldID, PlayerID: "p", Window: window(2, 18, 20), ContactPhone: "12"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.manager.CreateSingle(ctx, tc.req)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if count := h.countBookings(t); count != 0 {
		t.Fatalf("expected no bookings, got %d", count)
	}
}

func TestCreateSingle_UnknownSubField(t *testing.T) {
	h := newHarness(t, Config{})

	_, err := h.manager.CreateSingle(context.Background(), SingleRequest{
		SubFieldID: "missing",
		PlayerID:   "player-1",
		Window:     window(2, 18, 20),
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSingle_NoPricingCoverageLeavesNoRow(t *testing.T) {
	database := testutil.NewTestDB(t)
	subFieldID := testutil.SeedSubField(t, database, "UTC", []testutil.RuleSpec{
		{DayOfWeek: time.Tuesday, Start: 18 * 60, End: 22 * 60, BasePrice: 200000},
	})
	manager, err := NewManager(database, Config{Clock: testutil.NewFakeClock(time.Time{})})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	_, err = manager.CreateSingle(context.Background(), SingleRequest{
		SubFieldID: subFieldID,
		PlayerID:   "player-1",
		Window:     window(2, 19, 23),
	})
	if !errors.Is(err, models.ErrNoPricingCoverage) {
		t.Fatalf("expected ErrNoPricingCoverage, got %v", err)
	}
	var pricingErr *models.PricingError
	if !errors.As(err, &pricingErr) || pricingErr.SubFieldID != subFieldID {
		t.Fatalf("expected PricingError for %s, got %v", subFieldID, err)
	}

	count, err := database.Queries.CountBookingsForSubField(context.Background(), subFieldID)
	if err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no bookings, got %d", count)
	}
}

func TestCreateSingle_BackToBackBookingsSucceed(t *testing.T) {
	h := newHarness(t, Config{})

	h.hold(t, "player-1", window(2, 18, 20))
	h.hold(t, "player-2", window(2, 20, 22))
	h.hold(t, "player-3", window(2, 16, 18))

	if count := h.countBookings(t); count != 3 {
		t.Fatalf("expected 3 bookings, got %d", count)
	}
}

func TestCreateSingle_OverlapReturnsConflict(t *testing.T) {
	h := newHarness(t, Config{})
	first := h.hold(t, "player-1", window(2, 18, 20))

	_, err := h.manager.CreateSingle(context.Background(), SingleRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-2",
		Window:     models.NewWindow(at(2, 19), at(2, 21)),
	})
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ConflictingBookingID != first.ID {
		t.Fatalf("expected conflict with %s, got %s", first.ID, conflict.ConflictingBookingID)
	}
	if models.KindOf(err) != models.KindSlotConflict {
		t.Fatalf("expected SlotConflict kind, got %q", models.KindOf(err))
	}
}

func TestCreateSingle_ConcurrentOverlapExactlyOneWins(t *testing.T) {
	h := newHarness(t, Config{})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// Each attempt overlaps every other one.
			_, errs[i] = h.manager.CreateSingle(context.Background(), SingleRequest{
				SubFieldID: h.subFieldID,
				PlayerID:   "player",
				Window:     models.NewWindow(at(3, 18).Add(time.Duration(i)*time.Minute), at(3, 20)),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded int
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrSlotConflict):
		default:
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one hold, got %d", succeeded)
	}
	if count := h.countBookings(t); count != 1 {
		t.Fatalf("expected 1 stored booking, got %d", count)
	}
}

func TestCreateRecurring_HoldsEveryOccurrence(t *testing.T) {
	h := newHarness(t, Config{})
	now := h.clock.Now()

	series, err := h.manager.CreateRecurring(context.Background(), RecurringRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-1",
		Recurrence: mondaysInJanuary(models.NewTimeOfDay(18, 0), models.NewTimeOfDay(20, 0)),
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	if series.Status != models.RecurringStatusActive {
		t.Fatalf("expected ACTIVE, got %s", series.Status)
	}
	if series.DayOfWeek == nil || *series.DayOfWeek != time.Monday {
		t.Fatalf("expected Monday, got %v", series.DayOfWeek)
	}
	if len(series.Occurrences) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(series.Occurrences))
	}
	if series.TotalPrice != 5*2000 {
		t.Fatalf("expected total 10000, got %d", series.TotalPrice)
	}

	wantDays := []int{1, 8, 15, 22, 29}
	deadline := now.Add(DefaultHoldDuration)
	for i, occurrence := range series.Occurrences {
		if !occurrence.StartTime.Equal(at(wantDays[i], 18)) {
			t.Fatalf("occurrence %d: expected start %s, got %s", i, at(wantDays[i], 18), occurrence.StartTime)
		}
		if occurrence.Status != models.BookingStatusPending {
			t.Fatalf("occurrence %d: expected PENDING, got %s", i, occurrence.Status)
		}
		if occurrence.RecurringBookingID != series.ID {
			t.Fatalf("occurrence %d: expected series %s, got %s", i, series.ID, occurrence.RecurringBookingID)
		}
		if occurrence.ExpiresAt == nil || !occurrence.ExpiresAt.Equal(deadline) {
			t.Fatalf("occurrence %d: expected shared deadline %s, got %v", i, deadline, occurrence.ExpiresAt)
		}
	}
}

func TestCreateRecurring_ConflictPersistsNothing(t *testing.T) {
	h := newHarness(t, Config{})
	blockerID := testutil.SeedBooking(t, h.db, h.subFieldID, at(15, 19), at(15, 21), "CONFIRMED", at(1, 9))

	_, err := h.manager.CreateRecurring(context.Background(), RecurringRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-1",
		Recurrence: mondaysInJanuary(models.NewTimeOfDay(18, 0), models.NewTimeOfDay(20, 0)),
	})
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ConflictingBookingID != blockerID {
		t.Fatalf("expected conflict with %s, got %q", blockerID, conflict.ConflictingBookingID)
	}
	if !conflict.Window.Start.Equal(at(15, 18)) {
		t.Fatalf("expected third occurrence to conflict, got %s", conflict.Window)
	}

	if count := h.countBookings(t); count != 1 {
		t.Fatalf("expected only the blocking booking, got %d rows", count)
	}
	series, err := h.db.Queries.CountRecurringBookings(context.Background())
	if err != nil {
		t.Fatalf("count series: %v", err)
	}
	if series != 0 {
		t.Fatalf("expected no series rows, got %d", series)
	}
}

func TestCreateRecurring_OccurrenceLimits(t *testing.T) {
	h := newHarness(t, Config{MaxOccurrences: 3})
	ctx := context.Background()

	_, err := h.manager.CreateRecurring(ctx, RecurringRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-1",
		Recurrence: mondaysInJanuary(models.NewTimeOfDay(18, 0), models.NewTimeOfDay(20, 0)),
	})
	if !errors.Is(err, models.ErrTooManyOccurrences) {
		t.Fatalf("expected ErrTooManyOccurrences, got %v", err)
	}

	empty := mondaysInJanuary(models.NewTimeOfDay(18, 0), models.NewTimeOfDay(20, 0))
	empty.StartDate = models.Date{Year: 2024, Month: time.January, Day: 2}
	empty.EndDate = models.Date{Year: 2024, Month: time.January, Day: 7}
	_, err = h.manager.CreateRecurring(ctx, RecurringRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-1",
		Recurrence: empty,
	})
	if !errors.Is(err, models.ErrNoOccurrencesGenerated) {
		t.Fatalf("expected ErrNoOccurrencesGenerated, got %v", err)
	}

	if count := h.countBookings(t); count != 0 {
		t.Fatalf("expected no bookings, got %d", count)
	}
}

func TestConfirm_Transitions(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	booking := h.hold(t, "player-1", window(2, 18, 20))

	confirmed, err := h.manager.Confirm(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
	}
	if confirmed.PaidAt == nil || !confirmed.PaidAt.Equal(h.clock.Now()) {
		t.Fatalf("expected paid_at %s, got %v", h.clock.Now(), confirmed.PaidAt)
	}

	if _, err := h.manager.Confirm(ctx, booking.ID); !errors.Is(err, models.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if _, err := h.manager.Confirm(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	canceled := h.hold(t, "player-1", window(3, 18, 20))
	if _, err := h.manager.Cancel(ctx, canceled.ID, models.Actor{ID: "player-1", Role: models.ActorPlayer}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := h.manager.Confirm(ctx, canceled.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestExpiredHold_FreesSlotButCannotConfirm(t *testing.T) {
	h := newHarness(t, Config{HoldDuration: 10 * time.Minute})
	ctx := context.Background()

	stale := h.hold(t, "player-1", window(2, 18, 20))
	h.clock.Advance(10 * time.Minute)

	// The sweeper has not run, yet the lapsed hold no longer blocks.
	fresh := h.hold(t, "player-2", window(2, 18, 20))

	if _, err := h.manager.Confirm(ctx, stale.ID); !errors.Is(err, models.ErrSlotExpired) {
		t.Fatalf("expected ErrSlotExpired before sweep, got %v", err)
	}

	reclaimed, err := h.manager.Sweep(ctx, h.clock.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed hold, got %d", reclaimed)
	}

	if _, err := h.manager.Confirm(ctx, stale.ID); !errors.Is(err, models.ErrSlotExpired) {
		t.Fatalf("expected ErrSlotExpired after sweep, got %v", err)
	}
	got, err := h.manager.Get(ctx, stale.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.BookingStatusCanceled || got.CancelReason != models.CancelReasonExpired {
		t.Fatalf("expected CANCELED/expired, got %s/%s", got.Status, got.CancelReason)
	}

	if _, err := h.manager.Confirm(ctx, fresh.ID); err != nil {
		t.Fatalf("Confirm fresh hold: %v", err)
	}
}

func TestSweep_IsIdempotentAndSkipsConfirmed(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.hold(t, "player-1", window(2, 8, 9))
	h.hold(t, "player-1", window(2, 9, 10))
	paid := h.hold(t, "player-1", window(2, 10, 11))
	if _, err := h.manager.Confirm(ctx, paid.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if reclaimed, err := h.manager.Sweep(ctx, h.clock.Now()); err != nil || reclaimed != 0 {
		t.Fatalf("expected nothing to reclaim before deadline, got %d, %v", reclaimed, err)
	}

	now := h.clock.Advance(DefaultHoldDuration)
	reclaimed, err := h.manager.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reclaimed != 2 {
		t.Fatalf("expected 2 reclaimed, got %d", reclaimed)
	}

	reclaimed, err = h.manager.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("expected second sweep to reclaim 0, got %d", reclaimed)
	}

	got, err := h.manager.Get(ctx, paid.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected confirmed booking untouched, got %s", got.Status)
	}
}

func TestConfirmAndSweepRace(t *testing.T) {
	for i := 0; i < 5; i++ {
		h := newHarness(t, Config{})
		ctx := context.Background()
		booking := h.hold(t, "player-1", window(2, 18, 20))
		deadline := *booking.ExpiresAt

		// Confirm still sees a live hold; the sweep runs as if the deadline passed.
		h.clock.Set(deadline.Add(-time.Second))

		var wg sync.WaitGroup
		var confirmErr, sweepErr error
		var reclaimed int
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = h.manager.Confirm(ctx, booking.ID)
		}()
		go func() {
			defer wg.Done()
			reclaimed, sweepErr = h.manager.Sweep(ctx, deadline)
		}()
		wg.Wait()

		if sweepErr != nil {
			t.Fatalf("Sweep: %v", sweepErr)
		}
		got, err := h.manager.Get(ctx, booking.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}

		switch {
		case confirmErr == nil:
			if reclaimed != 0 || got.Status != models.BookingStatusConfirmed {
				t.Fatalf("confirm won but sweep reclaimed %d, status %s", reclaimed, got.Status)
			}
		case errors.Is(confirmErr, models.ErrSlotExpired):
			if reclaimed != 1 || got.Status != models.BookingStatusCanceled {
				t.Fatalf("sweep won but reclaimed %d, status %s", reclaimed, got.Status)
			}
		default:
			t.Fatalf("unexpected confirm error %v", confirmErr)
		}
	}
}

func TestCancel_Rules(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	owner := models.Actor{ID: "player-1", Role: models.ActorPlayer}
	stranger := models.Actor{ID: "player-2", Role: models.ActorPlayer}
	manager := models.Actor{Role: models.ActorManager}

	pending := h.hold(t, "player-1", window(2, 8, 9))
	if _, err := h.manager.Cancel(ctx, pending.ID, stranger); !errors.Is(err, models.ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
	canceled, err := h.manager.Cancel(ctx, pending.ID, owner)
	if err != nil {
		t.Fatalf("Cancel pending: %v", err)
	}
	if canceled.Status != models.BookingStatusCanceled || canceled.CancelReason != models.CancelReasonPlayer || canceled.CanceledBy != "player-1" {
		t.Fatalf("unexpected canceled booking %+v", canceled)
	}
	if _, err := h.manager.Cancel(ctx, pending.ID, owner); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second cancel, got %v", err)
	}

	future := h.hold(t, "player-1", window(2, 10, 11))
	if _, err := h.manager.Confirm(ctx, future.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	byManager, err := h.manager.Cancel(ctx, future.ID, manager)
	if err != nil {
		t.Fatalf("manager Cancel: %v", err)
	}
	if byManager.CancelReason != models.CancelReasonManager || byManager.CanceledBy != string(models.ActorManager) {
		t.Fatalf("unexpected manager cancellation %+v", byManager)
	}

	started := h.hold(t, "player-1", window(2, 12, 14))
	if _, err := h.manager.Confirm(ctx, started.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	h.clock.Set(at(2, 12))
	if _, err := h.manager.Cancel(ctx, started.ID, owner); !errors.Is(err, models.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted at start time, got %v", err)
	}
	h.clock.Set(at(2, 15))
	if _, err := h.manager.Cancel(ctx, started.ID, manager); !errors.Is(err, models.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted once completed, got %v", err)
	}

	if _, err := h.manager.Cancel(ctx, "missing", manager); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_DerivesCompleted(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	booking := h.hold(t, "player-1", window(2, 18, 20))
	if _, err := h.manager.Confirm(ctx, booking.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	h.clock.Set(at(2, 19))
	got, err := h.manager.Get(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED while in progress, got %s", got.Status)
	}

	h.clock.Set(at(2, 20))
	got, err = h.manager.Get(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.BookingStatusCompleted {
		t.Fatalf("expected COMPLETED at end time, got %s", got.Status)
	}

	row, err := h.db.Queries.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if row.Status != string(models.BookingStatusConfirmed) {
		t.Fatalf("expected stored status CONFIRMED, got %s", row.Status)
	}
}

func TestConfirmRecurring(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	request := RecurringRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-1",
		Recurrence: mondaysInJanuary(models.NewTimeOfDay(18, 0), models.NewTimeOfDay(20, 0)),
	}

	series, err := h.manager.CreateRecurring(ctx, request)
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	confirmed, err := h.manager.ConfirmRecurring(ctx, series.ID)
	if err != nil {
		t.Fatalf("ConfirmRecurring: %v", err)
	}
	for i, occurrence := range confirmed.Occurrences {
		if occurrence.Status != models.BookingStatusConfirmed || occurrence.PaidAt == nil {
			t.Fatalf("occurrence %d: expected CONFIRMED with paid_at, got %s", i, occurrence.Status)
		}
	}
	if _, err := h.manager.ConfirmRecurring(ctx, series.ID); !errors.Is(err, models.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if _, err := h.manager.ConfirmRecurring(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	request.Recurrence.StartTime = models.NewTimeOfDay(8, 0)
	request.Recurrence.EndTime = models.NewTimeOfDay(9, 0)
	request.Recurrence.StartDate = models.Date{Year: 2024, Month: time.January, Day: 8}
	lapsing, err := h.manager.CreateRecurring(ctx, request)
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	now := h.clock.Advance(DefaultHoldDuration)
	if _, err := h.manager.ConfirmRecurring(ctx, lapsing.ID); !errors.Is(err, models.ErrSlotExpired) {
		t.Fatalf("expected ErrSlotExpired before sweep, got %v", err)
	}
	if _, err := h.manager.Sweep(ctx, now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	lapsed, err := h.manager.GetRecurring(ctx, lapsing.ID)
	if err != nil {
		t.Fatalf("GetRecurring: %v", err)
	}
	if lapsed.Status != models.RecurringStatusCanceled {
		t.Fatalf("expected lapsed series CANCELED, got %s", lapsed.Status)
	}
	if _, err := h.manager.ConfirmRecurring(ctx, lapsing.ID); !errors.Is(err, models.ErrSlotExpired) {
		t.Fatalf("expected ErrSlotExpired after sweep, got %v", err)
	}
}

func TestCancelRecurring_LeavesPastOccurrences(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	owner := models.Actor{ID: "player-1", Role: models.ActorPlayer}

	series, err := h.manager.CreateRecurring(ctx, RecurringRequest{
		SubFieldID: h.subFieldID,
		PlayerID:   "player-1",
		Recurrence: mondaysInJanuary(models.NewTimeOfDay(18, 0), models.NewTimeOfDay(20, 0)),
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	if _, err := h.manager.ConfirmRecurring(ctx, series.ID); err != nil {
		t.Fatalf("ConfirmRecurring: %v", err)
	}

	if _, err := h.manager.CancelRecurring(ctx, series.ID, models.Actor{ID: "player-2", Role: models.ActorPlayer}); !errors.Is(err, models.ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}

	h.clock.Set(at(16, 9))
	canceled, err := h.manager.CancelRecurring(ctx, series.ID, owner)
	if err != nil {
		t.Fatalf("CancelRecurring: %v", err)
	}
	if canceled.Status != models.RecurringStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("expected CANCELED series, got %s", canceled.Status)
	}

	for i, occurrence := range canceled.Occurrences {
		past := i < 3
		switch {
		case past && occurrence.Status != models.BookingStatusCompleted:
			t.Fatalf("occurrence %d: expected COMPLETED, got %s", i, occurrence.Status)
		case !past && occurrence.Status != models.BookingStatusCanceled:
			t.Fatalf("occurrence %d: expected CANCELED, got %s", i, occurrence.Status)
		case !past && occurrence.CancelReason != models.CancelReasonSeriesCanceled:
			t.Fatalf("occurrence %d: expected series_canceled, got %s", i, occurrence.CancelReason)
		}
	}

	if _, err := h.manager.CancelRecurring(ctx, series.ID, owner); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := h.manager.CancelRecurring(ctx, "missing", owner); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListForSubFieldAndQuote(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.hold(t, "player-1", window(2, 8, 9))
	h.hold(t, "player-1", window(2, 12, 13))
	h.hold(t, "player-1", window(3, 8, 9))

	bookings, err := h.manager.ListForSubField(ctx, h.subFieldID, at(2, 0), at(3, 0))
	if err != nil {
		t.Fatalf("ListForSubField: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings on Jan 2, got %d", len(bookings))
	}
	if !bookings[0].StartTime.Before(bookings[1].StartTime) {
		t.Fatalf("expected bookings ordered by start time")
	}

	if _, err := h.manager.ListForSubField(ctx, "missing", at(2, 0), at(3, 0)); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.manager.ListForSubField(ctx, h.subFieldID, at(3, 0), at(2, 0)); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	quote, err := h.manager.Quote(ctx, h.subFieldID, models.NewWindow(at(2, 8), at(2, 8).Add(90*time.Minute)))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Price != 1500 {
		t.Fatalf("expected 1500, got %d", quote.Price)
	}
	if count := h.countBookings(t); count != 3 {
		t.Fatalf("quote must not hold a slot, got %d bookings", count)
	}
}
