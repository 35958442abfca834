package reservations

import (
	"context"
	"time"

	"github.com/codr1/Playfield/internal/db"
	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
)

// Sweep cancels every PENDING hold whose deadline is at or before now and
// returns how many it reclaimed. Running it again with the same now reclaims
// nothing. Confirmed bookings are never touched.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	now = now.UTC()
	var expired []dbgen.Booking
	var reclaimed, lapsed int64

	err := m.db.RunInTx(ctx, func(txdb *db.DB) error {
		var err error
		expired, err = txdb.Queries.ListExpiredHolds(ctx, now)
		if err != nil {
			return &models.StorageError{Op: "list expired holds", Err: err}
		}
		if len(expired) == 0 {
			return nil
		}

		reclaimed, err = txdb.Queries.ExpirePendingBookings(ctx, now)
		if err != nil {
			return &models.StorageError{Op: "expire holds", Err: err}
		}

		lapsed, err = txdb.Queries.CancelLapsedRecurringBookings(ctx, now)
		if err != nil {
			return &models.StorageError{Op: "cancel lapsed series", Err: err}
		}
		return nil
	})
	if err != nil {
		err = classify("sweep expired holds", err)
		m.logFailure(ctx, err).Time("now", now).Msg("Expired hold sweep failed")
		return 0, err
	}

	logger := m.log(ctx)
	for _, row := range expired {
		event := logger.Debug().
			Str("booking_id", row.ID).
			Str("sub_field_id", row.SubFieldID)
		if row.ExpiresAt.Valid {
			event.Time("expires_at", row.ExpiresAt.Time)
		}
		event.Msg("Reclaimed expired hold")
	}
	if reclaimed > 0 {
		logger.Info().
			Int64("reclaimed", reclaimed).
			Int64("series_lapsed", lapsed).
			Msg("Expired holds reclaimed")
	}

	return int(reclaimed), nil
}
