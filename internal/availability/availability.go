// Package availability enforces that no two live bookings on a sub-field
// overlap. Callers must run CheckAvailable inside the same write transaction
// as the inserts it guards.
package availability

import (
	"context"
	"sort"
	"time"

	dbgen "github.com/codr1/Playfield/internal/db/generated"
	"github.com/codr1/Playfield/internal/models"
)

// Occupied is an existing booking window that blocks new holds.
type Occupied struct {
	BookingID string
	Window    models.Window
}

// CheckBatch verifies that no two candidate windows overlap each other.
func CheckBatch(windows []models.Window) error {
	sorted := sortedWindows(windows)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return &models.ConflictError{
				Window:            sorted[i],
				ConflictingWindow: sorted[i-1],
			}
		}
	}
	return nil
}

// FindConflict returns the first candidate window, in start order, that
// overlaps an occupied window.
func FindConflict(windows []models.Window, occupied []Occupied) error {
	for _, window := range sortedWindows(windows) {
		for _, existing := range occupied {
			if window.Overlaps(existing.Window) {
				return &models.ConflictError{
					Window:               window,
					ConflictingWindow:    existing.Window,
					ConflictingBookingID: existing.BookingID,
				}
			}
		}
	}
	return nil
}

// CheckAvailable verifies every window against the batch itself and against
// bookings stored for the sub-field. Holds that expired before now are
// ignored even if the sweeper has not reclaimed them yet.
func CheckAvailable(ctx context.Context, q *dbgen.Queries, subFieldID string, windows []models.Window, now time.Time) error {
	if len(windows) == 0 {
		return nil
	}
	if err := CheckBatch(windows); err != nil {
		return err
	}

	occupied, err := ListOccupied(ctx, q, subFieldID, hull(windows), now)
	if err != nil {
		return err
	}
	return FindConflict(windows, occupied)
}

// ListOccupied returns the blocking bookings that intersect span.
func ListOccupied(ctx context.Context, q *dbgen.Queries, subFieldID string, span models.Window, now time.Time) ([]Occupied, error) {
	rows, err := q.ListBlockingBookings(ctx, dbgen.ListBlockingBookingsParams{
		SubFieldID:  subFieldID,
		WindowStart: span.Start.UTC(),
		WindowEnd:   span.End.UTC(),
		Now:         now.UTC(),
	})
	if err != nil {
		return nil, &models.StorageError{Op: "list blocking bookings", Err: err}
	}

	occupied := make([]Occupied, 0, len(rows))
	for _, row := range rows {
		occupied = append(occupied, Occupied{
			BookingID: row.ID,
			Window:    models.NewWindow(row.StartTime, row.EndTime),
		})
	}
	return occupied, nil
}

func sortedWindows(windows []models.Window) []models.Window {
	sorted := make([]models.Window, len(windows))
	copy(sorted, windows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}

// hull is the smallest window that contains every window in the batch.
func hull(windows []models.Window) models.Window {
	span := windows[0]
	for _, window := range windows[1:] {
		if window.Start.Before(span.Start) {
			span.Start = window.Start
		}
		if window.End.After(span.End) {
			span.End = window.End
		}
	}
	return span
}
