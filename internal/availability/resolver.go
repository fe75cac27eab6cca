package availability

import (
	"context"
	"log/slog"
)

// Store is the slice of the booking store the resolver needs. Injected so the
// resolver is testable without a live database.
type Store interface {
	// TimesOnDate returns the stored start times of all bookings on a date,
	// as the store formats them (possibly with a seconds component).
	TimesOnDate(ctx context.Context, date string) ([]string, error)
	// AnyOnDateTimes reports whether any booking on the date starts at one of
	// the given HH:MM times.
	AnyOnDateTimes(ctx context.Context, date string, times []string) (bool, error)
}

type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// BlockedSlots derives the set of start times unavailable on a date: the union
// of the footprints of all existing bookings. An empty date returns an empty
// set without touching the store. A store error also returns an empty set:
// the listing fails open for display, and the submission-time conflict check
// still protects against double booking.
func (r *Resolver) BlockedSlots(ctx context.Context, date string) map[string]struct{} {
	blocked := make(map[string]struct{})
	if date == "" {
		return blocked
	}

	times, err := r.store.TimesOnDate(ctx, date)
	if err != nil {
		r.logger.Warn("blocked slot load failed; showing all slots", "date", date, "err", err)
		return blocked
	}

	seen := make(map[string]struct{}, len(times))
	for _, raw := range times {
		t := TruncateToSlot(raw)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		for _, s := range Footprint(t) {
			blocked[s] = struct{}{}
		}
	}
	return blocked
}

// CheckConflict recomputes the conflict window of the requested start time
// and asks the store, against live data, whether any booking on the date
// starts inside it. This is the authoritative gate before insert; the
// UI-level blocked set is advisory only. A query error aborts the submission.
func (r *Resolver) CheckConflict(ctx context.Context, date, t string) (bool, error) {
	window := ConflictWindow(t)
	if len(window) == 0 {
		return false, nil
	}
	return r.store.AnyOnDateTimes(ctx, date, window)
}
