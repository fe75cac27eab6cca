// Package availability turns a day's bookings into the set of blocked start
// times and re-validates booking requests against the same rule.
package availability

import "fmt"

const (
	openMinute  = 6 * 60  // first slot 06:00
	closeMinute = 21 * 60 // last generated slot 21:00
	slotStep    = 30      // minutes

	// An appointment occupies its start slot plus the 30/60/90 minute
	// offsets: 1.5h of service and buffer.
	footprintSpan = 90
)

var slots = generateSlots()

// Slots returns the fixed ordered sequence of bookable start times,
// 06:00 through 21:00 at 30-minute steps (31 values).
func Slots() []string {
	out := make([]string, len(slots))
	copy(out, slots)
	return out
}

func generateSlots() []string {
	var out []string
	for m := openMinute; m <= closeMinute; m += slotStep {
		out = append(out, formatMinutes(m))
	}
	return out
}

// Footprint returns the slots occupied by a booking starting at t: the start
// slot and the 30/60/90 minute offsets. Pure minute arithmetic; entries past
// the generated domain are kept (callers intersect with Slots as needed).
// An unparseable time yields nil.
func Footprint(t string) []string {
	start, ok := parseMinutes(t)
	if !ok {
		return nil
	}
	out := make([]string, 0, 4)
	for offset := 0; offset <= footprintSpan; offset += slotStep {
		out = append(out, formatMinutes(start+offset))
	}
	return out
}

// ConflictWindow returns the start times whose footprints overlap a booking
// starting at t: every slot from 90 minutes before to 90 minutes after.
// Two appointments collide exactly when their starts are within 90 minutes of
// each other, so the submission-time check queries this set. Offsets running
// before midnight are dropped.
func ConflictWindow(t string) []string {
	start, ok := parseMinutes(t)
	if !ok {
		return nil
	}
	out := make([]string, 0, 7)
	for offset := -footprintSpan; offset <= footprintSpan; offset += slotStep {
		if start+offset < 0 {
			continue
		}
		out = append(out, formatMinutes(start+offset))
	}
	return out
}

// WithinHours reports whether a booking starting at t fits inside operating
// hours, i.e. its whole footprint stays at or before the last generated slot.
// The last bookable start is therefore 19:30.
func WithinHours(t string) bool {
	start, ok := parseMinutes(t)
	if !ok {
		return false
	}
	return start >= openMinute && start+footprintSpan <= closeMinute
}

// TruncateToSlot reduces a stored time value to HH:MM precision, discarding
// any seconds component the store may retain. Unparseable input is returned
// unchanged.
func TruncateToSlot(raw string) string {
	if len(raw) < 5 {
		return raw
	}
	if _, ok := parseMinutes(raw[:5]); !ok {
		return raw
	}
	return raw[:5]
}

func parseMinutes(t string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(t, "%2d:%2d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
