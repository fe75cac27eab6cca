// Package pricing computes the fee quote for a (service, time) selection.
// Every function is pure; the caller re-derives the quote whenever the
// selection changes.
package pricing

import (
	"strconv"
	"strings"

	"github.com/vic-it/epm-booking/internal/model"
)

const (
	softGlamFee        = 50
	fullGlamFee        = 60
	earlyLateSurcharge = 15

	// Normal-rate window is [09:00, 17:00); outside it the surcharge applies.
	normalRateStartHour = 9
	normalRateEndHour   = 17
)

// Quote is the derived fee breakdown in whole euros. It is ephemeral: it is
// recomputed from its inputs and only persisted as part of a booking record.
type Quote struct {
	ServiceFee   int `json:"service_fee"`
	EarlyLateFee int `json:"early_late_fee"`
	Total        int `json:"total"`
}

// ServiceFee maps a service selection to its base fee. Unknown or empty
// selections price at zero; the form validates the selection separately.
func ServiceFee(service string) int {
	switch service {
	case model.ServiceSoftGlam:
		return softGlamFee
	case model.ServiceFullGlam:
		return fullGlamFee
	default:
		return 0
	}
}

// EarlyLateFee returns the surcharge for a HH:MM start time before 09:00 or at
// 17:00 and later. A time that does not parse prices as normal-rate.
func EarlyLateFee(t string) int {
	hour, ok := parseHour(t)
	if !ok {
		return 0
	}
	if hour < normalRateStartHour || hour >= normalRateEndHour {
		return earlyLateSurcharge
	}
	return 0
}

// QuoteFor derives the full fee breakdown for a selection.
func QuoteFor(service, t string) Quote {
	serviceFee := ServiceFee(service)
	earlyLate := EarlyLateFee(t)
	return Quote{
		ServiceFee:   serviceFee,
		EarlyLateFee: earlyLate,
		Total:        serviceFee + earlyLate,
	}
}

func parseHour(t string) (int, bool) {
	h, _, found := strings.Cut(t, ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	return hour, true
}
