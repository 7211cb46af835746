// Package reminder decides when COI expiry reminders are due and dispatches them.
package reminder

import (
	"slices"
	"time"

	"coiapi/internal/compliance"
)

// NextThreshold returns the warning threshold that applies for a certificate
// expiring at expiry: the largest t in warningDays with daysUntilExpiry >= t.
// It reports false once the certificate has expired (that is a compliance
// failure, not a reminder) or when no threshold qualifies.
//
// The function is stateless. Callers invoke it once per day and remember which
// thresholds already fired so each one produces a single reminder.
func NextThreshold(expiry time.Time, warningDays []int, now time.Time) (int, bool) {
	days := compliance.DaysUntil(expiry, now)
	if days < 0 {
		return 0, false
	}
	sorted := slices.Clone(warningDays)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	for _, t := range sorted {
		if t > 0 && days >= t {
			return t, true
		}
	}
	return 0, false
}
