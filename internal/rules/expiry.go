// Package rules holds the pure policy lifecycle logic: expiry classification
// and the day arithmetic behind it. No I/O, callable from inside repository
// transactions.
package rules

import "time"

// ExpiryStatus is the derived three-state classification of a policy.
type ExpiryStatus string

const (
	// StatusVigente: more than ExpiryWindowDays until expiration.
	StatusVigente ExpiryStatus = "vigente"
	// StatusPorVencer: expires within ExpiryWindowDays, including today.
	StatusPorVencer ExpiryStatus = "por_vencer"
	// StatusVencida: expiration date is strictly before today.
	StatusVencida ExpiryStatus = "vencida"
)

// ExpiryWindowDays is the default alert window for expiring policies.
const ExpiryWindowDays = 30

// DaysUntil returns the number of whole days from today until expiration,
// comparing calendar dates (both truncated to UTC midnight). Negative for
// past dates, zero for a policy expiring today.
func DaysUntil(expiration, today time.Time) int {
	e := truncateToDate(expiration)
	t := truncateToDate(today)
	return int(e.Sub(t) / (24 * time.Hour))
}

// Classify derives the expiry status of a policy from its expiration date and
// the current date. The boundary is inclusive on the today side: a policy
// expiring today is por_vencer, not vencida.
func Classify(expiration, today time.Time) ExpiryStatus {
	days := DaysUntil(expiration, today)
	switch {
	case days < 0:
		return StatusVencida
	case days <= ExpiryWindowDays:
		return StatusPorVencer
	default:
		return StatusVigente
	}
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
