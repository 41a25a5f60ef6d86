// Package keys builds the cache key namespace for aggregate views. Fixed
// views use constant keys; parameterized views append a sanitized segment
// plus an xxhash of the raw parameters so distinct inputs can never collide
// after sanitization.
package keys

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// AllCustomerDeliveries is the single global customers+deliveries join.
	AllCustomerDeliveries = "allCustomerDeliveries"

	// CustomerMapStatusToday is the volatile per-day map view.
	CustomerMapStatusToday = "customerMapStatus:today"

	// AnalyticsLast7 is the all-customers last-7-days strip.
	AnalyticsLast7 = "analyticsLast7"

	rangeSummaryPrefix = "rangeSummary:"
)

// CustomerDeliveries keys the per-customer delivery join.
func CustomerDeliveries(customerID string) string {
	return "userDeliveries:" + sanitize(customerID)
}

// RangeSummary keys a date-range summary by its day-key bounds.
func RangeSummary(startKey, endKey string) string {
	raw := startKey + ".." + endKey
	return fmt.Sprintf("%s%s:h=%016x", rangeSummaryPrefix, sanitize(raw), xxhash.Sum64String(raw))
}

// sanitize keeps keys printable and single-token. Anything outside
// [A-Za-z0-9._-] becomes '-'; runs collapse.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := r
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			out = '-'
		}
		if out == '-' && prev == '-' {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}
