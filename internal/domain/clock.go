package domain

import "time"

// Clock abstracts wall time so cooldowns and projections are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// DateLayout is the ISO calendar date format used on invoices and POs.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO date, also accepting RFC 3339 timestamps and the
// day-first form extraction often produces.
func ParseDate(s string) (time.Time, error) {
	layouts := []string{DateLayout, time.RFC3339, "02/01/2006"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
