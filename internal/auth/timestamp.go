package auth

import (
	"time"
)

// TimestampLayout is the accepted request timestamp format: ISO local
// date-time without a zone suffix, interpreted as UTC. The fractional
// part is optional; no other formats are accepted.
const TimestampLayout = "2006-01-02T15:04:05.999999999"

// DefaultMaxDriftSeconds bounds replay exposure while tolerating clock
// skew between station and server.
const DefaultMaxDriftSeconds = 60

// ParseTimestamp converts a timestamp header value to epoch seconds.
func ParseTimestamp(value string) (int64, error) {
	parsed, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		return 0, err
	}
	return parsed.Unix(), nil
}

// IsFresh reports whether ts is within maxDrift seconds of now,
// boundaries inclusive.
func IsFresh(ts, now, maxDrift int64) bool {
	diff := now - ts
	if diff < 0 {
		diff = -diff
	}
	return diff <= maxDrift
}
