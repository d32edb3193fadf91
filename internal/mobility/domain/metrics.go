package mobility

import (
	"math"
	"time"
)

// Distance returns the Euclidean distance between the arrival locations
// of two records, rounded half-up to 4 decimals. Zero when either
// record has no coordinates: an unknown endpoint short-circuits the
// distance by policy, it is not an error.
func Distance(previous, current *MobilityRecord) float64 {
	if !previous.HasLocation() || !current.HasLocation() {
		return 0
	}
	dx := *current.UserLocationX - *previous.UserLocationX
	dy := *current.UserLocationY - *previous.UserLocationY
	return round4(math.Sqrt(dx*dx + dy*dy))
}

// DurationSeconds returns whole seconds of residence at the previous
// station: its arrival to its departure. Zero when either timestamp is
// absent or the interval is negative.
func DurationSeconds(previous *MobilityRecord) int {
	if previous == nil || previous.TimestampArrival.IsZero() || previous.TimestampDeparture == nil {
		return 0
	}
	seconds := int(previous.TimestampDeparture.Sub(previous.TimestampArrival) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}

// Speed returns distance/duration rounded half-up to 4 decimals, or
// exactly zero when duration is not positive. Division by zero never
// propagates, it degrades to zero.
func Speed(distance float64, durationSeconds int) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return round4(distance / float64(durationSeconds))
}

// round4 rounds a non-negative value half-up to 4 decimal places.
func round4(value float64) float64 {
	return math.Floor(value*10000+0.5) / 10000
}
