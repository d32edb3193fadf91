package events

import "time"

// StationRegistered is published after a new station has been stored.
type StationRegistered struct {
	BTSID       string
	LAC         string
	MaxCapacity int
	CurrentLoad int
	OccurredAt  time.Time
}

// StationStatusChanged is published after a status update that changed
// the stored value.
type StationStatusChanged struct {
	BTSID       string
	OldStatus   string
	NewStatus   string
	MaxCapacity int
	CurrentLoad int
	OccurredAt  time.Time
}
