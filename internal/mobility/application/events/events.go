package events

import "time"

// RecordCreated is published after a mobility record has been
// persisted. Speed is nil on a device's first observed appearance.
type RecordCreated struct {
	CDRID         int64
	IMEI          string
	BTSID         string
	PreviousBTSID string
	Speed         *float64
	OccurredAt    time.Time
}
