package mobility

import (
	"context"
	"errors"
	"time"
)

// ErrDepartureNotClosed is returned when a new record was persisted but
// the previous record's departure could not be closed. The new record
// is retained; reconciliation closes the gap later.
var ErrDepartureNotClosed = errors.New("mobility: previous departure not closed")

// MobilityRecord is one CDR row: a device's period of residence at a
// station. It is created once per accepted event and mutated exactly
// once afterward, when a later event sets its departure timestamp.
type MobilityRecord struct {
	ID            int64
	IMEI          string
	MCC           string
	MNC           string
	LAC           string
	BTSID         string
	PreviousBTSID *string

	TimestampArrival   time.Time
	TimestampDeparture *time.Time

	UserLocationX *float64
	UserLocationY *float64

	// Derived motion metrics. Either all set (computed together from
	// the same previous/current pair) or all nil on a device's first
	// observed appearance.
	Distance        *float64
	Speed           *float64
	DurationSeconds *int

	CreatedAt time.Time
}

// HasLocation reports whether arrival coordinates were stored.
func (r *MobilityRecord) HasLocation() bool {
	return r != nil && r.UserLocationX != nil && r.UserLocationY != nil
}

// RecordRepository is the durable store of per-device mobility records.
type RecordRepository interface {
	// FindLatestByIMEI returns the record with the latest arrival
	// timestamp for the device, ties broken by insertion order
	// most-recent-first, or nil when the device was never seen.
	FindLatestByIMEI(ctx context.Context, imei string) (*MobilityRecord, error)

	// Insert persists a new record and fills its store-assigned ID and
	// CreatedAt.
	Insert(ctx context.Context, record *MobilityRecord) error

	// CloseDeparture sets the record's departure timestamp. An already
	// set departure is never moved earlier.
	CloseDeparture(ctx context.Context, id int64, departure time.Time) error
}
