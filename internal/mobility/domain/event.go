package mobility

import (
	"errors"
	"time"
)

// Location is a 2D position reported alongside a presence event.
type Location struct {
	X float64
	Y float64
}

// MobilityEvent is a single device presence report from a base station.
// It has no persistence identity: produced once per request, consumed
// immediately by the processor.
type MobilityEvent struct {
	IMEI      string
	MCC       string
	MNC       string
	LAC       string
	BTSID     string
	Timestamp time.Time
	Location  *Location
}

// Validate checks structural event invariants.
func (e MobilityEvent) Validate() error {
	if e.IMEI == "" {
		return errors.New("mobility event: empty imei")
	}
	if e.MCC == "" {
		return errors.New("mobility event: empty mcc")
	}
	if e.MNC == "" {
		return errors.New("mobility event: empty mnc")
	}
	if e.LAC == "" {
		return errors.New("mobility event: empty lac")
	}
	if e.BTSID == "" {
		return errors.New("mobility event: empty bts id")
	}
	if e.Timestamp.IsZero() {
		return errors.New("mobility event: zero timestamp")
	}
	return nil
}
