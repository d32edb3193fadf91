package analytics

import (
	"context"
	"time"
)

// Alert types and severities.
const (
	AlertAbnormalSpeed = "abnormal speed"
	AlertOverload      = "overload"

	SeverityLow  = "low"
	SeverityHigh = "high"
)

// Alert records one detected anomaly.
type Alert struct {
	ID          int64
	AlertType   string
	Severity    string
	IMEI        string
	BTSID       string
	Description string
	DetectedAt  time.Time
}

// AlertRepository persists alerts.
type AlertRepository interface {
	Insert(ctx context.Context, alert *Alert) error
}
