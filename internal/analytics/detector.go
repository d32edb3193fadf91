package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"central-backend/internal/eventing"
	mobilityevents "central-backend/internal/mobility/application/events"
	"central-backend/internal/observability/metrics"
	registryevents "central-backend/internal/registry/application/events"
)

// Detector inspects domain events for anomalies and persists alerts.
// Detection is best-effort: a failed alert write is logged and never
// fails the operation that produced the event.
type Detector struct {
	cfg    Config
	alerts AlertRepository
	logger *log.Logger
}

// NewDetector constructs a detector.
func NewDetector(cfg Config, alerts AlertRepository, logger *log.Logger) (*Detector, error) {
	if alerts == nil {
		return nil, errors.New("detector: nil alert repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{cfg: cfg, alerts: alerts, logger: logger}, nil
}

// Register subscribes the detector to the bus.
func (d *Detector) Register(bus *eventing.InMemoryBus) {
	bus.Subscribe(eventing.TypeOf[mobilityevents.RecordCreated](), func(ctx context.Context, event any) error {
		if created, ok := event.(mobilityevents.RecordCreated); ok {
			d.HandleRecordCreated(ctx, created)
		}
		return nil
	})
	bus.Subscribe(eventing.TypeOf[registryevents.StationRegistered](), func(ctx context.Context, event any) error {
		if registered, ok := event.(registryevents.StationRegistered); ok {
			d.HandleStationRegistered(ctx, registered)
		}
		return nil
	})
	bus.Subscribe(eventing.TypeOf[registryevents.StationStatusChanged](), func(ctx context.Context, event any) error {
		if changed, ok := event.(registryevents.StationStatusChanged); ok {
			d.HandleStationStatusChanged(ctx, changed)
		}
		return nil
	})
}

// HandleRecordCreated flags implausible movement speed.
func (d *Detector) HandleRecordCreated(ctx context.Context, event mobilityevents.RecordCreated) {
	if event.Speed == nil || *event.Speed <= d.cfg.SpeedLimit {
		return
	}
	d.raise(ctx, &Alert{
		AlertType:   AlertAbnormalSpeed,
		Severity:    SeverityLow,
		IMEI:        event.IMEI,
		BTSID:       event.BTSID,
		Description: fmt.Sprintf("speed %.4f exceeds limit %.0f (from bts %s)", *event.Speed, d.cfg.SpeedLimit, event.PreviousBTSID),
		DetectedAt:  event.OccurredAt,
	})
}

// HandleStationRegistered flags stations registered already overloaded.
func (d *Detector) HandleStationRegistered(ctx context.Context, event registryevents.StationRegistered) {
	d.checkLoad(ctx, event.BTSID, event.CurrentLoad, event.OccurredAt)
}

// HandleStationStatusChanged flags overloaded stations on status updates.
func (d *Detector) HandleStationStatusChanged(ctx context.Context, event registryevents.StationStatusChanged) {
	d.checkLoad(ctx, event.BTSID, event.CurrentLoad, event.OccurredAt)
}

func (d *Detector) checkLoad(ctx context.Context, btsID string, load int, at time.Time) {
	if load <= d.cfg.OverloadLoad {
		return
	}
	d.raise(ctx, &Alert{
		AlertType:   AlertOverload,
		Severity:    SeverityHigh,
		BTSID:       btsID,
		Description: fmt.Sprintf("load %d exceeds threshold %d", load, d.cfg.OverloadLoad),
		DetectedAt:  at,
	})
}

func (d *Detector) raise(ctx context.Context, alert *Alert) {
	if alert.DetectedAt.IsZero() {
		alert.DetectedAt = time.Now().UTC()
	}
	if err := d.alerts.Insert(ctx, alert); err != nil {
		d.logger.Printf("analytics: store %s alert: %v", alert.AlertType, err)
		return
	}
	metrics.IncAnomalyAlert(alert.AlertType)
	d.logger.Printf("analytics: %s alert (%s) for bts %s", alert.AlertType, alert.Severity, alert.BTSID)
}
