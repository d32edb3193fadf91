package analytics

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"central-backend/internal/eventing"
	mobilityevents "central-backend/internal/mobility/application/events"
	registryevents "central-backend/internal/registry/application/events"
)

type memoryAlerts struct {
	mu     sync.Mutex
	alerts []Alert

	insertErr error
}

func (m *memoryAlerts) Insert(_ context.Context, alert *Alert) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	alert.ID = int64(len(m.alerts) + 1)
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *memoryAlerts) snapshot() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}

func newTestDetector(t *testing.T) (*Detector, *memoryAlerts) {
	t.Helper()
	alerts := &memoryAlerts{}
	detector, err := NewDetector(Config{SpeedLimit: 200, OverloadLoad: 50}, alerts, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	return detector, alerts
}

func speedEvent(speed float64) mobilityevents.RecordCreated {
	return mobilityevents.RecordCreated{
		CDRID:         1,
		IMEI:          "356938035643809",
		BTSID:         "BTS-2",
		PreviousBTSID: "BTS-1",
		Speed:         &speed,
		OccurredAt:    time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestDetectorFlagsAbnormalSpeed(t *testing.T) {
	detector, alerts := newTestDetector(t)

	detector.HandleRecordCreated(context.Background(), speedEvent(200.5))

	stored := alerts.snapshot()
	if len(stored) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(stored))
	}
	alert := stored[0]
	if alert.AlertType != AlertAbnormalSpeed || alert.Severity != SeverityLow {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if alert.IMEI != "356938035643809" || alert.BTSID != "BTS-2" {
		t.Fatalf("unexpected alert subject: %+v", alert)
	}
}

func TestDetectorIgnoresSpeedAtLimit(t *testing.T) {
	detector, alerts := newTestDetector(t)

	detector.HandleRecordCreated(context.Background(), speedEvent(200))
	detector.HandleRecordCreated(context.Background(), mobilityevents.RecordCreated{IMEI: "x", BTSID: "y"})

	if stored := alerts.snapshot(); len(stored) != 0 {
		t.Fatalf("expected no alerts, got %d", len(stored))
	}
}

func TestDetectorFlagsOverload(t *testing.T) {
	detector, alerts := newTestDetector(t)

	detector.HandleStationStatusChanged(context.Background(), registryevents.StationStatusChanged{
		BTSID:       "BTS-1",
		OldStatus:   "active",
		NewStatus:   "maintenance",
		MaxCapacity: 100,
		CurrentLoad: 51,
		OccurredAt:  time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	})

	stored := alerts.snapshot()
	if len(stored) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(stored))
	}
	if stored[0].AlertType != AlertOverload || stored[0].Severity != SeverityHigh {
		t.Fatalf("unexpected alert: %+v", stored[0])
	}
}

func TestDetectorIgnoresLoadAtThreshold(t *testing.T) {
	detector, alerts := newTestDetector(t)

	detector.HandleStationRegistered(context.Background(), registryevents.StationRegistered{
		BTSID:       "BTS-1",
		CurrentLoad: 50,
	})

	if stored := alerts.snapshot(); len(stored) != 0 {
		t.Fatalf("expected no alerts, got %d", len(stored))
	}
}

func TestDetectorViaBus(t *testing.T) {
	detector, alerts := newTestDetector(t)
	bus := eventing.NewInMemoryBus()
	detector.Register(bus)

	if err := bus.Publish(context.Background(), speedEvent(300)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(context.Background(), registryevents.StationRegistered{BTSID: "BTS-9", CurrentLoad: 80}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	stored := alerts.snapshot()
	if len(stored) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(stored))
	}
}

func TestDetectorInsertFailureDoesNotPropagate(t *testing.T) {
	alerts := &memoryAlerts{insertErr: context.DeadlineExceeded}
	detector, err := NewDetector(Config{SpeedLimit: 200, OverloadLoad: 50}, alerts, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	bus := eventing.NewInMemoryBus()
	detector.Register(bus)

	if err := bus.Publish(context.Background(), speedEvent(300)); err != nil {
		t.Fatalf("expected best-effort detection, got %v", err)
	}
}
