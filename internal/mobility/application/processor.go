package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"central-backend/internal/mobility/application/events"
	mobility "central-backend/internal/mobility/domain"
	"central-backend/internal/observability/metrics"
)

// EventPublisher decouples the processor from the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// PreviousLocation identifies where a device was last seen.
type PreviousLocation struct {
	BTSID    string
	LAC      string
	LastSeen time.Time
}

// EventOutcome reports the created record and, if one existed, the
// device's previous position.
type EventOutcome struct {
	CDRID    int64
	Previous *PreviousLocation
}

// EventProcessor turns presence events into mobility records: it finds
// the device's last known position, computes motion metrics against it,
// persists the new record and closes the previous one's departure.
type EventProcessor struct {
	records   mobility.RecordRepository
	publisher EventPublisher
	logger    *log.Logger
	locks     keyedMutex
}

// NewEventProcessor constructs an event processor.
func NewEventProcessor(records mobility.RecordRepository, publisher EventPublisher, logger *log.Logger) (*EventProcessor, error) {
	if records == nil {
		return nil, errors.New("mobility processor: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EventProcessor{records: records, publisher: publisher, logger: logger}, nil
}

// Process records a presence event. Events for one IMEI are processed
// strictly one after the other so that every record except a device's
// first is computed against its true immediate predecessor; events for
// different devices do not contend.
func (p *EventProcessor) Process(ctx context.Context, event mobility.MobilityEvent) (EventOutcome, error) {
	if err := event.Validate(); err != nil {
		return EventOutcome{}, err
	}

	unlock := p.locks.Lock(event.IMEI)
	defer unlock()

	previous, err := p.records.FindLatestByIMEI(ctx, event.IMEI)
	if err != nil {
		return EventOutcome{}, fmt.Errorf("find latest record: %w", err)
	}

	record := newRecord(event)
	if previous != nil {
		attachMetrics(record, previous, event.Timestamp)
	}

	if err := p.records.Insert(ctx, record); err != nil {
		return EventOutcome{}, fmt.Errorf("insert record: %w", err)
	}
	metrics.IncRecordCreated()

	if previous != nil {
		if err := p.records.CloseDeparture(ctx, previous.ID, event.Timestamp); err != nil {
			// The new record stays: it is the authoritative current
			// location. Reconciliation closes the dangling departure.
			metrics.IncDepartureCloseFailure()
			p.logger.Printf("mobility: record %d saved but departure of %d not closed: %v", record.ID, previous.ID, err)
			return EventOutcome{}, fmt.Errorf("%w: %v", mobility.ErrDepartureNotClosed, err)
		}
	}

	p.logger.Printf("mobility: created record %d for imei %s at bts %s", record.ID, event.IMEI, event.BTSID)
	p.publishCreated(ctx, record)

	outcome := EventOutcome{CDRID: record.ID}
	if previous != nil {
		outcome.Previous = &PreviousLocation{
			BTSID:    previous.BTSID,
			LAC:      previous.LAC,
			LastSeen: previous.TimestampArrival,
		}
	}
	return outcome, nil
}

func newRecord(event mobility.MobilityEvent) *mobility.MobilityRecord {
	record := &mobility.MobilityRecord{
		IMEI:             event.IMEI,
		MCC:              event.MCC,
		MNC:              event.MNC,
		LAC:              event.LAC,
		BTSID:            event.BTSID,
		TimestampArrival: event.Timestamp,
	}
	if event.Location != nil {
		x, y := event.Location.X, event.Location.Y
		record.UserLocationX = &x
		record.UserLocationY = &y
	}
	return record
}

// attachMetrics fills the derived fields of record from its
// predecessor. Duration measures residence at the previous station, so
// the previous departure is stamped (monotonically) before computing.
func attachMetrics(record, previous *mobility.MobilityRecord, departure time.Time) {
	previousBTS := previous.BTSID
	record.PreviousBTSID = &previousBTS

	closed := *previous
	if closed.TimestampDeparture == nil || closed.TimestampDeparture.Before(departure) {
		closed.TimestampDeparture = &departure
	}

	distance := mobility.Distance(previous, record)
	duration := mobility.DurationSeconds(&closed)
	speed := mobility.Speed(distance, duration)
	record.Distance = &distance
	record.DurationSeconds = &duration
	record.Speed = &speed
}

func (p *EventProcessor) publishCreated(ctx context.Context, record *mobility.MobilityRecord) {
	if p.publisher == nil {
		return
	}
	event := events.RecordCreated{
		CDRID:      record.ID,
		IMEI:       record.IMEI,
		BTSID:      record.BTSID,
		Speed:      record.Speed,
		OccurredAt: record.TimestampArrival,
	}
	if record.PreviousBTSID != nil {
		event.PreviousBTSID = *record.PreviousBTSID
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Printf("mobility: publish record created: %v", err)
	}
}
