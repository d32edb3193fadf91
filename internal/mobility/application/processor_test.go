package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"central-backend/internal/mobility/application/events"
	mobility "central-backend/internal/mobility/domain"
	"central-backend/internal/mobility/infrastructure/memory"
)

var testLogger = log.New(io.Discard, "", 0)

type capturingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *capturingPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func testEvent(imei, btsID string, ts time.Time, loc *mobility.Location) mobility.MobilityEvent {
	return mobility.MobilityEvent{
		IMEI:      imei,
		MCC:       "260",
		MNC:       "01",
		LAC:       "10101",
		BTSID:     btsID,
		Timestamp: ts,
		Location:  loc,
	}
}

func TestProcessFirstSighting(t *testing.T) {
	repo := memory.NewCDRRepository()
	processor, err := NewEventProcessor(repo, nil, testLogger)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	ts := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	outcome, err := processor.Process(context.Background(), testEvent("356938035643809", "BTS-1", ts, &mobility.Location{X: 0, Y: 0}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Previous != nil {
		t.Fatalf("expected nil previous on first sighting, got %+v", outcome.Previous)
	}
	if outcome.CDRID == 0 {
		t.Fatal("expected store-assigned cdr id")
	}

	records := repo.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.PreviousBTSID != nil {
		t.Fatalf("expected nil previous bts, got %v", *record.PreviousBTSID)
	}
	if record.Distance != nil || record.Speed != nil || record.DurationSeconds != nil {
		t.Fatal("expected derived fields nil on first sighting")
	}
	if record.TimestampDeparture != nil {
		t.Fatal("expected open departure on newest record")
	}
}

func TestProcessComputesMotionMetrics(t *testing.T) {
	repo := memory.NewCDRRepository()
	publisher := &capturingPublisher{}
	processor, err := NewEventProcessor(repo, publisher, testLogger)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	t0 := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Second)
	ctx := context.Background()

	if _, err := processor.Process(ctx, testEvent("356938035643809", "BTS-1", t0, &mobility.Location{X: 0, Y: 0})); err != nil {
		t.Fatalf("first event: %v", err)
	}
	outcome, err := processor.Process(ctx, testEvent("356938035643809", "BTS-2", t1, &mobility.Location{X: 3, Y: 4}))
	if err != nil {
		t.Fatalf("second event: %v", err)
	}

	if outcome.Previous == nil {
		t.Fatal("expected previous location")
	}
	if outcome.Previous.BTSID != "BTS-1" {
		t.Fatalf("expected previous bts BTS-1, got %s", outcome.Previous.BTSID)
	}
	if !outcome.Previous.LastSeen.Equal(t0) {
		t.Fatalf("expected last seen %v, got %v", t0, outcome.Previous.LastSeen)
	}

	records := repo.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first, second := records[0], records[1]

	if first.TimestampDeparture == nil || !first.TimestampDeparture.Equal(t1) {
		t.Fatalf("expected first record departure %v, got %v", t1, first.TimestampDeparture)
	}
	if second.PreviousBTSID == nil || *second.PreviousBTSID != "BTS-1" {
		t.Fatalf("expected previous bts BTS-1 on second record")
	}
	if second.Distance == nil || *second.Distance != 5.0 {
		t.Fatalf("expected distance 5, got %v", second.Distance)
	}
	if second.DurationSeconds == nil || *second.DurationSeconds != 10 {
		t.Fatalf("expected duration 10, got %v", second.DurationSeconds)
	}
	if second.Speed == nil || *second.Speed != 0.5 {
		t.Fatalf("expected speed 0.5, got %v", second.Speed)
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	created, ok := publisher.events[1].(events.RecordCreated)
	if !ok {
		t.Fatalf("expected RecordCreated, got %T", publisher.events[1])
	}
	if created.PreviousBTSID != "BTS-1" || created.Speed == nil || *created.Speed != 0.5 {
		t.Fatalf("unexpected published event: %+v", created)
	}
}

func TestProcessDerivedZerosWithoutCoordinates(t *testing.T) {
	repo := memory.NewCDRRepository()
	processor, err := NewEventProcessor(repo, nil, testLogger)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	t0 := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Second)
	ctx := context.Background()

	if _, err := processor.Process(ctx, testEvent("356938035643809", "BTS-1", t0, nil)); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if _, err := processor.Process(ctx, testEvent("356938035643809", "BTS-2", t1, &mobility.Location{X: 3, Y: 4})); err != nil {
		t.Fatalf("second event: %v", err)
	}

	records := repo.Records()
	second := records[1]
	if second.Distance == nil || *second.Distance != 0 {
		t.Fatalf("expected distance 0 without previous coordinates, got %v", second.Distance)
	}
	if second.DurationSeconds == nil || *second.DurationSeconds != 30 {
		t.Fatalf("expected duration 30, got %v", second.DurationSeconds)
	}
	if second.Speed == nil || *second.Speed != 0 {
		t.Fatalf("expected speed 0, got %v", second.Speed)
	}
}

func TestProcessPartialFailureKeepsRecord(t *testing.T) {
	repo := memory.NewCDRRepository()
	processor, err := NewEventProcessor(repo, nil, testLogger)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	t0 := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	if _, err := processor.Process(ctx, testEvent("356938035643809", "BTS-1", t0, nil)); err != nil {
		t.Fatalf("first event: %v", err)
	}

	repo.CloseDepartureErr = errors.New("connection reset")
	_, err = processor.Process(ctx, testEvent("356938035643809", "BTS-2", t0.Add(time.Minute), nil))
	if !errors.Is(err, mobility.ErrDepartureNotClosed) {
		t.Fatalf("expected ErrDepartureNotClosed, got %v", err)
	}

	records := repo.Records()
	if len(records) != 2 {
		t.Fatalf("expected new record retained, got %d records", len(records))
	}
	if records[0].TimestampDeparture != nil {
		t.Fatal("expected previous departure still open")
	}
}

func TestProcessSerializesPerIMEI(t *testing.T) {
	repo := memory.NewCDRRepository()
	processor, err := NewEventProcessor(repo, nil, testLogger)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	base := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event := testEvent("356938035643809", fmt.Sprintf("BTS-%d", i), base.Add(time.Duration(i)*time.Second), nil)
			if _, err := processor.Process(context.Background(), event); err != nil {
				t.Errorf("process %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	records := repo.Records()
	if len(records) != n {
		t.Fatalf("expected %d records, got %d", n, len(records))
	}
	// Serialized processing means exactly one event, the first processed,
	// observes an empty history; every other one sees a predecessor.
	withoutPrevious := 0
	for _, record := range records {
		if record.PreviousBTSID == nil {
			withoutPrevious++
		}
	}
	if withoutPrevious != 1 {
		t.Fatalf("expected exactly one record without a predecessor, got %d", withoutPrevious)
	}
}

func TestProcessRejectsInvalidEvent(t *testing.T) {
	repo := memory.NewCDRRepository()
	processor, err := NewEventProcessor(repo, nil, testLogger)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	event := testEvent("", "BTS-1", time.Now().UTC(), nil)
	if _, err := processor.Process(context.Background(), event); err == nil {
		t.Fatal("expected validation error")
	}
	if len(repo.Records()) != 0 {
		t.Fatal("expected no records persisted")
	}
}
