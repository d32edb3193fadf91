package memory

import (
	"context"
	"sync"
	"time"

	mobility "central-backend/internal/mobility/domain"
)

// CDRRepository is an in-memory record store used by tests and local
// runs without a database.
type CDRRepository struct {
	mu      sync.Mutex
	records []*mobility.MobilityRecord
	nextID  int64

	// InsertErr and CloseDepartureErr, when set, fail the matching
	// operation. Used to exercise partial-failure paths.
	InsertErr         error
	CloseDepartureErr error
}

// NewCDRRepository constructs an empty in-memory store.
func NewCDRRepository() *CDRRepository {
	return &CDRRepository{nextID: 1}
}

// FindLatestByIMEI returns the record with the latest arrival for the
// device, insertion order breaking ties, or nil.
func (r *CDRRepository) FindLatestByIMEI(_ context.Context, imei string) (*mobility.MobilityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *mobility.MobilityRecord
	for _, record := range r.records {
		if record.IMEI != imei {
			continue
		}
		if latest == nil || record.TimestampArrival.After(latest.TimestampArrival) ||
			(record.TimestampArrival.Equal(latest.TimestampArrival) && record.ID > latest.ID) {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// Insert stores a copy of the record and assigns its id.
func (r *CDRRepository) Insert(_ context.Context, record *mobility.MobilityRecord) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = r.nextID
	r.nextID++
	record.CreatedAt = time.Now().UTC()
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

// CloseDeparture stamps a record's departure, never moving an already
// set departure earlier.
func (r *CDRRepository) CloseDeparture(_ context.Context, id int64, departure time.Time) error {
	if r.CloseDepartureErr != nil {
		return r.CloseDepartureErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.records {
		if record.ID != id {
			continue
		}
		if record.TimestampDeparture == nil || !record.TimestampDeparture.After(departure) {
			value := departure
			record.TimestampDeparture = &value
		}
		return nil
	}
	return nil
}

// CloseDanglingDepartures closes every record that has a successor for
// the same device but no departure.
func (r *CDRRepository) CloseDanglingDepartures(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed int64
	for _, record := range r.records {
		if record.TimestampDeparture != nil {
			continue
		}
		var next *mobility.MobilityRecord
		for _, candidate := range r.records {
			if candidate.IMEI != record.IMEI || candidate.ID == record.ID {
				continue
			}
			if candidate.TimestampArrival.Before(record.TimestampArrival) {
				continue
			}
			if candidate.TimestampArrival.Equal(record.TimestampArrival) && candidate.ID < record.ID {
				continue
			}
			if next == nil || candidate.TimestampArrival.Before(next.TimestampArrival) {
				next = candidate
			}
		}
		if next != nil {
			value := next.TimestampArrival
			record.TimestampDeparture = &value
			closed++
		}
	}
	return closed, nil
}

// Records returns a snapshot of all stored records in insertion order.
func (r *CDRRepository) Records() []mobility.MobilityRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]mobility.MobilityRecord, 0, len(r.records))
	for _, record := range r.records {
		snapshot = append(snapshot, *record)
	}
	return snapshot
}
