package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	registry "central-backend/internal/registry/domain"
)

// BTSRepository is an in-memory station store used by tests and local
// runs without a database.
type BTSRepository struct {
	mu       sync.Mutex
	stations map[string]*registry.BTS
	nextID   int64
}

// NewBTSRepository constructs an empty in-memory store.
func NewBTSRepository() *BTSRepository {
	return &BTSRepository{stations: make(map[string]*registry.BTS), nextID: 1}
}

// FindByBTSID returns a copy of the station or registry.ErrNotFound.
func (r *BTSRepository) FindByBTSID(_ context.Context, btsID string) (*registry.BTS, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bts, ok := r.stations[btsID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, btsID)
	}
	copied := *bts
	return &copied, nil
}

// Insert stores a copy of the station and assigns its id.
func (r *BTSRepository) Insert(_ context.Context, bts *registry.BTS) error {
	if err := bts.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stations[bts.BTSID]; ok {
		return fmt.Errorf("%w: %s", registry.ErrDuplicate, bts.BTSID)
	}
	bts.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	bts.CreatedAt = now
	bts.UpdatedAt = now
	copied := *bts
	r.stations[bts.BTSID] = &copied
	return nil
}

// UpdateStatus sets the station's status and bumps updated_at.
func (r *BTSRepository) UpdateStatus(_ context.Context, btsID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bts, ok := r.stations[btsID]
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, btsID)
	}
	bts.Status = status
	bts.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns all stations ordered by bts id.
func (r *BTSRepository) List(_ context.Context) ([]registry.BTS, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stations := make([]registry.BTS, 0, len(r.stations))
	for _, bts := range r.stations {
		stations = append(stations, *bts)
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].BTSID < stations[j].BTSID
	})
	return stations, nil
}
