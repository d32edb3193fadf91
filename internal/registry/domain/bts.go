package registry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a lookup for a station that is not registered.
var ErrNotFound = errors.New("bts: not found")

// ErrDuplicate reports a registration for an already known station id.
var ErrDuplicate = errors.New("bts: duplicate")

// BTS is a registered base transceiver station.
type BTS struct {
	ID          int64
	BTSID       string
	LAC         string
	LocationX   float64
	LocationY   float64
	Status      string
	MaxCapacity int
	CurrentLoad int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks station invariants.
func (b BTS) Validate() error {
	if b.BTSID == "" {
		return errors.New("bts: empty bts id")
	}
	if b.LAC == "" {
		return errors.New("bts: empty lac")
	}
	if b.Status == "" {
		return errors.New("bts: empty status")
	}
	if b.MaxCapacity <= 0 {
		return fmt.Errorf("bts %s: max capacity must be positive", b.BTSID)
	}
	if b.CurrentLoad < 0 || b.CurrentLoad > b.MaxCapacity {
		return fmt.Errorf("bts %s: current load out of range", b.BTSID)
	}
	return nil
}

// BTSRepository manages station persistence.
type BTSRepository interface {
	// FindByBTSID returns the station or ErrNotFound.
	FindByBTSID(ctx context.Context, btsID string) (*BTS, error)
	// Insert stores a new station and fills ID, CreatedAt and UpdatedAt.
	// Returns ErrDuplicate when the bts id is already registered.
	Insert(ctx context.Context, bts *BTS) error
	// UpdateStatus sets the station's status and bumps updated_at.
	// Returns ErrNotFound when the station is absent.
	UpdateStatus(ctx context.Context, btsID, status string) error
	// List returns all stations ordered by bts id.
	List(ctx context.Context) ([]BTS, error)
}
