package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"central-backend/internal/registry/application/events"
	registry "central-backend/internal/registry/domain"
)

// EventPublisher decouples the service from the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Service manages the station registry.
type Service struct {
	stations  registry.BTSRepository
	publisher EventPublisher
	logger    *log.Logger
}

// NewService constructs a registry service.
func NewService(stations registry.BTSRepository, publisher EventPublisher, logger *log.Logger) (*Service, error) {
	if stations == nil {
		return nil, errors.New("registry service: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{stations: stations, publisher: publisher, logger: logger}, nil
}

// Register stores a new station. Returns registry.ErrDuplicate when the
// bts id is already registered.
func (s *Service) Register(ctx context.Context, bts *registry.BTS) error {
	if bts == nil {
		return errors.New("registry service: nil bts")
	}
	bts.BTSID = strings.TrimSpace(bts.BTSID)
	bts.Status = strings.TrimSpace(bts.Status)
	if err := bts.Validate(); err != nil {
		return err
	}

	if existing, err := s.stations.FindByBTSID(ctx, bts.BTSID); err != nil && !errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("find station: %w", err)
	} else if existing != nil {
		return fmt.Errorf("%w: %s", registry.ErrDuplicate, bts.BTSID)
	}

	if err := s.stations.Insert(ctx, bts); err != nil {
		return fmt.Errorf("insert station: %w", err)
	}
	s.logger.Printf("registry: registered bts %s (lac %s)", bts.BTSID, bts.LAC)

	s.publish(ctx, events.StationRegistered{
		BTSID:       bts.BTSID,
		LAC:         bts.LAC,
		MaxCapacity: bts.MaxCapacity,
		CurrentLoad: bts.CurrentLoad,
		OccurredAt:  time.Now().UTC(),
	})
	return nil
}

// UpdateStatus sets a station's status. Blank statuses are rejected and
// surrounding whitespace is dropped; a status equal to the stored one
// leaves the station untouched.
func (s *Service) UpdateStatus(ctx context.Context, btsID, status string) (*registry.BTS, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, errors.New("registry service: blank status")
	}

	bts, err := s.stations.FindByBTSID(ctx, btsID)
	if err != nil {
		return nil, err
	}
	if bts.Status == status {
		return bts, nil
	}

	if err := s.stations.UpdateStatus(ctx, btsID, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.logger.Printf("registry: bts %s status %s -> %s", btsID, bts.Status, status)

	s.publish(ctx, events.StationStatusChanged{
		BTSID:       bts.BTSID,
		OldStatus:   bts.Status,
		NewStatus:   status,
		MaxCapacity: bts.MaxCapacity,
		CurrentLoad: bts.CurrentLoad,
		OccurredAt:  time.Now().UTC(),
	})

	bts.Status = status
	bts.UpdatedAt = time.Now().UTC()
	return bts, nil
}

// Get returns one station or registry.ErrNotFound.
func (s *Service) Get(ctx context.Context, btsID string) (*registry.BTS, error) {
	return s.stations.FindByBTSID(ctx, btsID)
}

// List returns all registered stations.
func (s *Service) List(ctx context.Context) ([]registry.BTS, error) {
	return s.stations.List(ctx)
}

func (s *Service) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Printf("registry: publish event: %v", err)
	}
}
