package application

import (
	"context"
	"errors"
	"log"

	"central-backend/internal/observability/metrics"
)

// ReconcileStore closes departures left open by partial failures.
type ReconcileStore interface {
	// CloseDanglingDepartures stamps the departure of every record that
	// has a successor for the same IMEI but no departure, using the
	// earliest successor's arrival. Returns how many were closed.
	CloseDanglingDepartures(ctx context.Context) (int64, error)
}

// Reconciler repairs records whose close-out failed after the new
// record had already been persisted.
type Reconciler struct {
	store  ReconcileStore
	logger *log.Logger
}

// NewReconciler constructs a reconciler.
func NewReconciler(store ReconcileStore, logger *log.Logger) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("reconciler: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{store: store, logger: logger}, nil
}

// Run performs one reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) (int64, error) {
	closed, err := r.store.CloseDanglingDepartures(ctx)
	if err != nil {
		metrics.ObserveReconcile(metrics.IngestResultError, 0)
		return 0, err
	}
	metrics.ObserveReconcile(metrics.IngestResultSuccess, closed)
	if closed > 0 {
		r.logger.Printf("reconcile: closed %d dangling departures", closed)
	}
	return closed, nil
}
