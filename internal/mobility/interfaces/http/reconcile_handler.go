package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"central-backend/internal/mobility/application"
)

// ReconcileHandler triggers a reconciliation pass on POST /api/v1/reconcile.
type ReconcileHandler struct {
	reconciler *application.Reconciler
	logger     *log.Logger
}

// NewReconcileHandler constructs a reconcile handler.
func NewReconcileHandler(reconciler *application.Reconciler, logger *log.Logger) (*ReconcileHandler, error) {
	if reconciler == nil {
		return nil, errors.New("reconcile handler: nil reconciler")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcileHandler{reconciler: reconciler, logger: logger}, nil
}

type reconcileResponse struct {
	Status string `json:"status"`
	Closed int64  `json:"closed"`
}

// ServeHTTP runs one pass and reports how many departures were closed.
func (h *ReconcileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	closed, err := h.reconciler.Run(r.Context())
	if err != nil {
		h.logger.Printf("reconcile: %v", err)
		http.Error(w, "reconcile error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reconcileResponse{Status: "success", Closed: closed})
}
