package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"central-backend/internal/registry/application"
	registry "central-backend/internal/registry/domain"
)

const timeLayout = "2006-01-02T15:04:05"

// Handler serves the station registry under /api/v1/bts.
type Handler struct {
	service *application.Service
	logger  *log.Logger
}

// NewHandler constructs a registry handler.
func NewHandler(service *application.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("bts handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

type btsBody struct {
	ID          int64   `json:"id"`
	BTSID       string  `json:"btsId"`
	LAC         string  `json:"lac"`
	LocationX   float64 `json:"locationX"`
	LocationY   float64 `json:"locationY"`
	Status      string  `json:"status"`
	MaxCapacity int     `json:"maxCapacity"`
	CurrentLoad int     `json:"currentLoad"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type registerRequest struct {
	BTSID       string  `json:"btsId"`
	LAC         string  `json:"lac"`
	LocationX   float64 `json:"locationX"`
	LocationY   float64 `json:"locationY"`
	Status      string  `json:"status"`
	MaxCapacity int     `json:"maxCapacity"`
	CurrentLoad int     `json:"currentLoad"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// ServeHTTP dispatches registry operations by path and method.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/bts"), "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.register(w, r)
	case rest == "":
		w.WriteHeader(http.StatusMethodNotAllowed)
	case strings.HasSuffix(rest, "/status"):
		btsID := strings.TrimSuffix(rest, "/status")
		if btsID == "" || strings.Contains(btsID, "/") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.updateStatus(w, r, btsID)
	case strings.Contains(rest, "/"):
		http.NotFound(w, r)
	case r.Method == http.MethodGet:
		h.get(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Printf("bts list: %v", err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	bodies := make([]btsBody, 0, len(stations))
	for i := range stations {
		bodies = append(bodies, toBTSBody(&stations[i]))
	}
	writeJSON(w, http.StatusOK, bodies)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, btsID string) {
	bts, err := h.service.Get(r.Context(), btsID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Printf("bts get %s: %v", btsID, err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBTSBody(bts))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req registerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	bts := &registry.BTS{
		BTSID:       req.BTSID,
		LAC:         req.LAC,
		LocationX:   req.LocationX,
		LocationY:   req.LocationY,
		Status:      req.Status,
		MaxCapacity: req.MaxCapacity,
		CurrentLoad: req.CurrentLoad,
	}
	if err := h.service.Register(r.Context(), bts); err != nil {
		switch {
		case errors.Is(err, registry.ErrDuplicate):
			http.Error(w, err.Error(), http.StatusConflict)
		case isValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Printf("bts register: %v", err)
			http.Error(w, "register error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toBTSBody(bts))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, btsID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req statusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		http.Error(w, "blank status", http.StatusBadRequest)
		return
	}

	bts, err := h.service.UpdateStatus(r.Context(), btsID, req.Status)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Printf("bts status %s: %v", btsID, err)
		http.Error(w, "update error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBTSBody(bts))
}

func toBTSBody(bts *registry.BTS) btsBody {
	return btsBody{
		ID:          bts.ID,
		BTSID:       bts.BTSID,
		LAC:         bts.LAC,
		LocationX:   bts.LocationX,
		LocationY:   bts.LocationY,
		Status:      bts.Status,
		MaxCapacity: bts.MaxCapacity,
		CurrentLoad: bts.CurrentLoad,
		CreatedAt:   bts.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   bts.UpdatedAt.UTC().Format(timeLayout),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// isValidationError separates invariant violations from infrastructure
// failures. Validation errors originate in the domain package and carry
// a "bts" prefix.
func isValidationError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "bts")
}
