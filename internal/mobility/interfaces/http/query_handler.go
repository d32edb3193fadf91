package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	mobility "central-backend/internal/mobility/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RecordReader serves fixed-order CDR lookups.
type RecordReader interface {
	ListRecent(ctx context.Context, limit, offset int) ([]mobility.MobilityRecord, error)
	ListByIMEI(ctx context.Context, imei string, limit, offset int) ([]mobility.MobilityRecord, error)
	ListByBTS(ctx context.Context, btsID string, limit, offset int) ([]mobility.MobilityRecord, error)
	ListByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]mobility.MobilityRecord, error)
}

// LatestFinder resolves a device's most recent record.
type LatestFinder interface {
	FindLatestByIMEI(ctx context.Context, imei string) (*mobility.MobilityRecord, error)
}

// QueryHandler serves GET /api/v1/cdr and its sub-paths.
type QueryHandler struct {
	reader RecordReader
	latest LatestFinder
	logger *log.Logger
}

// NewQueryHandler constructs a query handler.
func NewQueryHandler(reader RecordReader, latest LatestFinder, logger *log.Logger) (*QueryHandler, error) {
	if reader == nil {
		return nil, errors.New("cdr query handler: nil reader")
	}
	if latest == nil {
		return nil, errors.New("cdr query handler: nil latest finder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &QueryHandler{reader: reader, latest: latest, logger: logger}, nil
}

type recordBody struct {
	ID                 int64    `json:"id"`
	IMEI               string   `json:"imei"`
	MCC                string   `json:"mcc"`
	MNC                string   `json:"mnc"`
	LAC                string   `json:"lac"`
	BTSID              string   `json:"btsId"`
	PreviousBTSID      *string  `json:"previousBtsId"`
	TimestampArrival   string   `json:"timestampArrival"`
	TimestampDeparture *string  `json:"timestampDeparture"`
	UserLocationX      *float64 `json:"userLocationX"`
	UserLocationY      *float64 `json:"userLocationY"`
	Distance           *float64 `json:"distance"`
	Speed              *float64 `json:"speed"`
	Duration           *int     `json:"duration"`
	CreatedAt          string   `json:"createdAt"`
}

// ServeHTTP dispatches CDR lookups by sub-path.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/cdr"), "/")
	limit, offset, err := parsePage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case rest == "":
		h.list(w, r, func(ctx context.Context) ([]mobility.MobilityRecord, error) {
			return h.reader.ListRecent(ctx, limit, offset)
		})
	case rest == "time-range":
		start, err := parseTimeQuery(r, "start")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		end, err := parseTimeQuery(r, "end")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if end.Before(start) {
			http.Error(w, "end must not be before start", http.StatusBadRequest)
			return
		}
		h.list(w, r, func(ctx context.Context) ([]mobility.MobilityRecord, error) {
			return h.reader.ListByTimeRange(ctx, start, end, limit, offset)
		})
	case strings.HasPrefix(rest, "imei/"):
		imei := strings.TrimPrefix(rest, "imei/")
		if suffix, ok := strings.CutSuffix(imei, "/latest"); ok {
			h.serveLatest(w, r, suffix)
			return
		}
		if imei == "" || strings.Contains(imei, "/") {
			http.NotFound(w, r)
			return
		}
		h.list(w, r, func(ctx context.Context) ([]mobility.MobilityRecord, error) {
			return h.reader.ListByIMEI(ctx, imei, limit, offset)
		})
	case strings.HasPrefix(rest, "bts/"):
		btsID := strings.TrimPrefix(rest, "bts/")
		if btsID == "" || strings.Contains(btsID, "/") {
			http.NotFound(w, r)
			return
		}
		h.list(w, r, func(ctx context.Context) ([]mobility.MobilityRecord, error) {
			return h.reader.ListByBTS(ctx, btsID, limit, offset)
		})
	default:
		http.NotFound(w, r)
	}
}

func (h *QueryHandler) list(w http.ResponseWriter, r *http.Request, query func(context.Context) ([]mobility.MobilityRecord, error)) {
	records, err := query(r.Context())
	if err != nil {
		h.logger.Printf("cdr query: %v", err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}

	bodies := make([]recordBody, 0, len(records))
	for i := range records {
		bodies = append(bodies, toRecordBody(&records[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(bodies)
}

func (h *QueryHandler) serveLatest(w http.ResponseWriter, r *http.Request, imei string) {
	if imei == "" || strings.Contains(imei, "/") {
		http.NotFound(w, r)
		return
	}
	record, err := h.latest.FindLatestByIMEI(r.Context(), imei)
	if err != nil {
		h.logger.Printf("cdr query: latest for %s: %v", imei, err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRecordBody(record))
}

func toRecordBody(record *mobility.MobilityRecord) recordBody {
	body := recordBody{
		ID:               record.ID,
		IMEI:             record.IMEI,
		MCC:              record.MCC,
		MNC:              record.MNC,
		LAC:              record.LAC,
		BTSID:            record.BTSID,
		PreviousBTSID:    record.PreviousBTSID,
		TimestampArrival: formatLocalTime(record.TimestampArrival),
		UserLocationX:    record.UserLocationX,
		UserLocationY:    record.UserLocationY,
		Distance:         record.Distance,
		Speed:            record.Speed,
		Duration:         record.DurationSeconds,
		CreatedAt:        formatLocalTime(record.CreatedAt),
	}
	if record.TimestampDeparture != nil {
		value := formatLocalTime(*record.TimestampDeparture)
		body.TimestampDeparture = &value
	}
	return body
}

func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, errors.New("limit must be between 1 and 100")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be non-negative")
		}
	}
	return limit, offset, nil
}

func parseTimeQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	value, err := parseLocalTime(raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a local date-time")
	}
	return value, nil
}
