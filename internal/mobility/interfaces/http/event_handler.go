package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"central-backend/internal/mobility/application"
	mobility "central-backend/internal/mobility/domain"
	"central-backend/internal/observability/metrics"
)

// timeLayout is the wire format for timestamps: ISO local date-time,
// no zone suffix, interpreted as UTC.
const timeLayout = "2006-01-02T15:04:05"

const timeLayoutFraction = "2006-01-02T15:04:05.999999999"

// EventHandler ingests device presence events reported by base
// stations on POST /api/v1/user.
type EventHandler struct {
	processor *application.EventProcessor
	logger    *log.Logger
}

// NewEventHandler constructs an event handler.
func NewEventHandler(processor *application.EventProcessor, logger *log.Logger) (*EventHandler, error) {
	if processor == nil {
		return nil, errors.New("event handler: nil processor")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EventHandler{processor: processor, logger: logger}, nil
}

type userEventRequest struct {
	IMEI         string        `json:"imei"`
	MCC          string        `json:"mcc"`
	MNC          string        `json:"mnc"`
	LAC          string        `json:"lac"`
	BTSID        string        `json:"btsId"`
	Timestamp    string        `json:"timestamp"`
	UserLocation *userLocation `json:"userLocation"`
}

type userLocation struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type userEventResponse struct {
	Status string        `json:"status"`
	Data   userEventData `json:"data"`
}

type userEventData struct {
	PreviousLocation *previousLocationBody `json:"previousLocation"`
	CDRID            int64                 `json:"cdrId"`
}

type previousLocationBody struct {
	BTSID    string `json:"btsId"`
	LAC      string `json:"lac"`
	LastSeen string `json:"lastSeen"`
}

// ServeHTTP processes one presence event.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.IngestResultSuccess
	defer func() {
		metrics.ObserveIngest(result, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		result = metrics.IngestResultError
		metrics.IncIngestError("method_not_allowed")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("user event: read body error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("read_body")
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req userEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("user event: decode error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	event, err := req.toEvent()
	if err != nil {
		h.logger.Printf("user event: invalid payload: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	h.logger.Printf("user event: bts %s reported imei %s", event.BTSID, event.IMEI)

	outcome, err := h.processor.Process(r.Context(), event)
	if err != nil {
		result = metrics.IngestResultError
		if errors.Is(err, mobility.ErrDepartureNotClosed) {
			h.logger.Printf("user event: partial failure: %v", err)
			metrics.IncIngestError("close_departure")
			http.Error(w, "event partially processed", http.StatusInternalServerError)
			return
		}
		h.logger.Printf("user event: process error: %v", err)
		metrics.IncIngestError("process_error")
		http.Error(w, "process error", http.StatusInternalServerError)
		return
	}

	resp := userEventResponse{
		Status: "success",
		Data:   userEventData{CDRID: outcome.CDRID},
	}
	if outcome.Previous != nil {
		resp.Data.PreviousLocation = &previousLocationBody{
			BTSID:    outcome.Previous.BTSID,
			LAC:      outcome.Previous.LAC,
			LastSeen: formatLocalTime(outcome.Previous.LastSeen),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (r userEventRequest) toEvent() (mobility.MobilityEvent, error) {
	if r.Timestamp == "" {
		return mobility.MobilityEvent{}, errors.New("missing timestamp")
	}
	timestamp, err := parseLocalTime(r.Timestamp)
	if err != nil {
		return mobility.MobilityEvent{}, err
	}

	event := mobility.MobilityEvent{
		IMEI:      r.IMEI,
		MCC:       r.MCC,
		MNC:       r.MNC,
		LAC:       r.LAC,
		BTSID:     r.BTSID,
		Timestamp: timestamp,
	}
	if r.UserLocation != nil {
		if r.UserLocation.X == nil || r.UserLocation.Y == nil {
			return mobility.MobilityEvent{}, errors.New("incomplete user location")
		}
		event.Location = &mobility.Location{X: *r.UserLocation.X, Y: *r.UserLocation.Y}
	}
	return event, event.Validate()
}

func parseLocalTime(value string) (time.Time, error) {
	return time.ParseInLocation(timeLayoutFraction, value, time.UTC)
}

func formatLocalTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}
