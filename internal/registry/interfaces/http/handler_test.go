package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"central-backend/internal/registry/application"
	"central-backend/internal/registry/infrastructure/memory"
)

const registerBody = `{
	"btsId": "BTS-1",
	"lac": "10101",
	"locationX": 10,
	"locationY": 20,
	"status": "active",
	"maxCapacity": 100,
	"currentLoad": 10
}`

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	service, err := application.NewService(memory.NewBTSRepository(), nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func register(t *testing.T, handler *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bts", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestRegisterStation(t *testing.T) {
	handler := newTestHandler(t)

	resp := register(t, handler, registerBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var body btsBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.BTSID != "BTS-1" || body.ID == 0 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	handler := newTestHandler(t)

	if resp := register(t, handler, registerBody); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if resp := register(t, handler, registerBody); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestRegisterInvalidCapacity(t *testing.T) {
	handler := newTestHandler(t)

	body := strings.ReplaceAll(registerBody, `"maxCapacity": 100`, `"maxCapacity": 0`)
	if resp := register(t, handler, body); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero capacity, got %d", resp.Code)
	}

	body = strings.ReplaceAll(registerBody, `"currentLoad": 10`, `"currentLoad": 1000`)
	if resp := register(t, handler, body); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for load above capacity, got %d", resp.Code)
	}
}

func TestGetStation(t *testing.T) {
	handler := newTestHandler(t)
	register(t, handler, registerBody)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bts/BTS-1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body btsBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.BTSID != "BTS-1" || body.MaxCapacity != 100 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetStationNotFound(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bts/BTS-404", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListStations(t *testing.T) {
	handler := newTestHandler(t)
	register(t, handler, registerBody)
	register(t, handler, strings.ReplaceAll(registerBody, "BTS-1", "BTS-2"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bts", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var bodies []btsBody
	if err := json.Unmarshal(resp.Body.Bytes(), &bodies); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(bodies))
	}
}

func TestUpdateStatus(t *testing.T) {
	handler := newTestHandler(t)
	register(t, handler, registerBody)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bts/BTS-1/status", strings.NewReader(`{"status":" maintenance "}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body btsBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "maintenance" {
		t.Fatalf("expected trimmed status, got %q", body.Status)
	}
}

func TestUpdateStatusBlank(t *testing.T) {
	handler := newTestHandler(t)
	register(t, handler, registerBody)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bts/BTS-1/status", strings.NewReader(`{"status":"   "}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUpdateStatusUnknownStation(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bts/BTS-404/status", strings.NewReader(`{"status":"active"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)
	register(t, handler, registerBody)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bts", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/bts/BTS-1/status", strings.NewReader(`{"status":"x"}`))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST on status, got %d", resp.Code)
	}
}
