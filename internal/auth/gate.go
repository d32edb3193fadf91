package auth

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"central-backend/internal/observability/metrics"
)

// Headers consumed by the gate.
const (
	SignatureHeader = "X-HMAC-Signature"
	TimestampHeader = "X-Timestamp"
)

// Rejection reasons. Logged and counted per reason; the client-visible
// response is uniform and never says which check failed.
const (
	reasonNotConfigured     = "not_configured"
	reasonMissingHeader     = "missing_header"
	reasonBadTimestamp      = "bad_timestamp"
	reasonStaleTimestamp    = "stale_timestamp"
	reasonSignatureMismatch = "signature_mismatch"
)

// HMACGate authenticates state-mutating requests before any handler
// sees them. Accepted requests continue with the buffered body; the
// network body is read exactly once.
type HMACGate struct {
	signer   *Signer
	rules    GateRules
	maxDrift int64
	logger   *log.Logger
	now      func() time.Time
}

// NewHMACGate constructs the gate. A non-positive maxDriftSeconds falls
// back to the default drift window.
func NewHMACGate(secret []byte, rules GateRules, maxDriftSeconds int64, logger *log.Logger) *HMACGate {
	if maxDriftSeconds <= 0 {
		maxDriftSeconds = DefaultMaxDriftSeconds
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HMACGate{
		signer:   NewSigner(secret),
		rules:    rules,
		maxDrift: maxDriftSeconds,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Wrap enforces signature validation on gated routes.
func (g *HMACGate) Wrap(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.rules.Gated(r) {
			next.ServeHTTP(w, r)
			return
		}

		if !g.signer.Configured() {
			g.reject(w, r, reasonNotConfigured)
			return
		}

		timestamp := strings.TrimSpace(r.Header.Get(TimestampHeader))
		signature := strings.TrimSpace(r.Header.Get(SignatureHeader))
		if timestamp == "" || signature == "" {
			g.reject(w, r, reasonMissingHeader)
			return
		}

		ts, err := ParseTimestamp(timestamp)
		if err != nil {
			g.reject(w, r, reasonBadTimestamp)
			return
		}
		now := g.now().Unix()
		if !IsFresh(ts, now, g.maxDrift) {
			g.logger.Printf("hmac gate: timestamp out of window %s %s (now=%d ts=%d drift=%ds)",
				r.Method, r.URL.Path, now, ts, g.maxDrift)
			g.reject(w, r, reasonStaleTimestamp)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		// The computed side is lowercase hex already; only the received
		// value is lowercased and trimmed.
		expected := g.signer.SignRequest(body, timestamp)
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			g.reject(w, r, reasonSignatureMismatch)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (g *HMACGate) reject(w http.ResponseWriter, r *http.Request, reason string) {
	g.logger.Printf("hmac gate rejected (%s) %s %s", reason, r.Method, r.URL.Path)
	metrics.IncAuthRejection(reason)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"timestamp": g.now().Format("2006-01-02T15:04:05"),
		"status":    http.StatusUnauthorized,
		"error":     http.StatusText(http.StatusUnauthorized),
		"path":      r.URL.Path,
	})
}
