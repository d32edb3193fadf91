package auth

import (
	"net/http"
	"regexp"
)

// GateRule matches one state-mutating route that requires a signature.
type GateRule struct {
	Method string
	Match  func(path string) bool
}

// GateRules is the allow-list of gated (method, path) pairs. Requests
// matching no rule bypass the gate unmodified.
type GateRules []GateRule

// Gated reports whether the request must carry a valid signature.
func (rules GateRules) Gated(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, rule := range rules {
		if rule.Method == r.Method && rule.Match != nil && rule.Match(r.URL.Path) {
			return true
		}
	}
	return false
}

var btsStatusPath = regexp.MustCompile(`^/api/v1/bts/[^/]+/status$`)

// DefaultGateRules covers the three write endpoints: device-event
// ingestion, station registration and station status update.
func DefaultGateRules() GateRules {
	exact := func(want string) func(string) bool {
		return func(path string) bool { return path == want }
	}
	return GateRules{
		{Method: http.MethodPost, Match: exact("/api/v1/user")},
		{Method: http.MethodPost, Match: exact("/api/v1/bts")},
		{Method: http.MethodPatch, Match: btsStatusPath.MatchString},
	}
}
