package auth

import (
	"net/http"
	"strings"
)

// Policy resolves the operator role required for a request. Station
// read paths and signature-gated write paths carry no JWT; only the
// operational surface does.
type Policy struct{}

// NewDefaultPolicy builds the default operator policy.
func NewDefaultPolicy() Policy {
	return Policy{}
}

// RequiredRole resolves the required role for the request. The second
// return is false for requests outside the operator surface.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path

	switch {
	case path == "/api/v1/reconcile":
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/exports/"):
		return RoleOperator, true
	}
	return "", false
}
