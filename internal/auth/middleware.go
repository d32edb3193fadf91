package auth

import (
	"net/http"
	"strings"
)

// Middleware validates operator JWTs on the operational surface. With
// no secret configured the operator surface is open, matching a
// deployment where only the signature gate is in force.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an operator auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap applies role checks to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.Secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ParseJWT(extractBearer(r), m.Secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		role, _ := NormalizeRole(claims.Role)
		if !RoleAtLeast(role, required) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), role, claims.Subject)))
	})
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
