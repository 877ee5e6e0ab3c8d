package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
)

// Middleware authenticates bearer tokens and gates requests by the
// policy's required role. Authenticated identities travel as typed
// context values, never as ambient state.
type Middleware struct {
	secret []byte
	policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{secret: secret, policy: policy}
}

// Wrap applies authentication and the role gate to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, gated := m.policy.RequiredRole(r)
		if !gated {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.authenticate(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !identity.Role.Satisfies(required) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), identity)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (UserIdentity, error) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return UserIdentity{}, ErrUnauthorized
	}
	claims, err := ParseJWT(strings.TrimSpace(token), m.secret)
	if err != nil {
		return UserIdentity{}, err
	}
	role, _ := NormalizeRole(claims.Role)
	return UserIdentity{UserID: claims.Subject, Role: role}, nil
}
