package auth

import (
	"context"
	"net/http"
	"strings"
)

// DeviceResolver maps an ingest API key to a device identity. The device
// registry implements this; credential issuance is out of scope here.
type DeviceResolver interface {
	ResolveDeviceKey(ctx context.Context, apiKey string) (DeviceIdentity, error)
}

// DeviceKeyMiddleware authenticates the ingest path. It resolves the
// X-Device-Key header to a device and its owning user and attaches the
// identity to the request context as an explicit typed value.
type DeviceKeyMiddleware struct {
	resolver DeviceResolver
}

// NewDeviceKeyMiddleware constructs device-key auth middleware.
func NewDeviceKeyMiddleware(resolver DeviceResolver) *DeviceKeyMiddleware {
	return &DeviceKeyMiddleware{resolver: resolver}
}

// Wrap enforces device-key authentication.
func (m *DeviceKeyMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.resolver == nil {
			http.Error(w, "ingest auth not configured", http.StatusUnauthorized)
			return
		}
		key := strings.TrimSpace(r.Header.Get("X-Device-Key"))
		if key == "" {
			http.Error(w, "missing device key", http.StatusUnauthorized)
			return
		}
		identity, err := m.resolver.ResolveDeviceKey(r.Context(), key)
		if err != nil || identity.DeviceID == "" {
			http.Error(w, "invalid device key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), identity)))
	})
}
