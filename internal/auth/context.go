package auth

import "context"

type contextKey string

const (
	contextKeyUser   contextKey = "auth.user"
	contextKeyDevice contextKey = "auth.device"
)

// UserIdentity is the authenticated user attached to read/write requests.
type UserIdentity struct {
	UserID string
	Role   Role
}

// DeviceIdentity is the authenticated device attached to ingest requests,
// together with its owning user.
type DeviceIdentity struct {
	DeviceID string
	UserID   string
}

// WithUser stores the user identity in context.
func WithUser(ctx context.Context, identity UserIdentity) context.Context {
	return context.WithValue(ctx, contextKeyUser, identity)
}

// UserFromContext extracts the user identity from context.
func UserFromContext(ctx context.Context) (UserIdentity, bool) {
	if ctx == nil {
		return UserIdentity{}, false
	}
	identity, ok := ctx.Value(contextKeyUser).(UserIdentity)
	return identity, ok
}

// WithDevice stores the device identity in context.
func WithDevice(ctx context.Context, identity DeviceIdentity) context.Context {
	return context.WithValue(ctx, contextKeyDevice, identity)
}

// DeviceFromContext extracts the device identity from context.
func DeviceFromContext(ctx context.Context) (DeviceIdentity, bool) {
	if ctx == nil {
		return DeviceIdentity{}, false
	}
	identity, ok := ctx.Value(contextKeyDevice).(DeviceIdentity)
	return identity, ok
}
