package devicehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vitals-cloud/internal/auth"
	device "vitals-cloud/internal/device/domain"
)

type fakeDeviceRepo struct {
	devices       map[string]*device.Device
	updatedConfig *device.Config
}

func (f *fakeDeviceRepo) Get(_ context.Context, deviceID string) (*device.Device, error) {
	d, ok := f.devices[deviceID]
	if !ok {
		return nil, device.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDeviceRepo) GetByAPIKey(_ context.Context, _ string) (*device.Device, error) {
	return nil, device.ErrNotFound
}

func (f *fakeDeviceRepo) ListByUser(_ context.Context, userID string) ([]device.Device, error) {
	var out []device.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDeviceRepo) UpdateConfig(_ context.Context, deviceID string, cfg device.Config) error {
	if _, ok := f.devices[deviceID]; !ok {
		return device.ErrNotFound
	}
	f.updatedConfig = &cfg
	return nil
}

func (f *fakeDeviceRepo) FirstDeviceTimezone(_ context.Context, _ string) (string, error) {
	return "", nil
}

type fakeInvalidator struct {
	invalidated []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID string) {
	f.invalidated = append(f.invalidated, userID)
}

func newTestHandler(t *testing.T, repo *fakeDeviceRepo, invalidator CacheInvalidator) *Handler {
	t.Helper()
	handler, err := NewHandler(repo, invalidator, nil)
	if err != nil {
		t.Fatalf("device handler: %v", err)
	}
	return handler
}

func authedRequest(method, target, body string, identity auth.UserIdentity) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.WithUser(req.Context(), identity))
}

func ownedDevice() *device.Device {
	return &device.Device{
		ID:     "dev-1",
		UserID: "user-1",
		Name:   "wrist sensor",
		APIKey: "secret-key",
		Config: device.Config{MeasurementFrequency: 3600, Timezone: "America/New_York"},
	}
}

func TestDeviceHandler_GetExcludesAPIKey(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{"dev-1": ownedDevice()}}
	handler := newTestHandler(t, repo, nil)

	req := authedRequest(http.MethodGet, "/api/v1/devices/dev-1", "", auth.UserIdentity{UserID: "user-1", Role: auth.RolePatient})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "secret-key") {
		t.Fatal("expected api key to be excluded from the response")
	}
}

func TestDeviceHandler_GetForeignDeviceForbidden(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{"dev-1": ownedDevice()}}
	handler := newTestHandler(t, repo, nil)

	req := authedRequest(http.MethodGet, "/api/v1/devices/dev-1", "", auth.UserIdentity{UserID: "user-2", Role: auth.RolePatient})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestDeviceHandler_PhysicianReadsForeignDevice(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{"dev-1": ownedDevice()}}
	handler := newTestHandler(t, repo, nil)

	req := authedRequest(http.MethodGet, "/api/v1/devices/dev-1", "", auth.UserIdentity{UserID: "doc", Role: auth.RolePhysician})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestDeviceHandler_UpdateConfigInvalidatesCache(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{"dev-1": ownedDevice()}}
	invalidator := &fakeInvalidator{}
	handler := newTestHandler(t, repo, invalidator)

	body := `{"measurementFrequency":1800,"activeStartTime":"08:00","activeEndTime":"22:00","timezone":"Asia/Kolkata"}`
	req := authedRequest(http.MethodPut, "/api/v1/devices/dev-1/config", body, auth.UserIdentity{UserID: "user-1", Role: auth.RolePatient})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if repo.updatedConfig == nil || repo.updatedConfig.MeasurementFrequency != 1800 {
		t.Fatalf("expected config update, got %+v", repo.updatedConfig)
	}
	if len(invalidator.invalidated) != 1 || invalidator.invalidated[0] != "user-1" {
		t.Fatalf("expected cache invalidation for user-1, got %v", invalidator.invalidated)
	}

	var got map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	cfg := got["config"].(map[string]any)
	if cfg["timezone"] != "Asia/Kolkata" {
		t.Fatalf("expected updated timezone, got %v", cfg["timezone"])
	}
}

func TestDeviceHandler_ExtendedBandRequiresAdmin(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{"dev-1": ownedDevice()}}
	handler := newTestHandler(t, repo, nil)

	body := `{"measurementFrequency":60}`
	req := authedRequest(http.MethodPut, "/api/v1/devices/dev-1/config?mode=extended", body, auth.UserIdentity{UserID: "user-1", Role: auth.RolePatient})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}

	req = authedRequest(http.MethodPut, "/api/v1/devices/dev-1/config?mode=extended", body, auth.UserIdentity{UserID: "root", Role: auth.RoleAdmin})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeviceHandler_UpdateConfigOutOfBand(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{"dev-1": ownedDevice()}}
	handler := newTestHandler(t, repo, nil)

	body := `{"measurementFrequency":60}`
	req := authedRequest(http.MethodPut, "/api/v1/devices/dev-1/config", body, auth.UserIdentity{UserID: "user-1", Role: auth.RolePatient})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDeviceHandler_UnknownDevice(t *testing.T) {
	repo := &fakeDeviceRepo{devices: map[string]*device.Device{}}
	handler := newTestHandler(t, repo, nil)

	req := authedRequest(http.MethodGet, "/api/v1/devices/dev-9", "", auth.UserIdentity{UserID: "user-1", Role: auth.RolePatient})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
