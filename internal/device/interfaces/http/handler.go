package devicehttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"vitals-cloud/internal/auth"
	device "vitals-cloud/internal/device/domain"
)

// CacheInvalidator drops cached per-user device lookups after a config
// change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// Handler serves the device registry endpoints.
type Handler struct {
	repo        device.Repository
	invalidator CacheInvalidator
	logger      *log.Logger
}

// NewHandler constructs a device handler.
func NewHandler(repo device.Repository, invalidator CacheInvalidator, logger *log.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("device handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{repo: repo, invalidator: invalidator, logger: logger}, nil
}

type deviceResponse struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Name      string        `json:"name"`
	Config    device.Config `json:"config"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

func toDeviceResponse(d device.Device) deviceResponse {
	return deviceResponse{
		ID:        d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Config:    d.Config,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
}

// ServeHTTP routes device endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.URL.Path == "/api/v1/devices" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r, identity)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/devices/")
	switch {
	case strings.HasSuffix(rest, "/config"):
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.updateConfig(w, r, identity, strings.TrimSuffix(rest, "/config"))
	case rest != "" && !strings.Contains(rest, "/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, identity, rest)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity) {
	userID, allowed := auth.ResolveTargetUser(r, identity)
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	devices, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Printf("device list: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"devices": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity, deviceID string) {
	d, err := h.load(r.Context(), w, identity, deviceID)
	if d == nil || err != nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceResponse(*d))
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity, deviceID string) {
	d, err := h.load(r.Context(), w, identity, deviceID)
	if d == nil || err != nil {
		return
	}

	var cfg device.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// The loose frequency band is reserved for privileged maintenance
	// updates; everyone else gets the tightened one.
	band := device.StandardBand
	if r.URL.Query().Get("mode") == "extended" {
		if identity.Role != auth.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		band = device.ExtendedBand
	}
	if err := cfg.Validate(band); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateConfig(r.Context(), deviceID, cfg); err != nil {
		if errors.Is(err, device.ErrNotFound) {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		h.logger.Printf("device config update: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(r.Context(), d.UserID)
	}

	d.Config = cfg
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceResponse(*d))
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, identity auth.UserIdentity, deviceID string) (*device.Device, error) {
	d, err := h.repo.Get(ctx, deviceID)
	if errors.Is(err, device.ErrNotFound) {
		http.Error(w, "device not found", http.StatusNotFound)
		return nil, err
	}
	if err != nil {
		h.logger.Printf("device get: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return nil, err
	}
	if d.UserID != identity.UserID && !identity.Role.Satisfies(auth.RolePhysician) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, auth.ErrForbidden
	}
	return d, nil
}
