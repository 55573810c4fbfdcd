package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"firewatch-cloud/internal/audit"
	"firewatch-cloud/internal/auth"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	provisioning "firewatch-cloud/internal/provisioning/application"
	stations "firewatch-cloud/internal/stations/domain"
)

// RegistryHandler serves the station, tenant and device registries.
type RegistryHandler struct {
	service       *provisioning.Service
	stations      stations.StationRepository
	tenants       masterdata.TenantRepository
	devices       masterdata.DeviceRepository
	deviceChecker auth.DeviceTenantChecker
	auditLogger   audit.Logger
}

// NewRegistryHandler constructs a RegistryHandler.
func NewRegistryHandler(service *provisioning.Service, stationRepo stations.StationRepository, tenantRepo masterdata.TenantRepository, deviceRepo masterdata.DeviceRepository, deviceChecker auth.DeviceTenantChecker, auditLogger audit.Logger) (*RegistryHandler, error) {
	if service == nil {
		return nil, errors.New("registry handler: nil service")
	}
	return &RegistryHandler{
		service:       service,
		stations:      stationRepo,
		tenants:       tenantRepo,
		devices:       deviceRepo,
		deviceChecker: deviceChecker,
		auditLogger:   auditLogger,
	}, nil
}

// ServeHTTP routes registry requests.
func (h *RegistryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/stations":
		switch r.Method {
		case http.MethodGet:
			h.listStations(w, r)
		case http.MethodPost:
			h.registerStation(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/api/v1/tenants":
		switch r.Method {
		case http.MethodGet:
			h.getTenant(w, r)
		case http.MethodPost:
			h.registerTenant(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/api/v1/devices":
		switch r.Method {
		case http.MethodGet:
			h.listDevices(w, r)
		case http.MethodPost:
			h.registerDevice(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		if id, ok := strings.CutPrefix(r.URL.Path, "/api/v1/devices/"); ok && id != "" && !strings.Contains(id, "/") {
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.getDevice(w, r, id)
			return
		}
		http.NotFound(w, r)
	}
}

func (h *RegistryHandler) getDevice(w http.ResponseWriter, r *http.Request, id string) {
	if h.deviceChecker != nil {
		if err := h.deviceChecker.EnsureDeviceTenant(r.Context(), auth.TenantIDFromContext(r.Context()), id); err != nil {
			switch {
			case errors.Is(err, auth.ErrNotFound):
				http.Error(w, "device not found", http.StatusNotFound)
			case errors.Is(err, auth.ErrTenantMismatch):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "device check error", http.StatusInternalServerError)
			}
			return
		}
	}
	device, err := h.devices.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "get device error", http.StatusInternalServerError)
		return
	}
	if device == nil {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	respondJSON(w, device)
}

func (h *RegistryHandler) listStations(w http.ResponseWriter, r *http.Request) {
	list, err := h.stations.ListActive(r.Context())
	if err != nil {
		http.Error(w, "list stations error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (h *RegistryHandler) registerStation(w http.ResponseWriter, r *http.Request) {
	var input provisioning.StationInput
	if !decodeBody(w, r, &input) {
		return
	}
	station, err := h.service.RegisterStation(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, station)
	h.logAudit(r, "", "register.station", "station", station.ID)
}

func (h *RegistryHandler) getTenant(w http.ResponseWriter, r *http.Request) {
	id := auth.TenantIDFromContext(r.Context())
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	tenant, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "get tenant error", http.StatusInternalServerError)
		return
	}
	if tenant == nil {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}
	respondJSON(w, tenant)
}

func (h *RegistryHandler) registerTenant(w http.ResponseWriter, r *http.Request) {
	var input provisioning.TenantInput
	if !decodeBody(w, r, &input) {
		return
	}
	tenant, err := h.service.RegisterTenant(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, tenant)
	h.logAudit(r, tenant.ID, "register.tenant", "tenant", tenant.ID)
}

func (h *RegistryHandler) listDevices(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		tenantID = r.URL.Query().Get("tenant_id")
	}
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}
	list, err := h.devices.ListByTenant(r.Context(), tenantID)
	if err != nil {
		http.Error(w, "list devices error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (h *RegistryHandler) registerDevice(w http.ResponseWriter, r *http.Request) {
	var input provisioning.DeviceInput
	if !decodeBody(w, r, &input) {
		return
	}
	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" {
		if input.TenantID != "" && input.TenantID != tenantID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		input.TenantID = tenantID
	}
	device, err := h.service.RegisterDevice(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, device)
	h.logAudit(r, device.TenantID, "register.device", "device", device.ID)
}

func (h *RegistryHandler) logAudit(r *http.Request, tenantID, action, resourceType, resourceID string) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return false
	}
	defer r.Body.Close()
	if err := json.Unmarshal(body, dest); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
