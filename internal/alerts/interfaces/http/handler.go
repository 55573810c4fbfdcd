package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	alertapp "firewatch-cloud/internal/alerts/application"
	alerts "firewatch-cloud/internal/alerts/domain"
	"firewatch-cloud/internal/auth"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	"firewatch-cloud/internal/observability/metrics"
	"firewatch-cloud/internal/reports"
)

const timeLayout = time.RFC3339

// Handler provides alert HTTP endpoints.
type Handler struct {
	service *alertapp.Service
	tenants masterdata.TenantRepository
}

// NewHandler constructs a handler.
func NewHandler(service *alertapp.Service, tenants masterdata.TenantRepository) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &Handler{service: service, tenants: tenants}, nil
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alerts":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
		return
	case r.URL.Path == "/api/v1/exports/alerts.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExportXLSX(w, r)
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/alerts/"):
		h.handleAlert(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Tenant tokens only see their own alerts.
	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" {
		filter.TenantID = tenantID
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleAlert(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "report.pdf" && r.Method == http.MethodGet:
		h.handleReportPDF(w, r, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.handleAction(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondAlertError(w, err)
		return
	}
	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" && alert.TenantID != tenantID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alert)
}

type actionRequest struct {
	StationID string `json:"station_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, id, action string) {
	var body actionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	stationID := auth.StationIDFromContext(r.Context())
	if stationID == "" {
		stationID = body.StationID
	}
	if stationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}

	var (
		alert *alerts.Alert
		err   error
	)
	switch action {
	case "accept":
		alert, err = h.service.Claim(r.Context(), id, stationID)
	case "pass":
		alert, err = h.service.Pass(r.Context(), id, stationID)
	case "status":
		alert, err = h.service.AdvanceStatus(r.Context(), id, stationID, body.Status, body.Notes)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondAlertError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alert)
}

func (h *Handler) handleReportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondAlertError(w, err)
		return
	}
	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" && alert.TenantID != tenantID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var tenant *masterdata.Tenant
	if h.tenants != nil {
		tenant, _ = h.tenants.Get(r.Context(), alert.TenantID)
	}
	data, err := reports.BuildIncidentPDF(alert, tenant)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
		http.Error(w, "report build failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="incident-`+id+`.pdf"`)
	_, _ = w.Write(data)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := reports.BuildAlertHistoryXLSX(list)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(start))
		http.Error(w, "export build failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="alerts.xlsx"`)
	_, _ = w.Write(data)
}

func filterFromQuery(r *http.Request) (alerts.Filter, error) {
	filter := alerts.Filter{
		TenantID:  r.URL.Query().Get("tenant_id"),
		StationID: r.URL.Query().Get("station_id"),
		Status:    r.URL.Query().Get("status"),
	}
	if filter.Status != "" && !alerts.ValidStatus(filter.Status) {
		return filter, errors.New("unknown status")
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return filter, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return filter, err
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return filter, errors.New("to must be after from")
	}
	filter.From = from
	filter.To = to
	return filter, nil
}

func respondAlertError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerts.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, alerts.ErrNotAssigned), errors.Is(err, alerts.ErrNotAssignee):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, alerts.ErrNotPending),
		errors.Is(err, alerts.ErrTooLate),
		errors.Is(err, alerts.ErrTerminal),
		errors.Is(err, alerts.ErrInvalidTransition),
		errors.Is(err, alerts.ErrConflict),
		errors.Is(err, alerts.ErrDuplicateActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, alerts.ErrContention):
		http.Error(w, "busy, retry", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
