package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	alertapp "firewatch-cloud/internal/alerts/application"
	alerts "firewatch-cloud/internal/alerts/domain"
	alertmem "firewatch-cloud/internal/alerts/infrastructure/memory"
	"firewatch-cloud/internal/alerts/scheduler"
	"firewatch-cloud/internal/auth"
	"firewatch-cloud/internal/geo"
	masterdata "firewatch-cloud/internal/masterdata/domain"
	mdmem "firewatch-cloud/internal/masterdata/infrastructure/memory"
	"firewatch-cloud/internal/stations/directory"
	stations "firewatch-cloud/internal/stations/domain"
	stationmem "firewatch-cloud/internal/stations/infrastructure/memory"
)

func newHandlerFixture(t *testing.T) (*Handler, *alertapp.Service) {
	t.Helper()

	stationRepo := stationmem.NewStationRepository()
	seed := []stations.Station{
		{ID: "st-1", Name: "Koramangala", Code: "KRM", Active: true, CoverageRadiusKm: 25,
			Location: geo.Location{Longitude: 77.62, Latitude: 12.94}},
		{ID: "st-2", Name: "Indiranagar", Code: "IND", Active: true, CoverageRadiusKm: 25,
			Location: geo.Location{Longitude: 77.64, Latitude: 12.98}},
	}
	for i := range seed {
		station := seed[i]
		if err := stationRepo.Save(context.Background(), &station); err != nil {
			t.Fatalf("seed station: %v", err)
		}
	}
	tenantRepo := mdmem.NewTenantRepository()
	tenant := &masterdata.Tenant{
		ID:       "tenant-1",
		Name:     "Acme Works",
		Location: geo.Location{Longitude: 77.60, Latitude: 12.97, Address: "14 Industrial Layout"},
	}
	if err := tenantRepo.Save(context.Background(), tenant); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	dir, err := directory.New(stationRepo)
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	sched := scheduler.New()
	t.Cleanup(sched.Close)

	service, err := alertapp.NewService(alertmem.NewAlertStore(), tenantRepo, dir, sched, alertapp.Config{
		Timeouts:       alerts.DefaultTimeoutPolicy(),
		EscalationStep: 20,
		UpdateRetries:  3,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, tenantRepo)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, service
}

func createAlert(t *testing.T, service *alertapp.Service) *alerts.Alert {
	t.Helper()
	alert, err := service.Create(context.Background(), alertapp.CreateInput{
		DeviceID:    "dev-1",
		TenantID:    "tenant-1",
		DangerLevel: 55,
	})
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return alert
}

func asStation(r *http.Request, stationID string) *http.Request {
	ctx := auth.WithIdentity(r.Context(), "", stationID, auth.RoleStation, "user-1")
	return r.WithContext(ctx)
}

func asTenant(r *http.Request, tenantID string) *http.Request {
	ctx := auth.WithIdentity(r.Context(), tenantID, "", auth.RoleViewer, "user-1")
	return r.WithContext(ctx)
}

func TestHandlerListScopedToTenant(t *testing.T) {
	handler, service := newHandlerFixture(t)
	createAlert(t, service)

	req := asTenant(httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil), "tenant-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var list []alerts.Alert
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	req = asTenant(httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil), "tenant-other")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	list = nil
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("foreign tenant sees %d alerts, want 0", len(list))
	}
}

func TestHandlerListRejectsBadQuery(t *testing.T) {
	handler, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?status=bogus", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts?from=2026-03-14T10:00:00Z&to=2026-03-14T08:00:00Z", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for inverted window", resp.Code)
	}
}

func TestHandlerAcceptAction(t *testing.T) {
	handler, service := newHandlerFixture(t)
	alert := createAlert(t, service)

	req := asStation(httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+alert.ID+"/accept", nil), "st-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var updated alerts.Alert
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != alerts.StatusAcknowledged {
		t.Fatalf("status = %q, want acknowledged", updated.Status)
	}

	// A second accept conflicts.
	req = asStation(httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+alert.ID+"/accept", nil), "st-1")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("second accept status = %d, want 409", resp.Code)
	}
}

func TestHandlerPassByOutsiderForbidden(t *testing.T) {
	handler, service := newHandlerFixture(t)
	alert := createAlert(t, service)

	req := asStation(httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+alert.ID+"/pass", nil), "st-2")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}

func TestHandlerStatusAction(t *testing.T) {
	handler, service := newHandlerFixture(t)
	alert := createAlert(t, service)
	if _, err := service.Claim(context.Background(), alert.ID, "st-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"status": alerts.StatusEnRoute})
	req := asStation(httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+alert.ID+"/status", bytes.NewReader(body)), "st-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}

	body, _ = json.Marshal(map[string]string{"status": alerts.StatusResolved})
	req = asStation(httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+alert.ID+"/status", bytes.NewReader(body)), "st-1")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("skipped transition status = %d, want 409", resp.Code)
	}
}

func TestHandlerUnknownAlert(t *testing.T) {
	handler, _ := newHandlerFixture(t)

	req := asStation(httptest.NewRequest(http.MethodPost, "/api/v1/alerts/missing/accept", nil), "st-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestHandlerReportPDF(t *testing.T) {
	handler, service := newHandlerFixture(t)
	alert := createAlert(t, service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/"+alert.ID+"/report.pdf", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("body is not a PDF")
	}
}

func TestHandlerExportXLSX(t *testing.T) {
	handler, service := newHandlerFixture(t)
	createAlert(t, service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/alerts.xlsx", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "alerts.xlsx") {
		t.Fatalf("disposition = %q", got)
	}
	if resp.Body.Len() == 0 {
		t.Fatal("empty export body")
	}
}

func TestSSEBrokerBroadcast(t *testing.T) {
	broker := NewSSEBroker()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	broker.Notify(context.Background(), alertapp.AlertEvent{
		Type:  alertapp.EventCreated,
		Alert: alerts.Alert{ID: "alert-1"},
	})

	select {
	case payload := <-ch:
		var event alertapp.AlertEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != alertapp.EventCreated || event.Alert.ID != "alert-1" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no payload received")
	}
}
