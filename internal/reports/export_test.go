package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	alerts "firewatch-cloud/internal/alerts/domain"
	"firewatch-cloud/internal/geo"
	masterdata "firewatch-cloud/internal/masterdata/domain"
)

func sampleAlert() alerts.Alert {
	created := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	return alerts.Alert{
		ID:                 "alert-1",
		DeviceID:           "dev-1",
		TenantID:           "tenant-1",
		AssignedStationID:  "st-2",
		Status:             alerts.StatusResolved,
		DangerLevel:        70,
		InitialDangerLevel: 50,
		EscalationHistory: []alerts.EscalationEntry{
			{StationID: "st-1", NotifiedAt: created, Response: alerts.ResponseTimeout, RespondedAt: created.Add(5 * time.Minute), DangerLevelAtTime: 50},
			{StationID: "st-2", NotifiedAt: created.Add(5 * time.Minute), Response: alerts.ResponseAccepted, RespondedAt: created.Add(6 * time.Minute), DangerLevelAtTime: 70},
		},
		ResolvedAt:      created.Add(40 * time.Minute),
		ResolutionNotes: "extinguished",
		CreatedAt:       created,
	}
}

func TestBuildIncidentPDF(t *testing.T) {
	alert := sampleAlert()
	tenant := &masterdata.Tenant{
		ID:       "tenant-1",
		Name:     "Acme Works",
		Location: geo.Location{Address: "14 Industrial Layout"},
	}

	data, err := BuildIncidentPDF(&alert, tenant)
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty pdf output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", data[:8])
	}
}

func TestBuildAlertHistoryXLSX(t *testing.T) {
	data, err := BuildAlertHistoryXLSX([]alerts.Alert{sampleAlert()})
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen xlsx: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("alerts", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got != "alert-1" {
		t.Fatalf("A2 = %q, want alert-1", got)
	}
	status, err := f.GetCellValue("alerts", "E2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if status != alerts.StatusResolved {
		t.Fatalf("E2 = %q, want resolved", status)
	}
}
