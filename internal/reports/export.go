package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alerts "firewatch-cloud/internal/alerts/domain"
	masterdata "firewatch-cloud/internal/masterdata/domain"
)

// BuildIncidentPDF renders an incident report for one alert.
func BuildIncidentPDF(alert *alerts.Alert, tenant *masterdata.Tenant) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fire Incident Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Alert: %s", alert.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Device: %s", alert.DeviceID))
	pdf.Ln(5)
	if tenant != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Site: %s", tenant.Name))
		pdf.Ln(5)
		if tenant.Location.Address != "" {
			pdf.Cell(0, 6, fmt.Sprintf("Address: %s", tenant.Location.Address))
			pdf.Ln(5)
		}
	}
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", alert.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Danger Level: %.0f (initial %.0f)", alert.DangerLevel, alert.InitialDangerLevel))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Opened: %s", alert.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if !alert.ResolvedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Closed: %s", alert.ResolvedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	if alert.ResolutionNotes != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Notes: %s", alert.ResolutionNotes))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Station", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Notified", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Response", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Danger", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, entry := range alert.EscalationHistory {
		response := entry.Response
		if response == "" {
			response = "open"
		}
		pdf.CellFormat(45, 6, entry.StationID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, entry.NotifiedAt.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, response, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.0f", entry.DangerLevelAtTime), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertHistoryXLSX renders an alert listing workbook.
func BuildAlertHistoryXLSX(list []alerts.Alert) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "alerts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Device", "Tenant", "Station", "Status", "Danger", "Initial Danger", "Stalled", "Escalations", "Created", "Resolved", "Notes"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, alert := range list {
		row := i + 2
		resolved := ""
		if !alert.ResolvedAt.IsZero() {
			resolved = alert.ResolvedAt.Format(time.RFC3339)
		}
		values := []any{
			alert.ID,
			alert.DeviceID,
			alert.TenantID,
			alert.AssignedStationID,
			alert.Status,
			alert.DangerLevel,
			alert.InitialDangerLevel,
			alert.Stalled,
			len(alert.EscalationHistory),
			alert.CreatedAt.Format(time.RFC3339),
			resolved,
			alert.ResolutionNotes,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
