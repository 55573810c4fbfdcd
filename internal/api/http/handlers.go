package apihttp

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"firewatch-cloud/internal/auth"
)

// StatsHandler serves operational counts for the dashboard: alerts by
// status and devices by status. Tenant identities see their own rows
// only; admin tokens see the whole fleet.
type StatsHandler struct {
	db *sql.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(db *sql.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

type statsResponse struct {
	Alerts       map[string]int `json:"alerts"`
	AlertsOpen   int            `json:"alerts_open"`
	Stalled      int            `json:"stalled"`
	Devices      map[string]int `json:"devices"`
	AlertsLast24 int            `json:"alerts_last_24h"`
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	tenantID := auth.TenantIDFromContext(r.Context())

	resp := statsResponse{
		Alerts:  map[string]int{},
		Devices: map[string]int{},
	}

	alertCounts, err := countByStatus(r.Context(), h.db, "fire_alerts", tenantID)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}
	resp.Alerts = alertCounts
	for status, count := range alertCounts {
		if status != "resolved" && status != "false_alarm" {
			resp.AlertsOpen += count
		}
	}

	deviceCounts, err := countByStatus(r.Context(), h.db, "devices", tenantID)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}
	resp.Devices = deviceCounts

	if resp.Stalled, err = countScalar(r.Context(), h.db,
		`SELECT COUNT(*) FROM fire_alerts WHERE stalled AND status NOT IN ('resolved', 'false_alarm')`,
		tenantID); err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	if resp.AlertsLast24, err = countSince(r.Context(), h.db, tenantID, time.Now().UTC().Add(-24*time.Hour)); err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func countByStatus(ctx context.Context, db *sql.DB, table, tenantID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM ` + table
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` GROUP BY status`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func countScalar(ctx context.Context, db *sql.DB, query, tenantID string) (int, error) {
	args := []any{}
	if tenantID != "" {
		query += ` AND tenant_id = $1`
		args = append(args, tenantID)
	}
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func countSince(ctx context.Context, db *sql.DB, tenantID string, cutoff time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM fire_alerts WHERE created_at >= $1`
	args := []any{cutoff}
	if tenantID != "" {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
