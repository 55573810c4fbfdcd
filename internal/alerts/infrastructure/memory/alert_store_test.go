package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	alerts "firewatch-cloud/internal/alerts/domain"
)

func newAlert(id, deviceID, status string) *alerts.Alert {
	now := time.Now().UTC()
	return &alerts.Alert{
		ID:                 id,
		DeviceID:           deviceID,
		TenantID:           "tenant-1",
		AssignedStationID:  "st-a",
		Status:             status,
		DangerLevel:        50,
		InitialDangerLevel: 50,
		ResponseTimeout:    5 * time.Minute,
		EscalationHistory:  []alerts.EscalationEntry{{StationID: "st-a", NotifiedAt: now, DangerLevelAtTime: 50}},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestInsertRejectsSecondActivePerDevice(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	if err := store.Insert(ctx, newAlert("al-1", "dev-1", alerts.StatusPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := store.Insert(ctx, newAlert("al-2", "dev-1", alerts.StatusPending))
	if !errors.Is(err, alerts.ErrDuplicateActive) {
		t.Fatalf("expected ErrDuplicateActive, got %v", err)
	}

	// A terminal alert for the device does not block a new one.
	terminal := newAlert("al-3", "dev-2", alerts.StatusResolved)
	if err := store.Insert(ctx, terminal); err != nil {
		t.Fatalf("insert terminal: %v", err)
	}
	if err := store.Insert(ctx, newAlert("al-4", "dev-2", alerts.StatusPending)); err != nil {
		t.Fatalf("insert after terminal: %v", err)
	}
}

func TestFindActiveByDevice(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()
	if err := store.Insert(ctx, newAlert("al-1", "dev-1", alerts.StatusPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err := store.FindActiveByDevice(ctx, "dev-1")
	if err != nil || found == nil || found.ID != "al-1" {
		t.Fatalf("expected al-1, got %+v (%v)", found, err)
	}
	if _, err := store.FindActiveByDevice(ctx, "dev-9"); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown device, got %v", err)
	}

	if _, err := store.CompareAndUpdate(ctx, "al-1", func(a *alerts.Alert) error {
		a.Status = alerts.StatusResolved
		a.ResolvedAt = time.Now().UTC()
		return nil
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := store.FindActiveByDevice(ctx, "dev-1"); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after resolution, got %v", err)
	}
}

func TestCompareAndUpdateBumpsVersion(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()
	if err := store.Insert(ctx, newAlert("al-1", "dev-1", alerts.StatusPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := store.CompareAndUpdate(ctx, "al-1", func(a *alerts.Alert) error {
		a.Status = alerts.StatusAcknowledged
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Status != alerts.StatusAcknowledged {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestCompareAndUpdateConflict(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()
	if err := store.Insert(ctx, newAlert("al-1", "dev-1", alerts.StatusPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// The second writer commits while the first mutation is in flight.
	var once sync.Once
	_, err := store.CompareAndUpdate(ctx, "al-1", func(a *alerts.Alert) error {
		once.Do(func() {
			if _, err := store.CompareAndUpdate(ctx, "al-1", func(b *alerts.Alert) error {
				b.DangerLevel = 70
				return nil
			}); err != nil {
				t.Fatalf("inner update: %v", err)
			}
		})
		a.DangerLevel = 60
		return nil
	})
	if !errors.Is(err, alerts.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	current, err := store.Get(ctx, "al-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.DangerLevel != 70 {
		t.Fatalf("expected committed value 70, got %.0f", current.DangerLevel)
	}
}

func TestCompareAndUpdateRejectsTerminal(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()
	if err := store.Insert(ctx, newAlert("al-1", "dev-1", alerts.StatusResolved)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err := store.CompareAndUpdate(ctx, "al-1", func(a *alerts.Alert) error {
		a.Status = alerts.StatusPending
		return nil
	})
	if !errors.Is(err, alerts.ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestCompareAndUpdateMutateErrorAborts(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()
	if err := store.Insert(ctx, newAlert("al-1", "dev-1", alerts.StatusPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	boom := errors.New("boom")
	_, err := store.CompareAndUpdate(ctx, "al-1", func(a *alerts.Alert) error {
		a.Status = alerts.StatusAcknowledged
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutate error, got %v", err)
	}
	current, _ := store.Get(ctx, "al-1")
	if current.Status != alerts.StatusPending || current.Version != 1 {
		t.Fatalf("aborted mutation must not write, got %+v", current)
	}
}

func TestListFilters(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	a := newAlert("al-1", "dev-1", alerts.StatusPending)
	a.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := newAlert("al-2", "dev-2", alerts.StatusResolved)
	b.TenantID = "tenant-2"
	b.CreatedAt = time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	for _, alert := range []*alerts.Alert{a, b} {
		if err := store.Insert(ctx, alert); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := store.List(ctx, alerts.Filter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 alerts, got %d (%v)", len(all), err)
	}
	if all[0].ID != "al-2" {
		t.Fatalf("expected newest first, got %s", all[0].ID)
	}

	byTenant, _ := store.List(ctx, alerts.Filter{TenantID: "tenant-2"})
	if len(byTenant) != 1 || byTenant[0].ID != "al-2" {
		t.Fatalf("tenant filter failed: %+v", byTenant)
	}
	byStatus, _ := store.List(ctx, alerts.Filter{Status: alerts.StatusPending})
	if len(byStatus) != 1 || byStatus[0].ID != "al-1" {
		t.Fatalf("status filter failed: %+v", byStatus)
	}
	byWindow, _ := store.List(ctx, alerts.Filter{From: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)})
	if len(byWindow) != 1 || byWindow[0].ID != "al-2" {
		t.Fatalf("window filter failed: %+v", byWindow)
	}
}

func TestListStationFilterMatchesCurrentAssignee(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	// st-a was escalated past; st-b is the current assignee.
	escalated := newAlert("al-1", "dev-1", alerts.StatusPending)
	escalated.AssignedStationID = "st-b"
	now := time.Now().UTC()
	escalated.EscalationHistory = []alerts.EscalationEntry{
		{StationID: "st-a", NotifiedAt: now.Add(-5 * time.Minute), Response: alerts.ResponseTimeout, RespondedAt: now, DangerLevelAtTime: 50},
		{StationID: "st-b", NotifiedAt: now, DangerLevelAtTime: 70},
	}
	if err := store.Insert(ctx, escalated); err != nil {
		t.Fatalf("insert: %v", err)
	}

	byCurrent, err := store.List(ctx, alerts.Filter{StationID: "st-b"})
	if err != nil || len(byCurrent) != 1 || byCurrent[0].ID != "al-1" {
		t.Fatalf("assignee filter failed: %+v (%v)", byCurrent, err)
	}
	byPast, err := store.List(ctx, alerts.Filter{StationID: "st-a"})
	if err != nil || len(byPast) != 0 {
		t.Fatalf("past station must not match, got %+v (%v)", byPast, err)
	}
}
