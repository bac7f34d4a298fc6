package booking

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/google/go-cmp/cmp"
)

const seedFile = `
tenant = "acme"

[[facilities]]
id = "court-1"
name = "Court 1"
kind = "tennis"
capacity = 4
hourly_rate_cents = 2000
active = true

[[facilities]]
id = "hall"
name = "Hall"
kind = "gym"
capacity = 30
hourly_rate_cents = 6000
active = true

[[promotions]]
code = "SPRING"
percent_off = 50

[[bookings]]
id = "b-1"
facility = "court-1"
title = "Club training"
start = 2026-03-02T18:00:00Z
end = 2026-03-02T20:00:00Z
promotion = "SPRING"

[[bookings]]
id = "b-2"
facility = "hall"
title = "Yoga"
customer = "Grace"
start = 2026-03-03T08:00:00Z
end = 2026-03-03T09:00:00Z
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	return path
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(writeSeed(t, seedFile))
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}

	if len(seed.Facilities) != 2 || len(seed.Promotions) != 1 || len(seed.Bookings) != 2 {
		t.Fatalf("Unexpected seed: %+v", seed)
	}
	want := model.Booking{
		ID:            "b-1",
		TenantID:      "acme",
		FacilityID:    "court-1",
		Title:         "Club training",
		Start:         time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		End:           time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC),
		PromotionCode: "SPRING",
	}
	if diff := cmp.Diff(want, seed.Bookings[0]); diff != "" {
		t.Errorf("Booking mismatch (-want +got):\n%s", diff)
	}
	if seed.Facilities[1].TenantID != "acme" {
		t.Errorf("Expected facility to inherit the tenant")
	}

	if _, err := LoadSeed(writeSeed(t, `[[facilities]]`)); err == nil {
		t.Errorf("Expected seed without tenant to fail")
	}
	if _, err := LoadSeed(writeSeed(t, `tenant = `)); err == nil {
		t.Errorf("Expected invalid TOML to fail")
	}
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("Expected missing file to fail")
	}
}

func TestSeedApply(t *testing.T) {
	ctx := context.Background()
	a, err := api.OpenSQL(ctx, api.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer func() { _ = a.Close() }()

	seed, err := LoadSeed(writeSeed(t, seedFile))
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}

	res, err := seed.Apply(ctx, a)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res != (SeedResult{Facilities: 2, Promotions: 1, Bookings: 2}) {
		t.Errorf("Unexpected result %+v", res)
	}

	// applying the same seed again creates nothing
	res, err = seed.Apply(ctx, a)
	if err != nil {
		t.Fatalf("Second Apply failed: %v", err)
	}
	if res.Facilities != 0 || res.Bookings != 0 {
		t.Errorf("Expected second Apply to skip known ids, got %+v", res)
	}

	bookings, _ := a.ListBookings(ctx, "acme")
	if len(bookings) != 2 || bookings[0].PriceCents != 2000 {
		t.Errorf("Unexpected bookings after seeding: %+v", bookings)
	}
}

func TestExport(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.mustCreate(t, 0, 1)

	path := filepath.Join(t.TempDir(), "export.json")
	if err := WriteExport(path, NewExport(tenant, fx.bookings, fx.facilities)); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	var exp Export
	if err := json.Unmarshal(raw, &exp); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if exp.Tenant != tenant || len(exp.Facilities) != 2 || len(exp.Bookings) != 1 {
		t.Errorf("Unexpected export: %+v", exp)
	}
	if b := exp.Bookings[0]; b.Status != "success" || b.IsOptimistic || b.Token == "" {
		t.Errorf("Unexpected exported booking: %+v", b)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{RetainFailures: true})

	fx.mustCreate(t, 0, 1)
	fx.mustCreate(t, 2, 4)
	cancelled := fx.mustCreate(t, 5, 6)
	if _, err := fx.bookings.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	fx.api.failing.Store(true)
	_, _ = fx.bookings.Create(ctx, fx.slot(8, 9))

	snap := NewDashboard(fx.bookings, fx.facilities).Stats()

	if snap.Bookings != 3 || snap.Failed != 1 || snap.Pending != 0 {
		t.Errorf("Unexpected totals: %+v", snap)
	}
	if snap.ByStatus[model.BookingConfirmed] != 2 || snap.ByStatus[model.BookingCancelled] != 1 {
		t.Errorf("Unexpected status counts: %v", snap.ByStatus)
	}
	if snap.RevenueCents != 6000 {
		t.Errorf("Expected revenue 6000, got %d", snap.RevenueCents)
	}

	wantUsage := []FacilityUsage{
		{ID: fx.court.ID, Name: "Court 1", Bookings: 2, Booked: 3 * time.Hour, Revenue: 6000},
		{ID: fx.hall.ID, Name: "Hall"},
	}
	if diff := cmp.Diff(wantUsage, snap.Facilities); diff != "" {
		t.Errorf("Usage mismatch (-want +got):\n%s", diff)
	}
	if snap.Utilization.Max != 3 || snap.Utilization.Min != 0 || snap.Utilization.Balance != 0 {
		t.Errorf("Unexpected utilization: %+v", snap.Utilization)
	}
	if snap.MeanDuration != 90*time.Minute {
		t.Errorf("Expected mean duration 1h30m, got %s", snap.MeanDuration)
	}

	if len(snap.Latency) != 3 {
		t.Fatalf("Expected latency of 3 coordinators, got %d", len(snap.Latency))
	}
	if l := snap.Latency[0]; l.Coordinator != "bookings" || l.Count != 5 {
		t.Errorf("Unexpected latency stats: %+v", l)
	}
}
