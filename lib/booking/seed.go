package booking

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/pelletier/go-toml/v2"
)

// Seed is the content of a TOML seed file:
//
//	tenant = "acme"
//
//	[[facilities]]
//	id = "court-1"
//	name = "Court 1"
//	kind = "tennis"
//	capacity = 4
//	hourly_rate_cents = 2000
//	active = true
//
//	[[promotions]]
//	code = "SPRING"
//	percent_off = 20
//
//	[[bookings]]
//	facility = "court-1"
//	title = "Club training"
//	start = 2026-03-02T18:00:00Z
//	end = 2026-03-02T20:00:00Z
type Seed struct {
	Tenant     string            `toml:"tenant"`
	Facilities []model.Facility  `toml:"facilities"`
	Promotions []model.Promotion `toml:"promotions"`
	Bookings   []model.Booking   `toml:"bookings"`
}

// SeedResult counts what Apply created.
type SeedResult struct {
	Facilities int
	Promotions int
	Bookings   int
}

// LoadSeed reads a seed file. Facilities and bookings without a tenant inherit the tenant
// of the file.
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	bytes, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	if err := toml.Unmarshal(bytes, &seed); err != nil {
		return seed, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if strings.TrimSpace(seed.Tenant) == "" {
		return seed, fmt.Errorf("seed file %s: tenant is required", path)
	}
	for i := range seed.Facilities {
		if seed.Facilities[i].TenantID == "" {
			seed.Facilities[i].TenantID = seed.Tenant
		}
	}
	for i := range seed.Bookings {
		if seed.Bookings[i].TenantID == "" {
			seed.Bookings[i].TenantID = seed.Tenant
		}
	}
	return seed, nil
}

// Apply writes the seed to the API. Facilities and bookings whose id already exists are
// skipped, so a seed can be applied on every start. Promotions are upserted.
func (s Seed) Apply(ctx context.Context, a api.IBookingAPI) (SeedResult, error) {
	var res SeedResult

	facilities, err := a.ListFacilities(ctx, s.Tenant)
	if err != nil {
		return res, err
	}
	known := make(map[string]bool, len(facilities))
	for _, f := range facilities {
		known[f.ID] = true
	}
	for _, f := range s.Facilities {
		if f.ID != "" && known[f.ID] {
			continue
		}
		if _, err := a.CreateFacility(ctx, f); err != nil {
			return res, fmt.Errorf("seed facility %s: %w", f.Name, err)
		}
		res.Facilities++
	}

	for _, p := range s.Promotions {
		if err := a.UpsertPromotion(ctx, s.Tenant, p); err != nil {
			return res, fmt.Errorf("seed promotion %s: %w", p.Code, err)
		}
		res.Promotions++
	}

	bookings, err := a.ListBookings(ctx, s.Tenant)
	if err != nil {
		return res, err
	}
	known = make(map[string]bool, len(bookings))
	for _, b := range bookings {
		known[b.ID] = true
	}
	var fresh []model.Booking
	for _, b := range s.Bookings {
		if b.ID == "" || !known[b.ID] {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) > 0 {
		if _, err := a.CreateBookings(ctx, fresh); err != nil {
			return res, fmt.Errorf("seed bookings: %w", err)
		}
		res.Bookings = len(fresh)
	}

	Logger.Infof("seeded tenant %s: %d facilities, %d promotions, %d bookings",
		s.Tenant, res.Facilities, res.Promotions, res.Bookings)
	return res, nil
}
