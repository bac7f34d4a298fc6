package booking

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
)

// Facilities is the optimistic read model of the facilities of one tenant.
type Facilities struct {
	api    api.IBookingAPI
	tenant string
	c      *optimistic.Coordinator[model.Facility, model.Facility]
}

// NewFacilities creates the facilities adapter. Call Load to fill it from the API.
func NewFacilities(a api.IBookingAPI, cfg Config) *Facilities {
	return &Facilities{
		api:    a,
		tenant: cfg.Tenant,
		c:      optimistic.New(options[model.Facility, model.Facility](cfg, "facilities", "Facility saved", "Facility could not be saved")),
	}
}

// Load seeds the store with the facilities of the tenant, skipping known ones.
func (f *Facilities) Load(ctx context.Context) (int, error) {
	facilities, err := f.api.ListFacilities(ctx, f.tenant)
	if err != nil {
		return 0, fmt.Errorf("load facilities: %w", err)
	}
	var fresh []model.Facility
	for _, facility := range facilities {
		if _, ok := f.lookup(facility.ID); !ok {
			fresh = append(fresh, facility)
		}
	}
	f.c.Store().Seed(fresh...)
	return len(fresh), nil
}

// Create adds a facility. New facilities are active.
func (f *Facilities) Create(ctx context.Context, facility model.Facility) (model.Facility, error) {
	if facility.TenantID == "" {
		facility.TenantID = f.tenant
	}
	facility.Active = true
	if err := model.ValidateFacility(facility); err != nil {
		return model.Facility{}, err
	}
	_, created, err := f.c.Create(ctx, facility, f.api.CreateFacility)
	if err != nil {
		return model.Facility{}, err
	}
	f.c.Store().Seed(created)
	return created, nil
}

// Update applies p to the facility with the given id.
func (f *Facilities) Update(ctx context.Context, id string, p model.FacilityPatch) (model.Facility, error) {
	rec, err := f.confirmed(id)
	if err != nil {
		return model.Facility{}, err
	}
	if err := model.ValidateFacility(p.MergeInto(rec.Data)); err != nil {
		return model.Facility{}, err
	}
	updated, err := f.c.Update(ctx, rec.ID, p, func(ctx context.Context, _ optimistic.Token, _ optimistic.Partial[model.Facility]) (model.Facility, error) {
		return f.api.UpdateFacility(ctx, id, p)
	})
	if err != nil {
		return model.Facility{}, err
	}
	return updated, nil
}

// Deactivate stops new bookings of a facility. Existing bookings are kept.
func (f *Facilities) Deactivate(ctx context.Context, id string) (model.Facility, error) {
	inactive := false
	return f.Update(ctx, id, model.FacilityPatch{Active: &inactive})
}

// Delete deletes a facility. The API refuses facilities that still have bookings; the
// restored facility is then confirmed again.
func (f *Facilities) Delete(ctx context.Context, id string) error {
	rec, err := f.confirmed(id)
	if err != nil {
		return err
	}
	_, err = f.c.Remove(ctx, rec.ID, func(ctx context.Context, _ optimistic.Token) (model.Facility, error) {
		return rec.Data, f.api.DeleteFacility(ctx, id)
	})
	if err != nil {
		settle(f.c.Store(), func(facility model.Facility) string { return facility.ID }, id)
	}
	return err
}

// List returns the current facilities, speculative changes included.
func (f *Facilities) List() []model.Facility {
	return f.c.Store().Data()
}

// Get returns the facility with the given id.
func (f *Facilities) Get(id string) (model.Facility, bool) {
	rec, ok := f.lookup(id)
	return rec.Data, ok
}

// Metrics returns the metrics of the facilities coordinator.
func (f *Facilities) Metrics() *optimistic.Metrics {
	return f.c.Metrics()
}

// Close stops the auto-rollback timers and unregisters the metrics.
func (f *Facilities) Close() error {
	return f.c.Close()
}

// confirmed finds a facility that exists on the server.
func (f *Facilities) confirmed(id string) (optimistic.Record[model.Facility], error) {
	if id == "" {
		return optimistic.Record[model.Facility]{}, neverConfirmed("facility", id)
	}
	rec, ok := f.lookup(id)
	if !ok {
		return rec, unknown("facility", id)
	}
	if rec.Data.ID == "" {
		return rec, neverConfirmed("facility", id)
	}
	return rec, nil
}

func (f *Facilities) lookup(id string) (optimistic.Record[model.Facility], bool) {
	for _, rec := range f.c.Store().Records() {
		if rec.Data.ID == id {
			return rec, true
		}
	}
	return optimistic.Record[model.Facility]{}, false
}
