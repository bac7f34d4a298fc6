package booking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const tenant = "acme"

var (
	base      = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	errRemote = errors.New("remote unavailable")
)

func at(hours float64) time.Time {
	return base.Add(time.Duration(hours * float64(time.Hour)))
}

// flakyAPI rejects every mutation while failing is set.
type flakyAPI struct {
	api.IBookingAPI
	failing atomic.Bool
}

func (f *flakyAPI) CreateFacility(ctx context.Context, fac model.Facility) (model.Facility, error) {
	if f.failing.Load() {
		return model.Facility{}, errRemote
	}
	return f.IBookingAPI.CreateFacility(ctx, fac)
}

func (f *flakyAPI) UpdateFacility(ctx context.Context, id string, p model.FacilityPatch) (model.Facility, error) {
	if f.failing.Load() {
		return model.Facility{}, errRemote
	}
	return f.IBookingAPI.UpdateFacility(ctx, id, p)
}

func (f *flakyAPI) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	if f.failing.Load() {
		return model.Booking{}, errRemote
	}
	return f.IBookingAPI.CreateBooking(ctx, b)
}

func (f *flakyAPI) UpdateBooking(ctx context.Context, id string, p model.BookingPatch) (model.Booking, error) {
	if f.failing.Load() {
		return model.Booking{}, errRemote
	}
	return f.IBookingAPI.UpdateBooking(ctx, id, p)
}

func (f *flakyAPI) UpdateBookings(ctx context.Context, updates []api.BookingUpdate) ([]model.Booking, error) {
	if f.failing.Load() {
		return nil, errRemote
	}
	return f.IBookingAPI.UpdateBookings(ctx, updates)
}

func (f *flakyAPI) DeleteBooking(ctx context.Context, id string) error {
	if f.failing.Load() {
		return errRemote
	}
	return f.IBookingAPI.DeleteBooking(ctx, id)
}

func (f *flakyAPI) DeleteBookings(ctx context.Context, ids []string) error {
	if f.failing.Load() {
		return errRemote
	}
	return f.IBookingAPI.DeleteBookings(ctx, ids)
}

type fixture struct {
	api        *flakyAPI
	bookings   *Bookings
	facilities *Facilities
	court      model.Facility
	hall       model.Facility
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()

	sqlAPI, err := api.OpenSQL(ctx, api.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlAPI.Close() })

	cfg.Tenant = tenant
	fx := &fixture{api: &flakyAPI{IBookingAPI: sqlAPI}}
	fx.bookings = NewBookings(fx.api, cfg)
	fx.facilities = NewFacilities(fx.api, cfg)
	t.Cleanup(func() {
		_ = fx.bookings.Close()
		_ = fx.facilities.Close()
	})

	fx.court, err = fx.facilities.Create(ctx, model.Facility{Name: "Court 1", Kind: "tennis", Capacity: 4, HourlyRateCents: 2000})
	if err != nil {
		t.Fatalf("Failed to create facility: %v", err)
	}
	fx.hall, err = fx.facilities.Create(ctx, model.Facility{Name: "Hall", Kind: "gym", Capacity: 30, HourlyRateCents: 6000})
	if err != nil {
		t.Fatalf("Failed to create facility: %v", err)
	}
	return fx
}

func (fx *fixture) slot(from, to float64) model.Booking {
	return model.Booking{FacilityID: fx.court.ID, Title: "Training", Customer: "Ada", Start: at(from), End: at(to)}
}

func (fx *fixture) mustCreate(t *testing.T, from, to float64) model.Booking {
	t.Helper()
	b, err := fx.bookings.Create(context.Background(), fx.slot(from, to))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return b
}

// remote returns the bookings the API holds.
func (fx *fixture) remote(t *testing.T) []model.Booking {
	t.Helper()
	list, err := fx.api.ListBookings(context.Background(), tenant)
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	return list
}

func recordOf(t *testing.T, b *Bookings, id string) optimistic.Record[model.Booking] {
	t.Helper()
	rec, ok := b.lookup(id)
	if !ok {
		t.Fatalf("Expected record %s to exist", id)
	}
	return rec
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestBookingsCreate(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})

	created := fx.mustCreate(t, 0, 1.5)
	if created.ID == "" || created.Status != model.BookingConfirmed || created.PriceCents != 3000 {
		t.Errorf("Unexpected booking: %+v", created)
	}
	if diff := cmp.Diff([]model.Booking{created}, fx.bookings.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
	if len(fx.bookings.Pending()) != 0 {
		t.Errorf("Expected nothing pending")
	}

	t.Run("Conflict", func(t *testing.T) {
		_, err := fx.bookings.Create(ctx, fx.slot(1, 2))
		if !errors.Is(err, api.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}
		if optimistic.CodeOf(err) != optimistic.RetCConfirmFailed {
			t.Errorf("Expected RetCConfirmFailed, got %v", optimistic.CodeOf(err))
		}
		// the rejected booking stays visible as rolled back
		last := fx.bookings.Records()[len(fx.bookings.Records())-1]
		if last.Status != optimistic.StatusRollback || last.IsOptimistic || last.Data.ID != "" {
			t.Errorf("Unexpected record after rejected create: %+v", last)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		before := len(fx.bookings.Records())
		_, err := fx.bookings.Create(ctx, model.Booking{FacilityID: fx.court.ID, Start: at(5), End: at(4)})
		if optimistic.CodeOf(err) != optimistic.RetCValidation {
			t.Errorf("Expected validation error, got %v", err)
		}
		if len(fx.bookings.Records()) != before {
			t.Errorf("Invalid booking reached the store")
		}
	})
}

func TestBookingsRetry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{RetainFailures: true})

	fx.api.failing.Store(true)
	if _, err := fx.bookings.Create(ctx, fx.slot(0, 1)); !errors.Is(err, errRemote) {
		t.Fatalf("Expected errRemote, got %v", err)
	}
	if _, err := fx.bookings.Create(ctx, fx.slot(2, 3)); !errors.Is(err, errRemote) {
		t.Fatalf("Expected errRemote, got %v", err)
	}

	failed := fx.bookings.Failed()
	if len(failed) != 2 {
		t.Fatalf("Expected 2 failed records, got %d", len(failed))
	}
	if failed[0].Error != errRemote.Error() {
		t.Errorf("Expected error message %q, got %q", errRemote, failed[0].Error)
	}

	// still failing: the record goes back to the failed state
	if _, err := fx.bookings.RetryFailed(ctx, failed[0].ID); err == nil {
		t.Fatalf("Expected retry to fail")
	}
	if len(fx.bookings.Failed()) != 2 {
		t.Errorf("Expected both records to stay failed")
	}

	fx.api.failing.Store(false)
	created, err := fx.bookings.RetryFailed(ctx, failed[0].ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if created.ID == "" {
		t.Errorf("Expected confirmed booking")
	}
	if all := fx.bookings.RetryAll(ctx); len(all) != 1 {
		t.Errorf("Expected RetryAll to confirm 1 booking, got %d", len(all))
	}
	if len(fx.bookings.Failed()) != 0 || len(fx.remote(t)) != 2 {
		t.Errorf("Expected every failed booking to reach the server")
	}

	// retrying a confirmed record is refused
	if _, err := fx.bookings.RetryFailed(ctx, recordOf(t, fx.bookings, created.ID).ID); optimistic.CodeOf(err) != optimistic.RetCInvalidState {
		t.Errorf("Expected RetCInvalidState, got %v", err)
	}
}

func TestBookingsDismissFailed(t *testing.T) {
	fx := newFixture(t, Config{RetainFailures: true})

	fx.api.failing.Store(true)
	_, _ = fx.bookings.Create(context.Background(), fx.slot(0, 1))
	fx.bookings.DismissFailed()

	if len(fx.bookings.Failed()) != 0 {
		t.Errorf("Expected no failed records after dismiss")
	}
}

func TestBookingsUpdate(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})
	b := fx.mustCreate(t, 0, 1)

	moved, err := fx.bookings.Update(ctx, b.ID, model.ReschedulePatch(at(2), at(4)))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if moved.PriceCents != 4000 {
		t.Errorf("Expected repriced booking, got %d", moved.PriceCents)
	}
	rec := recordOf(t, fx.bookings, b.ID)
	if rec.Data.PriceCents != 4000 || rec.Status != optimistic.StatusSuccess || rec.IsOptimistic {
		t.Errorf("Expected confirmed server object in store, got %+v", rec)
	}

	fx.api.failing.Store(true)
	if _, err := fx.bookings.Update(ctx, b.ID, model.ReschedulePatch(at(6), at(7))); !errors.Is(err, errRemote) {
		t.Fatalf("Expected errRemote, got %v", err)
	}
	rec = recordOf(t, fx.bookings, b.ID)
	if !rec.Data.Start.Equal(at(2)) || rec.Status != optimistic.StatusRollback {
		t.Errorf("Expected restored start and rollback status, got %+v", rec)
	}

	if _, err := fx.bookings.Update(ctx, "missing", model.StatusPatch(model.BookingCancelled)); optimistic.CodeOf(err) != optimistic.RetCUnknownRecord {
		t.Errorf("Expected RetCUnknownRecord, got %v", err)
	}
}

func TestBookingsKeepFailedUpdates(t *testing.T) {
	fx := newFixture(t, Config{KeepFailedUpdates: true})
	b := fx.mustCreate(t, 0, 1)

	fx.api.failing.Store(true)
	_, _ = fx.bookings.Update(context.Background(), b.ID, model.ReschedulePatch(at(6), at(7)))

	rec := recordOf(t, fx.bookings, b.ID)
	if !rec.Data.Start.Equal(at(6)) || rec.Status != optimistic.StatusRollback {
		t.Errorf("Expected rejected value to be kept, got %+v", rec)
	}
}

func TestBookingsCancel(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})
	b := fx.mustCreate(t, 0, 1)

	cancelled, err := fx.bookings.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Errorf("Expected cancelled booking, got %s", cancelled.Status)
	}
	// the slot is free again
	fx.mustCreate(t, 0, 1)
}

func TestBookingsDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		fx := newFixture(t, Config{})
		b := fx.mustCreate(t, 0, 1)
		if err := fx.bookings.Delete(ctx, b.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if len(fx.bookings.List()) != 0 || len(fx.remote(t)) != 0 {
			t.Errorf("Expected booking to be gone")
		}
	})

	t.Run("Failure", func(t *testing.T) {
		fx := newFixture(t, Config{})
		b := fx.mustCreate(t, 0, 1)
		token := recordOf(t, fx.bookings, b.ID).ID

		fx.api.failing.Store(true)
		if err := fx.bookings.Delete(ctx, b.ID); !errors.Is(err, errRemote) {
			t.Fatalf("Expected errRemote, got %v", err)
		}
		rec := recordOf(t, fx.bookings, b.ID)
		if rec.ID == token {
			t.Errorf("Expected the booking to come back under a new token")
		}
		if rec.IsOptimistic || rec.Status != optimistic.StatusSuccess {
			t.Errorf("Expected restored booking to be settled, got %+v", rec)
		}
	})

	t.Run("PreserveTokens", func(t *testing.T) {
		fx := newFixture(t, Config{PreserveTokens: true})
		b := fx.mustCreate(t, 0, 1)
		token := recordOf(t, fx.bookings, b.ID).ID

		fx.api.failing.Store(true)
		_ = fx.bookings.Delete(ctx, b.ID)
		if rec := recordOf(t, fx.bookings, b.ID); rec.ID != token {
			t.Errorf("Expected token %s, got %s", token, rec.ID)
		}
	})

	t.Run("LocalOnly", func(t *testing.T) {
		fx := newFixture(t, Config{})
		fx.api.failing.Store(true)
		_, _ = fx.bookings.Create(ctx, fx.slot(0, 1))

		token := fx.bookings.Records()[0].ID
		if err := fx.bookings.Delete(ctx, token.String()); err != nil {
			t.Fatalf("Discarding a local record failed: %v", err)
		}
		if len(fx.bookings.Records()) != 0 {
			t.Errorf("Expected local record to be discarded")
		}
	})
}

func TestBookingsSeries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})

	series, err := fx.bookings.CreateSeries(ctx, fx.slot(0, 1), 3)
	if err != nil {
		t.Fatalf("CreateSeries failed: %v", err)
	}
	if len(series) != 3 || !series[2].Start.Equal(at(0).AddDate(0, 0, 14)) {
		t.Errorf("Unexpected series: %+v", series)
	}

	// both weeks of this series overlap the series above
	template := fx.slot(0.5, 1.5)
	template.Start = template.Start.AddDate(0, 0, 7)
	template.End = template.End.AddDate(0, 0, 7)
	if _, err := fx.bookings.CreateSeries(ctx, template, 2); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	if n := len(fx.remote(t)); n != 3 {
		t.Errorf("Expected the rejected series to book nothing, got %d bookings", n)
	}
	rolledBack := 0
	for _, rec := range fx.bookings.Records() {
		if rec.Status == optimistic.StatusRollback {
			rolledBack++
		}
	}
	if rolledBack != 2 {
		t.Errorf("Expected 2 rolled back records, got %d", rolledBack)
	}

	if _, err := fx.bookings.CreateSeries(ctx, fx.slot(0, 1), 0); optimistic.CodeOf(err) != optimistic.RetCValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestBookingsRescheduleMany(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})
	first := fx.mustCreate(t, 0, 1)
	second := fx.mustCreate(t, 1, 2)

	moved, err := fx.bookings.RescheduleMany(ctx, []string{first.ID, second.ID}, 24*time.Hour)
	if err != nil {
		t.Fatalf("RescheduleMany failed: %v", err)
	}
	if len(moved) != 2 || !moved[0].Start.Equal(at(24)) {
		t.Errorf("Unexpected result: %+v", moved)
	}

	fx.api.failing.Store(true)
	if _, err := fx.bookings.RescheduleMany(ctx, []string{first.ID, second.ID}, time.Hour); !errors.Is(err, errRemote) {
		t.Fatalf("Expected errRemote, got %v", err)
	}
	for i, id := range []string{first.ID, second.ID} {
		rec := recordOf(t, fx.bookings, id)
		if !rec.Data.Start.Equal(at(24+float64(i))) || rec.Status != optimistic.StatusRollback {
			t.Errorf("Expected %s to be restored and rolled back, got %+v", id, rec)
		}
	}

	if _, err := fx.bookings.RescheduleMany(ctx, []string{"missing"}, time.Hour); optimistic.CodeOf(err) != optimistic.RetCUnknownRecord {
		t.Errorf("Expected RetCUnknownRecord, got %v", err)
	}
}

func TestBookingsDeleteMany(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})
	first := fx.mustCreate(t, 0, 1)
	second := fx.mustCreate(t, 1, 2)
	third := fx.mustCreate(t, 2, 3)

	fx.api.failing.Store(true)
	if err := fx.bookings.DeleteMany(ctx, []string{first.ID, third.ID}); !errors.Is(err, errRemote) {
		t.Fatalf("Expected errRemote, got %v", err)
	}
	if len(fx.bookings.List()) != 3 || len(fx.bookings.Pending()) != 0 {
		t.Errorf("Expected all bookings back and settled")
	}

	fx.api.failing.Store(false)
	if err := fx.bookings.DeleteMany(ctx, []string{first.ID, third.ID, first.ID}); err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}
	if diff := cmp.Diff([]model.Booking{second}, fx.bookings.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestBookingsLoad(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})
	fx.mustCreate(t, 0, 1)

	// a second console on the same database
	other := NewBookings(fx.api, Config{Tenant: tenant})
	defer func() { _ = other.Close() }()

	if n, err := other.Load(ctx); err != nil || n != 1 {
		t.Fatalf("Load() = %d, %v, want 1, nil", n, err)
	}
	if n, err := other.Load(ctx); err != nil || n != 0 {
		t.Errorf("Second Load() = %d, %v, want 0, nil", n, err)
	}
	if diff := cmp.Diff(fx.bookings.List(), other.List()); diff != "" {
		t.Errorf("Loaded bookings mismatch (-want +got):\n%s", diff)
	}
}

func TestBookingsSubscribe(t *testing.T) {
	fx := newFixture(t, Config{})

	var calls atomic.Int32
	cancel := fx.bookings.Subscribe(func([]model.Booking) { calls.Add(1) })
	fx.mustCreate(t, 0, 1)
	cancel()

	// add, remove of the speculative record and seed of the confirmed one
	if got := calls.Load(); got < 2 {
		t.Errorf("Expected at least 2 notifications, got %d", got)
	}
}

func TestBookingsAutoRollback(t *testing.T) {
	fx := newFixture(t, Config{AutoRollback: true, RollbackDelay: 20 * time.Millisecond})

	slow := api.WithFaults(fx.api, api.FaultConfig{Latency: 200 * time.Millisecond})
	bookings := NewBookings(slow, Config{Tenant: tenant, AutoRollback: true, RollbackDelay: 20 * time.Millisecond})
	defer func() { _ = bookings.Close() }()

	if _, err := bookings.Create(context.Background(), fx.slot(0, 1)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// the confirmation arrived after the auto-rollback: the confirmed booking is merged
	// and the rolled back speculative record was removed
	if diff := cmp.Diff(fx.remote(t), bookings.List(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
	if m := bookings.Metrics()[0]; m.Rollbacks() != 1 {
		t.Errorf("Expected 1 rollback, got %d", m.Rollbacks())
	}
}

func TestFacilities(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Config{})

	if !fx.court.Active || fx.court.TenantID != tenant {
		t.Errorf("Unexpected facility: %+v", fx.court)
	}

	inactive, err := fx.facilities.Deactivate(ctx, fx.court.ID)
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if inactive.Active {
		t.Errorf("Expected inactive facility")
	}
	if f, _ := fx.facilities.Get(fx.court.ID); f.Active {
		t.Errorf("Expected store to hold the inactive facility")
	}
	if _, err := fx.bookings.Create(ctx, fx.slot(0, 1)); !errors.Is(err, api.ErrFacilityInactive) {
		t.Errorf("Expected ErrFacilityInactive, got %v", err)
	}

	b := model.Booking{FacilityID: fx.hall.ID, Title: "Yoga", Start: at(0), End: at(1)}
	if _, err := fx.bookings.Create(ctx, b); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := fx.facilities.Delete(ctx, fx.hall.ID); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	if _, ok := fx.facilities.Get(fx.hall.ID); !ok {
		t.Errorf("Expected the facility to come back after the rejected delete")
	}
	if rec, _ := fx.facilities.lookup(fx.hall.ID); rec.IsOptimistic || rec.Status != optimistic.StatusSuccess {
		t.Errorf("Expected the restored facility to be settled, got status=%s optimistic=%v", rec.Status, rec.IsOptimistic)
	}

	if err := fx.facilities.Delete(ctx, fx.court.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := fx.facilities.Get(fx.court.ID); ok {
		t.Errorf("Expected the facility to be gone")
	}

	fx.api.failing.Store(true)
	name := "Main Hall"
	if _, err := fx.facilities.Update(ctx, fx.hall.ID, model.FacilityPatch{Name: &name}); !errors.Is(err, errRemote) {
		t.Fatalf("Expected errRemote, got %v", err)
	}
	if f, _ := fx.facilities.Get(fx.hall.ID); f.Name != "Hall" {
		t.Errorf("Expected name to be restored, got %q", f.Name)
	}
	if err := fx.facilities.Delete(ctx, "missing"); optimistic.CodeOf(err) != optimistic.RetCUnknownRecord {
		t.Errorf("Expected RetCUnknownRecord, got %v", err)
	}

	// a facility that never reached the server cannot be changed or deleted
	fx.facilities.c.Store().Add(model.Facility{Name: "Draft", TenantID: tenant})
	if _, err := fx.facilities.Update(ctx, "", model.FacilityPatch{Name: &name}); optimistic.CodeOf(err) != optimistic.RetCInvalidState {
		t.Errorf("Expected RetCInvalidState for Update, got %v", err)
	}
	if err := fx.facilities.Delete(ctx, ""); optimistic.CodeOf(err) != optimistic.RetCInvalidState {
		t.Errorf("Expected RetCInvalidState for Delete, got %v", err)
	}
}
