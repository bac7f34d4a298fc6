package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
)

// Bookings is the optimistic read model of the bookings of one tenant.
//
// Every change is applied to the local store first and confirmed by the API afterwards.
// Single changes go through the "bookings" coordinator, series and multi-selections through
// the "bookings-batch" coordinator. Both share one store, so List always shows the
// combined speculative state.
//
// Bookings are addressed by their server id. Records that never reached the server (failed
// creates) have no server id and are addressed by their token instead.
type Bookings struct {
	api    api.IBookingAPI
	tenant string

	single *optimistic.Coordinator[model.Booking, model.Booking]
	batch  *optimistic.BatchCoordinator[model.Booking, []model.Booking]
	retry  *optimistic.RetryManager[model.Booking, model.Booking]
}

// NewBookings creates the bookings adapter. Call Load to fill it from the API.
func NewBookings(a api.IBookingAPI, cfg Config) *Bookings {
	single := optimistic.New(options[model.Booking, model.Booking](cfg, "bookings", "Booking saved", "Booking could not be saved"))
	batchOpts := options[model.Booking, []model.Booking](cfg, "bookings-batch", "Bookings saved", "Bookings could not be saved")
	return &Bookings{
		api:    a,
		tenant: cfg.Tenant,
		single: single,
		batch:  optimistic.NewBatchCoordinator(optimistic.NewCoordinator(single.Store(), batchOpts)),
		retry:  optimistic.NewRetryManager(single),
	}
}

// Load seeds the store with the confirmed bookings of the tenant. Bookings that are
// already present are skipped, so Load can be used to refresh.
func (b *Bookings) Load(ctx context.Context) (int, error) {
	bookings, err := b.api.ListBookings(ctx, b.tenant)
	if err != nil {
		return 0, fmt.Errorf("load bookings: %w", err)
	}
	known := make(map[string]bool)
	for _, existing := range b.single.Store().Data() {
		if existing.ID != "" {
			known[existing.ID] = true
		}
	}
	var fresh []model.Booking
	for _, booking := range bookings {
		if !known[booking.ID] {
			fresh = append(fresh, booking)
		}
	}
	b.single.Store().Seed(fresh...)
	Logger.Debugf("loaded %d bookings (%d new)", len(bookings), len(fresh))
	return len(fresh), nil
}

// --------------------------------------------------------------------------
// Single Bookings
// --------------------------------------------------------------------------

// Create books a slot. The booking shows up as pending immediately and is replaced by the
// confirmed server object (id, price, status) once the API accepts it.
func (b *Bookings) Create(ctx context.Context, booking model.Booking) (model.Booking, error) {
	booking = b.prepare(booking)
	if err := model.ValidateBooking(booking); err != nil {
		return model.Booking{}, err
	}
	_, created, err := b.single.Create(ctx, booking, b.api.CreateBooking)
	if err != nil {
		return model.Booking{}, err
	}
	b.single.Store().Seed(created)
	return created, nil
}

// Update applies p to the booking with the given id.
func (b *Bookings) Update(ctx context.Context, id string, p model.BookingPatch) (model.Booking, error) {
	rec, err := b.confirmed(id)
	if err != nil {
		return model.Booking{}, err
	}
	if err := model.ValidateBookingPatch(rec.Data, p); err != nil {
		return model.Booking{}, err
	}

	serverID := rec.Data.ID
	updated, err := b.single.Update(ctx, rec.ID, p, func(ctx context.Context, _ optimistic.Token, _ optimistic.Partial[model.Booking]) (model.Booking, error) {
		return b.api.UpdateBooking(ctx, serverID, p)
	})
	if err != nil {
		return model.Booking{}, err
	}
	// the server may have repriced the booking
	b.single.Store().Update(rec.ID, optimistic.Replace(updated))
	return updated, nil
}

// Cancel sets the status of a booking to cancelled, which frees its slot.
func (b *Bookings) Cancel(ctx context.Context, id string) (model.Booking, error) {
	return b.Update(ctx, id, model.StatusPatch(model.BookingCancelled))
}

// Delete deletes a booking. A record that never reached the server is discarded locally.
func (b *Bookings) Delete(ctx context.Context, id string) error {
	rec, ok := b.lookup(id)
	if !ok {
		return unknown("booking", id)
	}
	if rec.Data.ID == "" {
		b.single.Store().Remove(rec.ID)
		return nil
	}
	serverID := rec.Data.ID
	_, err := b.single.Remove(ctx, rec.ID, func(ctx context.Context, _ optimistic.Token) (model.Booking, error) {
		return rec.Data, b.api.DeleteBooking(ctx, serverID)
	})
	if err != nil {
		b.settle(serverID)
	}
	return err
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

// CreateSeries books the same slot weekly, weeks times starting with template. The series
// is confirmed as a whole: if one week conflicts, no week is booked.
func (b *Bookings) CreateSeries(ctx context.Context, template model.Booking, weeks int) ([]model.Booking, error) {
	if weeks <= 0 {
		return nil, optimistic.NewError(optimistic.RetCValidation, fmt.Sprintf("series: weeks must be positive, got %d", weeks))
	}
	template = b.prepare(template)
	items := make([]model.Booking, weeks)
	for i := range items {
		offset := time.Duration(i) * 7 * 24 * time.Hour
		item := template
		item.Start = template.Start.Add(offset)
		item.End = template.End.Add(offset)
		if err := model.ValidateBooking(item); err != nil {
			return nil, err
		}
		items[i] = item
	}

	_, created, err := b.batch.BatchCreate(ctx, items, b.api.CreateBookings)
	if err != nil {
		return nil, err
	}
	b.single.Store().Seed(created...)
	return created, nil
}

// DeleteMany deletes several bookings with one API call.
func (b *Bookings) DeleteMany(ctx context.Context, ids []string) error {
	tokens, serverIDs, err := b.resolve(ids)
	if err != nil {
		return err
	}
	_, err = b.batch.BatchDelete(ctx, tokens, func(ctx context.Context, _ []optimistic.Token) ([]model.Booking, error) {
		return nil, b.api.DeleteBookings(ctx, serverIDs)
	})
	if err != nil {
		b.settle(serverIDs...)
	}
	return err
}

// RescheduleMany moves several bookings by shift with one API call.
func (b *Bookings) RescheduleMany(ctx context.Context, ids []string, shift time.Duration) ([]model.Booking, error) {
	tokens, serverIDs, err := b.resolve(ids)
	if err != nil {
		return nil, err
	}

	updates := make([]optimistic.Update[model.Booking], len(tokens))
	remote := make([]api.BookingUpdate, len(tokens))
	for i, token := range tokens {
		rec, _ := b.single.Store().Get(token)
		p := model.ReschedulePatch(rec.Data.Start.Add(shift), rec.Data.End.Add(shift))
		if err := model.ValidateBookingPatch(rec.Data, p); err != nil {
			return nil, err
		}
		updates[i] = optimistic.Update[model.Booking]{ID: token, Patch: p}
		remote[i] = api.BookingUpdate{ID: serverIDs[i], Patch: p}
	}

	updated, err := b.batch.BatchUpdate(ctx, updates, func(ctx context.Context, _ []optimistic.Update[model.Booking]) ([]model.Booking, error) {
		return b.api.UpdateBookings(ctx, remote)
	})
	if err != nil {
		return nil, err
	}
	for i, booking := range updated {
		b.single.Store().Update(tokens[i], optimistic.Replace(booking))
	}
	return updated, nil
}

// --------------------------------------------------------------------------
// Retries
// --------------------------------------------------------------------------

// RetryFailed resubmits a failed create (see Config.RetainFailures).
func (b *Bookings) RetryFailed(ctx context.Context, id optimistic.Token) (model.Booking, error) {
	created, err := b.retry.RetryFailed(ctx, id, b.api.CreateBooking)
	if err != nil {
		return model.Booking{}, err
	}
	b.single.Store().Seed(created)
	return created, nil
}

// RetryAll resubmits every failed create and returns the bookings the API accepted.
func (b *Bookings) RetryAll(ctx context.Context) []model.Booking {
	created := b.retry.RetryAllFailed(ctx, b.api.CreateBooking)
	b.single.Store().Seed(created...)
	return created
}

// DismissFailed marks every failed record as resolved without resubmitting it.
func (b *Bookings) DismissFailed() {
	b.single.Store().ClearErrors()
}

// --------------------------------------------------------------------------
// Read Model
// --------------------------------------------------------------------------

// List returns the current bookings, speculative changes included, in insertion order.
func (b *Bookings) List() []model.Booking {
	return b.single.Store().Data()
}

// Records returns the records behind List.
func (b *Bookings) Records() []optimistic.Record[model.Booking] {
	return b.single.Store().Records()
}

// Pending returns the records waiting for a confirmation.
func (b *Bookings) Pending() []optimistic.Record[model.Booking] {
	var pending []optimistic.Record[model.Booking]
	for _, rec := range b.single.Store().Records() {
		if rec.IsOptimistic && rec.Status == optimistic.StatusPending {
			pending = append(pending, rec)
		}
	}
	return pending
}

// Failed returns the failed creates that can be retried.
func (b *Bookings) Failed() []optimistic.Record[model.Booking] {
	return b.retry.Failed()
}

// Subscribe registers fn for every change of List.
func (b *Bookings) Subscribe(fn func([]model.Booking)) func() {
	return b.single.Store().Subscribe(fn)
}

// Metrics returns the metrics of the single and the batch coordinator.
func (b *Bookings) Metrics() []*optimistic.Metrics {
	return []*optimistic.Metrics{b.single.Metrics(), b.batch.Coordinator().Metrics()}
}

// Close stops the auto-rollback timers and unregisters the metrics.
func (b *Bookings) Close() error {
	if err := b.batch.Coordinator().Close(); err != nil {
		return err
	}
	return b.single.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// prepare fills the defaults of a new booking.
func (b *Bookings) prepare(booking model.Booking) model.Booking {
	if booking.TenantID == "" {
		booking.TenantID = b.tenant
	}
	if booking.Status == "" {
		booking.Status = model.BookingPending
	}
	return booking
}

// lookup finds a record by server id or by token.
func (b *Bookings) lookup(id string) (optimistic.Record[model.Booking], bool) {
	store := b.single.Store()
	if token := optimistic.Token(id); token.Valid() {
		if rec, ok := store.Get(token); ok {
			return rec, true
		}
	}
	for _, rec := range store.Records() {
		if rec.Data.ID == id {
			return rec, true
		}
	}
	return optimistic.Record[model.Booking]{}, false
}

// confirmed finds a record that exists on the server.
func (b *Bookings) confirmed(id string) (optimistic.Record[model.Booking], error) {
	rec, ok := b.lookup(id)
	if !ok {
		return rec, unknown("booking", id)
	}
	if rec.Data.ID == "" {
		return rec, neverConfirmed("booking", id)
	}
	return rec, nil
}

// settle confirms the bookings restored after a failed delete.
func (b *Bookings) settle(serverIDs ...string) {
	settle(b.single.Store(), func(booking model.Booking) string { return booking.ID }, serverIDs...)
}

// resolve maps ids to tokens and server ids. Every id must exist on the server.
func (b *Bookings) resolve(ids []string) ([]optimistic.Token, []string, error) {
	tokens := make([]optimistic.Token, 0, len(ids))
	serverIDs := make([]string, 0, len(ids))
	seen := make(map[optimistic.Token]bool, len(ids))
	for _, id := range ids {
		rec, err := b.confirmed(id)
		if err != nil {
			return nil, nil, err
		}
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		tokens = append(tokens, rec.ID)
		serverIDs = append(serverIDs, rec.Data.ID)
	}
	return tokens, serverIDs, nil
}
