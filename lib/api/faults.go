package api

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ValentinKolb/dBook/lib/model"
)

// ErrInjected is returned by calls that a faulty API rejected on purpose.
var ErrInjected = errors.New("injected failure")

// FaultConfig controls WithFaults.
type FaultConfig struct {
	// FailRate is the probability in [0, 1] that a mutating call fails with ErrInjected.
	FailRate float64
	// Latency is added to every call. It is interrupted by ctx.
	Latency time.Duration
	// Seed makes the failure sequence reproducible. 0 seeds from the clock.
	Seed uint64
}

// faultyAPI wraps an IBookingAPI and makes it slow and unreliable, to see the optimistic
// engine roll back from the console.
type faultyAPI struct {
	IBookingAPI
	cfg FaultConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// WithFaults returns an IBookingAPI that delays every call by cfg.Latency and rejects
// mutating calls with probability cfg.FailRate. Reads never fail. A rejected call does
// not reach the wrapped API.
func WithFaults(api IBookingAPI, cfg FaultConfig) IBookingAPI {
	if cfg.FailRate <= 0 && cfg.Latency <= 0 {
		return api
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &faultyAPI{
		IBookingAPI: api,
		cfg:         cfg,
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// delay waits for the configured latency or until ctx is done.
func (f *faultyAPI) delay(ctx context.Context) error {
	if f.cfg.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.cfg.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// gate runs before every mutating call.
func (f *faultyAPI) gate(ctx context.Context, op string) error {
	if err := f.delay(ctx); err != nil {
		return err
	}
	if f.cfg.FailRate <= 0 {
		return nil
	}
	f.mu.Lock()
	fail := f.rng.Float64() < f.cfg.FailRate
	f.mu.Unlock()
	if fail {
		Logger.Debugf("injecting failure into %s", op)
		return ErrInjected
	}
	return nil
}

func (f *faultyAPI) ListFacilities(ctx context.Context, tenant string) ([]model.Facility, error) {
	if err := f.delay(ctx); err != nil {
		return nil, err
	}
	return f.IBookingAPI.ListFacilities(ctx, tenant)
}

func (f *faultyAPI) CreateFacility(ctx context.Context, fac model.Facility) (model.Facility, error) {
	if err := f.gate(ctx, "CreateFacility"); err != nil {
		return model.Facility{}, err
	}
	return f.IBookingAPI.CreateFacility(ctx, fac)
}

func (f *faultyAPI) UpdateFacility(ctx context.Context, id string, p model.FacilityPatch) (model.Facility, error) {
	if err := f.gate(ctx, "UpdateFacility"); err != nil {
		return model.Facility{}, err
	}
	return f.IBookingAPI.UpdateFacility(ctx, id, p)
}

func (f *faultyAPI) DeleteFacility(ctx context.Context, id string) error {
	if err := f.gate(ctx, "DeleteFacility"); err != nil {
		return err
	}
	return f.IBookingAPI.DeleteFacility(ctx, id)
}

func (f *faultyAPI) ListBookings(ctx context.Context, tenant string) ([]model.Booking, error) {
	if err := f.delay(ctx); err != nil {
		return nil, err
	}
	return f.IBookingAPI.ListBookings(ctx, tenant)
}

func (f *faultyAPI) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	if err := f.gate(ctx, "CreateBooking"); err != nil {
		return model.Booking{}, err
	}
	return f.IBookingAPI.CreateBooking(ctx, b)
}

func (f *faultyAPI) CreateBookings(ctx context.Context, bookings []model.Booking) ([]model.Booking, error) {
	if err := f.gate(ctx, "CreateBookings"); err != nil {
		return nil, err
	}
	return f.IBookingAPI.CreateBookings(ctx, bookings)
}

func (f *faultyAPI) UpdateBooking(ctx context.Context, id string, p model.BookingPatch) (model.Booking, error) {
	if err := f.gate(ctx, "UpdateBooking"); err != nil {
		return model.Booking{}, err
	}
	return f.IBookingAPI.UpdateBooking(ctx, id, p)
}

func (f *faultyAPI) UpdateBookings(ctx context.Context, updates []BookingUpdate) ([]model.Booking, error) {
	if err := f.gate(ctx, "UpdateBookings"); err != nil {
		return nil, err
	}
	return f.IBookingAPI.UpdateBookings(ctx, updates)
}

func (f *faultyAPI) DeleteBooking(ctx context.Context, id string) error {
	if err := f.gate(ctx, "DeleteBooking"); err != nil {
		return err
	}
	return f.IBookingAPI.DeleteBooking(ctx, id)
}

func (f *faultyAPI) DeleteBookings(ctx context.Context, ids []string) error {
	if err := f.gate(ctx, "DeleteBookings"); err != nil {
		return err
	}
	return f.IBookingAPI.DeleteBookings(ctx, ids)
}

func (f *faultyAPI) ListPromotions(ctx context.Context, tenant string) ([]model.Promotion, error) {
	if err := f.delay(ctx); err != nil {
		return nil, err
	}
	return f.IBookingAPI.ListPromotions(ctx, tenant)
}

func (f *faultyAPI) UpsertPromotion(ctx context.Context, tenant string, p model.Promotion) error {
	if err := f.gate(ctx, "UpsertPromotion"); err != nil {
		return err
	}
	return f.IBookingAPI.UpsertPromotion(ctx, tenant, p)
}
