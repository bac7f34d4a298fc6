package api

import (
	"context"
	"errors"

	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("api")

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotFound is returned for unknown facilities, bookings and promotions.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned if a booking would overlap another active booking of the
	// same facility, or if a facility that still has bookings is deleted.
	ErrConflict = errors.New("conflict")
	// ErrFacilityInactive is returned if a booking targets a deactivated facility.
	ErrFacilityInactive = errors.New("facility inactive")
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// BookingUpdate is one entry of UpdateBookings.
type BookingUpdate struct {
	ID    string
	Patch model.BookingPatch
}

// IBookingAPI is the relational data API of the booking console: the remote authority
// that accepts or rejects the changes the optimistic engine applied locally.
//
// Every list call is scoped to one tenant. The *Bookings batch calls are all-or-nothing:
// they run in one transaction and either apply every item or none.
type IBookingAPI interface {

	// --------------------------------------------------------------------------
	// Facilities
	// --------------------------------------------------------------------------

	// ListFacilities returns the facilities of tenant ordered by name.
	ListFacilities(ctx context.Context, tenant string) ([]model.Facility, error)
	// CreateFacility stores f and returns it with its server id (kept if f.ID is set).
	CreateFacility(ctx context.Context, f model.Facility) (model.Facility, error)
	// UpdateFacility merges p into the facility and returns the result.
	UpdateFacility(ctx context.Context, id string, p model.FacilityPatch) (model.Facility, error)
	// DeleteFacility deletes a facility without bookings (ErrConflict otherwise).
	DeleteFacility(ctx context.Context, id string) error

	// --------------------------------------------------------------------------
	// Bookings
	// --------------------------------------------------------------------------

	// ListBookings returns the bookings of tenant ordered by start.
	ListBookings(ctx context.Context, tenant string) ([]model.Booking, error)
	// CreateBooking validates b, checks its facility and overlaps, prices it and stores it.
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	// CreateBookings creates every booking or none.
	CreateBookings(ctx context.Context, bookings []model.Booking) ([]model.Booking, error)
	// UpdateBooking merges p into the booking and re-checks it.
	UpdateBooking(ctx context.Context, id string, p model.BookingPatch) (model.Booking, error)
	// UpdateBookings applies every update or none.
	UpdateBookings(ctx context.Context, updates []BookingUpdate) ([]model.Booking, error)
	// DeleteBooking deletes a booking.
	DeleteBooking(ctx context.Context, id string) error
	// DeleteBookings deletes every booking or none.
	DeleteBookings(ctx context.Context, ids []string) error

	// --------------------------------------------------------------------------
	// Promotions
	// --------------------------------------------------------------------------

	// ListPromotions returns the promotion codes of tenant.
	ListPromotions(ctx context.Context, tenant string) ([]model.Promotion, error)
	// UpsertPromotion creates or replaces a promotion code of tenant.
	UpsertPromotion(ctx context.Context, tenant string, p model.Promotion) error

	// Close releases the underlying connections.
	Close() error
}
