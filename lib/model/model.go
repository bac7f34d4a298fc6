package model

import (
	"time"
)

// --------------------------------------------------------------------------
// Facility
// --------------------------------------------------------------------------

// Facility is a bookable resource of a tenant (a court, a room, a studio ...).
type Facility struct {
	ID              string `json:"id" toml:"id"`
	TenantID        string `json:"tenantId" toml:"tenant"`
	Name            string `json:"name" toml:"name"`
	Kind            string `json:"kind" toml:"kind"`
	Capacity        int    `json:"capacity" toml:"capacity"`
	HourlyRateCents int64  `json:"hourlyRateCents" toml:"hourly_rate_cents"`
	Active          bool   `json:"active" toml:"active"`
}

// FacilityPatch is a partial update of a Facility. Nil fields are left unchanged.
type FacilityPatch struct {
	Name            *string `json:"name,omitempty"`
	Kind            *string `json:"kind,omitempty"`
	Capacity        *int    `json:"capacity,omitempty"`
	HourlyRateCents *int64  `json:"hourlyRateCents,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}

// MergeInto implements optimistic.Partial[Facility].
func (p FacilityPatch) MergeInto(f Facility) Facility {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Kind != nil {
		f.Kind = *p.Kind
	}
	if p.Capacity != nil {
		f.Capacity = *p.Capacity
	}
	if p.HourlyRateCents != nil {
		f.HourlyRateCents = *p.HourlyRateCents
	}
	if p.Active != nil {
		f.Active = *p.Active
	}
	return f
}

// --------------------------------------------------------------------------
// Booking
// --------------------------------------------------------------------------

// BookingStatus is the business state of a booking (unrelated to the optimistic state
// of the record holding it).
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	default:
		return false
	}
}

// Booking reserves a facility for the half-open interval [Start, End).
type Booking struct {
	ID            string        `json:"id" toml:"id"`
	TenantID      string        `json:"tenantId" toml:"tenant"`
	FacilityID    string        `json:"facilityId" toml:"facility"`
	Title         string        `json:"title" toml:"title"`
	Customer      string        `json:"customer" toml:"customer"`
	Start         time.Time     `json:"start" toml:"start"`
	End           time.Time     `json:"end" toml:"end"`
	Status        BookingStatus `json:"status" toml:"status"`
	PriceCents    int64         `json:"priceCents" toml:"price_cents"`
	PromotionCode string        `json:"promotionCode,omitempty" toml:"promotion,omitempty"`
}

// Duration returns the length of the booking.
func (b Booking) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Active reports whether the booking blocks its facility.
func (b Booking) Active() bool {
	return b.Status != BookingCancelled
}

// Overlaps reports whether b and other block the same facility at the same time.
// Cancelled bookings never overlap. Intervals are half-open, so back to back bookings
// do not overlap.
func (b Booking) Overlaps(other Booking) bool {
	if b.FacilityID != other.FacilityID || !b.Active() || !other.Active() {
		return false
	}
	return b.Start.Before(other.End) && other.Start.Before(b.End)
}

// BookingPatch is a partial update of a Booking. Nil fields are left unchanged.
type BookingPatch struct {
	FacilityID    *string        `json:"facilityId,omitempty"`
	Title         *string        `json:"title,omitempty"`
	Customer      *string        `json:"customer,omitempty"`
	Start         *time.Time     `json:"start,omitempty"`
	End           *time.Time     `json:"end,omitempty"`
	Status        *BookingStatus `json:"status,omitempty"`
	PriceCents    *int64         `json:"priceCents,omitempty"`
	PromotionCode *string        `json:"promotionCode,omitempty"`
}

// MergeInto implements optimistic.Partial[Booking].
func (p BookingPatch) MergeInto(b Booking) Booking {
	if p.FacilityID != nil {
		b.FacilityID = *p.FacilityID
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Customer != nil {
		b.Customer = *p.Customer
	}
	if p.Start != nil {
		b.Start = *p.Start
	}
	if p.End != nil {
		b.End = *p.End
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PriceCents != nil {
		b.PriceCents = *p.PriceCents
	}
	if p.PromotionCode != nil {
		b.PromotionCode = *p.PromotionCode
	}
	return b
}

// Empty reports whether the patch changes nothing.
func (p BookingPatch) Empty() bool {
	return p == BookingPatch{}
}

// StatusPatch returns a patch that only sets the status.
func StatusPatch(status BookingStatus) BookingPatch {
	return BookingPatch{Status: &status}
}

// ReschedulePatch returns a patch that moves a booking to [start, end).
func ReschedulePatch(start, end time.Time) BookingPatch {
	return BookingPatch{Start: &start, End: &end}
}

// --------------------------------------------------------------------------
// Promotion
// --------------------------------------------------------------------------

// Promotion is a discount code of a tenant.
type Promotion struct {
	Code       string `json:"code" toml:"code"`
	PercentOff int    `json:"percentOff" toml:"percent_off"`
}

// Price computes the price of a booking from the hourly rate of its facility, billed per
// started minute and reduced by promo (if not nil).
func Price(hourlyRateCents int64, start, end time.Time, promo *Promotion) int64 {
	if !end.After(start) || hourlyRateCents <= 0 {
		return 0
	}
	minutes := int64((end.Sub(start) + time.Minute - 1) / time.Minute)
	price := hourlyRateCents * minutes / 60
	if promo != nil && promo.PercentOff > 0 {
		price = price * int64(100-min(promo.PercentOff, 100)) / 100
	}
	return price
}
