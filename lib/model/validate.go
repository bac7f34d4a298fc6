package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dBook/lib/optimistic"
)

// MaxBookingDuration is the longest booking the console accepts.
const MaxBookingDuration = 24 * time.Hour

// ValidateFacility checks a facility before it is handed to the engine.
// All errors carry the code optimistic.RetCValidation.
func ValidateFacility(f Facility) error {
	switch {
	case strings.TrimSpace(f.TenantID) == "":
		return invalid("facility: tenant is required")
	case strings.TrimSpace(f.Name) == "":
		return invalid("facility: name is required")
	case f.Capacity < 0:
		return invalid(fmt.Sprintf("facility: capacity must not be negative, got %d", f.Capacity))
	case f.HourlyRateCents < 0:
		return invalid(fmt.Sprintf("facility: hourly rate must not be negative, got %d", f.HourlyRateCents))
	}
	return nil
}

// ValidateBooking checks a booking before it is handed to the engine.
// All errors carry the code optimistic.RetCValidation.
func ValidateBooking(b Booking) error {
	switch {
	case strings.TrimSpace(b.TenantID) == "":
		return invalid("booking: tenant is required")
	case strings.TrimSpace(b.FacilityID) == "":
		return invalid("booking: facility is required")
	case strings.TrimSpace(b.Title) == "":
		return invalid("booking: title is required")
	case b.Start.IsZero() || b.End.IsZero():
		return invalid("booking: start and end are required")
	case !b.End.After(b.Start):
		return invalid(fmt.Sprintf("booking: end (%s) must be after start (%s)",
			b.End.Format(time.RFC3339), b.Start.Format(time.RFC3339)))
	case b.Duration() > MaxBookingDuration:
		return invalid(fmt.Sprintf("booking: duration %s exceeds %s", b.Duration(), MaxBookingDuration))
	case b.Status != "" && !b.Status.Valid():
		return invalid(fmt.Sprintf("booking: unknown status %q", b.Status))
	case b.PriceCents < 0:
		return invalid("booking: price must not be negative")
	}
	return nil
}

// ValidateBookingPatch checks that applying p to current yields a valid booking.
func ValidateBookingPatch(current Booking, p BookingPatch) error {
	if p.Empty() {
		return invalid("booking: empty update")
	}
	return ValidateBooking(p.MergeInto(current))
}

// ValidatePromotion checks a promotion code.
func ValidatePromotion(p Promotion) error {
	switch {
	case strings.TrimSpace(p.Code) == "":
		return invalid("promotion: code is required")
	case p.PercentOff <= 0 || p.PercentOff > 100:
		return invalid(fmt.Sprintf("promotion %s: percent off must be in (0, 100], got %d", p.Code, p.PercentOff))
	}
	return nil
}

func invalid(msg string) error {
	return optimistic.NewError(optimistic.RetCValidation, msg)
}
