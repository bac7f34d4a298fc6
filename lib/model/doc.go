// Package model contains the plain data types of the booking console (facilities,
// bookings, promotions), their typed partial updates and the validation run before any
// change reaches the optimistic engine.
//
// Patches use pointer fields: a nil field means "unchanged". They implement
// optimistic.Partial, so they can be handed to a coordinator directly:
//
//	status := model.BookingConfirmed
//	_, err := bookings.Update(ctx, id, model.BookingPatch{Status: &status}, confirm)
package model
