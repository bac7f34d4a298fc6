package server

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/rpc/common"
)

func NewBookingServerAdapter() IRPCServerAdapter {
	return &bookingServerAdapterImpl{}
}

type bookingServerAdapterImpl struct{}

func (adapter *bookingServerAdapterImpl) Handle(ctx context.Context, req *common.Message, a api.IBookingAPI) *common.Message {
	// Check for nil api
	if a == nil {
		return common.NewErrorResponse("handler: api is nil")
	}

	// Handle different message types
	switch req.MsgType {

	// Facilities
	case common.MsgTListFacilities:
		facilities, err := a.ListFacilities(ctx, req.Tenant)
		resp := common.NewResponse(req.MsgType, err)
		resp.Facilities = facilities
		return resp
	case common.MsgTCreateFacility:
		if req.Facility == nil {
			return missing(req, "facility")
		}
		f, err := a.CreateFacility(ctx, *req.Facility)
		return withFacility(common.NewResponse(req.MsgType, err), f, err)
	case common.MsgTUpdateFacility:
		var p model.FacilityPatch
		if req.FacilityPatch != nil {
			p = *req.FacilityPatch
		}
		f, err := a.UpdateFacility(ctx, req.ID, p)
		return withFacility(common.NewResponse(req.MsgType, err), f, err)
	case common.MsgTDeleteFacility:
		return common.NewResponse(req.MsgType, a.DeleteFacility(ctx, req.ID))

	// Bookings
	case common.MsgTListBookings:
		bookings, err := a.ListBookings(ctx, req.Tenant)
		resp := common.NewResponse(req.MsgType, err)
		resp.Bookings = bookings
		return resp
	case common.MsgTCreateBooking:
		if req.Booking == nil {
			return missing(req, "booking")
		}
		b, err := a.CreateBooking(ctx, *req.Booking)
		return withBooking(common.NewResponse(req.MsgType, err), b, err)
	case common.MsgTCreateBookings:
		bookings, err := a.CreateBookings(ctx, req.Bookings)
		resp := common.NewResponse(req.MsgType, err)
		resp.Bookings = bookings
		return resp
	case common.MsgTUpdateBooking:
		var p model.BookingPatch
		if req.BookingPatch != nil {
			p = *req.BookingPatch
		}
		b, err := a.UpdateBooking(ctx, req.ID, p)
		return withBooking(common.NewResponse(req.MsgType, err), b, err)
	case common.MsgTUpdateBookings:
		bookings, err := a.UpdateBookings(ctx, req.Updates)
		resp := common.NewResponse(req.MsgType, err)
		resp.Bookings = bookings
		return resp
	case common.MsgTDeleteBooking:
		return common.NewResponse(req.MsgType, a.DeleteBooking(ctx, req.ID))
	case common.MsgTDeleteBookings:
		return common.NewResponse(req.MsgType, a.DeleteBookings(ctx, req.IDs))

	// Promotions
	case common.MsgTListPromotions:
		promotions, err := a.ListPromotions(ctx, req.Tenant)
		resp := common.NewResponse(req.MsgType, err)
		resp.Promotions = promotions
		return resp
	case common.MsgTUpsertPromotion:
		if req.Promotion == nil {
			return missing(req, "promotion")
		}
		return common.NewResponse(req.MsgType, a.UpsertPromotion(ctx, req.Tenant, *req.Promotion))

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC BookingAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func missing(req *common.Message, field string) *common.Message {
	return common.NewErrorResponse(fmt.Sprintf("RPC BookingAdapter - %s request without %s", req.MsgType, field))
}

func withFacility(resp *common.Message, f model.Facility, err error) *common.Message {
	if err == nil {
		resp.Facility = &f
	}
	return resp
}

func withBooking(resp *common.Message, b model.Booking, err error) *common.Message {
	if err == nil {
		resp.Booking = &b
	}
	return resp
}
