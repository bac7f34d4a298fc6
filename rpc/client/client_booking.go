package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/rpc/common"
	"github.com/ValentinKolb/dBook/rpc/serializer"
	"github.com/ValentinKolb/dBook/rpc/transport"
)

// NewRPCBookingAPI creates an api.IBookingAPI that forwards every call to a dbook server
// The function takes a config, a transport and a serializer as parameters
func NewRPCBookingAPI(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (api.IBookingAPI, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcBookingAPI{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcBookingAPI struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see api.IBookingAPI)
// --------------------------------------------------------------------------

func (c *rpcBookingAPI) ListFacilities(ctx context.Context, tenant string) ([]model.Facility, error) {
	resp, err := c.invoke(ctx, common.NewListRequest(common.MsgTListFacilities, tenant))
	if err != nil {
		return nil, err
	}
	return resp.Facilities, nil
}

func (c *rpcBookingAPI) CreateFacility(ctx context.Context, f model.Facility) (model.Facility, error) {
	resp, err := c.invoke(ctx, common.NewCreateFacilityRequest(f))
	if err != nil {
		return model.Facility{}, err
	}
	return facility(resp)
}

func (c *rpcBookingAPI) UpdateFacility(ctx context.Context, id string, p model.FacilityPatch) (model.Facility, error) {
	resp, err := c.invoke(ctx, common.NewUpdateFacilityRequest(id, p))
	if err != nil {
		return model.Facility{}, err
	}
	return facility(resp)
}

func (c *rpcBookingAPI) DeleteFacility(ctx context.Context, id string) error {
	_, err := c.invoke(ctx, common.NewDeleteRequest(common.MsgTDeleteFacility, id))
	return err
}

func (c *rpcBookingAPI) ListBookings(ctx context.Context, tenant string) ([]model.Booking, error) {
	resp, err := c.invoke(ctx, common.NewListRequest(common.MsgTListBookings, tenant))
	if err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}

func (c *rpcBookingAPI) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	resp, err := c.invoke(ctx, common.NewCreateBookingRequest(b))
	if err != nil {
		return model.Booking{}, err
	}
	return booking(resp)
}

func (c *rpcBookingAPI) CreateBookings(ctx context.Context, bookings []model.Booking) ([]model.Booking, error) {
	resp, err := c.invoke(ctx, common.NewCreateBookingsRequest(bookings))
	if err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}

func (c *rpcBookingAPI) UpdateBooking(ctx context.Context, id string, p model.BookingPatch) (model.Booking, error) {
	resp, err := c.invoke(ctx, common.NewUpdateBookingRequest(id, p))
	if err != nil {
		return model.Booking{}, err
	}
	return booking(resp)
}

func (c *rpcBookingAPI) UpdateBookings(ctx context.Context, updates []api.BookingUpdate) ([]model.Booking, error) {
	resp, err := c.invoke(ctx, common.NewUpdateBookingsRequest(updates))
	if err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}

func (c *rpcBookingAPI) DeleteBooking(ctx context.Context, id string) error {
	_, err := c.invoke(ctx, common.NewDeleteRequest(common.MsgTDeleteBooking, id))
	return err
}

func (c *rpcBookingAPI) DeleteBookings(ctx context.Context, ids []string) error {
	_, err := c.invoke(ctx, common.NewDeleteBookingsRequest(ids))
	return err
}

func (c *rpcBookingAPI) ListPromotions(ctx context.Context, tenant string) ([]model.Promotion, error) {
	resp, err := c.invoke(ctx, common.NewListRequest(common.MsgTListPromotions, tenant))
	if err != nil {
		return nil, err
	}
	return resp.Promotions, nil
}

func (c *rpcBookingAPI) UpsertPromotion(ctx context.Context, tenant string, p model.Promotion) error {
	_, err := c.invoke(ctx, common.NewUpsertPromotionRequest(tenant, p))
	return err
}

func (c *rpcBookingAPI) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func facility(resp *common.Message) (model.Facility, error) {
	if resp.Facility == nil {
		return model.Facility{}, fmt.Errorf("rpc %s: response without facility", resp.MsgType)
	}
	return *resp.Facility, nil
}

func booking(resp *common.Message) (model.Booking, error) {
	if resp.Booking == nil {
		return model.Booking{}, fmt.Errorf("rpc %s: response without booking", resp.MsgType)
	}
	return *resp.Booking, nil
}
