package client_test

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/booking"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
	"github.com/ValentinKolb/dBook/rpc/client"
	"github.com/ValentinKolb/dBook/rpc/common"
	"github.com/ValentinKolb/dBook/rpc/serializer"
	"github.com/ValentinKolb/dBook/rpc/server"
	"github.com/ValentinKolb/dBook/rpc/transport/http"
	"github.com/google/go-cmp/cmp"
)

const tenant = "acme"

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// setup starts a server on an in-memory database and returns a client connected to it
func setup(t *testing.T) (api.IBookingAPI, *server.RPCServer, *httptest.Server) {
	t.Helper()
	ctx := context.Background()

	sqlAPI, err := api.OpenSQL(ctx, api.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlAPI.Close() })

	srv := server.NewRPCServer(common.ServerConfig{Endpoint: "test", TimeoutSecond: 5}, http.NewHttpServerTransport(), serializer.NewJSONSerializer(), sqlAPI)
	ts := httptest.NewServer(http.NewHandler(srv.Handle, false))
	t.Cleanup(ts.Close)

	c, err := client.NewRPCBookingAPI(
		common.ClientConfig{Endpoints: []string{ts.URL}, TimeoutSecond: 5, RetryCount: 1},
		http.NewHttpClientTransport(),
		serializer.NewJSONSerializer(),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, srv, ts
}

func court(t *testing.T, a api.IBookingAPI) model.Facility {
	t.Helper()
	f, err := a.CreateFacility(context.Background(), model.Facility{
		TenantID:        tenant,
		Name:            "Court 1",
		Kind:            "tennis",
		Capacity:        4,
		HourlyRateCents: 2000,
		Active:          true,
	})
	if err != nil {
		t.Fatalf("Failed to create facility: %v", err)
	}
	return f
}

func slot(f model.Facility, from, to time.Duration) model.Booking {
	return model.Booking{
		TenantID:   tenant,
		FacilityID: f.ID,
		Title:      "Training",
		Customer:   "Ada",
		Start:      base.Add(from),
		End:        base.Add(to),
	}
}

func TestRoundTrip(t *testing.T) {
	c, srv, _ := setup(t)
	ctx := context.Background()
	f := court(t, c)

	created, err := c.CreateBooking(ctx, slot(f, 0, time.Hour))
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if created.ID == "" || created.PriceCents != 2000 || created.Status != model.BookingConfirmed {
		t.Errorf("Unexpected booking: %+v", created)
	}

	bookings, err := c.ListBookings(ctx, tenant)
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if diff := cmp.Diff([]model.Booking{created}, bookings); diff != "" {
		t.Errorf("ListBookings mismatch (-want +got):\n%s", diff)
	}

	facilities, err := c.ListFacilities(ctx, tenant)
	if err != nil {
		t.Fatalf("ListFacilities failed: %v", err)
	}
	if diff := cmp.Diff([]model.Facility{f}, facilities); diff != "" {
		t.Errorf("ListFacilities mismatch (-want +got):\n%s", diff)
	}

	calls := srv.Calls()
	if calls[common.MsgTCreateBooking] != 1 || calls[common.MsgTListBookings] != 1 {
		t.Errorf("Unexpected call counts: %v", calls)
	}
}

func TestErrors(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()
	f := court(t, c)

	if _, err := c.CreateBooking(ctx, slot(f, 0, time.Hour)); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	t.Run("Conflict", func(t *testing.T) {
		_, err := c.CreateBooking(ctx, slot(f, 30*time.Minute, 90*time.Minute))
		if !errors.Is(err, api.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := c.CreateBooking(ctx, slot(f, 2*time.Hour, time.Hour))
		if code := optimistic.CodeOf(err); code != optimistic.RetCValidation {
			t.Errorf("Expected validation error, got %v (code %s)", err, code)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := c.DeleteBookings(ctx, []string{"missing"})
		if !errors.Is(err, api.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Inactive", func(t *testing.T) {
		inactive := false
		updated, err := c.UpdateFacility(ctx, f.ID, model.FacilityPatch{Active: &inactive})
		if err != nil {
			t.Fatalf("UpdateFacility failed: %v", err)
		}
		if updated.Active {
			t.Fatalf("Expected facility to be inactive")
		}
		_, err = c.CreateBooking(ctx, slot(f, 5*time.Hour, 6*time.Hour))
		if !errors.Is(err, api.ErrFacilityInactive) {
			t.Errorf("Expected ErrFacilityInactive, got %v", err)
		}
	})
}

func TestBatchAndPromotions(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()
	f := court(t, c)

	if err := c.UpsertPromotion(ctx, tenant, model.Promotion{Code: "HALF", PercentOff: 50}); err != nil {
		t.Fatalf("UpsertPromotion failed: %v", err)
	}
	promotions, err := c.ListPromotions(ctx, tenant)
	if err != nil || len(promotions) != 1 {
		t.Fatalf("ListPromotions = %v, %v", promotions, err)
	}

	discounted := slot(f, 0, time.Hour)
	discounted.PromotionCode = "HALF"
	created, err := c.CreateBookings(ctx, []model.Booking{discounted, slot(f, time.Hour, 2*time.Hour)})
	if err != nil {
		t.Fatalf("CreateBookings failed: %v", err)
	}
	if created[0].PriceCents != 1000 || created[1].PriceCents != 2000 {
		t.Errorf("Unexpected prices: %d, %d", created[0].PriceCents, created[1].PriceCents)
	}

	moved, err := c.UpdateBookings(ctx, []api.BookingUpdate{
		{ID: created[0].ID, Patch: model.ReschedulePatch(base.Add(3*time.Hour), base.Add(4*time.Hour))},
		{ID: created[1].ID, Patch: model.StatusPatch(model.BookingCancelled)},
	})
	if err != nil {
		t.Fatalf("UpdateBookings failed: %v", err)
	}
	if !moved[0].Start.Equal(base.Add(3*time.Hour)) || moved[1].Status != model.BookingCancelled {
		t.Errorf("Unexpected updates: %+v", moved)
	}

	if err := c.DeleteBookings(ctx, []string{created[0].ID, created[1].ID}); err != nil {
		t.Fatalf("DeleteBookings failed: %v", err)
	}
	if err := c.DeleteFacility(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFacility failed: %v", err)
	}
}

// TestBookingsAdapter runs the optimistic bookings adapter against the remote API
func TestBookingsAdapter(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()
	f := court(t, c)

	b := booking.NewBookings(c, booking.Config{Tenant: tenant})
	t.Cleanup(func() { _ = b.Close() })

	created, err := b.Create(ctx, slot(f, 0, time.Hour))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := b.Create(ctx, slot(f, 0, time.Hour)); !errors.Is(err, api.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
	confirmed := 0
	for _, rec := range b.Records() {
		switch {
		case rec.Status == optimistic.StatusRollback && rec.Data.ID == "":
		case rec.Data.ID == created.ID && !rec.IsOptimistic:
			confirmed++
		default:
			t.Errorf("Unexpected record: %+v", rec)
		}
	}
	if confirmed != 1 {
		t.Errorf("Expected the confirmed booking once, got %d", confirmed)
	}
}

func TestTransportErrors(t *testing.T) {
	c, _, ts := setup(t)

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.ListBookings(ctx, tenant); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})

	t.Run("BadRequest", func(t *testing.T) {
		resp, err := nethttp.Post(ts.URL+http.RPCPath, "application/json", nil)
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()
		var msg common.Message
		buf := make([]byte, 512)
		n, _ := resp.Body.Read(buf)
		if err := serializer.NewJSONSerializer().Deserialize(buf[:n], &msg); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if msg.MsgType != common.MsgTError {
			t.Errorf("Expected error response, got %s", msg.MsgType)
		}
	})

	t.Run("ServerDown", func(t *testing.T) {
		ts.Close()
		if _, err := c.ListBookings(context.Background(), tenant); err == nil {
			t.Errorf("Expected error after server shutdown")
		}
	})
}
