package serializer

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/rpc/common"
	"github.com/google/go-cmp/cmp"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
}

func ptr[T any](v T) *T { return &v }

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	booking := model.Booking{
		ID:         "b-1",
		TenantID:   "demo",
		FacilityID: "court-1",
		Title:      "Training",
		Customer:   "Ada",
		Start:      start,
		End:        start.Add(90 * time.Minute),
		Status:     model.BookingConfirmed,
		PriceCents: 3000,
	}

	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// List request and response
		*common.NewListRequest(common.MsgTListBookings, "demo"),
		{
			MsgType:  common.MsgTListBookings,
			Bookings: []model.Booking{booking, {ID: "b-2", FacilityID: "hall", Start: start, End: start.Add(time.Hour)}},
		},

		// Patches
		*common.NewUpdateBookingRequest("b-1", model.ReschedulePatch(start.Add(time.Hour), start.Add(2*time.Hour))),
		// false and 0 must survive
		*common.NewUpdateFacilityRequest("court-1", model.FacilityPatch{Name: ptr("Court A"), Active: ptr(false), Capacity: ptr(0)}),
		*common.NewUpdateBookingsRequest([]api.BookingUpdate{
			{ID: "b-1", Patch: model.StatusPatch(model.BookingCancelled)},
			{ID: "b-2", Patch: model.BookingPatch{Title: ptr("Match")}},
		}),

		// Batch requests
		*common.NewCreateBookingsRequest([]model.Booking{booking}),
		*common.NewDeleteBookingsRequest([]string{"b-1", "b-2"}),
		*common.NewUpsertPromotionRequest("demo", model.Promotion{Code: "SPRING", PercentOff: 20}),

		// Error response
		*common.NewResponse(common.MsgTCreateBooking, api.ErrConflict),
		*common.NewErrorResponse("failed to deserialize request"),
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if diff := cmp.Diff(msg, result); diff != "" {
					t.Errorf("Message %d (%s) doesn't match after round trip (-want +got):\n%s", i, msg.MsgType, diff)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTUpsertPromotion; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				var result common.Message
				if err = serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestDeserializeResets checks that fields of a reused message do not leak into the next one
func TestDeserializeResets(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			full, err := serializer.Serialize(*common.NewDeleteBookingsRequest([]string{"b-1"}))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			empty, err := serializer.Serialize(common.Message{MsgType: common.MsgTSuccess})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var msg common.Message
			if err := serializer.Deserialize(full, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if err := serializer.Deserialize(empty, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.IDs != nil {
				t.Errorf("Expected no ids after reuse, got %v", msg.IDs)
			}
		})
	}
}

// TestInvalidData tests how the serializers handle corrupt data
func TestInvalidData(t *testing.T) {
	testCases := []struct {
		name       string
		serializer IRPCSerializer
		data       []byte
	}{
		{name: "JSON empty", serializer: NewJSONSerializer(), data: []byte{}},
		{name: "JSON unknown type", serializer: NewJSONSerializer(), data: []byte(`{"msg_type":"lock"}`)},
		{name: "JSON truncated", serializer: NewJSONSerializer(), data: []byte(`{"msg_type":"success"`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			if err := tc.serializer.Deserialize(tc.data, &msg); err == nil {
				t.Errorf("Expected error but got none")
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New("json"); err != nil {
		t.Errorf("New(json) failed: %v", err)
	}
	for _, name := range []string{"gob", "binary"} {
		if _, err := New(name); err == nil {
			t.Errorf("Expected error for serializer %s", name)
		}
	}
}
