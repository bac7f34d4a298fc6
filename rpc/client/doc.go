// Package client implements api.IBookingAPI on top of the RPC transport, so a booking
// console can use a dbook server as its remote authority instead of opening the
// database itself.
//
// Errors reported by the server keep their category: errors.Is(err, api.ErrConflict)
// holds for a rejected overlap, validation errors are *optimistic.Error values with
// code RetCValidation.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"localhost:8080"},
//	  TimeoutSecond: 5,
//	  RetryCount:    1,
//	}
//	bookingAPI, _ := client.NewRPCBookingAPI(config, http.NewHttpClientTransport(), serializer.NewJSONSerializer())
//	bookings, err := bookingAPI.ListBookings(ctx, "demo")
//
// Thread Safety:
//
//	The client is safe for concurrent use from multiple goroutines.
package client
