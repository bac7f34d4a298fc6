// Package server serves an api.IBookingAPI (usually the SQL implementation) to remote
// booking consoles.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters, with the
//     Handle method that executes a request message against the booking API.
//
//   - NewBookingServerAdapter: Adapter translating every message type into the matching
//     api.IBookingAPI call. Errors are sent with their category (common.ErrorCode).
//
//   - NewRPCServer: Factory function creating a server with the specified transport and
//     serializer. RPCServer.Handle is the transport handler and can be used on its own.
//
// Usage Example:
//
//	sqlAPI, _ := api.OpenSQL(ctx, api.DriverSQLite, "dbook.db")
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewJSONSerializer(), sqlAPI)
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server handles concurrent requests. Each request is processed independently,
//	the transactions of the SQL API keep the booking invariants.
package server
