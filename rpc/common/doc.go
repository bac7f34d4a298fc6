// Package common provides the data structures shared by the RPC client and server
// of the booking API.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. One struct is used for
//     requests and responses of every api.IBookingAPI call; which fields are set depends
//     on the MessageType. Factory methods exist for every request.
//
//   - ErrorCode: Transmits the category of an error next to its message, so the client
//     can restore api.ErrNotFound, api.ErrConflict, api.ErrFacilityInactive,
//     api.ErrInjected and validation errors and callers can keep using errors.Is.
//
//   - ServerConfig / ClientConfig: Configuration of the server (database, endpoint,
//     fault injection) and of the client (endpoints, timeout, retries).
package common
