// Package rpc lets booking consoles share one booking API over the network. A dbook
// server owns the database and is the remote authority, consoles connect with the rpc
// driver.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, error codes and configuration structures.
//
//   - transport: Network communication abstractions, implemented over HTTP.
//
//   - serializer: Message serialization (JSON).
//
//   - client: api.IBookingAPI implementation that forwards calls to a server.
//
//   - server: Serves an api.IBookingAPI, usually the SQL implementation.
package rpc
