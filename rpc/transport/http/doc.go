// Package http implements the RPC transport over HTTP.
//
// Every request is a POST to /rpc carrying one serialized message; the response body
// is the serialized answer. GET /healthz answers "ok" for load balancers.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. It sends requests with the
//     caller's context, so a cancelled confirmation aborts the HTTP call, and spreads
//     requests over several endpoints round-robin. Failed attempts are retried
//     RetryCount times in total.
//
//   - httpServerTransport: Implements IRPCServerTransport. Listen shuts the server
//     down gracefully when its context is done.
//
//   - NewHandler: The http.Handler of the server, usable with httptest.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter.
package http
