// Package transport defines the interfaces for moving serialized RPC messages between
// the booking console and the booking API server.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending. Send takes a context, so a
//     confirmation call of the console can be cancelled.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and passes them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// The http subpackage contains the implementation used by dbook serve.
package transport
