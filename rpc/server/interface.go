package server

import (
	"context"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and the booking API as parameters.
	// It returns a Message as a response
	// If an error occurs, it should be set in the response
	Handle(ctx context.Context, req *common.Message, bookingAPI api.IBookingAPI) (resp *common.Message)
}
