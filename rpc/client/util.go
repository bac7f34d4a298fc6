package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dBook/rpc/common"
	"github.com/ValentinKolb/dBook/rpc/serializer"
	"github.com/ValentinKolb/dBook/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends a request and returns the response message
// It checks if the response is an error response and if the type of the response is the expected type.
// Errors reported by the server are restored with common.DecodeError, so errors.Is works with the
// sentinels of the api package.
func (c *rpcClientAdapter) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := c.transport.Send(ctx, c.serializer.ContentType(), reqBytes)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", req.MsgType, err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err = c.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("rpc %s: invalid response: %w", req.MsgType, err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, common.DecodeError(resp.ErrCode, resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("rpc: unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
