package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/rpc/common"
	"github.com/ValentinKolb/dBook/rpc/serializer"
	"github.com/ValentinKolb/dBook/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server serving bookingAPI
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//		sqlAPI,
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	bookingAPI api.IBookingAPI,
) *RPCServer {
	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		api:        bookingAPI,
		adapter:    NewBookingServerAdapter(),
		calls:      xsync.NewMapOf[common.MessageType, *xsync.Counter](),
	}
}

// RPCServer serves an api.IBookingAPI over a transport.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	api        api.IBookingAPI
	adapter    IRPCServerAdapter
	calls      *xsync.MapOf[common.MessageType, *xsync.Counter]
}

// Handle decodes one request, lets the adapter execute it and encodes the response.
// It is the handler registered at the transport. Every request is limited to the
// configured timeout.
func (s *RPCServer) Handle(ctx context.Context, req []byte) []byte {
	if s.config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	var msg common.Message
	var respMsg *common.Message

	// Decode the request
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		counter, _ := s.calls.LoadOrCompute(msg.MsgType, xsync.NewCounter)
		counter.Inc()
		// Let the adapter handle the request
		respMsg = s.adapter.Handle(ctx, &msg, s.api)
		if respMsg.Err != "" {
			Logger.Debugf("(%s) - %s", msg.MsgType, respMsg.Err)
		}
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// Calls returns how many requests of each message type were handled.
func (s *RPCServer) Calls() map[common.MessageType]int64 {
	out := make(map[common.MessageType]int64)
	s.calls.Range(func(t common.MessageType, c *xsync.Counter) bool {
		out[t] = c.Value()
		return true
	})
	return out
}

// Serve registers the handler and starts the transport layer. It returns when ctx is done.
func (s *RPCServer) Serve(ctx context.Context) error {
	s.transport.RegisterHandler(s.Handle)
	Logger.Infof("dBook API server setup completed successfully")
	return s.transport.Listen(ctx, s.config)
}
