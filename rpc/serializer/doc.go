// Package serializer converts the RPC messages of the booking API to bytes and back.
//
// The JSON implementation (NewJSONSerializer) is human readable, so requests can be
// debugged with curl. Message types are written as their names. The interface stays
// so the HTTP transport can negotiate the content type.
//
// All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	s, err := serializer.New("json")
//	data, err := s.Serialize(*common.NewListRequest(common.MsgTListBookings, "demo"))
//	// ... send data ...
//	var received common.Message
//	err = s.Deserialize(receivedData, &received)
package serializer
