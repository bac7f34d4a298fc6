package serializer

import (
	"fmt"

	"github.com/ValentinKolb/dBook/rpc/common"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
	// ContentType returns the media type of the serialized messages (sent as HTTP Content-Type)
	ContentType() string
}

// New returns the serializer with the given name. Only json is supported: gob flattens
// pointers and drops zero values, so a patch setting a field to false or 0 would arrive empty.
func New(name string) (IRPCSerializer, error) {
	switch name {
	case "json":
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s. must be json", name)
	}
}
