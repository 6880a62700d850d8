package grpctransport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype clients select with grpc.CallContentSubtype.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries plain Go structs as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}
