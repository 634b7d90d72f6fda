// Package rpcjson registers a gRPC codec that carries messages as JSON.
//
// The relay's RPC messages are plain Go structs shared with the HTTP API,
// so they travel with encoding/json. Protobuf messages (the standard health
// service) are encoded with protojson.
package rpcjson

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Name is the codec name and the gRPC content-subtype ("application/grpc+json").
const Name = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec implements encoding.Codec.
type Codec struct{}

var unmarshalOpts = protojson.UnmarshalOptions{DiscardUnknown: true}

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcjson: marshal %T: %w", v, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return unmarshalOpts.Unmarshal(data, m)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcjson: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return Name }

// CallOption selects the JSON codec for a client call or connection.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(Name)
}
