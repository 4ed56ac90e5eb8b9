package config

import (
	"fmt"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/unkn0wn-root/keyvmongo/codec"
)

// Codec returns the codec for string values named by c.Codec, bounded by
// MaxValueBytes (codec.MaxDocumentValue when zero). An empty name returns
// nil: values go to the backend unencoded.
func (c *Config) Codec() (codec.Codec[string], error) {
	var inner codec.Codec[string]
	switch c.ValueCodec {
	case "":
		return nil, nil
	case "string":
		inner = codec.String{}
	case "json":
		inner = codec.JSON[string]{}
	case "msgpack":
		inner = codec.Msgpack[string]{}
	case "cbor":
		cb, err := codec.NewCBOR[string](true)
		if err != nil {
			return nil, err
		}
		inner = cb
	case "protobuf":
		inner = protoString{pb: codec.NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })}
	default:
		return nil, fmt.Errorf("config: unknown codec %q", c.ValueCodec)
	}

	limit := c.MaxValueBytes
	if limit == 0 {
		limit = codec.MaxDocumentValue
	}
	return codec.Limit[string]{Inner: inner, MaxEncode: limit, MaxDecode: limit}, nil
}

// protoString stores strings as google.protobuf.StringValue messages.
type protoString struct {
	pb codec.Protobuf[*wrapperspb.StringValue]
}

func (p protoString) Encode(s string) ([]byte, error) { return p.pb.Encode(wrapperspb.String(s)) }

func (p protoString) Decode(b []byte) (string, error) {
	m, err := p.pb.Decode(b)
	if err != nil {
		return "", err
	}
	return m.GetValue(), nil
}
