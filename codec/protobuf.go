package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var ErrNilMessage = errors.New("codec: nil proto message")

// Protobuf stores proto messages in their binary wire form. Encoding is
// deterministic, so rewriting an unchanged message stores identical bytes.
// Unknown fields written by a newer schema survive a read-modify-write cycle
// unless DiscardUnknown is used.
type Protobuf[T proto.Message] struct {
	ctor    func() T // e.g. func() *pb.Session { return &pb.Session{} }
	discard bool
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{ctor: ctor}
}

// DiscardUnknown returns a codec that drops fields its schema does not know.
func (c Protobuf[T]) DiscardUnknown() Protobuf[T] {
	c.discard = true
	return c
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	// a nil message would read back as an empty, non-nil one
	if !v.ProtoReflect().IsValid() {
		return nil, ErrNilMessage
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.ctor()
	err := proto.UnmarshalOptions{DiscardUnknown: c.discard}.Unmarshal(b, m)
	return m, err
}
