package codec

import (
	"errors"
	"fmt"
)

// MaxDocumentValue keeps an encoded value inside MongoDB's 16 MiB document
// limit with room left for the key and expiresAt fields.
const MaxDocumentValue = 16<<20 - 64<<10

var ErrTooLarge = errors.New("codec: value too large")

// Limit bounds encoded values. Oversized writes fail before they reach the
// backend; oversized reads, written by another process sharing the
// collection, fail before Inner allocates for them. A bound <= 0 is off.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

var _ Codec[string] = Limit[string]{}

// DocumentLimit caps both directions at MaxDocumentValue.
func DocumentLimit[V any](inner Codec[V]) Limit[V] {
	return Limit[V]{Inner: inner, MaxEncode: MaxDocumentValue, MaxDecode: MaxDocumentValue}
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d > %d bytes", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: stored %d > %d bytes", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
