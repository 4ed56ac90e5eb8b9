// Package frame encodes records for byte-oriented backends: the value is
// msgpack-encoded and wrapped in a wire record frame carrying the expiry.
package frame

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/internal/wire"
)

// Value is a msgpack payload decoded lazily.
type Value []byte

var _ docstore.Value = Value(nil)

func (v Value) Decode(dst any) error {
	if err := msgpack.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("frame: decode value: %w", err)
	}
	return nil
}

// Encode frames rec.Value and rec.ExpiresAt. The key is not part of the frame.
func Encode(rec docstore.Record) ([]byte, error) {
	payload, err := msgpack.Marshal(rec.Value)
	if err != nil {
		return nil, fmt.Errorf("frame: encode value: %w", err)
	}
	return wire.EncodeRecord(rec.ExpiresAt, payload), nil
}

// Decode unwraps a frame. The returned Value aliases b.
func Decode(b []byte) (*time.Time, Value, error) {
	exp, payload, err := wire.DecodeRecord(b)
	if err != nil {
		return nil, nil, err
	}
	return exp, Value(payload), nil
}
