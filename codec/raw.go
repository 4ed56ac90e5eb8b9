package codec

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// Bytes stores []byte values untouched. Decode copies because backends may
// hand out views of their read buffers.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return bytes.Clone(b), nil }

var ErrInvalidUTF8 = errors.New("codec: value is not valid UTF-8")

// String stores text as its UTF-8 bytes. Invalid UTF-8 is refused in both
// directions so every client of a shared collection can read values as text.
type String struct{}

func (String) Encode(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, ErrInvalidUTF8
	}
	return []byte(s), nil
}

func (String) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
