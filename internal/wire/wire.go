package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version    byte = 1
	kindRecord byte = 1

	flagExpires byte = 1 << 0
)

var (
	ErrCorrupt = errors.New("keyvmongo: corrupt record")
	magic4     = [...]byte{'K', 'V', 'M', 'G'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

const hdrLen = 4 + 1 + 1 + 1 + 8 + 4

// Record: magic(4) | ver(1) | kind(1=record) | flags(1) | expiresAt unix-ms(i64 be) | vlen(u32 be) | payload(vlen)
//
// expiresAt is only meaningful when flags has flagExpires set; otherwise it is zero.
func EncodeRecord(expiresAt *time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var flags byte
	var ms int64
	if expiresAt != nil {
		flags |= flagExpires
		ms = expiresAt.UnixMilli()
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(ms))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeRecord parses a frame produced by EncodeRecord. The returned payload
// aliases b. Trailing bytes are rejected.
func DecodeRecord(b []byte) (expiresAt *time.Time, payload []byte, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return nil, nil, ErrCorrupt
	}
	flags := b[6]
	if flags&^flagExpires != 0 {
		return nil, nil, ErrCorrupt
	}

	off := 7
	ms := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // overflow-safe, no trailing bytes
		return nil, nil, ErrCorrupt
	}

	if flags&flagExpires != 0 {
		t := time.UnixMilli(ms).UTC()
		expiresAt = &t
	} else if ms != 0 {
		return nil, nil, ErrCorrupt
	}
	return expiresAt, b[off : off+vlen], nil
}
