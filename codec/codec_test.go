package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type session struct {
	User    string    `json:"user" cbor:"user" msgpack:"user"`
	Visits  int       `json:"visits" cbor:"visits" msgpack:"visits"`
	Started time.Time `json:"started" cbor:"started" msgpack:"started"`
}

func TestCodecsRoundTrip(t *testing.T) {
	in := session{User: "ada", Visits: 3, Started: time.Unix(1_700_000_000, 0).UTC()}

	codecs := map[string]Codec[session]{
		"json":    JSON[session]{},
		"cbor":    MustCBOR[session](false),
		"cbordet": MustCBOR[session](true),
		"msgpack": Msgpack[session]{},
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(in)
			require.NoError(t, err)
			out, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, in.User, out.User)
			assert.Equal(t, in.Visits, out.Visits)
			assert.True(t, in.Started.Equal(out.Started))
		})
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	b, err := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	require.NoError(t, err)
	out, err := c.Decode(b)
	require.NoError(t, err)
	assert.True(t, proto.Equal(wrapperspb.String("hello"), out))
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxEncode: 8, MaxDecode: 4}

	_, err := c.Encode("too long value")
	assert.ErrorIs(t, err, ErrTooLarge)

	b, err := c.Encode("hello")
	require.NoError(t, err)
	_, err = c.Decode(b)
	assert.ErrorIs(t, err, ErrTooLarge)

	out, err := c.Decode([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	unlimited := Limit[string]{Inner: String{}}
	out, err = unlimited.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	doc := DocumentLimit[[]byte](Bytes{})
	_, err = doc.Encode(make([]byte, MaxDocumentValue+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStringRejectsInvalidUTF8(t *testing.T) {
	_, err := String{}.Encode("bad \xff")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
	_, err = String{}.Decode([]byte{0xff})
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	out, err := String{}.Decode([]byte("héllo"))
	require.NoError(t, err)
	assert.Equal(t, "héllo", out)
}

func TestProtobufRejectsNil(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	_, err := c.Encode(nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestProtobufUnknownFields(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("v"))
	require.NoError(t, err)
	// field 2 is unknown to StringValue, as if written by a newer schema
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	kept, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "v", kept.GetValue())
	assert.NotEmpty(t, kept.ProtoReflect().GetUnknown())

	dropped, err := c.DiscardUnknown().Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "v", dropped.GetValue())
	assert.Empty(t, dropped.ProtoReflect().GetUnknown())
}

func TestCBORRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	dup := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	_, err := MustCBOR[map[string]int](false).Decode(dup)
	assert.Error(t, err)
}

func TestBytesIdentity(t *testing.T) {
	in := []byte{0, 1, 2}
	b, err := Bytes{}.Encode(in)
	require.NoError(t, err)
	out, err := Bytes{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	b[0] = 9
	assert.Equal(t, byte(0), out[0], "decoded bytes must not alias the read buffer")
}
