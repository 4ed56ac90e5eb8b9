// Package codec turns cache values into bytes before they reach a backend.
//
// Codecs are optional in keyvmongo: without one, values are handed to the
// backend as-is (BSON for MongoDB). With one, the backend stores opaque bytes
// and the codec owns the format, which keeps records readable by other
// processes that share the codec but not the Go type.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
