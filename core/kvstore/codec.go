package kvstore

import "github.com/golang/snappy"

// Codec (de)compresses stored values. The store applies it once per value on
// the way to disk and once per value on the way back out.
type Codec interface {
	Encode(v []byte) []byte
	Decode(v []byte) ([]byte, error)
}

// IdentityCodec stores values verbatim; used for small fixed-width values
// (ids, bounds pairs) where compression overhead would dominate.
type IdentityCodec struct{}

func (IdentityCodec) Encode(v []byte) []byte          { return v }
func (IdentityCodec) Decode(v []byte) ([]byte, error) { return v, nil }

// SnappyCodec compresses values with snappy, appropriate for larger
// variable-length payloads such as packed structural-profile arrays.
type SnappyCodec struct{}

func (SnappyCodec) Encode(v []byte) []byte {
	return snappy.Encode(nil, v)
}

func (SnappyCodec) Decode(v []byte) ([]byte, error) {
	return snappy.Decode(nil, v)
}
