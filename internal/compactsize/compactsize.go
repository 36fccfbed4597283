// Package compactsize encodes sequences of byte fields, each prefixed with
// its length as an unsigned varint.
package compactsize

import (
	"errors"
	"fmt"

	"github.com/multiformats/go-varint"
)

var (
	// ErrTruncated is returned when a length prefix points past the input.
	ErrTruncated = errors.New("compactsize: truncated field")
	// ErrBadPrefix is returned when a length prefix is not a valid varint.
	ErrBadPrefix = errors.New("compactsize: invalid length prefix")
)

// Encode returns b prefixed with its length.
func Encode(b []byte) []byte {
	prefix := varint.ToUvarint(uint64(len(b)))
	out := make([]byte, 0, len(prefix)+len(b))
	out = append(out, prefix...)
	return append(out, b...)
}

// EncodeAll concatenates the length-prefixed form of every field.
func EncodeAll(fields ...[]byte) []byte {
	size := 0
	for _, f := range fields {
		size += varint.UvarintSize(uint64(len(f))) + len(f)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = append(out, varint.ToUvarint(uint64(len(f)))...)
		out = append(out, f...)
	}
	return out
}

// Decode splits buf into its length-prefixed fields. The whole input must be
// consumed; the returned slices alias buf.
func Decode(buf []byte) ([][]byte, error) {
	var fields [][]byte
	for len(buf) > 0 {
		n, read, err := varint.FromUvarint(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPrefix, err)
		}
		buf = buf[read:]
		if n > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(buf))
		}
		fields = append(fields, buf[:n])
		buf = buf[n:]
	}
	return fields, nil
}

// DecodeN is Decode with an exact field count.
func DecodeN(buf []byte, want int) ([][]byte, error) {
	fields, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	if len(fields) != want {
		return nil, fmt.Errorf("compactsize: expected %d fields, got %d", want, len(fields))
	}
	return fields, nil
}
