// Package content frames ledger payloads with a schema id and encodes the
// title and license bodies carried inside those frames.
package content

import (
	"fmt"

	"github.com/multiformats/go-varint"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/compactsize"
)

// SchemaType names the kind of content a frame carries.
type SchemaType string

const (
	TypeTitle   SchemaType = "title"
	TypeLicense SchemaType = "license"
	TypePayable SchemaType = "payable"
	TypeReceipt SchemaType = "receipt"
)

// Schema pairs a content type with its numeric wire id.
type Schema struct {
	Type SchemaType
	ID   uint16
}

var (
	SchemaTitle   = Schema{Type: TypeTitle, ID: 2}
	SchemaLicense = Schema{Type: TypeLicense, ID: 3}
	SchemaPayable = Schema{Type: TypePayable, ID: 4}
	SchemaReceipt = Schema{Type: TypeReceipt, ID: 5}
)

var schemasByID = map[uint64]Schema{
	uint64(SchemaTitle.ID):   SchemaTitle,
	uint64(SchemaLicense.ID): SchemaLicense,
	uint64(SchemaPayable.ID): SchemaPayable,
	uint64(SchemaReceipt.ID): SchemaReceipt,
}

// SchemaByID resolves a wire id.
func SchemaByID(id uint64) (Schema, error) {
	s, ok := schemasByID[id]
	if !ok {
		return Schema{}, fmt.Errorf("%w: id %d", ErrUnknownSchema, id)
	}
	return s, nil
}

func (s Schema) String() string { return fmt.Sprintf("%s(%d)", s.Type, s.ID) }

// Serialize frames payload as varint(schema id) followed by the
// length-prefixed payload.
func Serialize(s Schema, payload []byte) []byte {
	head := varint.ToUvarint(uint64(s.ID))
	return append(head, compactsize.Encode(payload)...)
}

// Deserialize splits a frame into its schema and payload.
func Deserialize(frame []byte) (Schema, []byte, error) {
	id, n, err := varint.FromUvarint(frame)
	if err != nil {
		return Schema{}, nil, fmt.Errorf("%w: schema id: %v", ErrDecode, err)
	}
	s, err := SchemaByID(id)
	if err != nil {
		return Schema{}, nil, err
	}
	fields, err := compactsize.DecodeN(frame[n:], 1)
	if err != nil {
		return Schema{}, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return s, fields[0], nil
}
