package content

import "fmt"

// Record is content that can be written to and read back from the ledger.
// Callers pick the concrete type from the schema they expect.
type Record interface {
	EncodeForLedger() ([]byte, error)
	DecodeFromLedger(frame []byte) error
}

var (
	_ Record = (*TitleContents)(nil)
	_ Record = (*LicenseContents)(nil)
)

func expect(frame []byte, want Schema) ([]byte, error) {
	s, payload, err := Deserialize(frame)
	if err != nil {
		return nil, err
	}
	if s != want {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrSchemaMismatch, want, s)
	}
	return payload, nil
}
