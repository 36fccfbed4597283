package content

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/compactsize"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/vocab"
)

// LicenseContents holds the permitted uses and terms for a titled asset.
// Expiry has one-second resolution on the ledger.
type LicenseContents struct {
	Uses        []vocab.UseCase
	Terms       string
	Description *string
	Expiry      *time.Time
}

// Permissive reports whether the license grants at least one use.
func (l *LicenseContents) Permissive() bool { return len(l.Uses) > 0 }

// Encode returns the payload bytes: JSON(uses), terms, description, expiry.
func (l *LicenseContents) Encode() ([]byte, error) {
	uses := l.Uses
	if uses == nil {
		uses = []vocab.UseCase{}
	}
	usesJSON, err := json.Marshal(uses)
	if err != nil {
		return nil, fmt.Errorf("encode license uses: %w", err)
	}
	return compactsize.EncodeAll(
		usesJSON,
		[]byte(l.Terms),
		encodeOptString(l.Description),
		encodeOptTime(l.Expiry),
	), nil
}

// DecodeLicense parses a license payload produced by Encode.
func DecodeLicense(payload []byte) (*LicenseContents, error) {
	fields, err := compactsize.DecodeN(payload, 4)
	if err != nil {
		return nil, fmt.Errorf("%w: license: %v", ErrDecode, err)
	}
	var uses []vocab.UseCase
	if err := json.Unmarshal(fields[0], &uses); err != nil {
		return nil, fmt.Errorf("%w: license uses: %v", ErrDecode, err)
	}
	if len(uses) == 0 {
		uses = nil
	}
	terms, err := decodeString(fields[1], "terms")
	if err != nil {
		return nil, err
	}
	desc, err := decodeOptString(fields[2], "description")
	if err != nil {
		return nil, err
	}
	expiry, err := decodeOptTime(fields[3], "expiry")
	if err != nil {
		return nil, err
	}
	return &LicenseContents{Uses: uses, Terms: terms, Description: desc, Expiry: expiry}, nil
}

// EncodeForLedger returns the framed license.
func (l *LicenseContents) EncodeForLedger() ([]byte, error) {
	payload, err := l.Encode()
	if err != nil {
		return nil, err
	}
	return Serialize(SchemaLicense, payload), nil
}

// DecodeFromLedger replaces l with the license held in frame.
func (l *LicenseContents) DecodeFromLedger(frame []byte) error {
	payload, err := expect(frame, SchemaLicense)
	if err != nil {
		return err
	}
	out, err := DecodeLicense(payload)
	if err != nil {
		return err
	}
	*l = *out
	return nil
}
