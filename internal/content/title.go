package content

import (
	"encoding/json"
	"fmt"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/compactsize"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/vocab"
)

// TitleContents describes a piece of content and how it is tagged.
type TitleContents struct {
	Ptr         string
	Origin      string
	Tags        []vocab.Tag
	Description *string
}

// Encode returns the payload bytes: ptr, origin, description, JSON(tags).
func (t *TitleContents) Encode() ([]byte, error) {
	tags := t.Tags
	if tags == nil {
		tags = []vocab.Tag{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode title tags: %w", err)
	}
	return compactsize.EncodeAll(
		[]byte(t.Ptr),
		[]byte(t.Origin),
		encodeOptString(t.Description),
		tagJSON,
	), nil
}

// DecodeTitle parses a title payload produced by Encode.
func DecodeTitle(payload []byte) (*TitleContents, error) {
	fields, err := compactsize.DecodeN(payload, 4)
	if err != nil {
		return nil, fmt.Errorf("%w: title: %v", ErrDecode, err)
	}
	ptr, err := decodeString(fields[0], "ptr")
	if err != nil {
		return nil, err
	}
	origin, err := decodeString(fields[1], "origin")
	if err != nil {
		return nil, err
	}
	desc, err := decodeOptString(fields[2], "description")
	if err != nil {
		return nil, err
	}
	var tags []vocab.Tag
	if err := json.Unmarshal(fields[3], &tags); err != nil {
		return nil, fmt.Errorf("%w: title tags: %v", ErrDecode, err)
	}
	if len(tags) == 0 {
		tags = nil
	}
	return &TitleContents{Ptr: ptr, Origin: origin, Tags: tags, Description: desc}, nil
}

// EncodeForLedger returns the framed title.
func (t *TitleContents) EncodeForLedger() ([]byte, error) {
	payload, err := t.Encode()
	if err != nil {
		return nil, err
	}
	return Serialize(SchemaTitle, payload), nil
}

// DecodeFromLedger replaces t with the title held in frame.
func (t *TitleContents) DecodeFromLedger(frame []byte) error {
	payload, err := expect(frame, SchemaTitle)
	if err != nil {
		return err
	}
	out, err := DecodeTitle(payload)
	if err != nil {
		return err
	}
	*t = *out
	return nil
}
