package content

import (
	"bytes"
	"errors"
	"testing"
)

func TestSerializeLayout(t *testing.T) {
	frame := Serialize(SchemaLicense, []byte("abc"))
	want := []byte{0x03, 0x03, 'a', 'b', 'c'}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %x, want %x", frame, want)
	}
}

func TestDeserializeRoundTrip(t *testing.T) {
	for _, s := range []Schema{SchemaTitle, SchemaLicense, SchemaPayable, SchemaReceipt} {
		got, payload, err := Deserialize(Serialize(s, []byte("payload")))
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if got != s || string(payload) != "payload" {
			t.Fatalf("%s: got %s %q", s, got, payload)
		}
	}
}

func TestDeserializeUnknownSchema(t *testing.T) {
	frame := append([]byte{0x07}, 0x00)
	if _, _, err := Deserialize(frame); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"truncated": {0x02, 0x05, 'a'},
		"trailing":  append(Serialize(SchemaTitle, []byte("x")), 0x01, 'y'),
	}
	for name, frame := range cases {
		if _, _, err := Deserialize(frame); !errors.Is(err, ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", name, err)
		}
	}
}
