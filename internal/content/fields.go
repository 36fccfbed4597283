package content

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	flagAbsent  byte = 0x00
	flagPresent byte = 0x01
)

func encodeOptString(v *string) []byte {
	if v == nil {
		return []byte{flagAbsent}
	}
	return append([]byte{flagPresent}, *v...)
}

func decodeOptString(field []byte, name string) (*string, error) {
	body, present, err := splitFlag(field, name)
	if err != nil || !present {
		return nil, err
	}
	s, err := decodeString(body, name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func encodeOptTime(v *time.Time) []byte {
	if v == nil {
		return []byte{flagAbsent}
	}
	out := make([]byte, 9)
	out[0] = flagPresent
	binary.BigEndian.PutUint64(out[1:], uint64(v.Unix()))
	return out
}

func decodeOptTime(field []byte, name string) (*time.Time, error) {
	body, present, err := splitFlag(field, name)
	if err != nil || !present {
		return nil, err
	}
	if len(body) != 8 {
		return nil, fmt.Errorf("%w: %s must be 8 bytes, got %d", ErrDecode, name, len(body))
	}
	ts := time.Unix(int64(binary.BigEndian.Uint64(body)), 0).UTC()
	return &ts, nil
}

func splitFlag(field []byte, name string) ([]byte, bool, error) {
	if len(field) == 0 {
		return nil, false, fmt.Errorf("%w: %s missing presence flag", ErrDecode, name)
	}
	switch field[0] {
	case flagAbsent:
		if len(field) != 1 {
			return nil, false, fmt.Errorf("%w: %s marked absent but carries data", ErrDecode, name)
		}
		return nil, false, nil
	case flagPresent:
		return field[1:], true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s has invalid presence flag 0x%02x", ErrDecode, name, field[0])
	}
}

func decodeString(b []byte, name string) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrDecode, name)
	}
	return string(b), nil
}
