package content

import "errors"

var (
	// ErrUnknownSchema is returned for a frame whose schema id is not registered.
	ErrUnknownSchema = errors.New("unknown content schema")
	// ErrDecode is returned for malformed framed or payload bytes.
	ErrDecode = errors.New("content decode failed")
	// ErrSchemaMismatch is returned when a frame holds a different content type
	// than the caller expected.
	ErrSchemaMismatch = errors.New("content schema mismatch")
)
