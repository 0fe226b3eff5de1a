package tlv

import "errors"

var (
	// ErrTruncated reports a trailing record that is not fully present.
	ErrTruncated = errors.New("truncated tlv record")
	// ErrMalformedPayload reports a payload whose size does not match its type.
	ErrMalformedPayload = errors.New("malformed tlv payload")
)
