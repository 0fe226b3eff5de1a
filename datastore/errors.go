package datastore

import "errors"

// Sentinel errors reported through write callbacks and Result.Err.
var (
	ErrInvalidKey        = errors.New("invalid datastore key")
	ErrInvalidFeature    = errors.New("invalid feature name")
	ErrInvalidConfig     = errors.New("invalid datastore configuration")
	ErrSerializeFailed   = errors.New("serialize failed")
	ErrDeserializeFailed = errors.New("deserialize failed")
	ErrReadFailed        = errors.New("read failed")
	ErrWriteFailed       = errors.New("write failed")
	ErrDeleteFailed      = errors.New("delete failed")
	ErrCorrupt           = errors.New("datastore file corrupt")
	ErrHandlerClosed     = errors.New("datastore handler closed")
)
