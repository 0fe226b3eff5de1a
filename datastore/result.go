package datastore

import "time"

// Status is the three-way outcome of a read.
type Status int

const (
	// StatusNoData means no usable value exists: the file is missing, holds
	// another version, or was purged as outdated, stale or corrupt.
	StatusNoData Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusNoData:
		return "no_data"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Content is a value read back from the datastore together with the
// metadata stored next to it.
type Content[T any] struct {
	Version      int
	LastUpdateMs int64
	Data         T
}

// LastUpdate returns LastUpdateMs as a time.
func (c Content[T]) LastUpdate() time.Time {
	return time.UnixMilli(c.LastUpdateMs)
}

// Result carries a read outcome. Content is set only for StatusSuccess; Err
// is set only for StatusFailure.
type Result[T any] struct {
	Status  Status
	Content Content[T]
	Err     error
}

// OK reports whether the read produced a value.
func (r Result[T]) OK() bool {
	return r.Status == StatusSuccess
}
