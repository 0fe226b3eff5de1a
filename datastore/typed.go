package datastore

import (
	"context"
	"fmt"
)

// Get reads key from h and decodes it with d. cb receives the outcome on
// the handler's worker goroutine, or on the caller's goroutine when the
// key is invalid.
func Get[T any](h Handler, key string, d Deserializer[T], cb func(Result[T]), opts ...ReadOption) {
	h.Read(key, func(raw Result[[]byte]) {
		if cb == nil {
			return
		}
		cb(decodeResult(raw, d))
	}, opts...)
}

// Set encodes value with s and stores it under key, stamped with version.
// Serialization runs on the worker; a failed or panicking serializer leaves
// the previous value in place and reports ErrSerializeFailed.
func Set[T any](h Handler, key string, value T, version int, s Serializer[T], cb func(error)) {
	h.Write(key, version, func() ([]byte, error) {
		return s.Serialize(value)
	}, cb)
}

// Delete removes key from h.
func Delete(h Handler, key string, cb func(error)) {
	h.Remove(key, cb)
}

// GetSync is Get for callers that can block. It returns ctx.Err() if ctx
// ends before the read completes; the read itself still runs.
func GetSync[T any](ctx context.Context, h Handler, key string, d Deserializer[T], opts ...ReadOption) (Result[T], error) {
	ch := make(chan Result[T], 1)
	Get(h, key, d, func(r Result[T]) { ch <- r }, opts...)

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return Result[T]{Status: StatusFailure, Err: ctx.Err()}, ctx.Err()
	}
}

// SetSync is Set for callers that can block.
func SetSync[T any](ctx context.Context, h Handler, key string, value T, version int, s Serializer[T]) error {
	ch := make(chan error, 1)
	Set(h, key, value, version, s, func(err error) { ch <- err })
	return wait(ctx, ch)
}

// DeleteSync is Delete for callers that can block.
func DeleteSync(ctx context.Context, h Handler, key string) error {
	ch := make(chan error, 1)
	Delete(h, key, func(err error) { ch <- err })
	return wait(ctx, ch)
}

// ClearSync removes every value of the handler's feature and waits.
func ClearSync(ctx context.Context, h Handler) error {
	ch := make(chan error, 1)
	h.Clear(func(err error) { ch <- err })
	return wait(ctx, ch)
}

func wait(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeResult[T any](raw Result[[]byte], d Deserializer[T]) Result[T] {
	if raw.Status != StatusSuccess {
		return Result[T]{Status: raw.Status, Err: raw.Err}
	}

	value, err := safeDecode(d, raw.Content.Data)
	if err != nil {
		return Result[T]{Status: StatusFailure, Err: fmt.Errorf("%w: %v", ErrDeserializeFailed, err)}
	}

	return Result[T]{
		Status: StatusSuccess,
		Content: Content[T]{
			Version:      raw.Content.Version,
			LastUpdateMs: raw.Content.LastUpdateMs,
			Data:         value,
		},
	}
}

func safeDecode[T any](d Deserializer[T], data []byte) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deserializer panicked: %v", r)
		}
	}()
	return d.Deserialize(data)
}
