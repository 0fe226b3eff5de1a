// Package codec provides ready-made serializers for datastore values.
//
// Every codec implements both datastore.Serializer and
// datastore.Deserializer for its value type:
//
//	datastore.Set(h, "config", cfg, 1, codec.JSON[Config]{}, nil)
//	datastore.Get(h, "config", codec.JSON[Config]{}, onConfig)
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when String decodes bytes that are not UTF-8.
var ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")

// String stores a string as its UTF-8 bytes.
type String struct{}

func (String) Serialize(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, ErrInvalidUTF8
	}
	return []byte(s), nil
}

func (String) Deserialize(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

// Bytes stores raw bytes unchanged. A nil slice is stored as an empty
// payload.
type Bytes struct{}

func (Bytes) Serialize(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (Bytes) Deserialize(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// JSON stores values with encoding/json.
type JSON[T any] struct{}

func (JSON[T]) Serialize(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

func (JSON[T]) Deserialize(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal json: %w", err)
	}
	return v, nil
}
