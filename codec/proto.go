package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Proto stores protobuf messages in binary wire format. New allocates the
// message decoded into.
type Proto[T proto.Message] struct {
	New func() T
}

// NewProto returns a Proto codec for messages created by newFn.
func NewProto[T proto.Message](newFn func() T) Proto[T] {
	return Proto[T]{New: newFn}
}

func (c Proto[T]) Serialize(m T) ([]byte, error) {
	data, err := proto.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal proto: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (c Proto[T]) Deserialize(data []byte) (T, error) {
	m := c.New()
	if err := proto.Unmarshal(data, m); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal proto: %w", err)
	}
	return m, nil
}

// ProtoJSON stores protobuf messages in their canonical JSON mapping,
// which keeps files readable with the inspect command.
type ProtoJSON[T proto.Message] struct {
	New func() T
}

// NewProtoJSON returns a ProtoJSON codec for messages created by newFn.
func NewProtoJSON[T proto.Message](newFn func() T) ProtoJSON[T] {
	return ProtoJSON[T]{New: newFn}
}

func (c ProtoJSON[T]) Serialize(m T) ([]byte, error) {
	data, err := protojson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal protojson: %w", err)
	}
	return data, nil
}

func (c ProtoJSON[T]) Deserialize(data []byte) (T, error) {
	m := c.New()
	if err := protojson.Unmarshal(data, m); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal protojson: %w", err)
	}
	return m, nil
}
