package datastore

// Serializer converts a value into the bytes stored in the DATA block.
// Returning a nil slice with a nil error is treated as a failure.
type Serializer[T any] interface {
	Serialize(value T) ([]byte, error)
}

// Deserializer converts DATA block bytes back into a value.
type Deserializer[T any] interface {
	Deserialize(data []byte) (T, error)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc[T any] func(T) ([]byte, error)

func (f SerializerFunc[T]) Serialize(value T) ([]byte, error) {
	return f(value)
}

// DeserializerFunc adapts a function to Deserializer.
type DeserializerFunc[T any] func([]byte) (T, error)

func (f DeserializerFunc[T]) Deserialize(data []byte) (T, error) {
	return f(data)
}
