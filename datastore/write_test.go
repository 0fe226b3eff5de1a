package datastore

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestWrite_RejectsOversizedPayload(t *testing.T) {
	prev := maxPayloadSize
	maxPayloadSize = 4
	t.Cleanup(func() { maxPayloadSize = prev })

	cfg := DefaultConfig()
	cfg.StorageDir = t.TempDir()
	h, err := New("rum", cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer h.Close(context.Background())

	done := make(chan error, 1)
	h.Write("big", 0, func() ([]byte, error) { return []byte("12345"), nil }, func(err error) { done <- err })

	if err := <-done; !errors.Is(err, ErrSerializeFailed) {
		t.Fatalf("Write() error = %v, want ErrSerializeFailed", err)
	}

	path, err := h.Path("big")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file exists after rejected write: %v", err)
	}

	h.Write("small", 0, func() ([]byte, error) { return []byte("1234"), nil }, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Errorf("Write() at the limit error = %v", err)
	}
}
