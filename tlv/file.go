package tlv

import (
	"fmt"
	"io"
	"os"
)

// ReadFile decodes every complete block stored at path. A truncated tail is
// reported through the returned error alongside the decoded prefix; callers
// that validate block counts may ignore it.
func ReadFile(path string) ([]Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// WriteTo encodes blocks into w with a single Write call.
func WriteTo(w io.Writer, blocks ...Block) (int64, error) {
	n, err := w.Write(Encode(blocks...))
	if err != nil {
		return int64(n), fmt.Errorf("write tlv blocks: %w", err)
	}
	return int64(n), nil
}
