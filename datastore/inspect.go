package datastore

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/tailored-agentic-units/datastore/tlv"
)

// FileReport describes a datastore file without applying any read policy
// or purging it.
type FileReport struct {
	Path      string
	Size      int64
	ModTime   time.Time
	Blocks    []tlv.Block
	Truncated bool
	// Outcome is the structural verdict with versioning and staleness
	// checks disabled.
	Outcome Outcome
}

// Inspect decodes the file at path for diagnostics.
func Inspect(path string) (*FileReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	blocks, err := tlv.ReadFile(path)
	truncated := errors.Is(err, tlv.ErrTruncated)
	if err != nil && !truncated {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	return &FileReport{
		Path:      path,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Blocks:    blocks,
		Truncated: truncated,
		Outcome:   Validate(blocks, Policy{CurrentVersion: math.MinInt}),
	}, nil
}
