package datastore

import (
	"time"

	"github.com/tailored-agentic-units/datastore/tlv"
)

// OutcomeKind classifies a decoded block sequence.
type OutcomeKind int

const (
	OutcomeValid OutcomeKind = iota
	OutcomeInvalidBlockCount
	OutcomeDuplicateBlock
	OutcomeMissingBlock
	OutcomeMalformedBlock
	OutcomeVersionMismatch
	OutcomeVersionTooOld
	OutcomeStale
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalidBlockCount:
		return "invalid_block_count"
	case OutcomeDuplicateBlock:
		return "duplicate_block"
	case OutcomeMissingBlock:
		return "missing_block"
	case OutcomeMalformedBlock:
		return "malformed_block"
	case OutcomeVersionMismatch:
		return "version_mismatch"
	case OutcomeVersionTooOld:
		return "version_too_old"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Policy holds the read-time parameters a block sequence is judged against.
type Policy struct {
	// RequestedVersion, when set, must equal the stored version exactly.
	// A mismatch yields NoData and leaves the file in place.
	RequestedVersion *int
	// CurrentVersion applies when no version is requested: older files are
	// purged.
	CurrentVersion int
	// StaleAfter is the retention window; zero or negative disables it.
	StaleAfter time.Duration
	Now        time.Time
}

// Outcome is the verdict for one block sequence. Version, LastUpdateMs and
// Data are populated for OutcomeValid. Count is set for
// OutcomeInvalidBlockCount and Block for the duplicate, missing and
// malformed kinds.
type Outcome struct {
	Kind         OutcomeKind
	Count        int
	Block        tlv.BlockType
	Version      int
	LastUpdateMs int64
	Data         []byte
}

// Status maps the outcome onto the read status reported to callers.
func (o Outcome) Status() Status {
	switch o.Kind {
	case OutcomeValid:
		return StatusSuccess
	case OutcomeVersionMismatch, OutcomeVersionTooOld, OutcomeStale:
		return StatusNoData
	default:
		return StatusFailure
	}
}

// Corrupt reports whether the sequence is structurally broken.
func (o Outcome) Corrupt() bool {
	return o.Status() == StatusFailure
}

// Purge reports whether the file should be deleted after this read.
// Version mismatches against an explicitly requested version are kept.
func (o Outcome) Purge() bool {
	switch o.Kind {
	case OutcomeVersionTooOld, OutcomeStale:
		return true
	default:
		return o.Corrupt()
	}
}

// Validate judges a decoded block sequence. Checks run in a fixed order and
// the first one that fails decides the outcome: block count, duplicates,
// missing types, payload sizes, requested version, current version, and
// finally staleness. Block order inside the file is not significant.
func Validate(blocks []tlv.Block, p Policy) Outcome {
	if len(blocks) != len(tlv.RequiredTypes) {
		return Outcome{Kind: OutcomeInvalidBlockCount, Count: len(blocks)}
	}

	byType := make(map[tlv.BlockType]tlv.Block, len(blocks))
	for _, b := range blocks {
		if _, seen := byType[b.Type]; seen {
			return Outcome{Kind: OutcomeDuplicateBlock, Count: len(blocks), Block: b.Type}
		}
		byType[b.Type] = b
	}

	for _, t := range tlv.RequiredTypes {
		if _, ok := byType[t]; !ok {
			return Outcome{Kind: OutcomeMissingBlock, Count: len(blocks), Block: t}
		}
	}

	version, err := byType[tlv.VersionCode].Int32()
	if err != nil {
		return Outcome{Kind: OutcomeMalformedBlock, Count: len(blocks), Block: tlv.VersionCode}
	}
	lastUpdate, err := byType[tlv.LastUpdateDate].Int64()
	if err != nil {
		return Outcome{Kind: OutcomeMalformedBlock, Count: len(blocks), Block: tlv.LastUpdateDate}
	}

	out := Outcome{
		Kind:         OutcomeValid,
		Count:        len(blocks),
		Version:      int(version),
		LastUpdateMs: lastUpdate,
		Data:         byType[tlv.Data].Payload,
	}

	if p.RequestedVersion != nil {
		if *p.RequestedVersion != out.Version {
			out.Kind = OutcomeVersionMismatch
			return out
		}
	} else if out.Version < p.CurrentVersion {
		out.Kind = OutcomeVersionTooOld
		return out
	}

	// Compared against a cutoff so extreme stored timestamps cannot
	// overflow the subtraction.
	if p.StaleAfter > 0 && lastUpdate < p.Now.UnixMilli()-p.StaleAfter.Milliseconds() {
		out.Kind = OutcomeStale
	}

	return out
}
