// Package tlv encodes and decodes the flat Type-Length-Value record stream
// stored in datastore files.
//
// A block is laid out as
//
//	[type: int32 big-endian][length: int32 big-endian][payload: length bytes]
//
// and a file is a plain concatenation of blocks with no header or footer.
// The codec carries no checksum: corruption is detected structurally by the
// caller (block counts, duplicate or missing types), which is why Decode
// never trusts a truncated trailing record.
package tlv

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the number of bytes preceding every payload.
const HeaderSize = 8

// MaxPayloadSize is the largest payload a block length can describe.
const MaxPayloadSize = math.MaxInt32

// BlockType identifies the payload carried by a block.
type BlockType int32

const (
	VersionCode BlockType = iota
	LastUpdateDate
	Data
)

// RequiredTypes lists the block types a datastore file must carry exactly once.
var RequiredTypes = []BlockType{VersionCode, LastUpdateDate, Data}

func (t BlockType) String() string {
	switch t {
	case VersionCode:
		return "VERSION_CODE"
	case LastUpdateDate:
		return "LAST_UPDATE_DATE"
	case Data:
		return "DATA"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// Known reports whether t is one of the defined block types.
func (t BlockType) Known() bool {
	return t >= VersionCode && t <= Data
}

// Block is a single decoded record.
type Block struct {
	Type    BlockType
	Payload []byte
}

// NewVersionBlock encodes a schema version as a 4-byte big-endian payload.
func NewVersionBlock(version int) Block {
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, uint32(int32(version)))
	return Block{Type: VersionCode, Payload: p}
}

// NewLastUpdateBlock encodes a unix-millisecond timestamp as an 8-byte
// big-endian payload.
func NewLastUpdateBlock(ms int64) Block {
	p := make([]byte, 8)
	binary.BigEndian.PutUint64(p, uint64(ms))
	return Block{Type: LastUpdateDate, Payload: p}
}

// NewDataBlock wraps an opaque payload.
func NewDataBlock(payload []byte) Block {
	return Block{Type: Data, Payload: payload}
}

// Int32 interprets the payload as a big-endian int32.
func (b Block) Int32() (int32, error) {
	if len(b.Payload) != 4 {
		return 0, fmt.Errorf("%w: %s payload is %d bytes, want 4", ErrMalformedPayload, b.Type, len(b.Payload))
	}
	return int32(binary.BigEndian.Uint32(b.Payload)), nil
}

// Int64 interprets the payload as a big-endian int64.
func (b Block) Int64() (int64, error) {
	if len(b.Payload) != 8 {
		return 0, fmt.Errorf("%w: %s payload is %d bytes, want 8", ErrMalformedPayload, b.Type, len(b.Payload))
	}
	return int64(binary.BigEndian.Uint64(b.Payload)), nil
}

// EncodedLen returns the number of bytes Encode produces for blocks.
func EncodedLen(blocks ...Block) int {
	n := 0
	for _, b := range blocks {
		n += HeaderSize + len(b.Payload)
	}
	return n
}

// Encode serializes blocks in order. The output is deterministic.
func Encode(blocks ...Block) []byte {
	buf := make([]byte, 0, EncodedLen(blocks...))
	for _, b := range blocks {
		buf = AppendBlock(buf, b)
	}
	return buf
}

// AppendBlock appends the encoding of b to dst and returns the extended slice.
func AppendBlock(dst []byte, b Block) []byte {
	if len(b.Payload) > MaxPayloadSize {
		panic(fmt.Sprintf("tlv: %s payload of %d bytes exceeds int32 length", b.Type, len(b.Payload)))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(b.Type))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b.Payload)))
	return append(dst, b.Payload...)
}

// Decode parses data into blocks. It stops at the first incomplete record
// (fewer than HeaderSize bytes left, a negative length, or a payload shorter
// than its declared length) and returns the fully decoded prefix together
// with an error wrapping ErrTruncated. Payloads alias data.
func Decode(data []byte) ([]Block, error) {
	var blocks []Block
	off := 0
	for off < len(data) {
		if len(data)-off < HeaderSize {
			return blocks, fmt.Errorf("%w: %d header bytes at offset %d", ErrTruncated, len(data)-off, off)
		}
		typ := BlockType(int32(binary.BigEndian.Uint32(data[off:])))
		length := int32(binary.BigEndian.Uint32(data[off+4:]))
		if length < 0 {
			return blocks, fmt.Errorf("%w: negative length %d at offset %d", ErrTruncated, length, off)
		}
		start := off + HeaderSize
		if int64(len(data)-start) < int64(length) {
			return blocks, fmt.Errorf("%w: %s declares %d bytes, %d available at offset %d",
				ErrTruncated, typ, length, len(data)-start, off)
		}
		end := start + int(length)
		blocks = append(blocks, Block{Type: typ, Payload: data[start:end:end]})
		off = end
	}
	return blocks, nil
}
