// Package stream frames serialized LHA documents for transport over a
// byte stream (pipe, socket, concatenated file).
//
// Each frame is one header line followed by exactly len payload bytes:
//
//	@frame{v=1 sid=N seq=N kind=K len=N [crc=X] [base=sha256:X] [enc=zstd] [final=true]}\n
//	<payload bytes>\n
//
// The frame provides:
//   - Message boundaries for documents of any size
//   - Multiplexing via stream IDs (sid)
//   - Ordering via sequence numbers (seq)
//   - Integrity via optional CRC-32 of the wire payload
//   - Content identity via optional SHA-256 of the uncompressed document
//   - Optional zstd payload compression
//
// Frame headers are not part of the LHA text; a doc payload is plain
// LHA text handed to lha.Parse unchanged.
package stream

import (
	"fmt"
)

// Version is the frame protocol version.
const Version uint8 = 1

// FrameKind indicates the semantic category of a frame's payload.
type FrameKind uint8

const (
	KindDoc FrameKind = 0 // Serialized LHA document
	KindAck FrameKind = 1 // Acknowledgement
	KindErr FrameKind = 2 // Error text
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindDoc:
		return "doc"
	case KindAck:
		return "ack"
	case KindErr:
		return "err"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind string or numeric value.
func ParseKind(s string) (FrameKind, bool) {
	switch s {
	case "doc", "0":
		return KindDoc, true
	case "ack", "1":
		return KindAck, true
	case "err", "2":
		return KindErr, true
	default:
		return 0, false
	}
}

// Frame represents a single frame.
type Frame struct {
	// Required fields
	Version uint8     // Protocol version (must be 1)
	SID     uint64    // Stream identifier
	Seq     uint64    // Sequence number (per-SID, monotonic)
	Kind    FrameKind // Frame kind
	Payload []byte    // Payload bytes as they travel on the wire

	// Optional fields
	CRC        *uint32   // CRC-32 of the wire payload (nil if not present)
	Base       *[32]byte // SHA-256 of the uncompressed payload (nil if not present)
	Compressed bool      // Payload is zstd-compressed
	Final      bool      // End-of-stream marker
}

// HasCRC returns true if CRC is present.
func (f *Frame) HasCRC() bool {
	return f.CRC != nil
}

// HasBase returns true if base hash is present.
func (f *Frame) HasBase() bool {
	return f.Base != nil
}

// MaxPayloadSize is the default maximum payload size (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// ParseError is returned for malformed frame headers.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("stream: CRC mismatch: expected %08x, got %08x", e.Expected, e.Got)
}

// BaseMismatchError is returned when the decoded document does not hash
// to the frame's base.
type BaseMismatchError struct {
	Expected [32]byte
	Got      [32]byte
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("stream: base hash mismatch: expected %s, got %s", HashToHex(e.Expected), HashToHex(e.Got))
}

// KindMismatchError is returned when a document was expected but another
// frame kind arrived.
type KindMismatchError struct {
	Want FrameKind
	Got  FrameKind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("stream: expected %s frame, got %s", e.Want, e.Got)
}
