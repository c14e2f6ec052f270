package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/lha/lha"
)

// Reader reads frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	parseOpts  lha.ParseOptions
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 64 MiB). It
// bounds both the wire payload and the decompressed document.
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithoutCRCVerification skips CRC checks.
func WithoutCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
	}
}

// WithParseOptions sets the options used to parse document payloads.
func WithParseOptions(opts lha.ParseOptions) ReaderOption {
	return func(r *Reader) {
		r.parseOpts = opts
	}
}

// NewReader creates a new frame reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true, // verify by default
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and returns the next frame.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	headerLine, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && headerLine == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	frame, payloadLen, err := parseHeader(headerLine)
	if err != nil {
		return nil, err
	}

	if payloadLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", payloadLen, r.maxPayload), Offset: -1}
	}

	if payloadLen > 0 {
		frame.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r.r, frame.Payload); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}

	// Consume trailing newline (optional at EOF)
	if b, err := r.r.ReadByte(); err == nil && b != '\n' {
		_ = r.r.UnreadByte()
	}

	if r.verifyCRC && frame.CRC != nil {
		computed := ComputeCRC(frame.Payload)
		if computed != *frame.CRC {
			return nil, &CRCMismatchError{Expected: *frame.CRC, Got: computed}
		}
	}

	return frame, nil
}

// NextDocument reads the next frame and parses it as a document.
func (r *Reader) NextDocument() (*lha.Document, *Frame, error) {
	frame, err := r.Next()
	if err != nil {
		return nil, nil, err
	}
	doc, err := r.Document(frame)
	return doc, frame, err
}

// Document parses a doc frame's payload. The payload is decompressed and
// checked against the frame base if present.
func (r *Reader) Document(frame *Frame) (*lha.Document, error) {
	if frame.Kind != KindDoc {
		return nil, &KindMismatchError{Want: KindDoc, Got: frame.Kind}
	}

	text, err := r.Text(frame)
	if err != nil {
		return nil, err
	}
	if frame.Base != nil {
		if got := StateHashBytes(text); got != *frame.Base {
			return nil, &BaseMismatchError{Expected: *frame.Base, Got: got}
		}
	}

	lines, err := lha.ReadLines(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}
	doc, err := lha.ParseWithOptions(lines, r.parseOpts)
	if err != nil {
		return nil, fmt.Errorf("frame sid=%d seq=%d: %w", frame.SID, frame.Seq, err)
	}
	return doc, nil
}

// Text returns the frame payload, decompressed if needed.
func (r *Reader) Text(f *Frame) ([]byte, error) {
	if !f.Compressed {
		return f.Payload, nil
	}
	return decompress(f.Payload, r.maxPayload)
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// parseHeader parses the @frame{...} header line and returns the frame
// plus the payload length to read.
func parseHeader(line string) (*Frame, int, error) {
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(line, "@frame{") {
		return nil, 0, &ParseError{Reason: "expected @frame{", Offset: 0}
	}

	endIdx := strings.LastIndex(line, "}")
	if endIdx < 0 {
		return nil, 0, &ParseError{Reason: "missing closing }", Offset: len(line)}
	}

	frame := &Frame{Version: Version}
	payloadLen := 0
	sawLen := false

	for _, pair := range strings.Fields(line[len("@frame{"):endIdx]) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue // skip malformed pairs
		}

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid version", Offset: -1}
			}
			if uint8(v) != Version {
				return nil, 0, &ParseError{Reason: "unsupported version " + val, Offset: -1}
			}
			frame.Version = uint8(v)

		case "sid":
			sid, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid sid", Offset: -1}
			}
			frame.SID = sid

		case "seq":
			seq, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid seq", Offset: -1}
			}
			frame.Seq = seq

		case "kind":
			kind, ok := ParseKind(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid kind: " + val, Offset: -1}
			}
			frame.Kind = kind

		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid len", Offset: -1}
			}
			payloadLen = int(l)
			sawLen = true

		case "crc":
			crc, ok := parseCRC(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid crc: " + val, Offset: -1}
			}
			frame.CRC = &crc

		case "base":
			base, ok := HexToHash(strings.TrimPrefix(val, "sha256:"))
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid base: " + val, Offset: -1}
			}
			frame.Base = &base

		case "enc":
			if val != "zstd" {
				return nil, 0, &ParseError{Reason: "unsupported encoding: " + val, Offset: -1}
			}
			frame.Compressed = true

		case "final":
			frame.Final = val == "true" || val == "1"
		}
	}

	if !sawLen {
		return nil, 0, &ParseError{Reason: "missing len", Offset: -1}
	}
	return frame, payloadLen, nil
}

// parseCRC parses CRC value: "crc32:XXXXXXXX" or "XXXXXXXX"
func parseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")

	if len(val) != 8 {
		return 0, false
	}

	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
