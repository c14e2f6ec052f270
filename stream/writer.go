package stream

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/lha/lha"
)

// Writer writes frames to an io.Writer.
type Writer struct {
	w        io.Writer
	withCRC  bool // Compute and include CRC
	compress bool // zstd-compress document payloads
	opts     lha.EmitOptions
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCRC adds a CRC-32 of the wire payload to every non-empty frame.
func WithCRC() WriterOption {
	return func(w *Writer) {
		w.withCRC = true
	}
}

// WithCompression zstd-compresses document payloads.
func WithCompression() WriterOption {
	return func(w *Writer) {
		w.compress = true
	}
}

// WithEmitOptions sets the options used to serialize documents.
func WithEmitOptions(opts lha.EmitOptions) WriterOption {
	return func(w *Writer) {
		w.opts = opts
	}
}

// NewWriter creates a new frame writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w, opts: lha.DefaultEmitOptions()}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// WriteFrame writes a single frame.
func (w *Writer) WriteFrame(f *Frame) error {
	var header strings.Builder
	header.WriteString("@frame{")

	// Required fields
	header.WriteString("v=")
	if f.Version == 0 {
		header.WriteByte('1')
	} else {
		header.WriteString(strconv.Itoa(int(f.Version)))
	}

	header.WriteString(" sid=")
	header.WriteString(strconv.FormatUint(f.SID, 10))

	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(f.Seq, 10))

	header.WriteString(" kind=")
	header.WriteString(f.Kind.String())

	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(f.Payload)))

	// Optional CRC
	crc := f.CRC
	if crc == nil && w.withCRC && len(f.Payload) > 0 {
		computed := ComputeCRC(f.Payload)
		crc = &computed
	}
	if crc != nil {
		header.WriteString(fmt.Sprintf(" crc=%08x", *crc))
	}

	if f.Base != nil {
		header.WriteString(" base=sha256:")
		header.WriteString(HashToHex(*f.Base))
	}

	if f.Compressed {
		header.WriteString(" enc=zstd")
	}

	if f.Final {
		header.WriteString(" final=true")
	}

	header.WriteString("}\n")

	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if len(f.Payload) > 0 {
		if _, err := w.w.Write(f.Payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}

	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}

	return nil
}

// WriteDocument serializes doc and writes it as a doc frame. The frame
// base is the SHA-256 of the uncompressed text.
func (w *Writer) WriteDocument(sid, seq uint64, doc *lha.Document) error {
	var sb strings.Builder
	if _, err := lha.WriteLines(&sb, lha.EmitWithOptions(doc, w.opts)); err != nil {
		return err
	}
	text := []byte(sb.String())
	base := StateHashBytes(text)

	f := &Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindDoc,
		Payload: text,
		Base:    &base,
	}
	if w.compress {
		f.Payload = compress(text)
		f.Compressed = true
	}
	return w.WriteFrame(f)
}

// WriteAck writes an acknowledgement frame (no payload).
func (w *Writer) WriteAck(sid, seq uint64) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindAck,
	})
}

// WriteErr writes an error frame carrying err's text.
func (w *Writer) WriteErr(sid, seq uint64, err error) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindErr,
		Payload: []byte(err.Error()),
	})
}

// WriteFinal writes an empty final frame closing a stream.
func (w *Writer) WriteFinal(sid, seq uint64) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindAck,
		Final:   true,
	})
}
