package lha

import (
	"io"
	"strconv"
	"strings"
)

const defaultPrecision = 8

// EmitOptions configures the writer.
type EmitOptions struct {
	// Precision is the number of digits after the point for floats and
	// decay widths in exponential notation (default: 8).
	Precision int
}

// DefaultEmitOptions returns the standard LHA output settings.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{Precision: defaultPrecision}
}

// Emit renders a document as output lines, without line terminators.
// Blocks come first in insertion order, then decays in insertion order.
func Emit(d *Document) []string {
	return EmitWithOptions(d, DefaultEmitOptions())
}

// EmitWithOptions renders a document with custom options.
func EmitWithOptions(d *Document, opts EmitOptions) []string {
	if opts.Precision <= 0 {
		opts.Precision = defaultPrecision
	}
	e := &emitter{opts: opts}
	for _, b := range d.blocks {
		e.emitBlock(b)
	}
	for _, dec := range d.decays {
		e.emitDecay(dec)
	}
	return e.lines
}

// String renders the document as text, one line per row.
func (d *Document) String() string {
	var sb strings.Builder
	for _, line := range Emit(d) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteTo writes the document to w. It implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return WriteLines(w, Emit(d))
}

// WriteLines writes newline-terminated lines to w.
func WriteLines(w io.Writer, lines []string) (int64, error) {
	var total int64
	for _, line := range lines {
		n, err := io.WriteString(w, line+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type emitter struct {
	lines []string
	opts  EmitOptions
}

func (e *emitter) emitBlock(b *Block) {
	var sb strings.Builder
	sb.WriteString("BLOCK\t")
	sb.WriteString(b.title)
	writeComment(&sb, &b.annotation, true)
	e.lines = append(e.lines, sb.String())

	for _, entry := range b.entries {
		e.lines = append(e.lines, entry.format(e.opts.Precision))
	}
}

func (e *emitter) emitDecay(d *Decay) {
	var sb strings.Builder
	sb.WriteString("DECAY\t")
	sb.WriteString(strconv.FormatInt(d.pdgid, 10))
	sb.WriteByte('\t')
	sb.WriteString(formatFloat(d.width, e.opts.Precision))
	writeComment(&sb, &d.annotation, true)
	e.lines = append(e.lines, sb.String())

	for _, entry := range d.entries {
		e.lines = append(e.lines, entry.format(e.opts.Precision))
	}
}

func (e *Entry) format(precision int) string {
	var sb strings.Builder
	for _, v := range e.values {
		sb.WriteByte('\t')
		sb.WriteString(v.format(precision))
	}
	writeComment(&sb, &e.annotation, sb.Len() > 0)
	return sb.String()
}

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

// writeComment appends "# text", tab-separated when the line already has
// content. Nothing is written for an absent comment.
func writeComment(sb *strings.Builder, a *annotation, tab bool) {
	if !a.set {
		return
	}
	if tab {
		sb.WriteByte('\t')
	}
	sb.WriteByte('#')
	if text := newlineStripper.Replace(a.text); text != "" {
		sb.WriteByte(' ')
		sb.WriteString(text)
	}
}

// formatFloat renders f in exponential notation: 1.23456789e+02.
func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'e', precision, 64)
}
