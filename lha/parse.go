package lha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseOptions configures the parser behavior.
type ParseOptions struct {
	// Trace emits a debug record for each classified line and each
	// header or entry built from it.
	Trace bool

	// Logger receives trace records (default: no-op).
	Logger *zap.Logger
}

// Parse parses LHA lines into a Document. Lines may carry their line
// terminators. The first malformed line aborts the parse.
func Parse(lines []string) (*Document, error) {
	return ParseWithOptions(lines, ParseOptions{})
}

// ParseString parses LHA text.
func ParseString(input string) (*Document, error) {
	return Parse(strings.Split(input, "\n"))
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader, opts ParseOptions) (*Document, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return ParseWithOptions(lines, opts)
}

// ReadLines reads every line of r into memory.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return lines, nil
}

// ParseWithOptions parses with full options.
func ParseWithOptions(lines []string, opts ParseOptions) (*Document, error) {
	p := &parser{
		doc:   NewDocument(),
		trace: opts.Trace,
		log:   opts.Logger,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}

	for i, raw := range lines {
		if err := p.parseLine(i+1, strings.TrimRight(raw, "\r\n")); err != nil {
			return nil, err
		}
	}
	return p.doc, nil
}

type parser struct {
	doc   *Document
	trace bool
	log   *zap.Logger

	// active is the block or decay receiving entries; nil before the
	// first header.
	active entryAppender
}

func (p *parser) parseLine(n int, line string) error {
	kind, end := findHeader(line)
	if kind == LineUnknown {
		kind = ClassifyLine(line)
	}
	if p.trace {
		p.log.Debug("classified line", zap.Int("line", n), zap.Stringer("kind", kind))
	}

	switch kind {
	case LineBlock:
		return p.parseBlockHeader(n, line, end)
	case LineDecay:
		return p.parseDecayHeader(n, line, end)
	case LineEntry:
		return p.parseEntry(n, line)
	case LineComment:
		// Comments before the first header have nowhere to go.
		if p.active == nil {
			return nil
		}
		// Stored trimmed; indentation is not kept.
		_, text, _ := splitComment(line)
		p.active.Add(NewCommentEntry(text))
	}
	return nil
}

// parseBlockHeader handles: BLOCK <name> [# comment]
func (p *parser) parseBlockHeader(n int, line string, end int) error {
	code, comment, hasComment := splitComment(line)

	fields := strings.Fields(code[end:])
	if len(fields) == 0 {
		return parseErrorf(n, "unnamed block")
	}

	b := NewBlock(fields[0])
	if hasComment {
		b.SetComment(comment)
	}
	p.doc.putBlock(b)
	p.active = b

	if p.trace {
		p.log.Debug("found block", zap.Int("line", n), zap.String("block", b.title), zap.String("comment", comment))
	}
	return nil
}

// decayParams matches "<pdgid> <width>" where the width carries an
// explicit exponent: 25 1.234E-03
var decayParams = regexp.MustCompile(`^\s*([+-]?\d+)\s+([+-]?(?:\d+\.?\d*|\.\d+)[eEdD][+-]?\d+)(?:\s|$)`)

// parseDecayHeader handles: DECAY <pdgid> <width> [# comment]
func (p *parser) parseDecayHeader(n int, line string, end int) error {
	code, comment, hasComment := splitComment(line)

	m := decayParams.FindStringSubmatch(code[end:])
	if m == nil {
		return parseErrorf(n, "invalid DECAY header: want pdgid and exponential width")
	}
	pdgid, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return parseErrorf(n, "invalid pdgid %q", m[1])
	}
	width, err := parseFloat(m[2])
	if err != nil {
		return parseErrorf(n, "invalid decay width %q", m[2])
	}

	d := NewDecay(pdgid, width)
	if hasComment {
		d.SetComment(comment)
	}
	p.doc.AddDecay(d)
	p.active = d

	if p.trace {
		p.log.Debug("found decay", zap.Int("line", n), zap.Int64("pdgid", pdgid), zap.Float64("width", width), zap.String("comment", comment))
	}
	return nil
}

// parseEntry splits an entry line into typed values, stopping at the
// first comment token.
func (p *parser) parseEntry(n int, line string) error {
	if p.active == nil {
		return parseErrorf(n, "entry without enclosing block/decay")
	}

	code, comment, hasComment := line, "", false
	if i := commentTokenStart(line); i >= 0 {
		code = line[:i]
		comment, hasComment = strings.TrimSpace(line[i+1:]), true
	}

	var values []Value
	for _, tok := range strings.Fields(code) {
		v, err := valueFromToken(tok, ClassifyToken(tok))
		if err != nil {
			return parseErrorf(n, "invalid integer %q", tok)
		}
		values = append(values, v)
	}

	e := NewEntry(values...)
	if hasComment {
		e.SetComment(comment)
	}
	p.active.Add(e)

	if p.trace {
		p.log.Debug("processed entry", zap.Int("line", n), zap.Stringers("values", values), zap.String("comment", comment))
	}
	return nil
}

// commentTokenStart returns the offset of the first '#' that begins a
// whitespace-delimited token, or -1. A '#' inside a token such as "a#b"
// does not start a comment.
func commentTokenStart(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || isSpace(line[i-1])) {
			return i
		}
	}
	return -1
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
