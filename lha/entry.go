package lha

import (
	"strconv"
	"strings"
	"unicode"
)

// annotation is an optional comment. An empty comment that is set is
// distinct from no comment at all.
type annotation struct {
	text string
	set  bool
}

// Comment returns the comment text and whether one is present.
func (a *annotation) Comment() (string, bool) {
	return a.text, a.set
}

// HasComment returns true if a comment is present.
func (a *annotation) HasComment() bool {
	return a.set
}

// SetComment attaches a comment.
func (a *annotation) SetComment(text string) {
	a.text = text
	a.set = true
}

// ClearComment removes the comment.
func (a *annotation) ClearComment() {
	a.text = ""
	a.set = false
}

// ============================================================
// Entry
// ============================================================

// Entry is one data row: ordered values plus an optional trailing comment.
// The value list is fixed at construction.
type Entry struct {
	annotation
	values []Value

	// Derived key/value pair, only for two-value entries.
	key, val Value
	hasPair  bool
}

// NewEntry creates an entry from values.
func NewEntry(values ...Value) *Entry {
	e := &Entry{values: append([]Value(nil), values...)}
	if len(e.values) == 2 {
		e.key, e.val, e.hasPair = e.values[0], e.values[1], true
	}
	return e
}

// NewCommentEntry creates a comment-only entry.
func NewCommentEntry(text string) *Entry {
	e := &Entry{}
	e.SetComment(text)
	return e
}

// Len returns the number of values.
func (e *Entry) Len() int {
	return len(e.values)
}

// Values returns a copy of the values.
func (e *Entry) Values() []Value {
	return append([]Value(nil), e.values...)
}

// Value returns the value at position i.
func (e *Entry) Value(i int) (Value, error) {
	if i < 0 || i >= len(e.values) {
		return Value{}, &IndexError{Index: i, Len: len(e.values)}
	}
	return e.values[i], nil
}

// IsCommentOnly returns true for entries with no values.
func (e *Entry) IsCommentOnly() bool {
	return len(e.values) == 0
}

// Pair returns the derived key/value pair of a two-value entry.
func (e *Entry) Pair() (key, value Value, ok bool) {
	return e.key, e.val, e.hasPair
}

// String renders the entry as an output line.
func (e *Entry) String() string {
	return e.format(defaultPrecision)
}

// ============================================================
// Block
// ============================================================

// Block is a named, ordered table of entries.
type Block struct {
	annotation
	title   string
	entries []*Entry
}

// NewBlock creates an empty block. Titles are case-sensitive.
func NewBlock(title string) *Block {
	return &Block{title: title}
}

// Title returns the block name.
func (b *Block) Title() string {
	return b.title
}

// Add appends an entry.
func (b *Block) Add(e *Entry) {
	b.entries = append(b.entries, e)
}

// Len returns the number of entries, comment-only entries included.
func (b *Block) Len() int {
	return len(b.entries)
}

// Entries returns the entries in order.
func (b *Block) Entries() []*Entry {
	return append([]*Entry(nil), b.entries...)
}

// EntryByKey returns the value of the first two-value entry whose first
// value equals key.
func (b *Block) EntryByKey(key Value) (Value, error) {
	for _, e := range b.entries {
		if k, v, ok := e.Pair(); ok && k.Equal(key) {
			return v, nil
		}
	}
	return Value{}, &NotFoundError{What: "key", Key: b.title + "[" + key.String() + "]"}
}

// EntryByIndex returns the entry at position i.
func (b *Block) EntryByIndex(i int) (*Entry, error) {
	if i < 0 || i >= len(b.entries) {
		return nil, &IndexError{Index: i, Len: len(b.entries)}
	}
	return b.entries[i], nil
}

// validate checks that the title can be written as a header and parsed back.
func (b *Block) validate() error {
	if b.title == "" || strings.Contains(b.title, "#") || strings.ContainsFunc(b.title, unicode.IsSpace) {
		return &invalidError{what: "block title", value: strconv.Quote(b.title)}
	}
	return nil
}

// ============================================================
// Decay
// ============================================================

// Decay is a decay table keyed by particle id. Its entries are
// branching-ratio rows: BR NDA ID1 ID2 ...
type Decay struct {
	annotation
	pdgid   int64
	width   float64
	entries []*Entry
}

// NewDecay creates an empty decay table.
func NewDecay(pdgid int64, width float64) *Decay {
	return &Decay{pdgid: pdgid, width: width}
}

// PDGID returns the particle id. It cannot change after construction.
func (d *Decay) PDGID() int64 {
	return d.pdgid
}

// Width returns the total decay width.
func (d *Decay) Width() float64 {
	return d.width
}

// SetWidth replaces the total decay width.
func (d *Decay) SetWidth(w float64) {
	d.width = w
}

// Add appends an entry.
func (d *Decay) Add(e *Entry) {
	d.entries = append(d.entries, e)
}

// Len returns the number of entries, comment-only entries included.
func (d *Decay) Len() int {
	return len(d.entries)
}

// Entries returns the entries in order.
func (d *Decay) Entries() []*Entry {
	return append([]*Entry(nil), d.entries...)
}

// BranchingRatio returns the first column of the first row with at least
// four values whose third and fourth values are id1 and id2, in that order.
func (d *Decay) BranchingRatio(id1, id2 int64) (float64, error) {
	for _, e := range d.entries {
		if len(e.values) < 4 {
			continue
		}
		if !e.values[2].Equal(Int(id1)) || !e.values[3].Equal(Int(id2)) {
			continue
		}
		if br, err := e.values[0].AsFloat(); err == nil {
			return br, nil
		}
	}
	return 0, &NotFoundError{
		What: "branching ratio",
		Key:  strconv.FormatInt(d.pdgid, 10) + " -> " + strconv.FormatInt(id1, 10) + " " + strconv.FormatInt(id2, 10),
	}
}

// entryAppender is the parse-time target for entry and comment lines.
// A nil appender means no block or decay is open.
type entryAppender interface {
	Add(e *Entry)
}
