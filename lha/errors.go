package lha

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("lha: parse error")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("lha: not found")
	// ErrIndex matches every *IndexError.
	ErrIndex = errors.New("lha: index out of range")
	// ErrInvalid is returned when a caller-built block or decay cannot be stored.
	ErrInvalid = errors.New("lha: invalid")
)

// ParseError represents a parsing error with the offending 1-based line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lha: %s at line %d", e.Message, e.Line)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NotFoundError is returned by lookups on unknown blocks, decays, keys
// and branching-ratio channels.
type NotFoundError struct {
	What string // "block", "decay", "key", "branching ratio"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("lha: %s not found: %s", e.What, e.Key)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IndexError is returned for out-of-range positional access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("lha: index %d out of range [0, %d)", e.Index, e.Len)
}

// Is reports whether target is ErrIndex.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndex
}

func parseErrorf(line int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// invalidError reports a caller-built block that cannot be stored.
type invalidError struct {
	what  string
	value string
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("lha: invalid %s: %s", e.what, e.value)
}

func (e *invalidError) Is(target error) bool {
	return target == ErrInvalid
}
