package lha

import (
	"regexp"
	"strings"
)

// TokenType represents the type of a whitespace-delimited token.
type TokenType uint8

const (
	TokenString  TokenType = iota // SPINFO, SOFTSUSY, anything unmatched
	TokenInt                      // 36, -5, +11
	TokenFloat                    // 1.25, -4.56E+02, 1.0D-03
	TokenComment                  // # rest of line
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenString:
		return "STRING"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenComment:
		return "COMMENT"
	default:
		return "UNKNOWN"
	}
}

// ClassifyToken infers the type of a single token.
//
// Precedence is comment > float > int > str; the first check that
// matches wins. Numeric patterns must cover the whole token, so "36abc"
// and "1.2.3" are strings.
func ClassifyToken(tok string) TokenType {
	switch {
	case strings.HasPrefix(tok, "#"):
		return TokenComment
	case isFloatToken(tok):
		return TokenFloat
	case isIntToken(tok):
		return TokenInt
	default:
		return TokenString
	}
}

// isIntToken matches [+-]?[0-9]+
func isIntToken(s string) bool {
	i := skipSign(s, 0)
	j := skipDigits(s, i)
	return j > i && j == len(s)
}

// isFloatToken matches [+-]?[0-9]+\.[0-9]+([eEdD][+-]?[0-9]+)?
func isFloatToken(s string) bool {
	i := skipSign(s, 0)
	j := skipDigits(s, i)
	if j == i || j >= len(s) || s[j] != '.' {
		return false
	}
	i = j + 1
	j = skipDigits(s, i)
	if j == i {
		return false
	}
	if j == len(s) {
		return true
	}
	if !isExponentMarker(s[j]) {
		return false
	}
	i = skipSign(s, j+1)
	j = skipDigits(s, i)
	return j > i && j == len(s)
}

func skipSign(s string, i int) int {
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		return i + 1
	}
	return i
}

func skipDigits(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isExponentMarker(ch byte) bool {
	switch ch {
	case 'e', 'E', 'd', 'D':
		return true
	}
	return false
}

// ============================================================
// Line Classification
// ============================================================

// LineKind represents the role of a raw input line.
type LineKind uint8

const (
	LineUnknown LineKind = iota
	LineBlock            // BLOCK <name> [# comment]
	LineDecay            // DECAY <pdgid> <width> [# comment]
	LineEntry            // first non-blank character is a digit (after optional sign)
	LineComment          // first non-blank character is #
)

// String returns the line kind name.
func (k LineKind) String() string {
	switch k {
	case LineBlock:
		return "BLOCK"
	case LineDecay:
		return "DECAY"
	case LineEntry:
		return "ENTRY"
	case LineComment:
		return "COMMENT"
	default:
		return "UNKNOWN"
	}
}

// headerKeyword matches BLOCK or DECAY as the first token of a line.
var headerKeyword = regexp.MustCompile(`(?i)^\s*(BLOCK|DECAY)(?:\s|$)`)

// ClassifyLine infers the role of one raw line.
//
// Header keywords are checked first and only count as the first
// whitespace-delimited token of the line, so "BLOCK MASS # masses" is a
// header while "# block of masses" is a comment and " 4 Decay" is an
// entry.
func ClassifyLine(line string) LineKind {
	if kind, _ := findHeader(line); kind != LineUnknown {
		return kind
	}

	rest := strings.TrimLeft(line, " \t\r\n\v\f")
	if rest == "" {
		return LineUnknown
	}
	if i := skipSign(rest, 0); i < len(rest) && isDigit(rest[i]) {
		return LineEntry
	}
	if rest[0] == '#' {
		return LineComment
	}
	return LineUnknown
}

// findHeader reports whether line opens with a header keyword and
// returns the header kind plus the offset just past the keyword.
func findHeader(line string) (LineKind, int) {
	code, _, _ := splitComment(line)

	m := headerKeyword.FindStringSubmatchIndex(code)
	if m == nil {
		return LineUnknown, 0
	}
	if strings.EqualFold(code[m[2]:m[3]], "BLOCK") {
		return LineBlock, m[3]
	}
	return LineDecay, m[3]
}

// splitComment splits line at the first '#'. The comment is returned
// without the marker and trimmed of surrounding whitespace.
func splitComment(line string) (code, comment string, ok bool) {
	idx := strings.IndexByte(line, '#')
	if idx < 0 {
		return line, "", false
	}
	return line[:idx], strings.TrimSpace(line[idx+1:]), true
}
