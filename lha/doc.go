// Package lha reads and writes files in the Les Houches Accord (LHA) format.
//
// LHA is a line-oriented, whitespace-delimited text convention for
// exchanging tagged numeric tables (model parameters, particle decay
// widths and branching ratios) with embedded comments.
//
// # Data Model
//
// Values:    int (64-bit signed), float (64-bit), str
// Entry:     ordered values + optional trailing comment
// Block:     named table of entries (BLOCK header)
// Decay:     pdgid + width + entries (DECAY header)
// Document:  ordered blocks, then ordered decays
//
// # Syntax
//
//	BLOCK MASS # Mass spectrum
//	    25   1.25000000E+02   # h
//	    36   1.23456789E+02   # A
//	DECAY   25   1.234E-03   # h decay
//	    6.50000000E-01   2   5   -5   # BR(h -> b bbar)
//
// # Classification
//
// Tokens are classified with a fixed precedence:
// comment > float > int > str. A token matching no numeric pattern is
// kept verbatim as a string. Lines are classified as block header,
// decay header, entry, comment or unknown, in that order.
//
// # Round Trip
//
// Parse followed by Emit preserves block and decay order, entry order
// and comments. Floats are re-rendered in exponential notation with
// eight digits after the point.
package lha
