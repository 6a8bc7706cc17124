// Package spice reads and writes SPICE-dialect netlists into and out
// of internal/store, grounded on pkg/bsdl's participle grammar: the
// same lexer.MustSimple token table plus a participle.Build parser,
// applied to SPICE's card-oriented syntax instead of BSDL's VHDL-like
// entity syntax (SPEC_FULL.md's DOMAIN STACK).
package spice

import "github.com/alecthomas/participle/v2/lexer"

// CardLexer tokenizes one pre-joined SPICE logical line (directives
// and `+` continuations are already merged by joinContinuations before
// this ever runs; see reader.go).
var CardLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t]+`},

	{Name: "KwSubckt", Pattern: `(?i)\.SUBCKT\b`},
	{Name: "KwEnds", Pattern: `(?i)\.ENDS\b`},
	{Name: "KwModel", Pattern: `(?i)\.MODEL\b`},
	{Name: "KwGlobal", Pattern: `(?i)\.GLOBAL\b`},
	{Name: "KwInclude", Pattern: `(?i)\.INCLUDE\b|(?i)\.INC\b`},
	{Name: "KwParam", Pattern: `(?i)\.PARAM\b`},
	{Name: "KwEnd", Pattern: `(?i)\.END\b`},

	{Name: "Equals", Pattern: `=`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	// Anything starting with a digit: node numbers, values, SI-suffixed
	// values like "1u" or "2.5p" are all lexically indistinguishable
	// from identifiers at this layer, so Number is deliberately broad;
	// reader.go decides what each bare field means.
	{Name: "Number", Pattern: `[0-9][a-zA-Z0-9_.]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.]*`},
})
