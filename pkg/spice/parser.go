package spice

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// Parser parses one pre-joined SPICE logical line into a Card.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser builds a Parser over CardLexer.
func NewParser() (*Parser, error) {
	p, err := participle.Build[File](
		participle.Lexer(CardLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("spice: build parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// ParseLine parses a single continuation-joined, comment-stripped
// SPICE line into a Card.
func (p *Parser) ParseLine(line string) (*Card, error) {
	f, err := p.parser.ParseString("", line)
	if err != nil {
		return nil, fmt.Errorf("spice: parse line %q: %w", line, err)
	}
	return f.Card, nil
}
