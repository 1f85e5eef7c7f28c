package chtype

import (
	"fmt"
	"strings"
)

// Parse parses a ClickHouse type string into its AST. It fails with a
// structured MalformedType error (via cherr) if the input is truncated, has
// mismatched parentheses, or a non-literal appears where a literal
// parameter is expected.
func Parse(text string) (*Node, error) {
	p := &parser{input: text}
	node, err := p.parseType()
	if err != nil {
		return nil, AsMalformedType(err)
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, AsMalformedType(p.errorf("unexpected trailing input %q", p.input[p.pos:]))
	}
	node.OriginalText = text
	return node, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &GrammarError{Offset: p.pos, Input: p.input, msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.input) }

func (p *parser) peekByte() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for !p.eof() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// parseIdent consumes an identifier at the current position. Caller must
// have already verified isIdentStart(peekByte()).
func (p *parser) parseIdent() string {
	start := p.pos
	for !p.eof() && isIdentCont(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// parseType parses `type := IDENT ("(" args ")")?`.
func (p *parser) parseType() (*Node, error) {
	p.skipSpaces()
	if p.eof() || !isIdentStart(p.peekByte()) {
		return nil, p.errorf("expected type identifier")
	}
	name := p.parseIdent()
	node := &Node{BaseName: name}

	p.skipSpaces()
	if p.peekByte() != '(' {
		return node, nil
	}
	p.pos++ // consume '('

	switch {
	case tupleLikeBases[name]:
		children, fieldNames, err := p.parseFieldArgs(name)
		if err != nil {
			return nil, err
		}
		node.TypeArguments = children
		node.FieldNames = fieldNames
		if len(node.TypeArguments) == 0 {
			return nil, p.errorf("%s requires at least one field", name)
		}
	case literalParamBases[name]:
		params, err := p.parseLiteralArgs()
		if err != nil {
			return nil, err
		}
		node.Parameters = params
	case name == "Map":
		children, err := p.parseTypeArgs()
		if err != nil {
			return nil, err
		}
		if len(children) != 2 {
			return nil, p.errorf("Map requires exactly 2 type arguments, got %d", len(children))
		}
		node.TypeArguments = children
	case singleArgBases[name]:
		children, err := p.parseTypeArgs()
		if err != nil {
			return nil, err
		}
		if len(children) != 1 {
			return nil, p.errorf("%s requires exactly 1 type argument, got %d", name, len(children))
		}
		node.TypeArguments = children
	default:
		// Unknown/unrecognized parametric base: parse as plain type args so
		// forward-compatible or custom types still round-trip structurally.
		children, err := p.parseTypeArgs()
		if err != nil {
			return nil, err
		}
		node.TypeArguments = children
	}

	p.skipSpaces()
	if p.peekByte() != ')' {
		return nil, p.errorf("expected ')'")
	}
	p.pos++ // consume ')'
	return node, nil
}

// parseTypeArgs parses a comma-separated list of plain types: `type ("," type)*`.
func (p *parser) parseTypeArgs() ([]*Node, error) {
	var out []*Node
	for {
		child, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, child)
		p.skipSpaces()
		if p.peekByte() == ',' {
			p.pos++
			continue
		}
		break
	}
	return out, nil
}

// parseFieldArgs parses Tuple/Nested argument lists, each of which may be a
// bare type or "name WS type".
func (p *parser) parseFieldArgs(_ string) ([]*Node, []string, error) {
	var children []*Node
	var fieldNames []string
	anyNamed := false
	for {
		child, fieldName, err := p.parseField()
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child)
		fieldNames = append(fieldNames, fieldName)
		if fieldName != "" {
			anyNamed = true
		}
		p.skipSpaces()
		if p.peekByte() == ',' {
			p.pos++
			continue
		}
		break
	}
	if !anyNamed {
		return children, nil, nil
	}
	return children, fieldNames, nil
}

// parseField implements `named_type := IDENT WS type`, falling back to a
// bare type when no "IDENT WS type" pattern is present.
func (p *parser) parseField() (*Node, string, error) {
	p.skipSpaces()
	save := p.pos
	if !p.eof() && isIdentStart(p.peekByte()) {
		ident := p.parseIdent()
		spaceStart := p.pos
		p.skipSpaces()
		if p.pos > spaceStart && !p.eof() && isIdentStart(p.peekByte()) {
			// "IDENT WS IDENT..." — the first identifier is a field name.
			child, err := p.parseType()
			if err != nil {
				return nil, "", err
			}
			return child, ident, nil
		}
	}
	// Not a named field: rewind and parse a plain type, whose base name may
	// itself be the identifier we spuriously consumed above.
	p.pos = save
	child, err := p.parseType()
	if err != nil {
		return nil, "", err
	}
	return child, "", nil
}

// parseLiteralArgs parses a comma-separated list of opaque literal tokens:
// ints, decimals, quoted strings, and "QUOTED = INT" enum definitions.
func (p *parser) parseLiteralArgs() ([]string, error) {
	var out []string
	for {
		tok, err := p.parseLiteralToken()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		p.skipSpaces()
		if p.peekByte() == ',' {
			p.pos++
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseLiteralToken() (string, error) {
	p.skipSpaces()
	if p.eof() {
		return "", p.errorf("expected literal, got end of input")
	}
	start := p.pos
	if p.peekByte() == '\'' {
		if err := p.skipQuoted(); err != nil {
			return "", err
		}
		p.skipSpaces()
		if p.peekByte() == '=' {
			p.pos++ // consume '='
			p.skipSpaces()
			if p.eof() || !(p.peekByte() == '-' || isDigit(p.peekByte())) {
				return "", p.errorf("expected integer after '=' in enum definition")
			}
			p.skipNumber()
		}
		return strings.TrimSpace(p.input[start:p.pos]), nil
	}
	if p.peekByte() == '-' || isDigit(p.peekByte()) {
		p.skipNumber()
		return p.input[start:p.pos], nil
	}
	return "", p.errorf("expected literal (number or quoted string), got %q", string(p.peekByte()))
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *parser) skipNumber() {
	if p.peekByte() == '-' {
		p.pos++
	}
	for !p.eof() && (isDigit(p.peekByte()) || p.peekByte() == '.') {
		p.pos++
	}
}

// skipQuoted consumes a 'single quoted' literal with '' as the escape for a
// literal quote character.
func (p *parser) skipQuoted() error {
	p.pos++ // opening quote
	for {
		if p.eof() {
			return p.errorf("unterminated quoted literal")
		}
		if p.input[p.pos] == '\'' {
			p.pos++
			if !p.eof() && p.input[p.pos] == '\'' {
				p.pos++ // escaped quote, keep scanning
				continue
			}
			return nil
		}
		p.pos++
	}
}

