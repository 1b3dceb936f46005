package config

import (
	"strings"
	"unicode"
)

// Parse parses an attribute list into a Config.
//
// The input is a sequence of key = value entries in any order, each
// optionally terminated by a comma. An empty input is a valid, empty
// configuration. See the package documentation for the grammar.
func Parse(input string) (*Config, error) {
	p := &parser{input: input}
	cfg := &Config{}
	seen := make(map[string]bool, len(ValidAttributes))

	p.skipSpace()
	for !p.eof() {
		pos := p.pos
		attr, err := p.readIdent()
		if err != nil {
			return nil, err
		}
		if !validAttribute(attr) {
			return nil, newUnknownAttributeError(pos, attr)
		}
		if seen[attr] {
			return nil, newDuplicateAttributeError(pos, attr)
		}
		seen[attr] = true

		if err := p.expect('='); err != nil {
			return nil, err
		}

		switch attr {
		case AttrFiles:
			cfg.Files, err = p.parseStringList()
		case AttrEnv:
			cfg.Env, err = p.parseEnvList()
		case AttrBefore:
			cfg.Before, err = p.parseExpr()
		case AttrAfter:
			cfg.After, err = p.parseExpr()
		case AttrCmdBefore:
			cfg.CmdBefore, err = p.parseCmdBlock()
		case AttrCmdAfter:
			cfg.CmdAfter, err = p.parseCmdBlock()
		}
		if err != nil {
			return nil, err
		}

		// Entries may or may not carry a trailing comma.
		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.next()
			p.skipSpace()
		}
	}
	return cfg, nil
}

// ParseExpr parses a single hook expression: an identifier with an optional
// parenthesized list of string-literal arguments, e.g. setup or
// teardown("fixtures"). Used by both the attribute parser and the YAML
// frontend.
func ParseExpr(input string) (*Expr, error) {
	p := &parser{input: input}
	p.skipSpace()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, newSyntaxError(p.pos, p.rest(8), "unexpected input after expression")
	}
	return expr, nil
}

func validAttribute(name string) bool {
	for _, a := range ValidAttributes {
		if a == name {
			return true
		}
	}
	return false
}

// SplitCommands splits a raw command block into trimmed, non-empty command
// lines. Lines are separated by semicolons or newlines; the command text
// itself is preserved verbatim.
func SplitCommands(block string) []string {
	var cmds []string
	for _, line := range strings.FieldsFunc(block, func(r rune) bool {
		return r == ';' || r == '\n'
	}) {
		line = strings.TrimSpace(line)
		if line != "" {
			cmds = append(cmds, line)
		}
	}
	return cmds
}

// parser is a single-pass scanner over the attribute input.
type parser struct {
	input string
	pos   int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) next() byte {
	c := p.input[p.pos]
	p.pos++
	return c
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

// rest returns up to n bytes of remaining input, for error reporting.
func (p *parser) rest(n int) string {
	end := p.pos + n
	if end > len(p.input) {
		end = len(p.input)
	}
	return p.input[p.pos:end]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.eof() || p.peek() != c {
		return newSyntaxError(p.pos, p.rest(8), "expected %q", string(c))
	}
	p.next()
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentRune(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) readIdent() (string, error) {
	p.skipSpace()
	if p.eof() || !isIdentStart(p.peek()) {
		return "", newSyntaxError(p.pos, p.rest(8), "expected identifier")
	}
	start := p.pos
	for !p.eof() && isIdentRune(p.peek()) {
		p.next()
	}
	return p.input[start:p.pos], nil
}

// readString reads a double-quoted string literal with escape support for
// \\ \" \n \t. An unterminated literal is a syntax error naming the opening
// quote position.
func (p *parser) readString() (string, error) {
	p.skipSpace()
	if p.eof() || p.peek() != '"' {
		return "", newSyntaxError(p.pos, p.rest(8), "expected string literal")
	}
	start := p.pos
	p.next() // opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.next()
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.eof() {
				break
			}
			switch e := p.next(); e {
			case '\\', '"':
				b.WriteByte(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				return "", newSyntaxError(p.pos-2, p.input[p.pos-2:p.pos], "unsupported escape sequence")
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", newSyntaxError(start, p.input[start:min(start+8, len(p.input))], "unterminated string literal")
}

// parseStringList parses a bracketed list of string literals:
// [ "a", "b" ]. An empty list is valid; trailing commas are accepted.
func (p *parser) parseStringList() ([]string, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var items []string
	for {
		p.skipSpace()
		if p.eof() {
			return nil, newSyntaxError(p.pos, "", "unterminated list, expected %q", "]")
		}
		if p.peek() == ']' {
			p.next()
			return items, nil
		}
		s, err := p.readString()
		if err != nil {
			return nil, err
		}
		items = append(items, s)
		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.next()
		} else if !p.eof() && p.peek() != ']' {
			return nil, newSyntaxError(p.pos, p.rest(8), "expected %q or %q in list", ",", "]")
		}
	}
}

// parseEnvList parses a bracketed list of (name, value) groups. Each group
// must contain exactly two string literals.
func (p *parser) parseEnvList() ([]EnvVar, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var vars []EnvVar
	for {
		p.skipSpace()
		if p.eof() {
			return nil, newSyntaxError(p.pos, "", "unterminated list, expected %q", "]")
		}
		if p.peek() == ']' {
			p.next()
			return vars, nil
		}
		if err := p.expect('('); err != nil {
			return nil, err
		}
		name, err := p.readString()
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		value, err := p.readString()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() || p.peek() != ')' {
			return nil, newSyntaxError(p.pos, p.rest(8), "env entries take exactly two string literals: (name, value)")
		}
		p.next()
		vars = append(vars, EnvVar{Name: name, Value: value})
		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.next()
		} else if !p.eof() && p.peek() != ']' {
			return nil, newSyntaxError(p.pos, p.rest(8), "expected %q or %q in list", ",", "]")
		}
	}
}

// parseExpr parses a hook reference: ident, optionally followed by a
// parenthesized list of string-literal arguments.
func (p *parser) parseExpr() (*Expr, error) {
	name, err := p.readIdent()
	if err != nil {
		return nil, err
	}
	expr := &Expr{Name: name}
	p.skipSpace()
	if p.eof() || p.peek() != '(' {
		return expr, nil
	}
	p.next()
	for {
		p.skipSpace()
		if p.eof() {
			return nil, newSyntaxError(p.pos, "", "unterminated argument list, expected %q", ")")
		}
		if p.peek() == ')' {
			p.next()
			return expr, nil
		}
		arg, err := p.readString()
		if err != nil {
			return nil, err
		}
		expr.Args = append(expr.Args, arg)
		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.next()
		} else if !p.eof() && p.peek() != ')' {
			return nil, newSyntaxError(p.pos, p.rest(8), "expected %q or %q in argument list", ",", ")")
		}
	}
}

// parseCmdBlock locates a balanced brace block and returns its contents as
// command lines. Braces inside single- or double-quoted segments do not
// count toward balance; the command text is otherwise opaque.
func (p *parser) parseCmdBlock() ([]string, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	start := p.pos
	depth := 1
	var quote byte
	for !p.eof() {
		c := p.next()
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return SplitCommands(p.input[start : p.pos-1]), nil
			}
		}
	}
	return nil, newSyntaxError(start-1, "{", "unterminated command block, expected %q", "}")
}
