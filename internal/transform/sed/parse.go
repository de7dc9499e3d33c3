package sed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Script is a compiled sed program: an ordered list of commands applied
// to each input line in turn.
type Script struct {
	cmds []command
}

// command processes one line. The second return value is false when the
// line is deleted from the output.
type command interface {
	apply(line string) (string, bool)
}

// substitution is `s<delim>pattern<delim>replacement<delim>[flags]`.
// Supported flags: g (replace all occurrences), i (case-insensitive).
type substitution struct {
	re     *regexp.Regexp
	repl   string
	global bool
}

func (c *substitution) apply(line string) (string, bool) {
	if c.global {
		return c.re.ReplaceAllString(line, c.repl), true
	}
	loc := c.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, true
	}
	buf := []byte(line[:loc[0]])
	buf = c.re.ExpandString(buf, c.repl, line, loc)
	buf = append(buf, line[loc[1]:]...)
	return string(buf), true
}

// deletion is `/pattern/d`: drop every line matching the address.
type deletion struct {
	re *regexp.Regexp
}

func (c *deletion) apply(line string) (string, bool) {
	if c.re.MatchString(line) {
		return "", false
	}
	return line, true
}

// Parse compiles a sed script. Commands are separated by semicolons or
// newlines. An unparsable or empty script is a transformation error for
// the request that carried it.
func Parse(src string) (*Script, error) {
	p := &parser{src: src}

	var cmds []command
	for {
		p.skipSeparators()
		if p.eof() {
			break
		}
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil, errors.New("empty script")
	}
	return &Script{cmds: cmds}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) skipSeparators() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', ';', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseCommand() (command, error) {
	switch c := p.src[p.pos]; c {
	case 's':
		return p.parseSubstitution()
	case '/':
		return p.parseDeletion()
	default:
		return nil, fmt.Errorf("unsupported command %q at offset %d", c, p.pos)
	}
}

func (p *parser) parseSubstitution() (command, error) {
	p.pos++ // consume 's'
	if p.eof() {
		return nil, errors.New("unterminated s command")
	}
	delim := p.src[p.pos]
	if delim == '\\' || delim == '\n' || isAlnum(delim) {
		return nil, fmt.Errorf("invalid s command delimiter %q", delim)
	}
	p.pos++

	pattern, err := p.readUntil(delim)
	if err != nil {
		return nil, errors.New("unterminated s command: missing pattern delimiter")
	}
	if pattern == "" {
		return nil, errors.New("empty pattern in s command")
	}
	repl, err := p.readUntil(delim)
	if err != nil {
		return nil, errors.New("unterminated s command: missing replacement delimiter")
	}

	var global, insensitive bool
flags:
	for !p.eof() {
		switch c := p.src[p.pos]; c {
		case 'g':
			global = true
		case 'i', 'I':
			insensitive = true
		case ';', '\n', '\r', ' ', '\t':
			break flags
		default:
			return nil, fmt.Errorf("unsupported s command flag %q", c)
		}
		p.pos++
	}

	expr := pattern
	if insensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &substitution{re: re, repl: convertReplacement(repl), global: global}, nil
}

func (p *parser) parseDeletion() (command, error) {
	p.pos++ // consume '/'
	pattern, err := p.readUntil('/')
	if err != nil {
		return nil, errors.New("unterminated address: missing closing /")
	}
	if pattern == "" {
		return nil, errors.New("empty address pattern")
	}
	if p.eof() {
		return nil, errors.New("missing command after address")
	}
	if c := p.src[p.pos]; c != 'd' {
		return nil, fmt.Errorf("unsupported command %q after address", c)
	}
	p.pos++

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile address %q: %w", pattern, err)
	}
	return &deletion{re: re}, nil
}

// readUntil consumes input up to the next unescaped delimiter. An escaped
// delimiter (\<delim>) becomes the bare delimiter character; every other
// backslash sequence is passed through for the regexp engine.
func (p *parser) readUntil(delim byte) (string, error) {
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			next := p.src[p.pos+1]
			if next == delim {
				b.WriteByte(delim)
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			p.pos += 2
		case c == delim:
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", errors.New("unexpected end of command")
}

// convertReplacement rewrites sed replacement syntax into Go's Expand
// syntax: & and \N become ${0} and ${N}, backslash-escaped characters
// stand for themselves, and literal $ is escaped.
func convertReplacement(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		switch {
		case c == '\\' && i+1 < len(repl):
			next := repl[i+1]
			i++
			switch {
			case next >= '0' && next <= '9':
				b.WriteString("${")
				b.WriteByte(next)
				b.WriteString("}")
			case next == '$':
				b.WriteString("$$")
			default:
				b.WriteByte(next)
			}
		case c == '&':
			b.WriteString("${0}")
		case c == '$':
			b.WriteString("$$")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
