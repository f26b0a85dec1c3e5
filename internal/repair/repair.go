// Package repair attempts to turn almost-JSON into valid JSON text.
//
// It fixes the damage real documents commonly arrive with: trailing commas,
// comments, single or smart quotes, unquoted object keys, Python and
// JavaScript literals (None, True, undefined, NaN), missing commas between
// members, and documents truncated mid-string or before their closing
// brackets. Anything it cannot confidently fix is reported as an *Error
// rather than guessed at.
package repair

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error reports text that could not be repaired.
type Error struct {
	Position int
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("cannot repair document at position %d: %s", e.Position, e.Message)
}

// Repair returns a valid JSON rendition of text, or an *Error when no
// automatic fix applies. The input is never modified.
func Repair(text string) (string, error) {
	p := &repairer{in: text}
	p.skipBOM()

	if err := p.parseValue(); err != nil {
		return "", err
	}

	p.skipTrivia()
	if p.pos < len(p.in) {
		return "", p.errorf("unexpected trailing content")
	}

	out := p.out.String()
	if !json.Valid([]byte(out)) {
		// Repair missed something; refuse rather than emit garbage.
		return "", &Error{Position: 0, Message: "text is beyond automatic repair"}
	}
	return out, nil
}

type repairer struct {
	in  string
	pos int
	out strings.Builder
}

func (p *repairer) errorf(format string, args ...any) *Error {
	return &Error{Position: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *repairer) skipBOM() {
	if strings.HasPrefix(p.in, "\uFEFF") {
		p.pos += len("\uFEFF")
	}
}

// skipTrivia consumes whitespace (including unicode spaces) and comments.
func (p *repairer) skipTrivia() {
	for p.pos < len(p.in) {
		r, size := utf8.DecodeRuneInString(p.in[p.pos:])
		switch {
		case unicode.IsSpace(r):
			p.pos += size
		case strings.HasPrefix(p.in[p.pos:], "//"):
			end := strings.IndexByte(p.in[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.in)
			} else {
				p.pos += end + 1
			}
		case strings.HasPrefix(p.in[p.pos:], "/*"):
			end := strings.Index(p.in[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.in)
			} else {
				p.pos += 2 + end + 2
			}
		default:
			return
		}
	}
}

func (p *repairer) parseValue() error {
	p.skipTrivia()
	if p.pos >= len(p.in) {
		return p.errorf("unexpected end of input")
	}

	c := p.in[p.pos]
	switch {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case isQuote(p.in, p.pos):
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseKeyword()
	default:
		return p.errorf("unexpected character %q", c)
	}
}

func (p *repairer) parseObject() error {
	p.pos++ // consume '{'
	p.out.WriteByte('{')

	first := true
	for {
		p.skipTrivia()
		if p.pos >= len(p.in) {
			// Truncated document: close what is open.
			p.out.WriteByte('}')
			return nil
		}
		if p.in[p.pos] == '}' {
			p.pos++
			p.out.WriteByte('}')
			return nil
		}

		if !first {
			p.out.WriteByte(',')
		}
		first = false

		if err := p.parseKey(); err != nil {
			return err
		}

		p.skipTrivia()
		if p.pos < len(p.in) && (p.in[p.pos] == ':' || p.in[p.pos] == '=') {
			p.pos++
		} else {
			return p.errorf("expected ':' after object key")
		}
		p.out.WriteByte(':')

		if err := p.parseValue(); err != nil {
			return err
		}

		p.skipTrivia()
		if p.pos < len(p.in) && p.in[p.pos] == ',' {
			p.pos++
			continue
		}
		// Missing comma is tolerated when the next token starts a key.
		if p.pos < len(p.in) && (isQuote(p.in, p.pos) || isIdentStart(p.in[p.pos])) {
			continue
		}
	}
}

// parseKey parses an object key, quoting bare identifiers.
func (p *repairer) parseKey() error {
	p.skipTrivia()
	if p.pos >= len(p.in) {
		return p.errorf("unexpected end of input in object key")
	}

	if isQuote(p.in, p.pos) {
		return p.parseString()
	}

	if !isIdentStart(p.in[p.pos]) {
		return p.errorf("invalid object key starting with %q", p.in[p.pos])
	}

	start := p.pos
	for p.pos < len(p.in) && isIdentPart(p.in[p.pos]) {
		p.pos++
	}
	quoted, _ := json.Marshal(p.in[start:p.pos])
	p.out.Write(quoted)
	return nil
}

func (p *repairer) parseArray() error {
	p.pos++ // consume '['
	p.out.WriteByte('[')

	first := true
	for {
		p.skipTrivia()
		if p.pos >= len(p.in) {
			p.out.WriteByte(']')
			return nil
		}
		if p.in[p.pos] == ']' {
			p.pos++
			p.out.WriteByte(']')
			return nil
		}

		if !first {
			p.out.WriteByte(',')
		}
		first = false

		if err := p.parseValue(); err != nil {
			return err
		}

		p.skipTrivia()
		if p.pos < len(p.in) && p.in[p.pos] == ',' {
			p.pos++
		}
	}
}

// quotePairs maps opening quote runes to their closing counterparts.
var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'‘': '’', // ‘ ’
	'“': '”', // “ ”
}

func isQuote(s string, pos int) bool {
	r, _ := utf8.DecodeRuneInString(s[pos:])
	_, ok := quotePairs[r]
	return ok
}

// parseString normalizes any supported quote style to a double-quoted JSON
// string. A string left open at end of input is closed.
func (p *repairer) parseString() error {
	open, openSize := utf8.DecodeRuneInString(p.in[p.pos:])
	closing := quotePairs[open]
	p.pos += openSize
	p.out.WriteByte('"')

	for p.pos < len(p.in) {
		r, size := utf8.DecodeRuneInString(p.in[p.pos:])

		switch {
		case r == closing || (closing != '"' && r == open):
			p.pos += size
			p.out.WriteByte('"')
			return nil
		case r == '\\':
			p.pos += size
			p.writeEscape()
		case r == '"':
			// Bare double quote inside an alternate quote style.
			p.pos += size
			p.out.WriteString(`\"`)
		case r == '\n':
			p.pos += size
			p.out.WriteString(`\n`)
		case r == '\r':
			p.pos += size
			p.out.WriteString(`\r`)
		case r == '\t':
			p.pos += size
			p.out.WriteString(`\t`)
		case r < 0x20:
			p.pos += size
			fmt.Fprintf(&p.out, `\u%04x`, r)
		default:
			p.pos += size
			p.out.WriteRune(r)
		}
	}

	// Truncated string at end of input.
	p.out.WriteByte('"')
	return nil
}

// writeEscape copies one escape sequence, fixing unknown ones.
func (p *repairer) writeEscape() {
	if p.pos >= len(p.in) {
		return // dangling backslash at EOF, drop it
	}

	c := p.in[p.pos]
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		p.out.WriteByte('\\')
		p.out.WriteByte(c)
		p.pos++
	case 'u':
		if p.pos+5 <= len(p.in) && isHex4(p.in[p.pos+1:]) {
			p.out.WriteByte('\\')
			p.out.WriteString(p.in[p.pos : p.pos+5])
			p.pos += 5
		} else {
			// Broken unicode escape, keep the literal "u".
			p.out.WriteByte('u')
			p.pos++
		}
	case '\'':
		p.out.WriteByte('\'')
		p.pos++
	default:
		// Unknown escape, drop the backslash.
	}
}

func isHex4(s string) bool {
	if len(s) < 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func (p *repairer) parseNumber() error {
	start := p.pos
	if p.in[p.pos] == '-' {
		p.pos++
		// -Infinity has no JSON representation.
		if strings.HasPrefix(p.in[p.pos:], "Infinity") {
			p.pos += len("Infinity")
			p.out.WriteString("null")
			return nil
		}
	}

	digits := func() {
		for p.pos < len(p.in) && p.in[p.pos] >= '0' && p.in[p.pos] <= '9' {
			p.pos++
		}
	}

	digits()
	if p.pos < len(p.in) && p.in[p.pos] == '.' {
		p.pos++
		digits()
	}
	if p.pos < len(p.in) && (p.in[p.pos] == 'e' || p.in[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.in) && (p.in[p.pos] == '+' || p.in[p.pos] == '-') {
			p.pos++
		}
		digits()
	}

	if p.pos == start || (p.pos == start+1 && p.in[start] == '-') {
		return p.errorf("invalid number")
	}
	p.out.WriteString(p.in[start:p.pos])
	return nil
}

// keywords maps bare words to their JSON replacements.
var keywords = map[string]string{
	"true":      "true",
	"false":     "false",
	"null":      "null",
	"True":      "true",
	"False":     "false",
	"None":      "null",
	"undefined": "null",
	"NaN":       "null",
	"Infinity":  "null",
}

func (p *repairer) parseKeyword() error {
	start := p.pos
	for p.pos < len(p.in) && isIdentPart(p.in[p.pos]) {
		p.pos++
	}

	word := p.in[start:p.pos]
	replacement, ok := keywords[word]
	if !ok {
		p.pos = start
		return p.errorf("unrecognized literal %q", word)
	}
	p.out.WriteString(replacement)
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
