// Package escape converts between the canonical document text and its
// displayed projection.
//
// The engine stores document text unescaped; the editing surface may display
// non-ASCII characters as \uXXXX sequences. Escape and Unescape form a true
// inverse pair for every input string under a fixed configuration: Escape
// doubles literal backslashes so that \u sequences in the output always
// originate from Escape itself and Unescape can decode them unambiguously.
package escape

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Escaper translates text between its stored and displayed forms.
// The zero value performs no translation.
type Escaper struct {
	// EscapeUnicode enables \uXXXX display of characters outside
	// the ASCII range. When false, Escape and Unescape are identity.
	EscapeUnicode bool
}

// Escape converts canonical text into its display projection.
func (e Escaper) Escape(text string) string {
	if !e.EscapeUnicode {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r > 0x7f:
			writeUnicodeEscape(&b, r)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Unescape converts display text back into canonical text.
// It reverses exactly the rewrites Escape performs: \\ becomes a single
// backslash and \uXXXX (including surrogate pairs) becomes the character it
// encodes. Malformed sequences are passed through unchanged.
func (e Escaper) Unescape(display string) string {
	if !e.EscapeUnicode {
		return display
	}

	var b strings.Builder
	b.Grow(len(display))

	for i := 0; i < len(display); {
		c := display[i]
		if c != '\\' || i+1 >= len(display) {
			b.WriteByte(c)
			i++
			continue
		}

		switch display[i+1] {
		case '\\':
			b.WriteByte('\\')
			i += 2
		case 'u':
			r, size, ok := decodeUnicodeEscape(display[i:])
			if !ok {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteRune(r)
			i += size
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

// writeUnicodeEscape appends the \uXXXX form of r, using a surrogate pair for
// characters outside the Basic Multilingual Plane.
func writeUnicodeEscape(b *strings.Builder, r rune) {
	if r <= 0xffff {
		fmt.Fprintf(b, `\u%04x`, r)
		return
	}
	hi, lo := utf16.EncodeRune(r)
	fmt.Fprintf(b, `\u%04x\u%04x`, hi, lo)
}

// decodeUnicodeEscape decodes a leading \uXXXX sequence, consuming a trailing
// low surrogate when present. Returns the rune, the number of bytes consumed,
// and whether the sequence was well formed.
func decodeUnicodeEscape(s string) (rune, int, bool) {
	r, ok := parseHex4(s)
	if !ok {
		return 0, 0, false
	}

	if utf16.IsSurrogate(r) {
		if lo, ok := parseHex4(s[6:]); ok && utf16.IsSurrogate(lo) {
			if combined := utf16.DecodeRune(r, lo); combined != utf8.RuneError {
				return combined, 12, true
			}
		}
		// Lone surrogate, not decodable.
		return 0, 0, false
	}

	return r, 6, true
}

// parseHex4 parses a \uXXXX prefix of s.
func parseHex4(s string) (rune, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, false
	}
	var r rune
	for i := 2; i < 6; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			r = r<<4 | rune(c-'0')
		case c >= 'a' && c <= 'f':
			r = r<<4 | rune(c-'a'+10)
		case c >= 'A' && c <= 'F':
			r = r<<4 | rune(c-'A'+10)
		default:
			return 0, false
		}
	}
	return r, true
}
