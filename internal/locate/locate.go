package locate

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Span is a character range within document text. From and To are byte
// offsets; Line and Column are 1-based and refer to the start of the range.
//
// When a span is turned into a selection, To is the head position and From
// the anchor, so that scrolling to the head brings the start of a large
// matched region into view.
type Span struct {
	From   int
	To     int
	Line   int
	Column int
}

// ByPath resolves path to the character span of the addressed value in text.
//
// Resolution builds on a structural read of the text that records raw value
// offsets. If the text no longer parses, or the path does not exist, a best
// effort zero-width span at the document start is returned rather than an
// error, since callers are in the middle of presenting diagnostics and a
// missing location must not mask them.
func ByPath(text string, path Path) Span {
	if !gjson.Valid(text) {
		return zeroSpan()
	}

	if len(path) == 0 {
		from := indexOfFirstToken(text)
		to := indexAfterLastToken(text)
		line, col := ByOffset(text, from)
		return Span{From: from, To: to, Line: line, Column: col}
	}

	res := gjson.Get(text, path.Query())
	if !res.Exists() || res.Index <= 0 {
		// Index 0 for a non-root path means gjson could not track the
		// raw offset for this query shape.
		return zeroSpan()
	}

	from := res.Index
	to := from + len(res.Raw)
	line, col := ByOffset(text, from)
	return Span{From: from, To: to, Line: line, Column: col}
}

// ByOffset converts a byte offset into a 1-based line and column by scanning
// line breaks. Offsets outside the text are clamped.
func ByOffset(text string, offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	line = 1 + strings.Count(text[:offset], "\n")
	lastBreak := strings.LastIndexByte(text[:offset], '\n')
	column = offset - lastBreak // lastBreak is -1 on the first line
	return line, column
}

func zeroSpan() Span {
	return Span{Line: 1, Column: 1}
}

func indexOfFirstToken(text string) int {
	return len(text) - len(strings.TrimLeft(text, " \t\r\n"))
}

func indexAfterLastToken(text string) int {
	return len(strings.TrimRight(text, " \t\r\n"))
}
