package patch

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Format re-serializes JSON text with the given indent unit. The result is
// stable: formatting already-formatted text yields identical output.
func Format(text, indent string) (string, error) {
	if !gjson.Valid(text) {
		return "", ErrInvalidJSON
	}
	out := pretty.PrettyOptions([]byte(text), &pretty.Options{
		Indent: indent,
		Width:  0, // never pack arrays onto one line
	})
	return strings.TrimRight(string(out), "\n"), nil
}

// Compact re-serializes JSON text with all insignificant whitespace removed.
func Compact(text string) (string, error) {
	if !gjson.Valid(text) {
		return "", ErrInvalidJSON
	}
	return string(pretty.Ugly([]byte(text))), nil
}

// SortedFormat re-serializes JSON text with object keys sorted recursively,
// using the given indent unit.
func SortedFormat(text, indent string) (string, error) {
	if !gjson.Valid(text) {
		return "", ErrInvalidJSON
	}
	out := pretty.PrettyOptions([]byte(text), &pretty.Options{
		Indent:   indent,
		Width:    0,
		SortKeys: true,
	})
	return strings.TrimRight(string(out), "\n"), nil
}

// SortedCompact returns the value with keys sorted and no whitespace. Useful
// for building a sort patch against a subtree.
func SortedCompact(raw string) (string, error) {
	sorted, err := SortedFormat(raw, " ")
	if err != nil {
		return "", err
	}
	return Compact(sorted)
}
