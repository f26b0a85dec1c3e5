// Package locate maps JSON paths and raw character offsets to positions in
// document text. The editing surface uses it to turn validation results into
// selectable source ranges.
package locate

import (
	"strconv"
	"strings"
)

// Path addresses a value inside a JSON document as a sequence of object keys
// and array indices. An empty Path addresses the document root.
type Path []string

// ParsePointer parses an RFC 6901 JSON pointer ("/a/b/0") into a Path.
// The empty pointer addresses the root.
func ParsePointer(pointer string) Path {
	if pointer == "" {
		return Path{}
	}

	segments := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	path := make(Path, len(segments))
	for i, seg := range segments {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		path[i] = seg
	}
	return path
}

// Pointer renders the path as an RFC 6901 JSON pointer.
func (p Path) Pointer() string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	for _, seg := range p {
		seg = strings.ReplaceAll(seg, "~", "~0")
		seg = strings.ReplaceAll(seg, "/", "~1")
		b.WriteByte('/')
		b.WriteString(seg)
	}
	return b.String()
}

// Query renders the path in gjson query syntax. Dots, wildcards, and
// backslashes inside keys are escaped so they match literally.
func (p Path) Query() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = escapeQuerySegment(seg)
	}
	return strings.Join(parts, ".")
}

// Child returns a new path extended by one object key.
func (p Path) Child(key string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, key)
}

// Index returns a new path extended by one array index.
func (p Path) Index(i int) Path {
	return p.Child(strconv.Itoa(i))
}

// String returns the pointer form, or "(root)" for the empty path.
func (p Path) String() string {
	if len(p) == 0 {
		return "(root)"
	}
	return p.Pointer()
}

func escapeQuerySegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
