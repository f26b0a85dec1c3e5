package editor

import (
	"time"

	"github.com/dshills/jsonmend/internal/locate"
	"github.com/dshills/jsonmend/internal/patch"
	"github.com/dshills/jsonmend/internal/repair"
	"github.com/dshills/jsonmend/internal/validate"
)

// Defaults for unset Config fields.
const (
	DefaultIndent        = "  "
	DefaultTabSize       = 4
	DefaultDebounceDelay = 300 * time.Millisecond
)

// Sorter decides element ordering for the sort command. It receives the
// current document text and the subtree to sort, and returns a patch
// document expressing the reordering.
type Sorter func(text string, path locate.Path) (patch.Document, error)

// Config holds the editor options. Each option reconfigures exactly one
// subsystem when changed; changing the escape mode forces a full
// re-projection of the displayed text.
type Config struct {
	// ReadOnly blocks every mutating operation.
	ReadOnly bool

	// Indent is the indentation unit used when re-serializing, e.g. two
	// spaces or "\t".
	Indent string

	// TabSize is the display width of a tab, passed through to the
	// widget.
	TabSize int

	// EscapeUnicode displays non-ASCII characters as \uXXXX sequences.
	EscapeUnicode bool

	// MaxDocumentSize is the byte threshold above which content is held
	// back until explicitly accepted. Zero disables the guard.
	MaxDocumentSize int

	// DebounceDelay is the quiet period collapsing widget edits into one
	// reconciliation pass.
	DebounceDelay time.Duration

	// Validator is the optional semantic validator.
	Validator validate.Validator

	// Repair overrides the built-in auto-fixer.
	Repair validate.RepairFunc

	// Sort overrides the built-in recursive key sorter.
	Sort Sorter

	// OnError receives failures from host callbacks (validator panics,
	// change handler errors, sorter failures). Nil discards them.
	OnError func(error)
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Indent == "" {
		c.Indent = DefaultIndent
	}
	if c.TabSize <= 0 {
		c.TabSize = DefaultTabSize
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = DefaultDebounceDelay
	}
	if c.Repair == nil {
		c.Repair = repair.Repair
	}
	if c.Sort == nil {
		c.Sort = sortKeysRecursive
	}
	return c
}

// sortKeysRecursive is the default Sorter: it recursively sorts object keys
// below path and expresses the result as a single replace operation.
func sortKeysRecursive(text string, path locate.Path) (patch.Document, error) {
	raw := text
	if len(path) > 0 {
		value := locate.ByPath(text, path)
		if value.To <= value.From {
			return nil, &patch.PathError{Op: "sort", Path: path.Pointer(), Msg: "path not found"}
		}
		raw = text[value.From:value.To]
	}

	sorted, err := patch.SortedCompact(raw)
	if err != nil {
		return nil, err
	}
	return patch.Document{{
		Op:    patch.OpReplace,
		Path:  path.Pointer(),
		Value: []byte(sorted),
	}}, nil
}
