// Package view defines the text-editing widget surface the editor drives.
//
// The widget's buffer is a projection of the editor's canonical text, never a
// second source of truth: every write goes through ReplaceAll and every read
// is funneled back through the editor before being trusted.
package view

// View is the minimal contract an interactive text widget must satisfy.
type View interface {
	// Text returns the widget's current buffer contents.
	Text() string

	// ReplaceAll replaces the entire buffer. Implementations fire change
	// notifications for programmatic replacements too.
	ReplaceAll(text string)

	// SetSelection sets the selection range. Head is the primary position
	// the widget scrolls into view; anchor is the other end.
	SetSelection(anchor, head int)

	// SetTabSize sets the display width of a tab character.
	SetTabSize(size int)

	// Undo steps the widget's internal edit history back once.
	// Returns false when there is nothing to undo.
	Undo() bool

	// Redo reapplies the last undone edit.
	Redo() bool

	// UndoDepth returns how many reversible edits are behind the
	// current position.
	UndoDepth() int

	// RedoDepth returns how many undone edits are ahead.
	RedoDepth() int

	// OnChange registers a callback fired after every buffer mutation.
	OnChange(fn func())

	// Destroy releases the widget. No callbacks fire afterwards.
	Destroy()
}
