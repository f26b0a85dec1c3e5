package view

import "sync"

// Memory is an in-memory View implementation with a snapshot-based edit
// history. It backs tests and headless hosts such as the CLI watch mode.
type Memory struct {
	mu        sync.Mutex
	text      string
	anchor    int
	head      int
	tabSize   int
	undo      []string
	redo      []string
	onChange  []func()
	destroyed bool
}

// NewMemory creates a memory view seeded with initial text. The seed is not
// an undoable edit.
func NewMemory(initial string) *Memory {
	return &Memory{text: initial}
}

// Text implements View.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// ReplaceAll implements View.
func (m *Memory) ReplaceAll(text string) {
	m.mu.Lock()
	if m.destroyed || text == m.text {
		m.mu.Unlock()
		return
	}
	m.undo = append(m.undo, m.text)
	m.redo = nil
	m.text = text
	m.mu.Unlock()

	m.notify()
}

// SetSelection implements View.
func (m *Memory) SetSelection(anchor, head int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchor, m.head = clamp(anchor, len(m.text)), clamp(head, len(m.text))
}

// SetTabSize implements View. Memory has no rendering, so the value is only
// stored for hosts that inspect it.
func (m *Memory) SetTabSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > 0 {
		m.tabSize = size
	}
}

// TabSize returns the configured tab display width.
func (m *Memory) TabSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabSize
}

// Selection returns the current anchor and head positions.
func (m *Memory) Selection() (anchor, head int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anchor, m.head
}

// Undo implements View.
func (m *Memory) Undo() bool {
	m.mu.Lock()
	if m.destroyed || len(m.undo) == 0 {
		m.mu.Unlock()
		return false
	}
	m.redo = append(m.redo, m.text)
	m.text = m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.mu.Unlock()

	m.notify()
	return true
}

// Redo implements View.
func (m *Memory) Redo() bool {
	m.mu.Lock()
	if m.destroyed || len(m.redo) == 0 {
		m.mu.Unlock()
		return false
	}
	m.undo = append(m.undo, m.text)
	m.text = m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.mu.Unlock()

	m.notify()
	return true
}

// UndoDepth implements View.
func (m *Memory) UndoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// RedoDepth implements View.
func (m *Memory) RedoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo)
}

// OnChange implements View.
func (m *Memory) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Destroy implements View.
func (m *Memory) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = true
	m.onChange = nil
}

// notify fires change callbacks outside the lock so handlers may read the
// view without deadlocking.
func (m *Memory) notify() {
	m.mu.Lock()
	snapshot := make([]func(), len(m.onChange))
	copy(snapshot, m.onChange)
	m.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
