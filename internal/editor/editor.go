// Package editor reconciles a free-text JSON buffer with its structured
// value. It owns the canonical (unescaped) document text, debounces widget
// edits into single validated change events, classifies validity, and exposes
// structural commands built on the patch engine.
package editor

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/jsonmend/internal/debounce"
	"github.com/dshills/jsonmend/internal/editor/view"
	"github.com/dshills/jsonmend/internal/escape"
	"github.com/dshills/jsonmend/internal/event"
	"github.com/dshills/jsonmend/internal/locate"
	"github.com/dshills/jsonmend/internal/patch"
	"github.com/dshills/jsonmend/internal/transform"
	"github.com/dshills/jsonmend/internal/validate"
)

// Editor is the reconciliation state machine. The widget's buffer is a
// projection owned by the editor: every write to it goes through the editor,
// and every widget read is unescaped and compared against canonical text
// before being trusted.
type Editor struct {
	mu      sync.Mutex
	cfg     Config
	text    string // canonical, always unescaped
	outcome validate.Outcome
	version uint64 // bumped per canonical-text update

	// Oversize guard state.
	held        string
	heldPending bool

	view        view.View
	esc         escape.Escaper
	pipeline    *validate.Pipeline
	deb         *debounce.Debouncer
	changes     *event.Registry[Change]
	transformer *transform.Engine

	// suppress drops widget notifications caused by our own projections;
	// emitting drops widget notifications arriving while a change event
	// is being delivered, preventing consumer feedback loops.
	suppress atomic.Bool
	emitting atomic.Bool
	closed   atomic.Bool
}

// New creates an editor over v seeded with text. The seed is projected into
// the widget (or held back when oversized) and validated; no change event is
// emitted for it.
func New(v view.View, text string, cfg Config) *Editor {
	cfg = cfg.withDefaults()

	e := &Editor{
		cfg:         cfg,
		view:        v,
		esc:         escape.Escaper{EscapeUnicode: cfg.EscapeUnicode},
		changes:     event.NewRegistry[Change](cfg.OnError),
		transformer: transform.New(),
	}
	e.pipeline = validate.New(
		validate.WithValidator(cfg.Validator),
		validate.WithRepairFunc(cfg.Repair),
		validate.WithErrorHook(e.reportError),
	)
	e.deb = debounce.New(cfg.DebounceDelay, e.syncFromView)

	if cfg.MaxDocumentSize > 0 && len(text) > cfg.MaxDocumentSize {
		e.held = text
		e.heldPending = true
	} else {
		e.text = text
		e.project(text)
		e.outcome = e.pipeline.Validate(text)
	}

	v.SetTabSize(cfg.TabSize)
	v.OnChange(e.onViewChange)
	return e
}

// OnChange subscribes a handler to change events. Handler errors are
// forwarded to the configured error hook.
func (e *Editor) OnChange(h event.Handler[Change]) event.Token {
	return e.changes.Subscribe(h)
}

// Unsubscribe removes a change handler.
func (e *Editor) Unsubscribe(token event.Token) {
	e.changes.Unsubscribe(token)
}

// FlushPending reconciles any debounced widget edit immediately instead of
// waiting out the delay. Reads and structural commands call this themselves;
// hosts use it before tearing down UI state.
func (e *Editor) FlushPending() {
	e.deb.Flush()
}

// Text flushes pending widget edits and returns the canonical text.
func (e *Editor) Text() string {
	e.deb.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetText assigns new document text from the host, superseding any pending
// widget edits. Oversized text is held back behind the size guard.
func (e *Editor) SetText(text string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.deb.Cancel()

	e.mu.Lock()
	if e.cfg.MaxDocumentSize > 0 && len(text) > e.cfg.MaxDocumentSize {
		e.held = text
		e.heldPending = true
		e.mu.Unlock()
		e.project("")
		return ErrTooLarge
	}
	e.held = ""
	e.heldPending = false
	e.mu.Unlock()

	e.commit(text, nil, true)
	return nil
}

// Validate flushes pending edits and classifies the current text. The result
// is memoized per text state, so a preceding automatic pass is reused.
func (e *Editor) Validate() validate.Outcome {
	e.deb.Flush()

	e.mu.Lock()
	text := e.text
	e.mu.Unlock()

	outcome := e.pipeline.Validate(text)

	e.mu.Lock()
	e.outcome = outcome
	e.mu.Unlock()
	return outcome
}

// Diagnostics projects the current validation outcome into display
// diagnostics with source spans and applicable remediations.
func (e *Editor) Diagnostics() []Diagnostic {
	outcome := e.Validate()

	e.mu.Lock()
	text := e.text
	readOnly := e.cfg.ReadOnly
	e.mu.Unlock()

	switch outcome.Kind {
	case validate.KindValid:
		return nil

	case validate.KindParseFailure, validate.KindRepairable:
		line, column := locate.ByOffset(text, outcome.Position)
		d := Diagnostic{
			Message:  outcome.Message,
			Severity: validate.SeverityError,
			Span: locate.Span{
				From:   outcome.Position,
				To:     outcome.Position,
				Line:   line,
				Column: column,
			},
		}
		if outcome.Kind == validate.KindRepairable && !readOnly {
			d.Actions = []Action{ActionRepair}
		}
		return []Diagnostic{d}

	case validate.KindSemanticIssues:
		diags := make([]Diagnostic, 0, len(outcome.Issues))
		for _, issue := range outcome.Issues {
			diags = append(diags, Diagnostic{
				Path:     issue.Path,
				Message:  issue.Message,
				Severity: issue.Severity,
				Span:     locate.ByPath(text, issue.Path),
			})
		}
		return diags

	default:
		return nil
	}
}

// SelectPath moves the widget selection to the span of the value at path.
// The end of the span becomes the head so the start scrolls into view.
func (e *Editor) SelectPath(path locate.Path) locate.Span {
	span := locate.ByPath(e.Text(), path)
	e.view.SetSelection(span.From, span.To)
	return span
}

// Undo steps the widget history back and reconciles immediately.
func (e *Editor) Undo() bool {
	if e.closed.Load() {
		return false
	}
	if !e.view.Undo() {
		return false
	}
	e.deb.Flush()
	return true
}

// Redo reapplies the last undone widget edit and reconciles immediately.
func (e *Editor) Redo() bool {
	if e.closed.Load() {
		return false
	}
	if !e.view.Redo() {
		return false
	}
	e.deb.Flush()
	return true
}

// UndoDepth mirrors the widget's undo depth.
func (e *Editor) UndoDepth() int { return e.view.UndoDepth() }

// RedoDepth mirrors the widget's redo depth.
func (e *Editor) RedoDepth() int { return e.view.RedoDepth() }

// AcceptLargeDocument commits a held oversized document, projecting the full
// text into the widget exactly once.
func (e *Editor) AcceptLargeDocument() error {
	e.mu.Lock()
	if !e.heldPending {
		e.mu.Unlock()
		return ErrNoLargeDocument
	}
	text := e.held
	e.held = ""
	e.heldPending = false
	e.mu.Unlock()

	e.commit(text, nil, true)
	return nil
}

// DiscardLargeDocument abandons a held oversized document.
func (e *Editor) DiscardLargeDocument() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.heldPending {
		return ErrNoLargeDocument
	}
	e.held = ""
	e.heldPending = false
	return nil
}

// SetValidator swaps the semantic validator and revalidates the current
// text. Diagnostics reflect the new validator immediately; no change event
// is emitted because the text did not change.
func (e *Editor) SetValidator(v validate.Validator) {
	e.mu.Lock()
	e.cfg.Validator = v
	e.mu.Unlock()

	e.pipeline.SetValidator(v)
	e.Validate()
}

// SetReadOnly toggles the read-only guard.
func (e *Editor) SetReadOnly(readOnly bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.ReadOnly = readOnly
}

// ReadOnly reports the read-only state.
func (e *Editor) ReadOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.ReadOnly
}

// SetIndent changes the indentation unit used by structural commands.
func (e *Editor) SetIndent(indent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if indent != "" {
		e.cfg.Indent = indent
	}
}

// SetTabSize changes the widget's tab display width.
func (e *Editor) SetTabSize(size int) {
	if size <= 0 {
		return
	}
	e.mu.Lock()
	e.cfg.TabSize = size
	e.mu.Unlock()

	e.view.SetTabSize(size)
}

// SetEscapeUnicode switches the display escaping mode. Escaping is not
// incremental, so the entire current text is re-projected into the widget.
func (e *Editor) SetEscapeUnicode(on bool) {
	e.deb.Flush()

	e.mu.Lock()
	if e.cfg.EscapeUnicode == on {
		e.mu.Unlock()
		return
	}
	e.cfg.EscapeUnicode = on
	e.esc = escape.Escaper{EscapeUnicode: on}
	text := e.text
	heldPending := e.heldPending
	e.mu.Unlock()

	if !heldPending {
		e.project(text)
	}
}

// Close tears the editor down: pending debounced work is discarded without
// emitting, and the widget is released.
func (e *Editor) Close() {
	if e.closed.Swap(true) {
		return
	}
	e.deb.Cancel()
	e.view.Destroy()
}

// onViewChange receives widget mutation notifications. Notifications caused
// by our own projections, or arriving while a change event is being
// delivered, are dropped to keep the update loop from feeding itself.
func (e *Editor) onViewChange() {
	if e.closed.Load() || e.suppress.Load() || e.emitting.Load() {
		return
	}
	e.deb.Trigger()
}

// syncFromView reads the widget buffer back through the normalizer and
// commits it if it differs from canonical text. This is the debounced path;
// the no-op case emits nothing.
func (e *Editor) syncFromView() {
	if e.closed.Load() {
		return
	}
	text := e.esc.Unescape(e.view.Text())
	e.commit(text, nil, false)
}

// commit performs one canonical-text update: it retains the previous text,
// bumps the version, optionally projects the new text into the widget,
// validates, and emits a single change event. Equal text is a no-op.
//
// Validation may call host code, so it runs without the editor lock; a
// superseded validation (version moved on) is discarded rather than stored,
// last write wins by text identity.
func (e *Editor) commit(text string, patchResult *patch.Result, project bool) {
	e.mu.Lock()
	if text == e.text {
		e.mu.Unlock()
		return
	}
	previous := e.text
	e.text = text
	e.version++
	version := e.version
	e.mu.Unlock()

	if project {
		e.project(text)
	}

	outcome := e.pipeline.Validate(text)

	e.mu.Lock()
	if e.version == version {
		e.outcome = outcome
	}
	e.mu.Unlock()

	e.emit(Change{
		Current:  Content{Text: text},
		Previous: Content{Text: previous},
		Meta: Meta{
			ContentErrors: outcome,
			PatchResult:   patchResult,
		},
	})
}

// project writes text into the widget in escaped form, suppressing the
// resulting widget notification.
func (e *Editor) project(text string) {
	e.suppress.Store(true)
	defer e.suppress.Store(false)
	e.view.ReplaceAll(e.esc.Escape(text))
}

// emit delivers one change event while guarding against widget re-entry.
func (e *Editor) emit(ch Change) {
	e.emitting.Store(true)
	defer e.emitting.Store(false)
	e.changes.Publish(ch)
}

// reportError forwards a host callback failure to the error hook.
func (e *Editor) reportError(err error) {
	e.mu.Lock()
	hook := e.cfg.OnError
	e.mu.Unlock()

	if hook != nil {
		hook(err)
	}
}
