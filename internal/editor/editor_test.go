package editor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/jsonmend/internal/editor/view"
	"github.com/dshills/jsonmend/internal/event"
	"github.com/dshills/jsonmend/internal/locate"
	"github.com/dshills/jsonmend/internal/validate"
)

const testDebounce = 40 * time.Millisecond

// recorder collects change events thread-safely.
type recorder struct {
	mu     sync.Mutex
	events []Change
}

func (r *recorder) handler(evt event.Event[Change]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt.Payload)
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) at(i int) Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

func newTestEditor(t *testing.T, text string, cfg Config) (*Editor, *view.Memory, *recorder) {
	t.Helper()
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = testDebounce
	}
	v := view.NewMemory("")
	e := New(v, text, cfg)
	t.Cleanup(e.Close)

	rec := &recorder{}
	e.OnChange(rec.handler)
	return e, v, rec
}

func TestSeedProjectsWithoutEvent(t *testing.T) {
	e, v, rec := newTestEditor(t, `{"a":1}`, Config{})

	if got := v.Text(); got != `{"a":1}` {
		t.Errorf("view text = %q, want seed", got)
	}
	if got := e.Text(); got != `{"a":1}` {
		t.Errorf("canonical text = %q, want seed", got)
	}
	if rec.len() != 0 {
		t.Errorf("events = %d, want 0 for seed", rec.len())
	}
	if got := e.Validate(); got.Kind != validate.KindValid {
		t.Errorf("outcome = %v, want valid", got.Kind)
	}
}

func TestDebounceCoalescing(t *testing.T) {
	e, v, rec := newTestEditor(t, `{"n":0}`, Config{})

	// N rapid widget edits inside the debounce window.
	edits := []string{`{"n":1}`, `{"n":12}`, `{"n":123}`}
	for _, text := range edits {
		v.ReplaceAll(text)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(3 * testDebounce)

	if rec.len() != 1 {
		t.Fatalf("events = %d, want exactly 1", rec.len())
	}
	ch := rec.at(0)
	if ch.Previous.Text != `{"n":0}` {
		t.Errorf("Previous.Text = %q, want text before first edit", ch.Previous.Text)
	}
	if ch.Current.Text != `{"n":123}` {
		t.Errorf("Current.Text = %q, want text after last edit", ch.Current.Text)
	}
	if ch.Meta.ContentErrors.Kind != validate.KindValid {
		t.Errorf("ContentErrors.Kind = %v, want valid", ch.Meta.ContentErrors.Kind)
	}
	if got := e.Text(); got != `{"n":123}` {
		t.Errorf("canonical text = %q, want last edit", got)
	}
}

func TestValidateFlushesPendingEdits(t *testing.T) {
	e, v, _ := newTestEditor(t, `{}`, Config{DebounceDelay: time.Hour})

	v.ReplaceAll(`{"a":`)

	// Validate must observe the flushed text, not the stale canonical.
	outcome := e.Validate()
	if outcome.Kind == validate.KindValid {
		t.Errorf("outcome = valid, want parse failure for flushed text")
	}
	if got := e.Text(); got != `{"a":` {
		t.Errorf("canonical text = %q, want flushed widget text", got)
	}
}

func TestDebouncedNoopEmitsNothing(t *testing.T) {
	e, v, rec := newTestEditor(t, `{"a":1}`, Config{})

	// Edit away and back within one debounce window: the debounced pass
	// reads text identical to canonical and must emit nothing.
	canonical := e.Text()
	v.ReplaceAll(`{"a":2}`)
	v.ReplaceAll(canonical)
	time.Sleep(3 * testDebounce)

	if rec.len() != 0 {
		t.Errorf("events = %d, want 0 (no-op must not emit)", rec.len())
	}
	if got := e.Text(); got != canonical {
		t.Errorf("canonical text = %q, want unchanged %q", got, canonical)
	}
}

func TestCloseDiscardsPendingWork(t *testing.T) {
	v := view.NewMemory("")
	e := New(v, `{}`, Config{DebounceDelay: testDebounce})
	rec := &recorder{}
	e.OnChange(rec.handler)

	v.ReplaceAll(`{"a":1}`)
	e.Close()
	time.Sleep(3 * testDebounce)

	if rec.len() != 0 {
		t.Errorf("events after close = %d, want 0", rec.len())
	}
}

func TestReentrantConsumerDoesNotLoop(t *testing.T) {
	e, v, _ := newTestEditor(t, `{}`, Config{})

	var events atomic.Int32
	e.OnChange(func(evt event.Event[Change]) error {
		events.Add(1)
		// A consumer reacting to the change by writing the widget must
		// not re-enter the update cycle.
		v.ReplaceAll(`{"reacted":true}`)
		return nil
	})

	v.ReplaceAll(`{"a":1}`)
	time.Sleep(3 * testDebounce)

	if events.Load() != 1 {
		t.Errorf("events = %d, want 1 (no feedback loop)", events.Load())
	}
}

func TestFormatAndCompact(t *testing.T) {
	e, _, rec := newTestEditor(t, `{"b":1,"a":[1,2]}`, Config{})

	if err := e.FormatDocument(); err != nil {
		t.Fatalf("FormatDocument() error = %v", err)
	}
	formatted := e.Text()
	if formatted == `{"b":1,"a":[1,2]}` {
		t.Error("FormatDocument() left text unchanged")
	}
	if rec.len() != 1 {
		t.Fatalf("events = %d, want 1", rec.len())
	}

	// Formatting formatted text is a no-op with no event.
	if err := e.FormatDocument(); err != nil {
		t.Fatalf("second FormatDocument() error = %v", err)
	}
	if e.Text() != formatted {
		t.Error("FormatDocument() is not idempotent")
	}
	if rec.len() != 1 {
		t.Errorf("events = %d, want 1 (idempotent format emits nothing)", rec.len())
	}

	if err := e.CompactDocument(); err != nil {
		t.Fatalf("CompactDocument() error = %v", err)
	}
	if got := e.Text(); got != `{"b":1,"a":[1,2]}` {
		t.Errorf("CompactDocument() = %q", got)
	}
}

func TestStructuralCommandsRefuseReadOnly(t *testing.T) {
	e, _, _ := newTestEditor(t, `{"a":1}`, Config{ReadOnly: true})

	if err := e.FormatDocument(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("FormatDocument() error = %v, want ErrReadOnly", err)
	}
	if err := e.CompactDocument(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("CompactDocument() error = %v, want ErrReadOnly", err)
	}
	if err := e.RepairDocument(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("RepairDocument() error = %v, want ErrReadOnly", err)
	}
	if _, err := e.SortDocument(nil); !errors.Is(err, ErrReadOnly) {
		t.Errorf("SortDocument() error = %v, want ErrReadOnly", err)
	}
}

func TestRepairFlow(t *testing.T) {
	e, _, rec := newTestEditor(t, `{"a":1,}`, Config{})

	outcome := e.Validate()
	if outcome.Kind != validate.KindRepairable {
		t.Fatalf("outcome = %v, want repairable", outcome.Kind)
	}

	diags := e.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	if len(diags[0].Actions) != 1 || diags[0].Actions[0] != ActionRepair {
		t.Errorf("Actions = %v, want [repair]", diags[0].Actions)
	}

	if err := e.RepairDocument(); err != nil {
		t.Fatalf("RepairDocument() error = %v", err)
	}
	if got := e.Text(); got != `{"a":1}` {
		t.Errorf("repaired text = %q, want %q", got, `{"a":1}`)
	}
	if got := e.Validate(); got.Kind != validate.KindValid {
		t.Errorf("outcome after repair = %v, want valid", got.Kind)
	}
	if rec.len() != 1 {
		t.Errorf("events = %d, want 1 for the repair commit", rec.len())
	}
}

func TestReadOnlyRepairableHidesAction(t *testing.T) {
	e, _, _ := newTestEditor(t, `{"a":1,}`, Config{ReadOnly: true})

	diags := e.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	if len(diags[0].Actions) != 0 {
		t.Errorf("Actions = %v, want none on read-only document", diags[0].Actions)
	}
}

func TestSemanticDiagnostics(t *testing.T) {
	requireNumericB := func(value any) []validate.Issue {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		if _, ok := obj["b"].(float64); !ok {
			return []validate.Issue{{
				Path:     locate.Path{"b"},
				Message:  "must be a number",
				Severity: validate.SeverityError,
			}}
		}
		return nil
	}

	text := `{"a": 1, "b": "x"}`
	e, _, _ := newTestEditor(t, text, Config{Validator: requireNumericB})

	diags := e.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	d := diags[0]
	if d.Path.Pointer() != "/b" {
		t.Errorf("Path = %v, want /b", d.Path)
	}
	if got := text[d.Span.From:d.Span.To]; got != `"x"` {
		t.Errorf("span covers %q, want %q", got, `"x"`)
	}
}

func TestOversizeGuard(t *testing.T) {
	big := `{"data":"` + string(make([]byte, 64)) + `"}`
	e, v, rec := newTestEditor(t, big, Config{MaxDocumentSize: 32})

	if got := v.Text(); got != "" {
		t.Fatalf("view text = %q, want empty while oversize pending", got)
	}
	if err := e.FormatDocument(); !errors.Is(err, ErrTooLarge) {
		t.Errorf("FormatDocument() error = %v, want ErrTooLarge", err)
	}

	if err := e.AcceptLargeDocument(); err != nil {
		t.Fatalf("AcceptLargeDocument() error = %v", err)
	}
	if got := v.Text(); got != big {
		t.Errorf("view text after accept = %q, want full document", got)
	}
	if rec.len() != 1 {
		t.Errorf("events = %d, want exactly 1 projection commit", rec.len())
	}

	if err := e.AcceptLargeDocument(); !errors.Is(err, ErrNoLargeDocument) {
		t.Errorf("second AcceptLargeDocument() error = %v, want ErrNoLargeDocument", err)
	}
}

func TestOversizeDiscard(t *testing.T) {
	e, v, rec := newTestEditor(t, "small", Config{MaxDocumentSize: 1024})

	long := string(make([]byte, 2048))
	if err := e.SetText(long); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("SetText() error = %v, want ErrTooLarge", err)
	}
	if got := v.Text(); got != "" {
		t.Errorf("view text = %q, want empty", got)
	}

	if err := e.DiscardLargeDocument(); err != nil {
		t.Fatalf("DiscardLargeDocument() error = %v", err)
	}
	if err := e.FormatDocument(); errors.Is(err, ErrTooLarge) {
		t.Error("FormatDocument() still guarded after discard")
	}
	_ = rec
}

func TestEscapeModeProjection(t *testing.T) {
	e, v, _ := newTestEditor(t, `{"name":"café"}`, Config{EscapeUnicode: true})

	if got := v.Text(); got != `{"name":"caf\u00e9"}` {
		t.Fatalf("view text = %q, want escaped projection", got)
	}
	if got := e.Text(); got != `{"name":"café"}` {
		t.Errorf("canonical text = %q, want unescaped", got)
	}

	// Widget edits arrive escaped and are unescaped on the way in.
	v.ReplaceAll(`{"name":"caf\u00e9!"}`)
	time.Sleep(3 * testDebounce)
	if got := e.Text(); got != `{"name":"café!"}` {
		t.Errorf("canonical text = %q, want unescaped edit", got)
	}

	// Switching escape mode re-projects the whole document.
	e.SetEscapeUnicode(false)
	if got := v.Text(); got != `{"name":"café!"}` {
		t.Errorf("view text = %q, want raw projection", got)
	}
}

func TestUndoRedoMirrorsView(t *testing.T) {
	e, v, _ := newTestEditor(t, `{"v":1}`, Config{})

	v.ReplaceAll(`{"v":2}`)
	time.Sleep(3 * testDebounce)

	if e.UndoDepth() == 0 {
		t.Fatal("UndoDepth() = 0 after an edit")
	}

	if !e.Undo() {
		t.Fatal("Undo() = false")
	}
	if got := e.Text(); got != `{"v":1}` {
		t.Errorf("text after undo = %q, want %q", got, `{"v":1}`)
	}
	if e.RedoDepth() == 0 {
		t.Error("RedoDepth() = 0 after undo")
	}

	if !e.Redo() {
		t.Fatal("Redo() = false")
	}
	if got := e.Text(); got != `{"v":2}` {
		t.Errorf("text after redo = %q, want %q", got, `{"v":2}`)
	}
}

func TestSetValidatorRevalidates(t *testing.T) {
	e, _, _ := newTestEditor(t, `{"a":1}`, Config{})

	if got := e.Validate(); got.Kind != validate.KindValid {
		t.Fatalf("outcome = %v, want valid", got.Kind)
	}

	e.SetValidator(func(any) []validate.Issue {
		return []validate.Issue{{Path: locate.Path{"a"}, Message: "nope", Severity: validate.SeverityWarning}}
	})

	if got := e.Validate(); got.Kind != validate.KindSemanticIssues {
		t.Errorf("outcome = %v, want semantic issues after validator swap", got.Kind)
	}
}

func TestTabSizePropagatesToView(t *testing.T) {
	e, v, _ := newTestEditor(t, `{}`, Config{})

	if got := v.TabSize(); got != DefaultTabSize {
		t.Errorf("TabSize() = %d, want default %d", got, DefaultTabSize)
	}

	e.SetTabSize(2)
	if got := v.TabSize(); got != 2 {
		t.Errorf("TabSize() = %d after SetTabSize(2), want 2", got)
	}

	e.SetTabSize(0)
	if got := v.TabSize(); got != 2 {
		t.Errorf("TabSize() = %d after SetTabSize(0), want unchanged 2", got)
	}
}

func TestSelectPath(t *testing.T) {
	text := `{"a": 1, "b": "xyz"}`
	e, v, _ := newTestEditor(t, text, Config{})

	span := e.SelectPath(locate.Path{"b"})
	anchor, head := v.Selection()
	if anchor != span.From || head != span.To {
		t.Errorf("selection = %d,%d, want %d,%d", anchor, head, span.From, span.To)
	}
	if got := text[span.From:span.To]; got != `"xyz"` {
		t.Errorf("span covers %q, want %q", got, `"xyz"`)
	}
}

func TestHostCallbackErrorForwarded(t *testing.T) {
	var mu sync.Mutex
	var hookErrs []error

	e, v, _ := newTestEditor(t, `{}`, Config{
		OnError: func(err error) {
			mu.Lock()
			hookErrs = append(hookErrs, err)
			mu.Unlock()
		},
	})

	e.OnChange(func(event.Event[Change]) error {
		return errors.New("consumer failed")
	})

	v.ReplaceAll(`{"a":1}`)
	time.Sleep(3 * testDebounce)

	mu.Lock()
	defer mu.Unlock()
	if len(hookErrs) != 1 {
		t.Fatalf("hook errors = %d, want 1", len(hookErrs))
	}
	if got := e.Text(); got != `{"a":1}` {
		t.Errorf("text = %q, state machine must survive handler failure", got)
	}
}
