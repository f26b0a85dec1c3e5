package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/jsonmend/internal/locate"
	"github.com/dshills/jsonmend/internal/patch"
)

// Structural commands. Each one flushes pending widget edits first, applies
// atomically, and produces at most one change event. They refuse to run on a
// read-only document or while an oversized document awaits acceptance.

// FormatDocument re-serializes the document with the configured indentation.
// It is a no-op (no change event) when the text is already formatted.
func (e *Editor) FormatDocument() error {
	text, indent, err := e.prepare()
	if err != nil {
		return err
	}

	formatted, err := patch.Format(text, indent)
	if err != nil {
		return err
	}
	e.commit(formatted, nil, true)
	return nil
}

// CompactDocument re-serializes the document with no whitespace.
func (e *Editor) CompactDocument() error {
	text, _, err := e.prepare()
	if err != nil {
		return err
	}

	compacted, err := patch.Compact(text)
	if err != nil {
		return err
	}
	e.commit(compacted, nil, true)
	return nil
}

// ApplyPatch applies a patch document and commits the re-serialized result
// as a single canonical-text update. The returned result carries the inverse
// patch for undo.
func (e *Editor) ApplyPatch(doc patch.Document) (*patch.Result, error) {
	text, indent, err := e.prepare()
	if err != nil {
		return nil, err
	}
	return e.applyDocument(text, indent, doc)
}

// SortDocument reorders keys below path using the configured Sorter and
// applies the resulting patch. An empty path sorts the whole document.
func (e *Editor) SortDocument(path locate.Path) (*patch.Result, error) {
	text, indent, err := e.prepare()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	sorter := e.cfg.Sort
	e.mu.Unlock()

	doc, err := sorter(text, path)
	if err != nil {
		err = fmt.Errorf("sort %s: %w", path, err)
		e.reportError(err)
		return nil, err
	}
	return e.applyDocument(text, indent, doc)
}

// TransformDocument runs a Lua transform script against the document. In
// preview mode the transformed text is returned without being committed;
// otherwise it is applied as a root replacement through the patch engine.
func (e *Editor) TransformDocument(ctx context.Context, script string, preview bool) (string, error) {
	text, indent, err := e.prepare()
	if err != nil {
		return "", err
	}

	result, err := e.transformer.Run(ctx, script, text)
	if err != nil {
		err = fmt.Errorf("transform: %w", err)
		e.reportError(err)
		return "", err
	}

	if preview {
		return patch.Format(result, indent)
	}

	res, err := e.applyDocument(text, indent, patch.Document{{
		Op:    patch.OpReplace,
		Path:  "",
		Value: json.RawMessage(result),
	}})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// RepairDocument runs the auto-fixer against the current text and, on
// success, commits the repaired text and revalidates. It is never invoked
// implicitly; hosts call it from an explicit user action or a repair
// diagnostic action.
func (e *Editor) RepairDocument() error {
	text, _, err := e.prepare()
	if err != nil {
		return err
	}

	e.mu.Lock()
	repairFn := e.cfg.Repair
	e.mu.Unlock()

	fixed, err := repairFn(text)
	if err != nil {
		return fmt.Errorf("repairing document: %w", err)
	}
	e.commit(fixed, nil, true)
	return nil
}

// applyDocument routes a patch through the engine, re-serializes with the
// configured indentation, and commits once.
func (e *Editor) applyDocument(text, indent string, doc patch.Document) (*patch.Result, error) {
	res, err := patch.Apply(text, doc)
	if err != nil {
		return nil, err
	}

	formatted, err := patch.Format(res.Text, indent)
	if err != nil {
		return nil, err
	}
	res.Text = formatted

	e.commit(formatted, res, true)
	return res, nil
}

// prepare flushes pending edits and checks the structural-command guards,
// returning the text and indent unit to operate on.
func (e *Editor) prepare() (text, indent string, err error) {
	if e.closed.Load() {
		return "", "", ErrClosed
	}
	e.deb.Flush()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.ReadOnly {
		return "", "", ErrReadOnly
	}
	if e.heldPending {
		return "", "", ErrTooLarge
	}
	return e.text, e.cfg.Indent, nil
}
