// Package patch applies RFC 6902 JSON Patch documents to serialized JSON
// text and computes the inverse patch that undoes them.
//
// Operations work on the serialized form directly (gjson reads, sjson
// writes), so text outside the touched paths is preserved byte for byte,
// including number formatting the standard decoder would normalize away.
package patch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/jsonmend/internal/locate"
)

// Op names for Operation.Op.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// Operation is a single JSON Patch operation. Path and From are RFC 6901
// pointers.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Document is an ordered sequence of patch operations.
type Document []Operation

// ParseDocument decodes a serialized patch document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing patch document: %w", err)
	}
	return doc, nil
}

// Result is the outcome of applying a patch document.
type Result struct {
	// Text is the patched document text. Whitespace of untouched regions
	// is preserved; callers re-serialize when canonical formatting is
	// wanted.
	Text string

	// Inverse undoes the applied document: applying Inverse to Text
	// restores a value deep-equal to the original input.
	Inverse Document
}

// Apply applies doc to the JSON text and returns the new text together with
// the inverse document. The input text is never modified; a failing
// operation (including a failed test) aborts the whole patch.
func Apply(text string, doc Document) (*Result, error) {
	if !gjson.Valid(text) {
		return nil, ErrInvalidJSON
	}

	current := text
	var inverse Document

	for i := range doc {
		op := doc[i]
		next, inv, err := applyOne(current, op)
		if err != nil {
			return nil, err
		}
		current = next
		// Per-op inverses are computed against the pre-op state, so
		// the full inverse runs them in reverse order.
		inverse = append(inv, inverse...)
	}

	if inverse == nil {
		inverse = Document{}
	}
	return &Result{Text: current, Inverse: inverse}, nil
}

// applyOne applies a single operation and returns the new text plus the
// operations that undo it.
func applyOne(text string, op Operation) (string, Document, error) {
	switch op.Op {
	case OpAdd:
		return applyAdd(text, op.Op, op.Path, string(op.Value))
	case OpRemove:
		return applyRemove(text, op.Path)
	case OpReplace:
		return applyReplace(text, op.Path, string(op.Value))
	case OpMove:
		return applyMove(text, op.From, op.Path)
	case OpCopy:
		return applyCopy(text, op.From, op.Path)
	case OpTest:
		return applyTest(text, op.Path, op.Value)
	default:
		return "", nil, fmt.Errorf("unknown patch op %q", op.Op)
	}
}

func applyAdd(text, opName, pointer, raw string) (string, Document, error) {
	path := locate.ParsePointer(pointer)

	if len(path) == 0 {
		// Adding at the root replaces the whole document.
		old := strings.TrimSpace(text)
		return raw, Document{{Op: OpReplace, Path: "", Value: json.RawMessage(old)}}, nil
	}

	parent, key := path[:len(path)-1], path[len(path)-1]
	parentVal, ok := resolve(text, parent)
	if !ok {
		return "", nil, &PathError{Op: opName, Path: pointer, Msg: "parent not found"}
	}

	if parentVal.IsArray() {
		elems := rawElements(parentVal)
		idx, err := insertIndex(key, len(elems))
		if err != nil {
			return "", nil, &PathError{Op: opName, Path: pointer, Msg: err.Error()}
		}

		spliced := make([]string, 0, len(elems)+1)
		spliced = append(spliced, elems[:idx]...)
		spliced = append(spliced, raw)
		spliced = append(spliced, elems[idx:]...)

		next, err := setRaw(text, parent, "["+strings.Join(spliced, ",")+"]")
		if err != nil {
			return "", nil, err
		}
		inv := Document{{Op: OpRemove, Path: parent.Index(idx).Pointer()}}
		return next, inv, nil
	}

	if !parentVal.IsObject() {
		return "", nil, &PathError{Op: opName, Path: pointer, Msg: "parent is not a container"}
	}

	old, existed := resolve(text, path)
	next, err := setRaw(text, path, raw)
	if err != nil {
		return "", nil, err
	}

	var inv Document
	if existed {
		// RFC 6902: add on an existing object member replaces it.
		inv = Document{{Op: OpReplace, Path: pointer, Value: json.RawMessage(old.Raw)}}
	} else {
		inv = Document{{Op: OpRemove, Path: pointer}}
	}
	return next, inv, nil
}

func applyRemove(text, pointer string) (string, Document, error) {
	path := locate.ParsePointer(pointer)
	if len(path) == 0 {
		return "", nil, &PathError{Op: OpRemove, Path: pointer, Msg: "cannot remove the root"}
	}

	old, existed := resolve(text, path)
	if !existed {
		return "", nil, &PathError{Op: OpRemove, Path: pointer, Msg: "path not found"}
	}

	next, err := deleteAt(text, path)
	if err != nil {
		return "", nil, err
	}
	inv := Document{{Op: OpAdd, Path: pointer, Value: json.RawMessage(old.Raw)}}
	return next, inv, nil
}

func applyReplace(text, pointer, raw string) (string, Document, error) {
	path := locate.ParsePointer(pointer)

	if len(path) == 0 {
		old := strings.TrimSpace(text)
		return raw, Document{{Op: OpReplace, Path: "", Value: json.RawMessage(old)}}, nil
	}

	old, existed := resolve(text, path)
	if !existed {
		return "", nil, &PathError{Op: OpReplace, Path: pointer, Msg: "path not found"}
	}

	next, err := replaceAt(text, path, raw)
	if err != nil {
		return "", nil, err
	}
	inv := Document{{Op: OpReplace, Path: pointer, Value: json.RawMessage(old.Raw)}}
	return next, inv, nil
}

func applyMove(text, fromPointer, toPointer string) (string, Document, error) {
	if fromPointer == toPointer {
		return text, nil, nil
	}

	src, existed := resolve(text, locate.ParsePointer(fromPointer))
	if !existed {
		return "", nil, &PathError{Op: OpMove, Path: fromPointer, Msg: "from path not found"}
	}
	dest, destExisted := resolve(text, locate.ParsePointer(toPointer))
	destOld := dest.Raw

	removed, _, err := applyRemove(text, fromPointer)
	if err != nil {
		return "", nil, err
	}
	next, _, err := applyAdd(removed, OpMove, toPointer, src.Raw)
	if err != nil {
		return "", nil, err
	}

	inv := Document{{Op: OpMove, From: toPointer, Path: fromPointer}}
	if destExisted {
		// The move clobbered an existing destination member; restore
		// it after moving the value back.
		inv = append(inv, Operation{Op: OpAdd, Path: toPointer, Value: json.RawMessage(destOld)})
	}
	return next, inv, nil
}

func applyCopy(text, fromPointer, toPointer string) (string, Document, error) {
	src, existed := resolve(text, locate.ParsePointer(fromPointer))
	if !existed {
		return "", nil, &PathError{Op: OpCopy, Path: fromPointer, Msg: "from path not found"}
	}
	return applyAdd(text, OpCopy, toPointer, src.Raw)
}

func applyTest(text, pointer string, expected json.RawMessage) (string, Document, error) {
	actual, existed := resolve(text, locate.ParsePointer(pointer))
	if !existed {
		return "", nil, &TestFailedError{Path: pointer, Expected: string(expected), Actual: "(missing)"}
	}
	if !rawEqual(actual.Raw, string(expected)) {
		return "", nil, &TestFailedError{Path: pointer, Expected: string(expected), Actual: actual.Raw}
	}
	// A passing test is its own inverse.
	inv := Document{{Op: OpTest, Path: pointer, Value: expected}}
	return text, inv, nil
}

// resolve returns the value at path, treating the empty path as the root.
func resolve(text string, path locate.Path) (gjson.Result, bool) {
	if len(path) == 0 {
		res := gjson.Parse(text)
		return res, true
	}
	res := gjson.Get(text, path.Query())
	return res, res.Exists()
}

// replaceAt replaces an existing value, handling array parents by splicing.
func replaceAt(text string, path locate.Path, raw string) (string, error) {
	parent, key := path[:len(path)-1], path[len(path)-1]
	parentVal, _ := resolve(text, parent)

	if parentVal.IsArray() {
		elems := rawElements(parentVal)
		idx, err := elementIndex(key, len(elems))
		if err != nil {
			return "", &PathError{Op: OpReplace, Path: path.Pointer(), Msg: err.Error()}
		}
		elems[idx] = raw
		return setRaw(text, parent, "["+strings.Join(elems, ",")+"]")
	}

	return setRaw(text, path, raw)
}

// deleteAt removes an existing value, handling array parents by splicing.
func deleteAt(text string, path locate.Path) (string, error) {
	parent, key := path[:len(path)-1], path[len(path)-1]
	parentVal, _ := resolve(text, parent)

	if parentVal.IsArray() {
		elems := rawElements(parentVal)
		idx, err := elementIndex(key, len(elems))
		if err != nil {
			return "", &PathError{Op: OpRemove, Path: path.Pointer(), Msg: err.Error()}
		}
		elems = append(elems[:idx], elems[idx+1:]...)
		return setRaw(text, parent, "["+strings.Join(elems, ",")+"]")
	}

	next, err := sjson.Delete(text, path.Query())
	if err != nil {
		return "", fmt.Errorf("deleting %s: %w", path.Pointer(), err)
	}
	return next, nil
}

// setRaw writes raw JSON at path; the empty path replaces the document.
func setRaw(text string, path locate.Path, raw string) (string, error) {
	if len(path) == 0 {
		return raw, nil
	}
	next, err := sjson.SetRaw(text, path.Query(), raw)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path.Pointer(), err)
	}
	return next, nil
}

// rawElements returns the raw text of each array element.
func rawElements(arr gjson.Result) []string {
	children := arr.Array()
	raws := make([]string, len(children))
	for i, c := range children {
		raws[i] = c.Raw
	}
	return raws
}

// insertIndex parses an add-target array index: "-" appends, otherwise the
// index may equal the length (insert at end).
func insertIndex(key string, length int) (int, error) {
	if key == "-" {
		return length, nil
	}
	idx, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", key)
	}
	if idx < 0 || idx > length {
		return 0, fmt.Errorf("array index %d out of range [0,%d]", idx, length)
	}
	return idx, nil
}

// elementIndex parses an index that must address an existing element.
func elementIndex(key string, length int) (int, error) {
	idx, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", key)
	}
	if idx < 0 || idx >= length {
		return 0, fmt.Errorf("array index %d out of range [0,%d)", idx, length)
	}
	return idx, nil
}

// rawEqual compares two raw JSON values structurally.
func rawEqual(a, b string) bool {
	var av, bv any
	if err := json.Unmarshal([]byte(a), &av); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(b), &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
