package patch

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func mustApply(t *testing.T, text string, doc Document) *Result {
	t.Helper()
	res, err := Apply(text, doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return res
}

func decode(t *testing.T, text string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("result is not valid JSON: %v\n%s", err, text)
	}
	return v
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

func TestApplyReplace(t *testing.T) {
	res := mustApply(t, `{"a":1}`, Document{
		{Op: OpReplace, Path: "/a", Value: raw("2")},
	})

	if res.Text != `{"a":2}` {
		t.Errorf("Text = %q, want %q", res.Text, `{"a":2}`)
	}
	want := Document{{Op: OpReplace, Path: "/a", Value: raw("1")}}
	if !reflect.DeepEqual(res.Inverse, want) {
		t.Errorf("Inverse = %+v, want %+v", res.Inverse, want)
	}
}

func TestApplyOperations(t *testing.T) {
	tests := []struct {
		name string
		text string
		doc  Document
		want string
	}{
		{
			"add new object member",
			`{"a":1}`,
			Document{{Op: OpAdd, Path: "/b", Value: raw(`"x"`)}},
			`{"a":1,"b":"x"}`,
		},
		{
			"add replaces existing member",
			`{"a":1}`,
			Document{{Op: OpAdd, Path: "/a", Value: raw("9")}},
			`{"a":9}`,
		},
		{
			"add array insert",
			`{"list":[1,3]}`,
			Document{{Op: OpAdd, Path: "/list/1", Value: raw("2")}},
			`{"list":[1,2,3]}`,
		},
		{
			"add array append dash",
			`{"list":[1,2]}`,
			Document{{Op: OpAdd, Path: "/list/-", Value: raw("3")}},
			`{"list":[1,2,3]}`,
		},
		{
			"remove object member",
			`{"a":1,"b":2}`,
			Document{{Op: OpRemove, Path: "/b"}},
			`{"a":1}`,
		},
		{
			"remove array element",
			`{"list":[1,2,3]}`,
			Document{{Op: OpRemove, Path: "/list/1"}},
			`{"list":[1,3]}`,
		},
		{
			"move member",
			`{"a":{"x":1},"b":{}}`,
			Document{{Op: OpMove, From: "/a/x", Path: "/b/x"}},
			`{"a":{},"b":{"x":1}}`,
		},
		{
			"copy member",
			`{"a":1}`,
			Document{{Op: OpCopy, From: "/a", Path: "/b"}},
			`{"a":1,"b":1}`,
		},
		{
			"nested replace",
			`{"a":{"b":{"c":1}}}`,
			Document{{Op: OpReplace, Path: "/a/b/c", Value: raw(`[1,2]`)}},
			`{"a":{"b":{"c":[1,2]}}}`,
		},
		{
			"replace whole document",
			`{"a":1}`,
			Document{{Op: OpReplace, Path: "", Value: raw(`[true]`)}},
			`[true]`,
		},
		{
			"test then replace",
			`{"a":1}`,
			Document{
				{Op: OpTest, Path: "/a", Value: raw("1")},
				{Op: OpReplace, Path: "/a", Value: raw("2")},
			},
			`{"a":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustApply(t, tt.text, tt.doc)
			if got, want := decode(t, res.Text), decode(t, tt.want); !reflect.DeepEqual(got, want) {
				t.Errorf("Text = %s, want %s", res.Text, tt.want)
			}
		})
	}
}

func TestInverseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		doc  Document
	}{
		{"replace", `{"a":1}`, Document{{Op: OpReplace, Path: "/a", Value: raw("2")}}},
		{"add member", `{"a":1}`, Document{{Op: OpAdd, Path: "/b", Value: raw("2")}}},
		{"add clobbers member", `{"a":1}`, Document{{Op: OpAdd, Path: "/a", Value: raw("2")}}},
		{"remove member", `{"a":1,"b":2}`, Document{{Op: OpRemove, Path: "/a"}}},
		{"array insert", `[1,3]`, Document{{Op: OpAdd, Path: "/1", Value: raw("2")}}},
		{"array append", `[1,2]`, Document{{Op: OpAdd, Path: "/-", Value: raw("3")}}},
		{"array remove", `[1,2,3]`, Document{{Op: OpRemove, Path: "/0"}}},
		{"move", `{"a":{"x":1},"b":{}}`, Document{{Op: OpMove, From: "/a/x", Path: "/b/x"}}},
		{"move clobbers destination", `{"a":1,"b":2}`, Document{{Op: OpMove, From: "/a", Path: "/b"}}},
		{"copy", `{"a":1}`, Document{{Op: OpCopy, From: "/a", Path: "/b"}}},
		{
			"multi-op sequence",
			`{"a":1,"list":[1,2]}`,
			Document{
				{Op: OpReplace, Path: "/a", Value: raw(`"z"`)},
				{Op: OpAdd, Path: "/list/-", Value: raw("3")},
				{Op: OpRemove, Path: "/list/0"},
				{Op: OpAdd, Path: "/b", Value: raw(`{"c":true}`)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustApply(t, tt.text, tt.doc)
			back := mustApply(t, res.Text, res.Inverse)

			got := decode(t, back.Text)
			want := decode(t, tt.text)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("inverse round trip = %s, want %s", back.Text, tt.text)
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	text := `{"a":1}`
	mustApply(t, text, Document{{Op: OpReplace, Path: "/a", Value: raw("2")}})
	if text != `{"a":1}` {
		t.Errorf("input mutated: %q", text)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		doc  Document
	}{
		{"replace missing path", `{"a":1}`, Document{{Op: OpReplace, Path: "/b", Value: raw("1")}}},
		{"remove missing path", `{"a":1}`, Document{{Op: OpRemove, Path: "/b"}}},
		{"remove root", `{"a":1}`, Document{{Op: OpRemove, Path: ""}}},
		{"add to missing parent", `{"a":1}`, Document{{Op: OpAdd, Path: "/x/y", Value: raw("1")}}},
		{"array index out of range", `[1]`, Document{{Op: OpAdd, Path: "/5", Value: raw("2")}}},
		{"add into scalar", `{"a":1}`, Document{{Op: OpAdd, Path: "/a/b", Value: raw("2")}}},
		{"move missing from", `{"a":1}`, Document{{Op: OpMove, From: "/x", Path: "/y"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.text, tt.doc)
			var pathErr *PathError
			if !errors.As(err, &pathErr) {
				t.Errorf("Apply() error = %v, want *PathError", err)
			}
		})
	}

	if _, err := Apply(`not json`, Document{}); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Apply() error = %v, want ErrInvalidJSON", err)
	}
}

func TestApplyTestFailure(t *testing.T) {
	_, err := Apply(`{"a":1}`, Document{
		{Op: OpTest, Path: "/a", Value: raw("2")},
		{Op: OpReplace, Path: "/a", Value: raw("3")},
	})

	var testErr *TestFailedError
	if !errors.As(err, &testErr) {
		t.Fatalf("Apply() error = %v, want *TestFailedError", err)
	}
	if testErr.Path != "/a" {
		t.Errorf("Path = %q, want /a", testErr.Path)
	}
}

func TestFormatIdempotent(t *testing.T) {
	inputs := []string{
		`{"b":1,"a":[1,2,{"c":null}],"s":"x"}`,
		`[]`,
		`{}`,
		`  {"compact":true}  `,
		`{"nested":{"deep":{"deeper":[true,false]}}}`,
	}

	for _, in := range inputs {
		once, err := Format(in, "  ")
		if err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		twice, err := Format(once, "  ")
		if err != nil {
			t.Fatalf("Format(Format()) error = %v", err)
		}
		if once != twice {
			t.Errorf("Format not idempotent:\nonce:  %q\ntwice: %q", once, twice)
		}
		if got, want := decode(t, once), decode(t, in); !reflect.DeepEqual(got, want) {
			t.Errorf("Format changed value: %q -> %q", in, once)
		}
	}
}

func TestCompact(t *testing.T) {
	got, err := Compact("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}")
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if got != `{"a":1,"b":[1,2]}` {
		t.Errorf("Compact() = %q", got)
	}

	if _, err := Compact(`{broken`); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Compact() error = %v, want ErrInvalidJSON", err)
	}
}

func TestSortedFormat(t *testing.T) {
	got, err := SortedCompact(`{"b":2,"a":{"z":1,"y":0}}`)
	if err != nil {
		t.Fatalf("SortedCompact() error = %v", err)
	}
	if got != `{"a":{"y":0,"z":1},"b":2}` {
		t.Errorf("SortedCompact() = %q", got)
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`[{"op":"replace","path":"/a","value":2}]`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc) != 1 || doc[0].Op != OpReplace || doc[0].Path != "/a" {
		t.Errorf("ParseDocument() = %+v", doc)
	}

	if _, err := ParseDocument([]byte(`{`)); err == nil {
		t.Error("ParseDocument() error = nil, want error")
	}
}
