package wire

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPatchJSONRoundTrip(t *testing.T) {
	in := []Patch{
		{Kind: PatchAdd, Node: "root:0", Tree: &Node{
			ID: "root:0", Component: "app", Kind: "composite",
			Children: []*Node{{ID: "root:0/0@text:1", Component: "text", Kind: "text",
				Props: map[string]any{"text": "hi"}}},
		}},
		{Kind: PatchUpdate, Node: "root:0/0@text:1", Props: map[string]any{"text": "bye"}},
		{Kind: PatchRemove, Node: "root:0/1@item:2"},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Patch
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip (-in +out):\n%s", diff)
	}
}

func TestPatchKindStrings(t *testing.T) {
	for _, k := range []PatchKind{PatchAdd, PatchUpdate, PatchRemove} {
		parsed, err := ParsePatchKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParsePatchKind(%q) = %v, %v", k.String(), parsed, err)
		}
	}
	if _, err := ParsePatchKind("replace"); err == nil {
		t.Error("unknown kind must not parse")
	}
}

func TestCallbackRefSentinelShape(t *testing.T) {
	data, err := json.Marshal(CallbackRef{Node: "a:0/0@button:1", Prop: "onClick"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ref, ok := decoded["$callback"]
	if !ok {
		t.Fatalf("json = %s, want a $callback sentinel", data)
	}
	if ref["node"] != "a:0/0@button:1" || ref["prop"] != "onClick" {
		t.Errorf("ref = %v", ref)
	}
}
