package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPropsEqual(t *testing.T) {
	fn := func() {}
	mk := func(n int) func() int { return func() int { return n } }
	cases := []struct {
		name string
		a, b Props
		want bool
	}{
		{"both nil", nil, nil, true},
		{"same pairs", P("a", 1, "b", "x"), P("a", 1, "b", "x"), true},
		{"different value", P("a", 1), P("a", 2), false},
		{"different key", P("a", 1), P("b", 1), false},
		{"different length", P("a", 1), P("a", 1, "b", 2), false},
		{"different order", P("a", 1, "b", 2), P("b", 2, "a", 1), false},
		{"same func identity", P("on", fn), P("on", fn), true},
		{"different funcs", P("on", func() {}), P("on", func() {}), false},
		// Closures from one literal share a code pointer; captures do not
		// take part in the comparison.
		{"closures share a literal", P("on", mk(1)), P("on", mk(2)), true},
		{"nested slices", P("xs", []int{1, 2}), P("xs", []int{1, 2}), true},
		{"nil vs value", P("a", nil), P("a", 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := propsEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("propsEqual = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDiffProps(t *testing.T) {
	cases := []struct {
		name       string
		prev, next Props
		want       map[string]any
	}{
		{"no change", P("a", 1), P("a", 1), nil},
		{"changed value", P("a", 1, "b", 2), P("a", 9, "b", 2), map[string]any{"a": 9}},
		{"added key", P("a", 1), P("a", 1, "b", 2), map[string]any{"b": 2}},
		{"dropped key", P("a", 1, "b", 2), P("a", 1), map[string]any{"b": nil}},
		{"from empty", nil, P("a", 1), map[string]any{"a": 1}},
		{"to empty", P("a", 1), nil, map[string]any{"a": nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := diffProps(tc.prev, tc.next)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("diffProps (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPMisuse(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("odd pair count must panic")
		}
	}()
	P("a", 1, "b")
}
