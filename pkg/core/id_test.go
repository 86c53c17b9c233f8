package core

import (
	"testing"

	"github.com/go-ripple/ripple/pkg/wire"
)

func TestEscapeKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"a/b", "a%2Fb"},
		{"a:b", "a%3Ab"},
		{"a@b", "a%40b"},
		{"100%", "100%25"},
		{"%2F", "%252F"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := EscapeKey(tc.in); got != tc.want {
			t.Errorf("EscapeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChildIDShape(t *testing.T) {
	if got := childID("root:0", "", 2, "item:1"); got != "root:0/2@item:1" {
		t.Errorf("positional id = %q", got)
	}
	if got := childID("root:0", "row/1", 2, "item:1"); got != "root:0/row%2F1@item:1" {
		t.Errorf("keyed id = %q", got)
	}
}

func TestIsDescendant(t *testing.T) {
	cases := []struct {
		id, ancestor string
		want         bool
	}{
		{"a:0/1@b:1", "a:0", true},
		{"a:0/1@b:1/0@c:2", "a:0", true},
		{"a:0/1@b:1/0@c:2", "a:0/1@b:1", true},
		{"a:0", "a:0", false},
		{"a:0/1@b:1", "a:0/1@b:2", false},
		{"ab:0/1@b:1", "a:0", false},
	}
	for _, tc := range cases {
		if got := isDescendant(wire.NodeID(tc.id), wire.NodeID(tc.ancestor)); got != tc.want {
			t.Errorf("isDescendant(%q, %q) = %v, want %v", tc.id, tc.ancestor, got, tc.want)
		}
	}
}

func TestComponentTokenDisambiguatesSameName(t *testing.T) {
	s := NewSession(nil)
	defer s.Close()
	a := Native("button")
	b := Native("button")
	if s.componentToken(a) == s.componentToken(b) {
		t.Error("distinct components with one name must get distinct tokens")
	}
	if s.componentToken(a) != s.componentToken(a) {
		t.Error("token must be stable per component")
	}
}

func TestKeyCollisionWithEscapedForm(t *testing.T) {
	// A raw key that looks like another key's escaped form must still map
	// to a different id, because the raw '%' itself gets escaped.
	item := Native("item")
	app := Define("app", func(ctx *BuildContext) {
		ctx.PlaceKeyed(item, nil, "a/b")
		ctx.PlaceKeyed(item, nil, "a%2Fb")
	})
	s, rec := newTestSession(t)
	if err := s.RenderRoot(app, nil); err != nil {
		t.Fatalf("RenderRoot: %v", err)
	}
	tree := rec.take()[0].Tree
	if len(tree.Children) != 2 || tree.Children[0].ID == tree.Children[1].ID {
		t.Fatalf("children = %+v, want two distinct ids", tree.Children)
	}
}
