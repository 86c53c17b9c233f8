package core

import (
	"strconv"
	"strings"

	"github.com/go-ripple/ripple/pkg/wire"
)

// Node ids are deterministic path encodings. The root id is the root
// component's identity token; every descendant id is
//
//	<parent id> "/" <position-or-key> "@" <component token>
//
// where position is the 0-based call-order index within the parent unless an
// explicit key was supplied. The component token is folded in so that a
// different component at the same slot yields a different id, forcing full
// replacement instead of incorrect reuse.

// idSeparators are reserved in externally supplied keys and must be
// percent-escaped, '%' first so the escape byte is never double-encoded.
const idSeparators = `%:@/`

// escapeKey percent-escapes the reserved separator characters in key.
func escapeKey(key string) string {
	if !strings.ContainsAny(key, idSeparators) {
		return key
	}
	var sb strings.Builder
	sb.Grow(len(key) + 6)
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '%':
			sb.WriteString("%25")
		case ':':
			sb.WriteString("%3A")
		case '@':
			sb.WriteString("%40")
		case '/':
			sb.WriteString("%2F")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// EscapeKey exposes the id escaping rule for external key strings.
func EscapeKey(key string) string { return escapeKey(key) }

// componentToken returns the session-stable identity token for a component:
// its escaped name plus a per-session ordinal, so two distinct components
// with the same name still produce distinct ids.
func (s *Session) componentToken(c *Component) string {
	ord, ok := s.componentOrd[c]
	if !ok {
		ord = len(s.componentOrd)
		s.componentOrd[c] = ord
	}
	return escapeKey(c.name) + ":" + strconv.Itoa(ord)
}

// childID computes the id for a child declared under parent at the given
// call position, or with the given explicit key.
func childID(parent wire.NodeID, key string, pos int, token string) wire.NodeID {
	var slot string
	if key != "" {
		slot = escapeKey(key)
	} else {
		slot = strconv.Itoa(pos)
	}
	return parent + "/" + wire.NodeID(slot+"@"+token)
}

// isDescendant reports whether id lies strictly inside the subtree rooted at
// ancestor. Path encoding makes this a prefix test.
func isDescendant(id, ancestor wire.NodeID) bool {
	return len(id) > len(ancestor) &&
		strings.HasPrefix(string(id), string(ancestor)+"/")
}
