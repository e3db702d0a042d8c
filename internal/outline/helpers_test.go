package outline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// shape is a plain-value view of a subtree for cmp.Diff.
type shape struct {
	Level    int
	Text     string
	Children []shape
}

func shapeOf(s Section) shape {
	out := shape{Level: s.Level(), Text: s.Raw()}
	for c := range s.Children() {
		out.Children = append(out.Children, shapeOf(c))
	}
	return out
}

func mustParse(t *testing.T, a *Arena, text string) *Document {
	t.Helper()
	doc, err := a.Parse(text)
	require.NoError(t, err)
	require.NoError(t, doc.Root().Check())
	return doc
}

// child follows a path of child indices from s.
func child(t *testing.T, s Section, path ...int) Section {
	t.Helper()
	for _, i := range path {
		c, ok := s.Child(i)
		require.True(t, ok, "no child %d under node %s", i, s.ID())
		s = c
	}
	return s
}

// texts records every node's text by identifier.
func texts(a *Arena) map[NodeID]string {
	out := make(map[NodeID]string, a.Len())
	for i := range a.Len() {
		s := Section{arena: a, idx: int32(i)}
		out[s.ID()] = s.Raw()
	}
	return out
}
