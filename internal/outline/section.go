package outline

import (
	"iter"
	"strings"

	"github.com/dgallion1/orgtree/internal/textstore"
)

// Section is a handle to one node of an Arena. Sections are small values;
// copy them freely. The zero Section refers to nothing: its accessors report
// an empty detached node and its mutators return ErrUnknownNode or do
// nothing.
type Section struct {
	arena *Arena
	idx   int32
}

func (s Section) rec() *record {
	if s.arena == nil {
		return &record{parent: nilIndex, firstChild: nilIndex, lastChild: nilIndex, prev: nilIndex, next: nilIndex}
	}
	return &s.arena.nodes[s.idx]
}

func (s Section) at(idx int32) (Section, bool) {
	if idx == nilIndex {
		return Section{}, false
	}
	return Section{arena: s.arena, idx: idx}, true
}

// IsZero reports whether s is the zero Section.
func (s Section) IsZero() bool {
	return s.arena == nil
}

// Arena returns the arena that owns s.
func (s Section) Arena() *Arena {
	return s.arena
}

// ID returns the node's stable identifier.
func (s Section) ID() NodeID {
	if s.arena == nil {
		return NodeID{}
	}
	return NodeID{arena: s.arena.serial, index: uint32(s.idx)}
}

// Level returns the heading level, 0 for a document root.
func (s Section) Level() int {
	return s.rec().level
}

// IsRoot reports whether s is a document root.
func (s Section) IsRoot() bool {
	return s.arena != nil && s.rec().level == 0
}

// Text returns the node's own raw text: its heading line and body, without
// any descendant text.
func (s Section) Text() textstore.Text {
	return s.rec().text
}

// Raw returns Text as a string.
func (s Section) Raw() string {
	return s.rec().text.String()
}

// HeadingLine returns the first line of the node without its terminator. It
// is empty for a root.
func (s Section) HeadingLine() string {
	if s.IsRoot() {
		return ""
	}
	t := s.rec().text
	end := t.IndexByte('\n', 0)
	if end < 0 {
		end = t.Len()
	}
	return strings.TrimSuffix(t.Slice(0, end).String(), "\r")
}

// Parent returns the parent section. Roots and detached nodes have none.
func (s Section) Parent() (Section, bool) {
	return s.at(s.rec().parent)
}

// IsAttached reports whether s has a parent.
func (s Section) IsAttached() bool {
	return s.rec().parent != nilIndex
}

// FirstChild returns the first child of s.
func (s Section) FirstChild() (Section, bool) {
	return s.at(s.rec().firstChild)
}

// LastChild returns the last child of s.
func (s Section) LastChild() (Section, bool) {
	return s.at(s.rec().lastChild)
}

// NextSibling returns the sibling after s under the same parent.
func (s Section) NextSibling() (Section, bool) {
	return s.at(s.rec().next)
}

// PrevSibling returns the sibling before s under the same parent.
func (s Section) PrevSibling() (Section, bool) {
	return s.at(s.rec().prev)
}

// HasChildren reports whether s has at least one child.
func (s Section) HasChildren() bool {
	return s.rec().firstChild != nilIndex
}

// ChildCount returns the number of direct children.
func (s Section) ChildCount() int {
	n := 0
	for c := s.rec().firstChild; c != nilIndex; c = s.arena.nodes[c].next {
		n++
	}
	return n
}

// Child returns the i-th child.
func (s Section) Child(i int) (Section, bool) {
	if i < 0 {
		return Section{}, false
	}
	for c := s.rec().firstChild; c != nilIndex; c = s.arena.nodes[c].next {
		if i == 0 {
			return s.at(c)
		}
		i--
	}
	return Section{}, false
}

// Children yields the direct children in document order. The sequence reads
// links lazily; do not restructure s while ranging over it.
func (s Section) Children() iter.Seq[Section] {
	return s.follow(s.rec().firstChild, func(r *record) int32 { return r.next })
}

// ChildrenReverse yields the direct children last to first.
func (s Section) ChildrenReverse() iter.Seq[Section] {
	return s.follow(s.rec().lastChild, func(r *record) int32 { return r.prev })
}

// FollowingSiblings yields the siblings after s.
func (s Section) FollowingSiblings() iter.Seq[Section] {
	return s.follow(s.rec().next, func(r *record) int32 { return r.next })
}

// PrecedingSiblings yields the siblings before s, nearest first.
func (s Section) PrecedingSiblings() iter.Seq[Section] {
	return s.follow(s.rec().prev, func(r *record) int32 { return r.prev })
}

// Ancestors yields the parent of s, then its parent, up to the root.
func (s Section) Ancestors() iter.Seq[Section] {
	return s.follow(s.rec().parent, func(r *record) int32 { return r.parent })
}

func (s Section) follow(start int32, step func(*record) int32) iter.Seq[Section] {
	a := s.arena
	return func(yield func(Section) bool) {
		for cur := start; cur != nilIndex; cur = step(&a.nodes[cur]) {
			if !yield(Section{arena: a, idx: cur}) {
				return
			}
		}
	}
}

// Descendants yields s and every node below it in document order.
func (s Section) Descendants() iter.Seq[Section] {
	a := s.arena
	return func(yield func(Section) bool) {
		if a == nil {
			return
		}
		for cur := s.idx; cur != nilIndex; cur = a.nextPreorder(cur, s.idx) {
			if !yield(Section{arena: a, idx: cur}) {
				return
			}
		}
	}
}

// Root returns the topmost ancestor of s, or s itself when it has no parent.
func (s Section) Root() Section {
	if s.arena == nil {
		return s
	}
	cur := s.idx
	for p := s.arena.nodes[cur].parent; p != nilIndex; p = s.arena.nodes[cur].parent {
		cur = p
	}
	return Section{arena: s.arena, idx: cur}
}

func (s Section) sameArena(other Section) error {
	if s.arena == nil || other.arena == nil {
		return ErrUnknownNode
	}
	if s.arena != other.arena {
		return ErrCrossArenaReference
	}
	return nil
}
