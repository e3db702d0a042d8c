package outline

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/dgallion1/orgtree/internal/textstore"
)

const nilIndex int32 = -1

// arenaSerial hands out a distinct serial to every arena so identifiers can
// be traced back to their issuer.
var arenaSerial atomic.Uint64

// record is one slot of the node table. Links are indices into the same
// table; nilIndex marks an absent link.
type record struct {
	level      int
	text       textstore.Text
	parent     int32
	firstChild int32
	lastChild  int32
	prev       int32
	next       int32
}

// Arena owns the node table for any number of documents. Slots are appended
// and never reused, so every issued NodeID stays resolvable for the arena's
// lifetime.
type Arena struct {
	serial uint64
	nodes  []record
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{serial: arenaSerial.Add(1)}
}

// NodeID identifies a node within the arena that issued it. The zero value
// identifies nothing.
type NodeID struct {
	arena uint64
	index uint32
}

// String returns the node's index in decimal. Arena.ParseID reverses it.
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id.index), 10)
}

// IsZero reports whether id is the zero NodeID.
func (id NodeID) IsZero() bool {
	return id.arena == 0
}

// Len returns the number of nodes ever allocated, attached or not.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// ParseID turns the string form of a NodeID back into an identifier of this
// arena. The result still has to pass Resolve.
func (a *Arena) ParseID(s string) (NodeID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return NodeID{}, fmt.Errorf("parse node id %q: %w", s, ErrUnknownNode)
	}
	return NodeID{arena: a.serial, index: uint32(n)}, nil
}

// Resolve returns the Section for id.
func (a *Arena) Resolve(id NodeID) (Section, error) {
	if id.arena != a.serial {
		return Section{}, ErrCrossArenaReference
	}
	if int(id.index) >= len(a.nodes) {
		return Section{}, fmt.Errorf("node %d: %w", id.index, ErrUnknownNode)
	}
	return Section{arena: a, idx: int32(id.index)}, nil
}

func (a *Arena) allocate(level int, text textstore.Text, parent int32) int32 {
	idx := int32(len(a.nodes))
	a.nodes = append(a.nodes, record{
		level:      level,
		text:       text,
		parent:     nilIndex,
		firstChild: nilIndex,
		lastChild:  nilIndex,
		prev:       nilIndex,
		next:       nilIndex,
	})
	if parent != nilIndex {
		a.linkBefore(idx, parent, nilIndex)
	}
	return idx
}

// linkBefore makes idx a child of parent immediately before ref, or the last
// child when ref is nilIndex. idx must be unlinked.
func (a *Arena) linkBefore(idx, parent, ref int32) {
	n := &a.nodes[idx]
	n.parent = parent
	p := &a.nodes[parent]
	if ref == nilIndex {
		n.prev = p.lastChild
		n.next = nilIndex
		if p.lastChild != nilIndex {
			a.nodes[p.lastChild].next = idx
		} else {
			p.firstChild = idx
		}
		p.lastChild = idx
		return
	}
	r := &a.nodes[ref]
	n.prev = r.prev
	n.next = ref
	if r.prev != nilIndex {
		a.nodes[r.prev].next = idx
	} else {
		p.firstChild = idx
	}
	r.prev = idx
}

func (a *Arena) unlink(idx int32) {
	n := &a.nodes[idx]
	if n.parent == nilIndex {
		return
	}
	p := &a.nodes[n.parent]
	if n.prev != nilIndex {
		a.nodes[n.prev].next = n.next
	} else {
		p.firstChild = n.next
	}
	if n.next != nilIndex {
		a.nodes[n.next].prev = n.prev
	} else {
		p.lastChild = n.prev
	}
	n.parent, n.prev, n.next = nilIndex, nilIndex, nilIndex
}

// isAncestorOrSelf reports whether anc is idx or one of its ancestors.
func (a *Arena) isAncestorOrSelf(anc, idx int32) bool {
	for cur := idx; cur != nilIndex; cur = a.nodes[cur].parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// nextPreorder returns the node after idx in a pre-order walk of the subtree
// rooted at top, or nilIndex when the walk is done.
func (a *Arena) nextPreorder(idx, top int32) int32 {
	if c := a.nodes[idx].firstChild; c != nilIndex {
		return c
	}
	for cur := idx; cur != top; cur = a.nodes[cur].parent {
		if nx := a.nodes[cur].next; nx != nilIndex {
			return nx
		}
	}
	return nilIndex
}

// CloneSubtree copies the shape of s into new, detached nodes. Texts are
// shared with the original until either side is edited. Cloning the zero
// Section returns the zero Section.
func (s Section) CloneSubtree() Section {
	a := s.arena
	if a == nil {
		return Section{}
	}
	top := a.allocate(a.nodes[s.idx].level, a.nodes[s.idx].text, nilIndex)
	// clones maps each source node to its copy; parents are always copied
	// before their children in pre-order.
	clones := map[int32]int32{s.idx: top}
	for src := a.nextPreorder(s.idx, s.idx); src != nilIndex; src = a.nextPreorder(src, s.idx) {
		r := a.nodes[src]
		clones[src] = a.allocate(r.level, r.text, clones[r.parent])
	}
	return Section{arena: a, idx: top}
}

// Rebuild emits doc and parses the result into a fresh arena. Orphaned nodes
// of the old arena are left behind; node identifiers are not preserved.
func Rebuild(doc *Document) (*Document, error) {
	return NewArena().Parse(doc.Emit())
}
