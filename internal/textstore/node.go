package textstore

import (
	"io"
	"strings"
)

// node is a vertex of the concatenation tree. Leaves (height 0) hold a chunk;
// internal nodes hold exactly two children. Nodes are immutable after
// construction.
type node struct {
	height   uint8
	length   int // bytes in subtree
	newlines int // '\n' bytes in subtree

	chunk       string // leaf only
	left, right *node  // internal only
}

func newLeaf(s string) *node {
	return &node{
		length:   len(s),
		newlines: strings.Count(s, "\n"),
		chunk:    s,
	}
}

func newInternal(l, r *node) *node {
	return &node{
		height:   max(l.height, r.height) + 1,
		length:   l.length + r.length,
		newlines: l.newlines + r.newlines,
		left:     l,
		right:    r,
	}
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

func heightOf(n *node) int {
	if n == nil {
		return -1
	}
	return int(n.height)
}

// buildBalanced builds a perfectly balanced tree over leaves.
func buildBalanced(leaves []*node) *node {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	}
	mid := len(leaves) / 2
	return newInternal(buildBalanced(leaves[:mid]), buildBalanced(leaves[mid:]))
}

// rebalance joins l and r, whose heights differ by at most two, with at most
// one rotation.
func rebalance(l, r *node) *node {
	hl, hr := heightOf(l), heightOf(r)
	switch {
	case hl > hr+1:
		if heightOf(l.left) >= heightOf(l.right) {
			return newInternal(l.left, newInternal(l.right, r))
		}
		return newInternal(
			newInternal(l.left, l.right.left),
			newInternal(l.right.right, r),
		)
	case hr > hl+1:
		if heightOf(r.right) >= heightOf(r.left) {
			return newInternal(newInternal(l, r.left), r.right)
		}
		return newInternal(
			newInternal(l, r.left.left),
			newInternal(r.left.right, r.right),
		)
	}
	return newInternal(l, r)
}

// join concatenates two balanced trees into a balanced tree, reusing every
// subtree that does not lie on the seam.
func join(l, r *node) *node {
	if l == nil || l.length == 0 {
		return r
	}
	if r == nil || r.length == 0 {
		return l
	}
	if l.isLeaf() && r.isLeaf() && l.length+r.length <= MinChunkSize {
		return newLeaf(l.chunk + r.chunk)
	}

	hl, hr := heightOf(l), heightOf(r)
	switch {
	case hl > hr+1:
		return rebalance(l.left, join(l.right, r))
	case hr > hl+1:
		return rebalance(join(l, r.left), r.right)
	}
	return newInternal(l, r)
}

// slice returns the subtree covering [start, end). Callers guarantee
// 0 <= start < end <= n.length.
func (n *node) slice(start, end int) *node {
	if start == 0 && end == n.length {
		return n
	}
	if n.isLeaf() {
		return newLeaf(n.chunk[start:end])
	}

	split := n.left.length
	switch {
	case end <= split:
		return n.left.slice(start, end)
	case start >= split:
		return n.right.slice(start-split, end-split)
	}
	return join(n.left.slice(start, split), n.right.slice(0, end-split))
}

// byteAt returns the byte at offset i. Callers guarantee i < n.length.
func (n *node) byteAt(i int) byte {
	for !n.isLeaf() {
		if i < n.left.length {
			n = n.left
		} else {
			i -= n.left.length
			n = n.right
		}
	}
	return n.chunk[i]
}

// walk calls fn for each chunk at or after byte offset from, passing the
// chunk's suffix and that suffix's absolute offset. It stops when fn returns
// false and reports whether iteration ran to completion.
func (n *node) walk(from, base int, fn func(chunk string, offset int) bool) bool {
	if from >= n.length {
		return true
	}
	if n.isLeaf() {
		return fn(n.chunk[from:], base+from)
	}
	if from < n.left.length {
		if !n.left.walk(from, base, fn) {
			return false
		}
		return n.right.walk(0, base+n.left.length, fn)
	}
	return n.right.walk(from-n.left.length, base+n.left.length, fn)
}

func (n *node) appendTo(sb *strings.Builder) {
	n.walk(0, 0, func(chunk string, _ int) bool {
		sb.WriteString(chunk)
		return true
	})
}

func (n *node) writeTo(w io.Writer) (int64, error) {
	var total int64
	var err error
	n.walk(0, 0, func(chunk string, _ int) bool {
		var k int
		k, err = io.WriteString(w, chunk)
		total += int64(k)
		return err == nil
	})
	return total, err
}
