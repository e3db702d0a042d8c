package outline

import "fmt"

// Check walks the subtree rooted at s and verifies that links are consistent,
// that every child sits at a deeper level than its parent, and that every
// node's text would parse back into that node alone. It is meant for tests
// and debugging; every public operation already keeps these properties.
func (s Section) Check() error {
	a := s.arena
	if a == nil {
		return ErrUnknownNode
	}
	for cur := s.idx; cur != nilIndex; cur = a.nextPreorder(cur, s.idx) {
		r := &a.nodes[cur]
		if v := checkIsolated(r.text.String(), r.level); v != nil {
			v.Reason = fmt.Sprintf("node %d: %s", cur, v.Reason)
			return v
		}
		prev := nilIndex
		for c := r.firstChild; c != nilIndex; c = a.nodes[c].next {
			cr := &a.nodes[c]
			if cr.parent != cur || cr.prev != prev {
				return fmt.Errorf("node %d: broken links to child %d", cur, c)
			}
			if cr.level <= r.level {
				return violationf("node %d: level %d child under level %d parent", c, cr.level, r.level)
			}
			prev = c
		}
		if r.lastChild != prev {
			return fmt.Errorf("node %d: last child is %d, want %d", cur, r.lastChild, prev)
		}
	}
	return nil
}
