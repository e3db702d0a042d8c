package outline

// Structural operations relink existing nodes and never touch text. Each one
// validates first and applies only when the result keeps every child's level
// above its parent's.

// checkLink reports whether child may be placed under parent.
func (a *Arena) checkLink(parent, child int32) error {
	if a.isAncestorOrSelf(child, parent) {
		return violationf("node %d cannot be placed inside its own subtree", child)
	}
	pl, cl := a.nodes[parent].level, a.nodes[child].level
	if cl <= pl {
		return violationf("level %d node cannot be a child of level %d node", cl, pl)
	}
	return nil
}

// AppendChild moves child, detaching it first if needed, to the end of s's
// children.
func (s Section) AppendChild(child Section) error {
	return s.insertChild(child, nilIndex)
}

// PrependChild moves child to the front of s's children.
func (s Section) PrependChild(child Section) error {
	if err := s.sameArena(child); err != nil {
		return err
	}
	ref := s.rec().firstChild
	if ref == child.idx {
		ref = s.arena.nodes[ref].next
	}
	return s.insertChild(child, ref)
}

func (s Section) insertChild(child Section, ref int32) error {
	if err := s.sameArena(child); err != nil {
		return err
	}
	a := s.arena
	if err := a.checkLink(s.idx, child.idx); err != nil {
		return err
	}
	a.unlink(child.idx)
	a.linkBefore(child.idx, s.idx, ref)
	return nil
}

// InsertBefore moves sibling to just before s under s's parent.
func (s Section) InsertBefore(sibling Section) error {
	if err := s.sameArena(sibling); err != nil {
		return err
	}
	if sibling.idx == s.idx {
		return nil
	}
	parent, ok := s.Parent()
	if !ok {
		return violationf("node %d has no parent to insert into", s.idx)
	}
	return parent.insertChild(sibling, s.idx)
}

// InsertAfter moves sibling to just after s under s's parent.
func (s Section) InsertAfter(sibling Section) error {
	if err := s.sameArena(sibling); err != nil {
		return err
	}
	if sibling.idx == s.idx {
		return nil
	}
	parent, ok := s.Parent()
	if !ok {
		return violationf("node %d has no parent to insert into", s.idx)
	}
	ref := s.rec().next
	if ref == sibling.idx {
		return nil
	}
	return parent.insertChild(sibling, ref)
}

// Attach moves s under parent so that it becomes child number position. A
// negative position or one past the last child appends.
func (s Section) Attach(parent Section, position int) error {
	if err := s.sameArena(parent); err != nil {
		return err
	}
	ref := nilIndex
	if position >= 0 {
		i := 0
		for c := parent.rec().firstChild; c != nilIndex; c = s.arena.nodes[c].next {
			if c == s.idx {
				continue
			}
			if i == position {
				ref = c
				break
			}
			i++
		}
	}
	return parent.insertChild(s, ref)
}

// Detach unlinks s from its parent. s and its subtree stay resolvable and may
// be attached again.
func (s Section) Detach() {
	if s.arena == nil {
		return
	}
	s.arena.unlink(s.idx)
}

// RemoveSubtree drops s and its descendants from their document. Identifiers
// stay valid; the nodes become a detached subtree.
func (s Section) RemoveSubtree() {
	s.Detach()
}

// RemoveChildren detaches every child of s and returns them in their former
// order.
func (s Section) RemoveChildren() []Section {
	if s.arena == nil {
		return nil
	}
	var out []Section
	for c := s.rec().firstChild; c != nilIndex; c = s.rec().firstChild {
		s.arena.unlink(c)
		out = append(out, Section{arena: s.arena, idx: c})
	}
	return out
}

// ReplaceWithChildren puts the children of s in its place and detaches s.
// It fails when a child would end up at or above its new parent's level.
func (s Section) ReplaceWithChildren() error {
	if s.arena == nil {
		return ErrUnknownNode
	}
	parent, ok := s.Parent()
	if !ok {
		return violationf("node %d has no parent", s.idx)
	}
	a := s.arena
	pl := parent.rec().level
	for c := s.rec().firstChild; c != nilIndex; c = a.nodes[c].next {
		if cl := a.nodes[c].level; cl <= pl {
			return violationf("level %d child cannot move under level %d node", cl, pl)
		}
	}
	for c := s.rec().firstChild; c != nilIndex; c = s.rec().firstChild {
		a.unlink(c)
		a.linkBefore(c, parent.idx, s.idx)
	}
	a.unlink(s.idx)
	return nil
}
