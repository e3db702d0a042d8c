package outline

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/orgtree/internal/textstore"
)

// SetRaw replaces the node's own text with candidate. The candidate is parsed
// in isolation: a non-root node must open with a heading of its current level
// and hold no other heading line, a root may hold no heading line at all.
// On failure the node is unchanged and the error is a *StructureViolation.
func (s Section) SetRaw(candidate string) error {
	if err := s.checkRaw(candidate); err != nil {
		return err
	}
	s.rec().text = textstore.FromString(candidate)
	return nil
}

// SetRawText is SetRaw for a Text. The candidate's chunks are kept as is.
func (s Section) SetRawText(candidate textstore.Text) error {
	if err := s.checkRaw(candidate.String()); err != nil {
		return err
	}
	s.rec().text = candidate
	return nil
}

func (s Section) checkRaw(candidate string) error {
	if s.arena == nil {
		return ErrUnknownNode
	}
	if !utf8.ValidString(candidate) {
		return ErrInvalidUTF8
	}
	if v := checkIsolated(candidate, s.rec().level); v != nil {
		return v
	}
	return nil
}

// SetLevel rewrites the '*' run of the node's heading line to n stars. n must
// stay above the parent's level and below every child's level. Roots cannot
// change level.
func (s Section) SetLevel(n int) error {
	if s.arena == nil {
		return ErrUnknownNode
	}
	r := s.rec()
	if r.level == 0 {
		return violationf("cannot change the level of a document root")
	}
	if n < 1 {
		return violationf("level %d is below 1", n)
	}
	if n == r.level {
		return nil
	}
	if r.parent != nilIndex {
		if pl := s.arena.nodes[r.parent].level; n <= pl {
			return violationf("level %d is not below parent level %d", n, pl)
		}
	}
	for c := r.firstChild; c != nilIndex; c = s.arena.nodes[c].next {
		if cl := s.arena.nodes[c].level; n >= cl {
			return violationf("level %d is not above child level %d", n, cl)
		}
	}
	stars := textstore.FromString(strings.Repeat("*", n))
	r.text = stars.Concat(r.text.Slice(r.level, r.text.Len()))
	r.level = n
	return nil
}
