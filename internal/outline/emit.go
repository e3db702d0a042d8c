package outline

import (
	"io"

	"github.com/dgallion1/orgtree/internal/textstore"
)

// EmitText concatenates the text of s and its descendants in pre-order. A
// '\n' is inserted between two pieces only when the first lacks one, so the
// output always reparses into the same shape. Chunks are shared, not copied.
func (s Section) EmitText() textstore.Text {
	var b textstore.Builder
	s.emitInto(&b)
	return b.Build()
}

// Emit returns EmitText as a string.
func (s Section) Emit() string {
	return s.EmitText().String()
}

// WriteTo writes the emitted subtree to w.
func (s Section) WriteTo(w io.Writer) (int64, error) {
	return s.EmitText().WriteTo(w)
}

func (s Section) emitInto(b *textstore.Builder) {
	a := s.arena
	if a == nil {
		return
	}
	for cur := s.idx; cur != nilIndex; cur = a.nextPreorder(cur, s.idx) {
		t := a.nodes[cur].text
		if t.IsEmpty() {
			continue
		}
		if last, ok := b.LastByte(); ok && last != '\n' {
			b.WriteByte('\n')
		}
		b.WriteText(t)
	}
}

// At maps a byte offset of Emit's output to the node that produced it and the
// offset within that node's text. A separator inserted by the emitter belongs
// to the node before it.
func (d *Document) At(pos int) (Section, int, bool) {
	total := d.EmitText().Len()
	if pos < 0 || pos >= total {
		return Section{}, 0, false
	}
	a := d.root.arena
	top := d.root.idx
	off, prevStart := 0, 0
	prev := nilIndex
	var prevLast byte
	for cur := top; cur != nilIndex; cur = a.nextPreorder(cur, top) {
		t := a.nodes[cur].text
		if t.IsEmpty() {
			continue
		}
		if prev != nilIndex && prevLast != '\n' {
			if pos == off {
				return Section{arena: a, idx: prev}, off - prevStart, true
			}
			off++
		}
		if pos < off+t.Len() {
			return Section{arena: a, idx: cur}, pos - off, true
		}
		prevStart = off
		off += t.Len()
		prev = cur
		prevLast, _ = t.LastByte()
	}
	// The terminal newline added by EmitText.
	return Section{arena: a, idx: prev}, pos - prevStart, true
}
