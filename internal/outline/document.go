package outline

import (
	"io"
	"iter"

	"github.com/dgallion1/orgtree/internal/textstore"
)

// Boundary holds what a parse saw at the edges of its input.
type Boundary struct {
	// TerminalNewline is true when the text ended with '\n'. It is applied
	// on every Document.Emit and may be changed with SetTerminalNewline.
	TerminalNewline bool
	// Empty is true when the source was the empty string.
	Empty bool
	// LeadingContent is true when bytes preceded the first heading.
	LeadingContent bool
}

// Document is a root section plus the boundary metadata needed to emit it.
type Document struct {
	root     Section
	boundary Boundary
}

// NewDocument returns an empty document rooted in a. It emits "".
func (a *Arena) NewDocument() *Document {
	return &Document{
		root:     Section{arena: a, idx: a.allocate(0, textstore.Text{}, nilIndex)},
		boundary: Boundary{Empty: true},
	}
}

// Root returns the level 0 section holding the content before the first
// heading.
func (d *Document) Root() Section {
	return d.root
}

// Arena returns the arena holding the document's nodes.
func (d *Document) Arena() *Arena {
	return d.root.arena
}

// Boundary returns the captured boundary metadata.
func (d *Document) Boundary() Boundary {
	return d.boundary
}

// SetTerminalNewline controls whether Emit ends in '\n'.
func (d *Document) SetTerminalNewline(v bool) {
	d.boundary.TerminalNewline = v
}

// EmitText emits the whole document and applies the terminal newline
// setting to the last byte. Empty output stays empty.
func (d *Document) EmitText() textstore.Text {
	t := d.root.EmitText()
	last, ok := t.LastByte()
	if !ok {
		return t
	}
	switch {
	case d.boundary.TerminalNewline && last != '\n':
		t = t.Concat(textstore.FromString("\n"))
	case !d.boundary.TerminalNewline && last == '\n':
		t = t.Slice(0, t.Len()-1)
	}
	return t
}

// Emit returns EmitText as a string.
func (d *Document) Emit() string {
	return d.EmitText().String()
}

// WriteTo writes the emitted document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.EmitText().WriteTo(w)
}

// Sections yields every node of the document below the root in document
// order.
func (d *Document) Sections() iter.Seq[Section] {
	return func(yield func(Section) bool) {
		for s := range d.root.Descendants() {
			if s.idx == d.root.idx {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}
