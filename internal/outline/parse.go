package outline

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/orgtree/internal/textstore"
)

// Parse builds a new document in a from text.
func (a *Arena) Parse(text string) (*Document, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}
	return a.parse(text), nil
}

// ParseBytes is Parse for a byte slice. b is copied.
func (a *Arena) ParseBytes(b []byte) (*Document, error) {
	if !utf8.Valid(b) {
		return nil, ErrInvalidUTF8
	}
	return a.parse(string(b)), nil
}

// ParseReader reads r to EOF and parses the result.
func (a *Arena) ParseReader(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read outline: %w", err)
	}
	return a.ParseBytes(b)
}

func (a *Arena) parse(s string) *Document {
	t := textstore.FromString(s)
	root := a.allocate(0, textstore.Text{}, nilIndex)
	lead, _ := a.build(t, s, root)
	a.nodes[root].text = t.Slice(0, lead)
	return &Document{
		root: Section{arena: a, idx: root},
		boundary: Boundary{
			TerminalNewline: strings.HasSuffix(s, "\n"),
			Empty:           len(s) == 0,
			LeadingContent:  lead > 0,
		},
	}
}

type stackEntry struct {
	idx   int32
	level int
}

// build scans s (the bytes of t) and allocates one node per heading line
// beneath root. It returns the length of the content before the first
// heading and, when root is nilIndex, the top-level nodes it created.
func (a *Arena) build(t textstore.Text, s string, root int32) (lead int, tops []int32) {
	stack := []stackEntry{{idx: root}}
	open := nilIndex
	start := 0
	lead = len(s)
	for pos := 0; pos < len(s); {
		next := len(s)
		if i := strings.IndexByte(s[pos:], '\n'); i >= 0 {
			next = pos + i + 1
		}
		if level := HeadingLevel(s[pos:next]); level > 0 {
			if open == nilIndex {
				lead = pos
			} else {
				a.nodes[open].text = t.Slice(start, pos)
			}
			for stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].idx
			open = a.allocate(level, textstore.Text{}, parent)
			if parent == nilIndex {
				tops = append(tops, open)
			}
			stack = append(stack, stackEntry{idx: open, level: level})
			start = pos
		}
		pos = next
	}
	if open != nilIndex {
		a.nodes[open].text = t.Slice(start, len(s))
	}
	return lead, tops
}

// HeadingLevel returns the length of the '*' run that opens line, or 0 when
// line is not a heading line. A heading line is one or more '*' followed by
// a space.
func HeadingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '*' {
		n++
	}
	if n == 0 || n == len(line) || line[n] != ' ' {
		return 0
	}
	return n
}

// lines calls fn for each line of s with its 1-based number and byte offset,
// stopping when fn returns false.
func lines(s string, fn func(line string, num, offset int) bool) {
	num := 1
	for pos := 0; pos < len(s); num++ {
		next := len(s)
		if i := strings.IndexByte(s[pos:], '\n'); i >= 0 {
			next = pos + i + 1
		}
		if !fn(s[pos:next], num, pos) {
			return
		}
		pos = next
	}
}

// checkIsolated reparses s as the text of a single node at level. A root
// (level 0) may hold no heading lines; any other node must open with a
// heading of exactly its level and hold no further heading lines.
func checkIsolated(s string, level int) *StructureViolation {
	if level > 0 && len(s) == 0 {
		return &StructureViolation{Line: 1, Reason: fmt.Sprintf("empty text, want a level %d heading", level)}
	}
	var v *StructureViolation
	lines(s, func(line string, num, offset int) bool {
		got := HeadingLevel(line)
		switch {
		case num == 1 && level > 0 && got == 0:
			v = &StructureViolation{Line: num, Offset: offset, Reason: fmt.Sprintf("first line is not a heading, want level %d", level)}
		case num == 1 && level > 0 && got != level:
			v = &StructureViolation{Line: num, Offset: offset, Reason: fmt.Sprintf("heading level %d, want %d", got, level)}
		case num == 1 && level > 0:
		case got > 0:
			v = &StructureViolation{Line: num, Offset: offset, Reason: fmt.Sprintf("embedded level %d heading", got)}
		}
		return v == nil
	})
	return v
}

// NewSection parses text into a new detached subtree of a. text must start
// with a heading line and every later heading must be nested below it.
func (a *Arena) NewSection(text string) (Section, error) {
	if !utf8.ValidString(text) {
		return Section{}, ErrInvalidUTF8
	}
	top := 0
	var v *StructureViolation
	lines(text, func(line string, num, offset int) bool {
		got := HeadingLevel(line)
		switch {
		case num == 1 && got == 0:
			v = &StructureViolation{Line: num, Offset: offset, Reason: "first line is not a heading"}
		case num == 1:
			top = got
		case got > 0 && got <= top:
			v = &StructureViolation{Line: num, Offset: offset, Reason: fmt.Sprintf("level %d heading is not nested below level %d", got, top)}
		}
		return v == nil
	})
	if v != nil {
		return Section{}, v
	}
	if top == 0 {
		return Section{}, &StructureViolation{Line: 1, Reason: "empty text"}
	}
	_, tops := a.build(textstore.FromString(text), text, nilIndex)
	return Section{arena: a, idx: tops[0]}, nil
}
