package textstore

import (
	"io"
	"iter"
	"strings"
)

// Text is an immutable byte sequence stored as shared chunks. The zero value
// is the empty text.
type Text struct {
	root *node
}

// FromString creates a Text over s. Chunks are substrings of s; the bytes are
// not copied.
func FromString(s string) Text {
	chunks := splitIntoChunks(s)
	if len(chunks) == 0 {
		return Text{}
	}
	leaves := make([]*node, len(chunks))
	for i, c := range chunks {
		leaves[i] = newLeaf(c)
	}
	return Text{root: buildBalanced(leaves)}
}

// Len returns the length in bytes.
func (t Text) Len() int {
	if t.root == nil {
		return 0
	}
	return t.root.length
}

// IsEmpty reports whether t holds no bytes.
func (t Text) IsEmpty() bool {
	return t.Len() == 0
}

// LineCount returns the number of newline bytes plus one.
func (t Text) LineCount() int {
	if t.root == nil {
		return 1
	}
	return t.root.newlines + 1
}

// Newlines returns the number of '\n' bytes.
func (t Text) Newlines() int {
	if t.root == nil {
		return 0
	}
	return t.root.newlines
}

// String materializes the full text.
func (t Text) String() string {
	if t.root == nil {
		return ""
	}
	if t.root.isLeaf() {
		return t.root.chunk
	}
	var sb strings.Builder
	sb.Grow(t.root.length)
	t.root.appendTo(&sb)
	return sb.String()
}

// Bytes materializes the full text into a new byte slice.
func (t Text) Bytes() []byte {
	return []byte(t.String())
}

// WriteTo writes the text to w chunk by chunk.
func (t Text) WriteTo(w io.Writer) (int64, error) {
	if t.root == nil {
		return 0, nil
	}
	return t.root.writeTo(w)
}

// Slice returns the bytes in [start, end). Out-of-range bounds are clamped.
// The result shares every chunk it does not cut.
func (t Text) Slice(start, end int) Text {
	n := t.Len()
	start = max(start, 0)
	end = min(end, n)
	if start >= end {
		return Text{}
	}
	return Text{root: t.root.slice(start, end)}
}

// Concat returns t followed by other. Neither operand is modified.
func (t Text) Concat(other Text) Text {
	return Text{root: join(t.root, other.root)}
}

// Split returns [0, offset) and [offset, Len()).
func (t Text) Split(offset int) (Text, Text) {
	return t.Slice(0, offset), t.Slice(offset, t.Len())
}

// ByteAt returns the byte at offset, or false if offset is out of range.
func (t Text) ByteAt(offset int) (byte, bool) {
	if offset < 0 || offset >= t.Len() {
		return 0, false
	}
	return t.root.byteAt(offset), true
}

// LastByte returns the final byte, or false for an empty text.
func (t Text) LastByte() (byte, bool) {
	return t.ByteAt(t.Len() - 1)
}

// IndexByte returns the offset of the first c at or after from, or -1.
func (t Text) IndexByte(c byte, from int) int {
	if t.root == nil || from >= t.root.length {
		return -1
	}
	from = max(from, 0)
	found := -1
	t.root.walk(from, 0, func(chunk string, offset int) bool {
		if i := strings.IndexByte(chunk, c); i >= 0 {
			found = offset + i
			return false
		}
		return true
	})
	return found
}

// HasPrefix reports whether t begins with prefix.
func (t Text) HasPrefix(prefix string) bool {
	if len(prefix) > t.Len() {
		return false
	}
	return t.Slice(0, len(prefix)).String() == prefix
}

// Equal reports whether t and other hold the same bytes.
func (t Text) Equal(other Text) bool {
	if t.root == other.root {
		return true
	}
	if t.Len() != other.Len() {
		return false
	}
	return t.String() == other.String()
}

// Chunks iterates over the stored chunks in order.
func (t Text) Chunks() iter.Seq[string] {
	return func(yield func(string) bool) {
		if t.root == nil {
			return
		}
		t.root.walk(0, 0, func(chunk string, _ int) bool {
			return yield(chunk)
		})
	}
}

// Concat joins any number of texts left to right.
func Concat(texts ...Text) Text {
	var out Text
	for _, t := range texts {
		out = out.Concat(t)
	}
	return out
}
