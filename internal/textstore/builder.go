package textstore

import "strings"

// Builder assembles a Text from a sequence of writes. Small writes are
// buffered and flushed as chunks; whole Texts are spliced in without copying.
type Builder struct {
	text   Text
	buffer strings.Builder
}

// WriteString appends s.
func (b *Builder) WriteString(s string) (int, error) {
	b.buffer.WriteString(s)
	if b.buffer.Len() >= MaxChunkSize*2 {
		b.flush()
	}
	return len(s), nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	return b.WriteString(string(p))
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	return b.buffer.WriteByte(c)
}

// WriteText appends t, sharing its chunks.
func (b *Builder) WriteText(t Text) {
	if t.IsEmpty() {
		return
	}
	b.flush()
	b.text = b.text.Concat(t)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return b.text.Len() + b.buffer.Len()
}

// LastByte returns the most recently written byte.
func (b *Builder) LastByte() (byte, bool) {
	if n := b.buffer.Len(); n > 0 {
		return b.buffer.String()[n-1], true
	}
	return b.text.LastByte()
}

// Build returns the accumulated Text and resets the builder.
func (b *Builder) Build() Text {
	b.flush()
	t := b.text
	b.text = Text{}
	return t
}

func (b *Builder) flush() {
	if b.buffer.Len() == 0 {
		return
	}
	s := b.buffer.String()
	b.buffer.Reset()
	b.text = b.text.Concat(FromString(s))
}
