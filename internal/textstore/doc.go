// Package textstore provides the immutable, chunked text buffer that holds all
// node text in an outline arena.
//
// A Text is a height-balanced concatenation tree whose leaves are string
// chunks. Every operation returns a new Text and leaves the receiver intact, so
// two Texts may share any number of chunks:
//
//	doc := textstore.FromString(src)
//	head := doc.Slice(0, 12)            // shares chunks with doc
//	edited := head.Concat(textstore.FromString("new tail\n"))
//	out := edited.String()              // bytes are materialized only here
//
// Chunks are never mutated once built. A Text is therefore safe for concurrent
// reads from any number of goroutines, including readers in different arenas.
package textstore
