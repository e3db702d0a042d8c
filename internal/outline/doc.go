// Package outline parses star-headed outline documents into an arena-held
// forest and edits them without ever breaking the tree shape.
//
// A heading line starts at column 0 with a run of '*' followed by a space; the
// run length is the heading's level. Every node stores its heading line and
// the body lines that follow it, terminators included, so emitting an
// unmodified document reproduces the input byte for byte:
//
//	arena := outline.NewArena()
//	doc, err := arena.Parse("* A\nbody\n** B\nmore\n")
//	if err != nil {
//		return err
//	}
//	a, _ := doc.Root().FirstChild()
//	err = a.SetRaw("* A\nnew body\n")
//	out := doc.Emit() // "* A\nnew body\n** B\nmore\n"
//
// Text edits go through SetRaw and SetLevel, which reject any candidate that
// would change the tree shape with a *StructureViolation. Nodes are never
// freed; detached subtrees stay resolvable and can be attached again. Callers
// running long editing sessions should call Rebuild periodically.
//
// An Arena is not safe for concurrent mutation. Independent arenas share only
// immutable text chunks.
package outline
