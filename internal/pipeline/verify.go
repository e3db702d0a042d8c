package pipeline

import (
	"fmt"
	"slices"

	"github.com/dgallion1/orgtree/internal/chunker"
	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/outline"
)

// Verify parses text into a fresh arena and checks that it emits back
// byte-identical, that reparsing the emission yields the same tree, and that
// the tree passes the invariant checker. It also counts the chunks the
// document would produce. The parsed document is returned for reuse.
//
// An error is returned only when text cannot be parsed at all.
func Verify(text string, hctx headline.Context, cfg chunker.Config) (Result, *outline.Document, error) {
	doc, err := outline.NewArena().Parse(text)
	if err != nil {
		return Result{}, nil, err
	}

	res := Result{Bytes: len(text), Errors: []string{}}
	emitted := doc.Emit()
	res.RoundTrip = emitted == text
	if !res.RoundTrip {
		res.Errors = append(res.Errors, fmt.Sprintf("round trip differs at byte %d", firstDiff(emitted, text)))
	}

	again, err := outline.NewArena().Parse(emitted)
	if err != nil {
		res.Errors = append(res.Errors, "reparse: "+err.Error())
	} else {
		res.Idempotent = again.Emit() == emitted && slices.Equal(shape(doc), shape(again))
		if !res.Idempotent {
			res.Errors = append(res.Errors, "reparse produced a different tree")
		}
	}

	if err := doc.Root().Check(); err != nil {
		res.Errors = append(res.Errors, "invariants: "+err.Error())
	} else {
		res.Invariants = true
	}

	res.MaxDepth = depth(doc.Root())
	for range doc.Sections() {
		res.Sections++
	}
	res.Chunks = len(chunker.ChunkDocument(doc, hctx, cfg))
	return res, doc, nil
}

// shape lists levels in document order with -1 closing each child list, so
// two trees compare equal only when their nesting matches.
func shape(doc *outline.Document) []int {
	var out []int
	var walk func(s outline.Section)
	walk = func(s outline.Section) {
		out = append(out, s.Level())
		for c := range s.Children() {
			walk(c)
		}
		out = append(out, -1)
	}
	walk(doc.Root())
	return out
}

func depth(s outline.Section) int {
	d := 0
	for c := range s.Children() {
		d = max(d, depth(c)+1)
	}
	return d
}

func firstDiff(a, b string) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
