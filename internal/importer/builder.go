package importer

import (
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
)

// treeBuilder nests headings by level the same way the outline parser does:
// a heading closes every open section at its level or deeper.
type treeBuilder struct {
	root  *doctree.DocNode
	stack []stackEntry
	text  strings.Builder
}

type stackEntry struct {
	node  *doctree.DocNode
	level int
}

func newTreeBuilder(title string) *treeBuilder {
	root := &doctree.DocNode{Title: title}
	return &treeBuilder{root: root, stack: []stackEntry{{node: root, level: 0}}}
}

func (b *treeBuilder) heading(level int, title string) {
	b.flush()
	node := &doctree.DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, stackEntry{node: node, level: level})
}

// paragraph queues text for the innermost open section.
func (b *treeBuilder) paragraph(t string) {
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *treeBuilder) flush() {
	t := strings.TrimSpace(b.text.String())
	if t != "" {
		top := b.stack[len(b.stack)-1].node
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	b.text.Reset()
}

// finish returns the tree. Text before the first heading stays with the
// document as Preamble.
func (b *treeBuilder) finish() *doctree.DocTree {
	b.flush()
	return &doctree.DocTree{
		Title:    b.root.Title,
		Preamble: b.root.Text,
		Children: b.root.Children,
	}
}
