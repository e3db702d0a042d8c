package doctree

import (
	"strings"

	"github.com/dgallion1/orgtree/internal/outline"
)

// DocTree is an imported document before it becomes outline text.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Preamble string     // Text before the first section
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading
	Text     string     // Body text of this section (may be empty)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Render writes tree as outline text. Depth decides the heading level, so
// skipped source levels close up. Body lines that would read as headings are
// indented by one space.
func Render(tree *DocTree) string {
	var sb strings.Builder
	if tree.Title != "" {
		sb.WriteString("#+TITLE: " + oneLine(tree.Title) + "\n")
	}
	if tree.Preamble != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		writeBody(&sb, tree.Preamble)
	}
	for _, n := range tree.Children {
		renderNode(&sb, n, 1)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *DocNode, level int) {
	sb.WriteString(strings.Repeat("*", level))
	sb.WriteString(" ")
	sb.WriteString(oneLine(n.Title))
	sb.WriteString("\n")
	if n.Text != "" {
		writeBody(sb, n.Text)
	}
	for _, c := range n.Children {
		renderNode(sb, c, level+1)
	}
}

func writeBody(sb *strings.Builder, text string) {
	for line := range strings.Lines(strings.TrimRight(text, "\n")) {
		if outline.HeadingLevel(line) > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
	}
	sb.WriteString("\n\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
