package importer

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown imports Markdown using goldmark. ATX and setext headings become
// sections; every other block becomes a paragraph of the enclosing section.
type Markdown struct{}

func (m *Markdown) Import(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	b := newTreeBuilder(stripExt(filename, ".md", ".markdown"))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.heading(node.Level, extractText(node, src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.paragraph(blockLines(n, src))
		default:
			b.paragraph(extractText(n, src))
		}
	}
	return b.finish(), nil
}

// blockLines returns the raw lines of a code block without trimming its
// indentation.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			s := extractText(c, src)
			if c.Type() == ast.TypeBlock && buf.Len() > 0 && s != "" {
				buf.WriteByte('\n')
			}
			buf.WriteString(s)
		}
	}
	return strings.TrimSpace(buf.String())
}
