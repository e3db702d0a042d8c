package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
)

// Text imports plain text. Plain text has no headings, so every paragraph
// ends up in the preamble.
type Text struct{}

func (p *Text) Import(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := newTreeBuilder(stripExt(filename, ".txt"))
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				b.paragraph(current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.paragraph(current.String())

	return b.finish(), nil
}
