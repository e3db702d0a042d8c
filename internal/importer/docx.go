package importer

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCX imports Word documents. Paragraphs styled Heading1..Heading9 become
// sections.
type DOCX struct{}

func (p *DOCX) Import(r io.Reader, filename string) (*doctree.DocTree, error) {
	// go-docx needs a ReaderAt and a size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "orgtree-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newTreeBuilder(stripExt(filename, ".docx"))
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if level := docxHeadingLevel(para); level > 0 && text != "" {
			b.heading(level, text)
		} else {
			b.paragraph(text)
		}
	}
	return b.finish(), nil
}

// docxHeadingLevel accepts both the style id ("Heading2") and the style
// name ("heading 2").
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	rest, ok := strings.CutPrefix(style, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 9 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
