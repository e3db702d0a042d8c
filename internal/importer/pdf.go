package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

var errNoPDFText = errors.New("no extractable text")

// PDF imports PDF files, one section per non-blank page. Scanned or broken
// files that yield no text go to pdftotext when FallbackPdftotext is set.
type PDF struct {
	FallbackPdftotext bool
}

func (p *PDF) Import(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	text, err := pdfText(data)
	if err != nil && p.FallbackPdftotext {
		text, err = pdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return pageTree(stripExt(filename, ".pdf"), text), nil
}

// pageTree makes one node per form-feed separated page. Page numbers count
// blank pages too.
func pageTree(title, text string) *doctree.DocTree {
	tree := &doctree.DocTree{Title: title}
	page := 0
	for p := range strings.SplitSeq(text, "\f") {
		page++
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Page %d", page),
			Text:  p,
			Page:  page,
		})
	}
	return tree
}

func pdfText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if i > 1 {
			buf.WriteByte('\f')
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if text, err := page.GetPlainText(nil); err == nil {
			buf.WriteString(text)
		}
	}
	if strings.TrimSpace(strings.ReplaceAll(buf.String(), "\f", "")) == "" {
		return "", errNoPDFText
	}
	return buf.String(), nil
}

// pdftotext runs poppler's pdftotext over data on stdin.
func pdftotext(data []byte) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
