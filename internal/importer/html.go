package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML imports HTML documents. h1-h6 become sections.
type HTML struct{}

func (p *HTML) Import(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := stripExt(filename, ".html", ".htm")
	if t := findTitle(doc); t != "" {
		title = t
	}
	b := newTreeBuilder(title)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := htmlHeadingLevel(n.DataAtom); level > 0 {
				b.heading(level, textContent(n))
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header:
				return
			case atom.P, atom.Li, atom.Td, atom.Blockquote:
				b.paragraph(textContent(n))
				return
			case atom.Pre:
				b.paragraph(strings.Trim(rawTextContent(n), "\n"))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, atom.Body); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return b.finish(), nil
}

func htmlHeadingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// textContent joins the text below n and collapses runs of whitespace.
func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawTextContent(n)), " ")
}

func rawTextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findTitle(n *html.Node) string {
	if t := findElement(n, atom.Title); t != nil {
		return textContent(t)
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
