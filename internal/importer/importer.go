package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
)

// Importer converts a foreign document into a DocTree.
type Importer interface {
	Import(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tune individual importers.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists foreign formats that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// nativeExtensions are already outline text and need no import.
var nativeExtensions = map[string]bool{
	".org":     true,
	".outline": true,
}

// ForFile returns the importer for a filename.
func ForFile(filename string, opts Options) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &Text{}, nil
	case ".md", ".markdown":
		return &Markdown{}, nil
	case ".csv":
		return &CSV{}, nil
	case ".html", ".htm":
		return &HTML{}, nil
	case ".pdf":
		return &PDF{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCX{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file can be imported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsNative reports whether filename names outline text.
func IsNative(filename string) bool {
	return nativeExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ToOutline reads r and returns outline text. Native files are returned as
// read; everything else is imported and rendered.
func ToOutline(r io.Reader, filename string, opts Options) (string, error) {
	if IsNative(filename) {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filename, err)
		}
		return string(b), nil
	}
	imp, err := ForFile(filename, opts)
	if err != nil {
		return "", err
	}
	tree, err := imp.Import(r, filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("import %s: %w", filename, err)
	}
	return doctree.Render(tree), nil
}

func stripExt(filename string, exts ...string) string {
	for _, ext := range exts {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename
}
