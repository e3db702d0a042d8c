// Command orgtree checks, prints and imports outline documents.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/importer"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	keywords  string
	pdftotext bool
}

func (o *options) context() headline.Context {
	return headline.ParseKeywords(o.keywords)
}

func (o *options) importOptions() importer.Options {
	return importer.Options{PDFFallbackPdftotext: o.pdftotext}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "orgtree",
		Short:         "Structural tools for star-headed outline documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.keywords, "keywords", envOr("TODO_KEYWORDS", "TODO:DONE"), "colon separated headline keywords")
	root.PersistentFlags().BoolVar(&opts.pdftotext, "pdftotext", true, "fall back to pdftotext for PDFs without extractable text")

	root.AddCommand(newCheckCmd(opts), newTreeCmd(opts), newImportCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "orgtree:", err)
		os.Exit(1)
	}
}

// readOutline loads path as outline text, importing foreign formats.
func readOutline(path string, opts *options) (text string, imported bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	if filepath.Ext(path) == "" || importer.IsNative(path) {
		b, err := io.ReadAll(f)
		return string(b), false, err
	}
	text, err = importer.ToOutline(f, path, opts.importOptions())
	return text, true, err
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
