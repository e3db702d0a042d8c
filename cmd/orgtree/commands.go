package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/orgtree/internal/chunker"
	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/outline"
	"github.com/dgallion1/orgtree/internal/pipeline"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Verify that files round-trip byte for byte",
		Long: `Parse each file, emit it again and compare with the input. The check
also reparses the emission and runs the tree invariant checker. Foreign
formats are imported first and the generated outline is checked.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				res, err := checkFile(path, opts)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					continue
				}
				if !res.OK() {
					failed++
				}
				if asJSON {
					enc := json.NewEncoder(out)
					if err := enc.Encode(map[string]any{"file": path, "ok": res.OK(), "result": res}); err != nil {
						return err
					}
					continue
				}
				printCheck(out, path, res)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON result per file")
	return cmd
}

func checkFile(path string, opts *options) (pipeline.Result, error) {
	text, imported, err := readOutline(path, opts)
	if err != nil {
		return pipeline.Result{}, err
	}
	res, _, err := pipeline.Verify(text, opts.context(), chunker.DefaultConfig())
	if err != nil {
		return pipeline.Result{}, err
	}
	res.Imported = imported
	return res, nil
}

func printCheck(out io.Writer, path string, res pipeline.Result) {
	status := "ok  "
	if !res.OK() {
		status = "FAIL"
	}
	fmt.Fprintf(out, "%s %s: %d bytes, %d sections, depth %d, %d chunks\n",
		status, path, res.Bytes, res.Sections, res.MaxDepth, res.Chunks)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "     %s\n", e)
	}
}

func newTreeCmd(opts *options) *cobra.Command {
	var (
		showIDs  bool
		maxDepth int
	)
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the heading structure of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, err := readOutline(args[0], opts)
			if err != nil {
				return err
			}
			doc, err := outline.NewArena().Parse(text)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			printTree(cmd.OutOrStdout(), doc.Root(), 0, maxDepth, showIDs, opts.context())
			return nil
		},
	}
	cmd.Flags().BoolVar(&showIDs, "ids", false, "prefix each heading with its section id")
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "stop below this depth (0 prints everything)")
	return cmd
}

func printTree(out io.Writer, s outline.Section, depth, maxDepth int, showIDs bool, ctx headline.Context) {
	for c := range s.Children() {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", depth))
		if showIDs {
			fmt.Fprintf(&b, "[%s] ", c.ID())
		}
		b.WriteString(treeLabel(c, ctx))
		fmt.Fprintln(out, b.String())
		if maxDepth == 0 || depth+1 < maxDepth {
			printTree(out, c, depth+1, maxDepth, showIDs, ctx)
		}
	}
}

func treeLabel(s outline.Section, ctx headline.Context) string {
	h, err := headline.Read(s, ctx)
	if err != nil {
		return strings.TrimLeft(s.HeadingLine(), "* ")
	}
	var parts []string
	if h.Keyword != "" {
		parts = append(parts, h.Keyword)
	}
	if p := h.PriorityString(); p != "" {
		parts = append(parts, "[#"+p+"]")
	}
	parts = append(parts, h.Title)
	if len(h.Tags) > 0 {
		parts = append(parts, ":"+strings.Join(h.Tags, ":")+":")
	}
	return strings.Join(parts, " ")
}

func newImportCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Convert a Markdown, HTML, text, CSV, PDF or DOCX file to outline text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, err := readOutline(args[0], opts)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			}
			return os.WriteFile(output, []byte(text), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
