package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/orgtree/internal/doctree"
)

// CSV imports a table. The header row becomes the preamble and every batch
// of rows becomes a section whose children are the rows themselves.
type CSV struct {
	BatchSize int
}

const defaultCSVBatch = 20

func (p *CSV) Import(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: stripExt(filename, ".csv")}
	if len(records) == 0 {
		return tree, nil
	}

	headers := records[0]
	tree.Preamble = "Columns: " + strings.Join(headers, ", ")

	batch := p.BatchSize
	if batch <= 0 {
		batch = defaultCSVBatch
	}
	rows := records[1:]
	for i := 0; i < len(rows); i += batch {
		end := min(i+batch, len(rows))
		// Line numbers are 1-based and skip the header row.
		section := &doctree.DocNode{Title: fmt.Sprintf("Rows %d-%d", i+2, end+1)}
		for j, row := range rows[i:end] {
			section.Children = append(section.Children, &doctree.DocNode{
				Title: fmt.Sprintf("Row %d", i+j+2),
				Text:  csvRowText(headers, row),
			})
		}
		tree.Children = append(tree.Children, section)
	}
	return tree, nil
}

func csvRowText(headers, row []string) string {
	var text strings.Builder
	for j, cell := range row {
		if j > 0 {
			text.WriteString("\n")
		}
		if j < len(headers) {
			text.WriteString(headers[j] + ": " + cell)
		} else {
			text.WriteString(cell)
		}
	}
	return text.String()
}
