package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/outline"
)

func parse(t *testing.T, text string) *outline.Document {
	t.Helper()
	doc, err := outline.NewArena().Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestChunkDocument_SmallSectionFitsOneChunk(t *testing.T) {
	doc := parse(t, "* Section\n"+strings.Repeat("word ", 200)+"\n")

	cfg := Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 50}
	chunks := ChunkDocument(doc, headline.DefaultContext(), cfg)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if strings.Contains(chunks[0].Text, "* Section") {
		t.Errorf("heading line leaked into chunk text: %q", chunks[0].Text)
	}
	section, _ := doc.Root().FirstChild()
	if chunks[0].SectionID != section.ID().String() || chunks[0].Level != 1 {
		t.Errorf("chunk not tied to its section: %+v", chunks[0])
	}
}

func TestChunkDocument_LargeSectionRequiresSplitting(t *testing.T) {
	largeText := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 300)
	doc := parse(t, "* Big Section\n"+largeText+"\n")

	cfg := Config{ChunkSize: 500, ChunkOverlap: 50, MinChunk: 10}
	chunks := ChunkDocument(doc, headline.DefaultContext(), cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks for large text, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		// Sentence boundaries allow slight overflow.
		if tokens := EstimateTokens(c.Text); tokens > cfg.ChunkSize*2 {
			t.Errorf("chunk %d: %d tokens exceeds 2x target %d", i, tokens, cfg.ChunkSize)
		}
	}
}

func TestChunkDocument_BreadcrumbsUseTitles(t *testing.T) {
	text := "* TODO [#A] Chapter 1 :book:\n** Section 1.1 :draft:\nSCHEDULED: <2024-01-01>\n" +
		strings.Repeat("content ", 200) + "\n* B\n" + strings.Repeat("beta ", 200) + "\n"
	doc := parse(t, text)

	cfg := Config{ChunkSize: 2000, ChunkOverlap: 100, MinChunk: 10}
	chunks := ChunkDocument(doc, headline.DefaultContext(), cfg)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	want := []string{"Chapter 1", "Section 1.1"}
	bc := chunks[0].Breadcrumb
	if len(bc) != len(want) || bc[0] != want[0] || bc[1] != want[1] {
		t.Errorf("expected breadcrumb %v, got %v", want, bc)
	}
	if strings.Contains(chunks[0].Text, "SCHEDULED") {
		t.Errorf("planning line leaked into chunk: %q", chunks[0].Text[:40])
	}
	if len(chunks[0].Tags) != 1 || chunks[0].Tags[0] != "draft" {
		t.Errorf("expected tags [draft], got %v", chunks[0].Tags)
	}
	if len(chunks[1].Breadcrumb) != 1 || chunks[1].Breadcrumb[0] != "B" {
		t.Errorf("chunk 1 breadcrumb: expected [B], got %v", chunks[1].Breadcrumb)
	}
}

func TestChunkDocument_PreambleAndComments(t *testing.T) {
	text := "#+TITLE: Notes\n" + strings.Repeat("intro ", 50) + "\n" +
		"* COMMENT Hidden\n" + strings.Repeat("secret ", 50) + "\n** Also hidden\n" + strings.Repeat("more ", 50) + "\n"
	doc := parse(t, text)

	chunks := ChunkDocument(doc, headline.DefaultContext(), Config{MinChunk: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected only the preamble chunk, got %d", len(chunks))
	}
	if chunks[0].Breadcrumb != nil || chunks[0].Level != 0 {
		t.Errorf("expected root chunk, got %+v", chunks[0])
	}
	if strings.Contains(chunks[0].Text, "#+TITLE") {
		t.Errorf("keyword line leaked into chunk")
	}
}

func TestChunkDocument_MinChunkFiltering(t *testing.T) {
	doc := parse(t, "* Short\nHi\n")
	cfg := Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 100}
	if chunks := ChunkDocument(doc, headline.DefaultContext(), cfg); len(chunks) != 0 {
		t.Errorf("expected 0 chunks (below MinChunk), got %d", len(chunks))
	}
}

func TestChunkDocument_Empty(t *testing.T) {
	if chunks := ChunkDocument(parse(t, ""), headline.DefaultContext(), DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestChunkDocument_ContainerWithoutBody(t *testing.T) {
	doc := parse(t, "* Container\n** Leaf\n"+strings.Repeat("leaf content ", 100)+"\n")
	chunks := ChunkDocument(doc, headline.DefaultContext(), Config{ChunkSize: 2000, ChunkOverlap: 100, MinChunk: 10})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := []string{"Container", "Leaf"}
	bc := chunks[0].Breadcrumb
	if len(bc) != len(want) {
		t.Fatalf("expected breadcrumb %v, got %v", want, bc)
	}
	for i := range want {
		if bc[i] != want[i] {
			t.Errorf("breadcrumb[%d]: expected %q, got %q", i, want[i], bc[i])
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"one two three", 4},
		{":work:home:errands:someday:", 6},
		{strings.Repeat("語", 40), 10},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
