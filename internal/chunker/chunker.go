package chunker

import (
	"strings"

	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/outline"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
}

// Chunk is a sized piece of one section's body with its heading path.
type Chunk struct {
	Text       string   `json:"text"`
	Index      int      `json:"index"`
	SectionID  string   `json:"section_id"`
	Level      int      `json:"level"`
	Breadcrumb []string `json:"breadcrumb,omitempty"` // e.g. ["Projects", "Website", "Launch"]
	Tags       []string `json:"tags,omitempty"`
}

// ChunkDocument walks the outline and splits every section body into chunks.
// Heading lines and planning lines are not part of the text; commented
// subtrees are skipped.
func ChunkDocument(doc *outline.Document, ctx headline.Context, cfg Config) []Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 100
	}

	var chunks []Chunk
	root := doc.Root()
	index := emit(rootBody(root.Raw()), root, nil, nil, cfg, &chunks, 0)
	for child := range root.Children() {
		index = walkSection(child, nil, ctx, cfg, &chunks, index)
	}
	return chunks
}

// rootBody drops #+KEYWORD lines from the preamble.
func rootBody(text string) string {
	var sb strings.Builder
	for line := range strings.Lines(text) {
		if !strings.HasPrefix(line, "#+") {
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// walkSection recursively visits sections, collecting text and splitting into chunks.
func walkSection(s outline.Section, breadcrumb []string, ctx headline.Context, cfg Config, chunks *[]Chunk, index int) int {
	h, err := headline.Read(s, ctx)
	if err != nil {
		return index
	}
	if h.Commented {
		return index
	}

	var bc []string
	bc = append(bc, breadcrumb...)
	if h.Title != "" {
		bc = append(bc, h.Title)
	}

	index = emit(h.Body, s, bc, h.Tags, cfg, chunks, index)

	for child := range s.Children() {
		index = walkSection(child, bc, ctx, cfg, chunks, index)
	}
	return index
}

func emit(body string, s outline.Section, bc, tags []string, cfg Config, chunks *[]Chunk, index int) int {
	body = strings.TrimSpace(body)
	if body == "" {
		return index
	}
	parts := []string{body}
	if EstimateTokens(body) > cfg.ChunkSize {
		parts = splitText(body, cfg.ChunkSize, cfg.ChunkOverlap)
	}
	for _, part := range parts {
		if EstimateTokens(part) < cfg.MinChunk {
			continue
		}
		*chunks = append(*chunks, Chunk{
			Text:       part,
			Index:      index,
			SectionID:  s.ID().String(),
			Level:      s.Level(),
			Breadcrumb: copyBreadcrumb(bc),
			Tags:       tags,
		})
		index++
	}
	return index
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	// Split by paragraphs first.
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// If a single paragraph exceeds the target, split it further.
		if paraTokens > targetTokens {
			// Flush current buffer.
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			// Split the large paragraph by sentences.
			subParts := splitBySentences(para, targetTokens, overlapTokens)
			result = append(result, subParts...)
			continue
		}

		// Would adding this paragraph exceed the target?
		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			// Start next chunk with overlap from end of current.
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based chunks.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	// Approximate: 1.33 tokens per word.
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
