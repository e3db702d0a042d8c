package textstore

// Chunk size constants control the granularity of leaf storage.
const (
	// MinChunkSize is the size below which adjacent leaves are merged on Concat.
	MinChunkSize = 256

	// MaxChunkSize is the largest leaf produced by FromString and Builder.
	MaxChunkSize = 1024

	// TargetChunkSize is the preferred leaf size when splitting long input.
	TargetChunkSize = (MinChunkSize + MaxChunkSize) / 2
)

// splitIntoChunks splits s into leaf-sized pieces. Pieces are substrings of s,
// so no bytes are copied.
func splitIntoChunks(s string) []string {
	if len(s) == 0 {
		return nil
	}
	if len(s) <= MaxChunkSize {
		return []string{s}
	}

	chunks := make([]string, 0, len(s)/TargetChunkSize+1)
	remaining := s
	for len(remaining) > 0 {
		if len(remaining) <= MaxChunkSize {
			chunks = append(chunks, remaining)
			break
		}
		split := findBoundary(remaining, TargetChunkSize)
		chunks = append(chunks, remaining[:split])
		remaining = remaining[split:]
	}
	return chunks
}

// findBoundary picks a split point near target. It prefers the byte after a
// newline and otherwise never splits inside a UTF-8 sequence.
func findBoundary(s string, target int) int {
	if target >= len(s) {
		return len(s)
	}
	if target <= 0 {
		return 0
	}

	lo := max(target-MinChunkSize/4, 1)
	hi := min(target+MinChunkSize/4, len(s))

	for i := target; i < hi; i++ {
		if s[i] == '\n' {
			return i + 1
		}
	}
	for i := target - 1; i >= lo; i-- {
		if s[i] == '\n' {
			return i + 1
		}
	}

	pos := target
	for pos < len(s) && !isUTF8Start(s[pos]) {
		pos++
	}
	if pos >= len(s) {
		pos = target
		for pos > 0 && !isUTF8Start(s[pos]) {
			pos--
		}
	}
	return pos
}

// isUTF8Start reports whether b begins a UTF-8 sequence (is not 10xxxxxx).
func isUTF8Start(b byte) bool {
	return b&0xC0 != 0x80
}
