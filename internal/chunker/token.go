package chunker

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates a token count as the larger of a word-based
// estimate (4 tokens per 3 words) and a character-based one (4 bytes' worth
// of runes per token). The second keeps long unspaced runs, such as tag
// lists or CJK text, from counting as a single word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	byWords := len(strings.Fields(text)) * 4 / 3
	byRunes := utf8.RuneCountInString(text) / 4
	return max(byWords, byRunes, 1)
}
