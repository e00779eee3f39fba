// Package tokenizer estimates prompt sizes for logging.
package tokenizer

import "unicode/utf8"

// charsPerToken is the usual ratio for Gemini models on English text.
const charsPerToken = 4

// Estimate returns a rough token count for text. Non-empty text counts as
// at least one token.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max((n+charsPerToken-1)/charsPerToken, 1)
}
