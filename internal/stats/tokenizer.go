package stats

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lower-cased words and keeps the ones that count
// toward page statistics: purely alphabetic, at least two letters, and not a
// stopword. Contractions split at the apostrophe ("don't" -> "don", "t").
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.ToLower(field)
		if !isAlpha(word) || len([]rune(word)) < 2 || IsStopword(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
