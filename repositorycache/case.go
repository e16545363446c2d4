package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake lowers a type name into a key safe namespace segment. Words break
// at case changes and digit runs; any rune that is neither a letter nor a
// digit separates words and is dropped, so reflected names such as
// "Box[pkg.T]" never leak punctuation into cache keys.
func toSnake(s string) string {
	runes := []rune(s)

	var (
		words []string
		word  []rune
	)
	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 && wordStart(runes, i) {
			flush()
		}
		word = append(word, r)
	}
	flush()

	return strings.Join(words, "_")
}

// wordStart reports whether runes[i] opens a new word. i must be > 0.
func wordStart(runes []rune, i int) bool {
	prev, r := runes[i-1], runes[i]
	switch {
	case unicode.IsDigit(r) != unicode.IsDigit(prev):
		return true
	case unicode.IsUpper(r) && unicode.IsLower(prev):
		return true
	case unicode.IsUpper(r) && unicode.IsUpper(prev):
		// last capital of an acronym starts the next word: HTTPClient
		return i+1 < len(runes) && unicode.IsLower(runes[i+1])
	}
	return false
}
