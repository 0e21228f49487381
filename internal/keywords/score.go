package keywords

import (
	"strings"
	"unicode"
)

// Occurrences counts non-overlapping occurrences of keyword in text. Both
// arguments are expected to be lower-cased already.
func Occurrences(text, keyword string) int {
	if keyword == "" {
		return 0
	}
	return strings.Count(text, keyword)
}

// BoundaryMatches counts occurrences of keyword in text that sit on word
// boundaries. Boundaries are computed rune-wise (a neighbor that is neither
// letter nor digit) rather than with regexp \b, which does not work for
// Hebrew script.
func BoundaryMatches(text, keyword string) int {
	if keyword == "" {
		return 0
	}
	count := 0
	for start := 0; ; {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			break
		}
		abs := start + idx
		if boundaryBefore(text, abs) && boundaryAfter(text, abs+len(keyword)) {
			count++
		}
		start = abs + len(keyword)
	}
	return count
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := lastRune(text[:idx])
	return !isWordRune(r)
}

func boundaryAfter(text string, idx int) bool {
	if idx >= len(text) {
		return true
	}
	for _, r := range text[idx:] {
		return !isWordRune(r)
	}
	return true
}

func lastRune(s string) (rune, int) {
	var r rune
	var size int
	for i, c := range s {
		r = c
		size = len(s) - i
	}
	return r, size
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// HasHebrew reports whether the keyword contains Hebrew script. Hebrew
// keyword hits carry extra weight in page scoring: Hebrew terms in a
// bilingual tender are far less likely to be incidental.
func HasHebrew(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) {
			return true
		}
	}
	return false
}
