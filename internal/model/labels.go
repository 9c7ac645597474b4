package model

import (
	"regexp"
	"strings"
)

var labelSeparators = regexp.MustCompile(`[_\-\s]+`)

// LabelFor derives a display name from a field or section id when a template
// omits one: "unit_of_measure" becomes "Unit Of Measure" and "partNumber"
// becomes "Part Number".
func LabelFor(id string) string {
	var words []string
	for _, chunk := range labelSeparators.Split(strings.TrimSpace(id), -1) {
		for _, word := range splitCamelWords(chunk) {
			words = append(words, strings.ToUpper(word[:1])+strings.ToLower(word[1:]))
		}
	}
	return strings.Join(words, " ")
}

func splitCamelWords(chunk string) []string {
	if chunk == "" {
		return nil
	}
	var (
		words []string
		start int
	)
	for idx := 1; idx < len(chunk); idx++ {
		prev, cur := chunk[idx-1], chunk[idx]
		lowerToUpper := prev >= 'a' && prev <= 'z' && cur >= 'A' && cur <= 'Z'
		letterDigit := isASCIILetter(prev) != isASCIILetter(cur) && (isASCIIDigit(prev) || isASCIIDigit(cur))
		if lowerToUpper || letterDigit {
			words = append(words, chunk[start:idx])
			start = idx
		}
	}
	return append(words, chunk[start:])
}

func isASCIILetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isASCIIDigit(b byte) bool  { return b >= '0' && b <= '9' }
