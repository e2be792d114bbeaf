package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	return joinWords(s, '_', unicode.ToLower)
}

// NaturalName converts a Go identifier to a human readable name.
// Acronyms are kept together (HTTPRequest -> HTTP Request, firstName -> First Name).
func NaturalName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	words := strings.Fields(joinWords(s, ' ', nil))
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// Capitalize upper-cases the first rune of s
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Pluralize returns a naive English plural of a noun
func Pluralize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "y") && len(s) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}

// joinWords splits an identifier at case boundaries, underscores and digits and joins
// the words with sep, applying transform to every rune when it is not nil
func joinWords(s string, sep rune, transform func(rune) rune) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if r == '_' || r == ' ' {
			if result.Len() > 0 && i+1 < len(runes) {
				result.WriteRune(sep)
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			// Add a separator before an uppercase letter if:
			// 1. Previous char is lowercase or a digit
			// 2. Next char is lowercase (for acronyms like HTTPRequest)
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune(sep)
			} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				result.WriteRune(sep)
			}
		}
		if transform != nil {
			r = transform(r)
		}
		result.WriteRune(r)
	}
	return result.String()
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiou", r)
}
