package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeBrand canonicalizes a brand name: "  NEW  balance " becomes "New Balance".
func NormalizeBrand(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
