package prompt

import (
	"strings"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

const brandInstructions = `Extract ALL brand names and company names mentioned in the following text and count how many times each brand appears.

Return the result as a JSON object with brand names as keys and their occurrence counts as values.

Rules:
1. Include ALL well-known brands and companies you can identify
2. Look for brand names in product names, titles, and descriptions
3. Do not include generic product categories (like "shoes", "technology", "foam")
4. Do not include website URLs or domain names
5. Return only the main brand name (e.g., "Nike" not "Nike Air Max")
6. Be case-insensitive but return proper capitalization
7. Count each occurrence of the brand name in the text
8. Be very careful to not miss any brands - scan the entire text thoroughly

Example format:
{
  "Nike": 1,
  "Saucony": 1,
  "Asics": 1,
  "New Balance": 1,
  "Puma": 1
}

Text to analyze:
`

// BuildBrandPrompt wraps text in the brand extraction instructions.
func BuildBrandPrompt(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &domain.Error{Kind: domain.KindInvalidInput, Op: "prompt", Err: domain.ErrEmptyText}
	}
	var b strings.Builder
	b.Grow(len(brandInstructions) + len(text) + 8)
	b.WriteString(brandInstructions)
	b.WriteString(`"""`)
	b.WriteString(quoteSafe(text))
	b.WriteString(`"""`)
	return b.String(), nil
}

// quoteSafe keeps user text from closing the """ block or opening a code fence.
// A quote at either edge would run into the delimiter, so it gets a space.
func quoteSafe(text string) string {
	for strings.Contains(text, "```") {
		text = strings.ReplaceAll(text, "```", "`")
	}
	for strings.Contains(text, `"""`) {
		text = strings.ReplaceAll(text, `"""`, `"" "`)
	}
	if strings.HasPrefix(text, `"`) {
		text = " " + text
	}
	if strings.HasSuffix(text, `"`) {
		text += " "
	}
	return text
}
