package extraction

import "time"

const summaryTextLimit = 150

// Summary is one row of the results listing.
type Summary struct {
	ID          AnalysisID   `json:"id"`
	Text        string       `json:"text"`
	Brands      []BrandCount `json:"brands"`
	TotalBrands int          `json:"totalBrands"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Results is the full listing, newest analysis first.
type Results struct {
	TotalAnalyses int       `json:"totalAnalyses"`
	Results       []Summary `json:"results"`
}

// TruncateText keeps the first 150 characters of text and appends "...".
func TruncateText(text string) string {
	runes := []rune(text)
	if len(runes) > summaryTextLimit {
		runes = runes[:summaryTextLimit]
	}
	return string(runes) + "..."
}

// Summarize renders analyses in the order given.
func Summarize(analyses []*Analysis) *Results {
	out := &Results{
		TotalAnalyses: len(analyses),
		Results:       make([]Summary, 0, len(analyses)),
	}
	for _, a := range analyses {
		brands := make([]BrandCount, 0, len(a.Mentions))
		for _, m := range a.Mentions {
			brands = append(brands, BrandCount{Name: m.Brand, Count: m.Count})
		}
		out.Results = append(out.Results, Summary{
			ID:          a.ID,
			Text:        TruncateText(a.Text),
			Brands:      brands,
			TotalBrands: len(brands),
			CreatedAt:   a.CreatedAt,
		})
	}
	return out
}
