package extraction

import (
	"fmt"
	"time"
)

// AnalysisID identifier type, assigned by the store.
type AnalysisID int64

// Analysis is one submitted text. Immutable once created.
type Analysis struct {
	ID        AnalysisID `json:"id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Mentions  []Mention  `json:"mentions,omitempty"`
}

// Mention hasil hitung 1 brand di text analysis
type Mention struct {
	ID         int64      `json:"id,omitempty"`
	AnalysisID AnalysisID `json:"analysisId"`
	Brand      string     `json:"brand"`
	Count      int        `json:"count"`
}

// Validate enforces the mention invariants before anything is persisted.
func (m Mention) Validate() error {
	if m.Brand == "" {
		return fmt.Errorf("mention brand must not be empty")
	}
	if m.Count <= 0 {
		return fmt.Errorf("mention %q count must be positive, got %d", m.Brand, m.Count)
	}
	return nil
}

// BrandCount is the wire form of a mention.
type BrandCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Result is returned after a successful extraction.
type Result struct {
	ID     AnalysisID   `json:"id"`
	Brands []BrandCount `json:"brands"`
}

// Phase names the step of an extraction that failed.
type Phase string

const (
	PhaseModel   Phase = "model"
	PhaseParse   Phase = "parse"
	PhasePersist Phase = "persist"
)

// Failure is a persisted record of an extraction that failed after its analysis existed.
type Failure struct {
	ID         int64      `json:"id"`
	AnalysisID AnalysisID `json:"analysisId"`
	Phase      Phase      `json:"phase"`
	Kind       Kind       `json:"kind"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"createdAt"`
}
