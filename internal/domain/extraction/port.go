package extraction

import "context"

// Repository port (interface untuk persistence analysis + mention)
type Repository interface {
	// CreateAnalysis stores a and fills in its ID.
	CreateAnalysis(ctx context.Context, a *Analysis) error
	AddMention(ctx context.Context, m Mention) error
	// AddMentions stores all mentions of one analysis or none of them.
	AddMentions(ctx context.Context, id AnalysisID, mentions []Mention) error
	// ListAnalyses returns every analysis newest first, mentions in insertion order.
	ListAnalyses(ctx context.Context) ([]*Analysis, error)
}

// FailureRepository records failed extractions.
type FailureRepository interface {
	RecordFailure(ctx context.Context, f *Failure) error
}

// ModelClient port (interface untuk panggil LLM)
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RawArchive keeps the unparsed model output of an analysis.
type RawArchive interface {
	PutRawOutput(ctx context.Context, id AnalysisID, raw string) (string, error)
}

// ResultsCache holds the last rendered results listing.
// Get also returns the current generation, even on a miss. Set stores r only
// while that generation is still current; Invalidate starts a new one.
type ResultsCache interface {
	Get(ctx context.Context) (r *Results, gen uint64, ok bool)
	Set(ctx context.Context, gen uint64, r *Results)
	Invalidate(ctx context.Context)
}
