package extraction

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/brandcount/internal/application"
	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
	"github.com/bryanwahyu/brandcount/internal/infra/ai/prompt"
)

// Recorder receives extraction outcomes. middleware.Metrics implements it.
type Recorder interface {
	ObserveExtraction(outcome string, d time.Duration)
	ObserveMentions(n int)
}

// Service implements use-cases untuk extraction
// Archive, Cache dan Metrics opsional (boleh nil)
type Service struct {
	Repo     domain.Repository
	Failures domain.FailureRepository
	Model    domain.ModelClient
	Archive  domain.RawArchive
	Cache    domain.ResultsCache
	Metrics  Recorder
	Clock    application.Clock
	Logger   *zap.Logger
}

// Extract runs text through the model and stores the detected brands.
// The analysis row exists before the model is called; mentions are added only
// after the output parsed cleanly.
func (s *Service) Extract(ctx context.Context, text string) (res domain.Result, err error) {
	start := s.now()
	defer func() { s.observe(start, err) }()

	if strings.TrimSpace(text) == "" {
		return domain.Result{}, &domain.Error{Kind: domain.KindInvalidInput, Op: "extract", Err: domain.ErrEmptyText}
	}
	p, err := prompt.BuildBrandPrompt(text)
	if err != nil {
		return domain.Result{}, err
	}

	a := &domain.Analysis{Text: text, CreatedAt: start}
	if err := s.Repo.CreateAnalysis(ctx, a); err != nil {
		s.logger().Error("create analysis failed", zap.Error(err))
		return domain.Result{}, domain.E(domain.KindStorage, "create analysis", err)
	}
	// the row is listed from now on, whatever the model call does
	s.invalidate(ctx)
	log := s.logger().With(zap.Int64("analysis_id", int64(a.ID)))

	raw, err := s.Model.Generate(ctx, p)
	if err != nil {
		return domain.Result{}, s.fail(ctx, log, a.ID, domain.PhaseModel, domain.E(domain.KindUpstream, "generate", err))
	}
	s.archive(ctx, log, a.ID, raw)

	brands, err := domain.ParseBrandCounts(raw)
	if err != nil {
		log.Debug("unparseable model output", zap.String("raw", raw))
		return domain.Result{}, s.fail(ctx, log, a.ID, domain.PhaseParse, err)
	}

	mentions := make([]domain.Mention, 0, len(brands))
	for _, b := range brands {
		m := domain.Mention{AnalysisID: a.ID, Brand: b.Name, Count: b.Count}
		if err := m.Validate(); err != nil {
			return domain.Result{}, s.fail(ctx, log, a.ID, domain.PhaseParse, domain.E(domain.KindShape, "validate mention", err))
		}
		mentions = append(mentions, m)
	}
	if err := s.Repo.AddMentions(ctx, a.ID, mentions); err != nil {
		return domain.Result{}, s.fail(ctx, log, a.ID, domain.PhasePersist, domain.E(domain.KindStorage, "add mentions", err))
	}

	s.invalidate(ctx)
	if s.Metrics != nil {
		s.Metrics.ObserveMentions(len(mentions))
	}
	if len(brands) == 0 {
		log.Info("no brands detected")
		brands = []domain.BrandCount{}
	} else {
		log.Info("brands extracted", zap.Int("brands", len(brands)))
	}
	return domain.Result{ID: a.ID, Brands: brands}, nil
}

// List ambil semua analysis, terbaru dulu; pakai cache kalau ada
func (s *Service) List(ctx context.Context) (*domain.Results, error) {
	var gen uint64
	if s.Cache != nil {
		r, g, ok := s.Cache.Get(ctx)
		if ok {
			return r, nil
		}
		gen = g
	}
	analyses, err := s.Repo.ListAnalyses(ctx)
	if err != nil {
		s.logger().Error("list analyses failed", zap.Error(err))
		return nil, domain.E(domain.KindStorage, "list analyses", err)
	}
	res := domain.Summarize(analyses)
	if s.Cache != nil {
		// dropped by the cache when an extraction committed since Get
		s.Cache.Set(ctx, gen, res)
	}
	return res, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
}

// fail log error + simpan ke failure repo, error dibalikin apa adanya
func (s *Service) fail(ctx context.Context, log *zap.Logger, id domain.AnalysisID, phase domain.Phase, err error) error {
	kind := domain.KindOf(err)
	log.Error("extraction failed",
		zap.String("phase", string(phase)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	if s.Failures == nil {
		return err
	}
	f := &domain.Failure{
		AnalysisID: id,
		Phase:      phase,
		Kind:       kind,
		Message:    domain.Message(err),
		CreatedAt:  s.now(),
	}
	// context request bisa sudah canceled kalau model timeout
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := s.Failures.RecordFailure(recCtx, f); rerr != nil {
		log.Warn("record failure", zap.Error(rerr))
	}
	return err
}

func (s *Service) archive(ctx context.Context, log *zap.Logger, id domain.AnalysisID, raw string) {
	if s.Archive == nil {
		return
	}
	url, err := s.Archive.PutRawOutput(ctx, id, raw)
	if err != nil {
		log.Warn("archive raw output", zap.Error(err))
		return
	}
	log.Debug("raw output archived", zap.String("url", url))
}

func (s *Service) observe(start time.Time, err error) {
	if s.Metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	s.Metrics.ObserveExtraction(outcome, s.now().Sub(start))
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
