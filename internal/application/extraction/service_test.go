package extraction

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/bryanwahyu/brandcount/internal/application"
	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
	"github.com/bryanwahyu/brandcount/internal/infra/cache"
	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlite"
	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// cache.Memory janitor, stopped by a finalizer
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

// calls is shared by the fakes so tests can assert ordering across ports.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, s)
}

type fakeRepo struct {
	calls     *calls
	nextID    domain.AnalysisID
	analyses  []*domain.Analysis
	mentions  map[domain.AnalysisID][]domain.Mention
	createErr error
	addErr    error
	listErr   error
	lists     int
	onList    func()
}

func (r *fakeRepo) CreateAnalysis(_ context.Context, a *domain.Analysis) error {
	r.calls.add("create")
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	a.ID = r.nextID
	r.analyses = append(r.analyses, a)
	return nil
}

func (r *fakeRepo) AddMention(_ context.Context, m domain.Mention) error {
	r.calls.add("add")
	r.mentions[m.AnalysisID] = append(r.mentions[m.AnalysisID], m)
	return nil
}

func (r *fakeRepo) AddMentions(_ context.Context, id domain.AnalysisID, ms []domain.Mention) error {
	r.calls.add("add")
	if r.addErr != nil {
		return r.addErr
	}
	r.mentions[id] = append(r.mentions[id], ms...)
	return nil
}

func (r *fakeRepo) ListAnalyses(_ context.Context) ([]*domain.Analysis, error) {
	r.lists++
	if r.onList != nil {
		r.onList()
	}
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.Analysis, 0, len(r.analyses))
	for i := len(r.analyses) - 1; i >= 0; i-- {
		a := *r.analyses[i]
		a.Mentions = r.mentions[a.ID]
		out = append(out, &a)
	}
	return out, nil
}

type fakeFailures struct {
	recorded []*domain.Failure
}

func (f *fakeFailures) RecordFailure(_ context.Context, fl *domain.Failure) error {
	f.recorded = append(f.recorded, fl)
	return nil
}

type fakeModel struct {
	calls   *calls
	out     string
	err     error
	prompts []string
}

func (m *fakeModel) Generate(_ context.Context, p string) (string, error) {
	m.calls.add("model")
	m.prompts = append(m.prompts, p)
	return m.out, m.err
}

type fakeCache struct {
	res         *domain.Results
	gen         uint64
	invalidated int
}

func (c *fakeCache) Get(context.Context) (*domain.Results, uint64, bool) {
	return c.res, c.gen, c.res != nil
}

func (c *fakeCache) Set(_ context.Context, gen uint64, r *domain.Results) {
	if gen == c.gen {
		c.res = r
	}
}

func (c *fakeCache) Invalidate(context.Context) { c.res = nil; c.gen++; c.invalidated++ }

type fakeArchive struct {
	raw map[domain.AnalysisID]string
	err error
}

func (a *fakeArchive) PutRawOutput(_ context.Context, id domain.AnalysisID, raw string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.raw[id] = raw
	return "mem://raw", nil
}

type fakeRecorder struct {
	outcomes []string
	mentions int
}

func (r *fakeRecorder) ObserveExtraction(outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}
func (r *fakeRecorder) ObserveMentions(n int) { r.mentions += n }

type fixture struct {
	svc      *Service
	calls    *calls
	repo     *fakeRepo
	model    *fakeModel
	failures *fakeFailures
	cache    *fakeCache
	archive  *fakeArchive
	metrics  *fakeRecorder
}

func newFixture(t *testing.T, modelOut string) *fixture {
	c := &calls{}
	f := &fixture{
		calls:    c,
		repo:     &fakeRepo{calls: c, mentions: map[domain.AnalysisID][]domain.Mention{}},
		model:    &fakeModel{calls: c, out: modelOut},
		failures: &fakeFailures{},
		cache:    &fakeCache{},
		archive:  &fakeArchive{raw: map[domain.AnalysisID]string{}},
		metrics:  &fakeRecorder{},
	}
	f.svc = &Service{
		Repo:     f.repo,
		Failures: f.failures,
		Model:    f.model,
		Archive:  f.archive,
		Cache:    f.cache,
		Metrics:  f.metrics,
		Clock:    application.FixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger:   zaptest.NewLogger(t),
	}
	return f
}

func TestExtract_StoresBrands(t *testing.T) {
	f := newFixture(t, `Sure! {"nike": 2, "PUMA": 1} done`)

	res, err := f.svc.Extract(context.Background(), "Nike, nike and Puma")
	require.NoError(t, err)

	assert.Equal(t, domain.AnalysisID(1), res.ID)
	assert.Equal(t, []domain.BrandCount{{Name: "Nike", Count: 2}, {Name: "Puma", Count: 1}}, res.Brands)
	assert.Equal(t, []string{"create", "model", "add"}, f.calls.log)
	assert.Len(t, f.repo.mentions[1], 2)
	assert.Contains(t, f.model.prompts[0], `"""Nike, nike and Puma"""`)
	assert.Equal(t, `Sure! {"nike": 2, "PUMA": 1} done`, f.archive.raw[1])
	assert.Equal(t, []string{"success"}, f.metrics.outcomes)
	assert.Equal(t, 2, f.metrics.mentions)
	assert.Empty(t, f.failures.recorded)
}

func TestExtract_NoBrands(t *testing.T) {
	f := newFixture(t, `{"Nike":0,"Puma":"two"}`)

	res, err := f.svc.Extract(context.Background(), "nothing branded here")
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisID(1), res.ID)
	assert.NotNil(t, res.Brands)
	assert.Empty(t, res.Brands)
	assert.Empty(t, f.repo.mentions[1])
}

func TestExtract_EmptyTextNeverCallsModel(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		f := newFixture(t, `{"Nike":1}`)
		_, err := f.svc.Extract(context.Background(), text)
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
		assert.Empty(t, f.calls.log, "no store or model call for %q", text)
		assert.Equal(t, []string{string(domain.KindInvalidInput)}, f.metrics.outcomes)
	}
}

func TestExtract_ModelFailureRecorded(t *testing.T) {
	f := newFixture(t, "")
	f.model.err = &domain.Error{Kind: domain.KindUpstream, Op: "generate", Err: domain.ErrQuotaExceeded}

	_, err := f.svc.Extract(context.Background(), "Nike")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, []string{"create", "model"}, f.calls.log)

	require.Len(t, f.failures.recorded, 1)
	assert.Equal(t, domain.PhaseModel, f.failures.recorded[0].Phase)
	assert.Equal(t, domain.AnalysisID(1), f.failures.recorded[0].AnalysisID)
}

func TestExtract_PlainModelErrorBecomesUpstream(t *testing.T) {
	f := newFixture(t, "")
	f.model.err = errors.New("connection reset")

	_, err := f.svc.Extract(context.Background(), "Nike")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
}

func TestExtract_ParseFailure(t *testing.T) {
	f := newFixture(t, "no json here")

	_, err := f.svc.Extract(context.Background(), "Nike")
	require.Error(t, err)
	assert.Equal(t, domain.KindParse, domain.KindOf(err))
	assert.NotContains(t, f.calls.log, "add")
	require.Len(t, f.failures.recorded, 1)
	assert.Equal(t, domain.PhaseParse, f.failures.recorded[0].Phase)
}

func TestExtract_CreateFailureIsStorageError(t *testing.T) {
	f := newFixture(t, `{"Nike":1}`)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Extract(context.Background(), "Nike")
	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.Equal(t, []string{"create"}, f.calls.log)
	assert.Empty(t, f.failures.recorded)
}

func TestExtract_AddMentionsFailure(t *testing.T) {
	f := newFixture(t, `{"Nike":1}`)
	f.repo.addErr = errors.New("deadlock")

	_, err := f.svc.Extract(context.Background(), "Nike")
	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	require.Len(t, f.failures.recorded, 1)
	assert.Equal(t, domain.PhasePersist, f.failures.recorded[0].Phase)
}

func TestExtract_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, `{"Nike":1}`)
	f.archive.err = errors.New("bucket gone")

	res, err := f.svc.Extract(context.Background(), "Nike")
	require.NoError(t, err)
	assert.Len(t, res.Brands, 1)
}

func TestList_NewestFirstAndCached(t *testing.T) {
	f := newFixture(t, `{"Nike":1}`)
	ctx := context.Background()

	_, err := f.svc.Extract(ctx, "first Nike")
	require.NoError(t, err)
	_, err = f.svc.Extract(ctx, "second Nike")
	require.NoError(t, err)

	res, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalAnalyses)
	assert.Equal(t, domain.AnalysisID(2), res.Results[0].ID)
	assert.Equal(t, "second Nike...", res.Results[0].Text)
	assert.Equal(t, 1, res.Results[0].TotalBrands)

	_, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.lists, "second listing served from cache")

	_, err = f.svc.Extract(ctx, "third Nike")
	require.NoError(t, err)
	res, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalAnalyses)
	assert.Equal(t, 2, f.repo.lists)
}

func TestList_StorageError(t *testing.T) {
	f := newFixture(t, "")
	f.repo.listErr = errors.New("db down")

	_, err := f.svc.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
}

func TestService_OptionalPortsMayBeNil(t *testing.T) {
	c := &calls{}
	svc := &Service{
		Repo:  &fakeRepo{calls: c, mentions: map[domain.AnalysisID][]domain.Mention{}},
		Model: &fakeModel{calls: c, out: `{"Nike":1}`},
	}
	res, err := svc.Extract(context.Background(), "Nike")
	require.NoError(t, err)
	assert.Len(t, res.Brands, 1)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalAnalyses)
}

func TestExtract_InvalidatesCacheBeforeModelCall(t *testing.T) {
	f := newFixture(t, "no json here")
	f.cache.res = &domain.Results{}

	_, err := f.svc.Extract(context.Background(), "Nike")
	require.Error(t, err)
	assert.Nil(t, f.cache.res)
	assert.Equal(t, 1, f.cache.invalidated)
}

func TestList_DoesNotCacheListingReadBeforeInvalidate(t *testing.T) {
	f := newFixture(t, `{"Nike":1}`)
	ctx := context.Background()
	// an extraction commits while ListAnalyses runs
	f.repo.onList = func() { f.cache.Invalidate(ctx) }

	_, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Nil(t, f.cache.res)
}

func TestList_IncludesFailedExtractions(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlite.Connect(ctx, filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, conn, sqlstore.SQLite))

	repo := sqlstore.NewRepository(conn, sqlstore.SQLite, zaptest.NewLogger(t))
	model := &fakeModel{calls: &calls{}, out: `{"Nike":1}`}
	svc := &Service{
		Repo:     repo,
		Failures: repo,
		Model:    model,
		Cache:    cache.NewMemory(30 * time.Second),
		Clock:    application.SystemClock{},
		Logger:   zaptest.NewLogger(t),
	}

	_, err = svc.Extract(ctx, "Nike first")
	require.NoError(t, err)
	res, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalAnalyses)

	model.err = errors.New("upstream timeout")
	_, err = svc.Extract(ctx, "Nike second")
	require.Error(t, err)
	model.err, model.out = nil, "no json here"
	_, err = svc.Extract(ctx, "Nike third")
	require.Error(t, err)

	res, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalAnalyses)
	assert.Equal(t, domain.AnalysisID(3), res.Results[0].ID)
	assert.Zero(t, res.Results[0].TotalBrands)
}
