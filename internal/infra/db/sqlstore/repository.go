package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

// Repository implements the analysis and failure ports on database/sql.
type Repository struct {
	db     *sql.DB
	d      Dialect
	logger *zap.Logger
}

func NewRepository(db *sql.DB, d Dialect, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, d: d, logger: logger.Named("sqlstore").With(zap.String("dialect", d.Name))}
}

// CreateAnalysis inserts a and assigns its ID.
func (r *Repository) CreateAnalysis(ctx context.Context, a *domain.Analysis) error {
	const q = `INSERT INTO analyses (input_text, created_at) VALUES (?, ?)`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()

	id, err := r.insertID(ctx, q, a.Text, createdAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	a.ID = domain.AnalysisID(id)
	a.CreatedAt = createdAt
	return nil
}

const insertMention = `INSERT INTO mentions (analysis_id, brand, normalized, mention_count) VALUES (?, ?, ?, ?)`

// AddMention appends a single mention.
func (r *Repository) AddMention(ctx context.Context, m domain.Mention) error {
	_, err := r.db.ExecContext(ctx, r.d.rebind(insertMention), int64(m.AnalysisID), m.Brand, m.Brand, m.Count)
	if err != nil {
		return fmt.Errorf("insert mention %q: %w", m.Brand, err)
	}
	return nil
}

// AddMentions insert semua mention 1 analysis dalam 1 transaksi
func (r *Repository) AddMentions(ctx context.Context, id domain.AnalysisID, mentions []domain.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mentions tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("rollback mentions tx", zap.Int64("analysis_id", int64(id)), zap.Error(err))
		}
	}()

	stmt, err := tx.PrepareContext(ctx, r.d.rebind(insertMention))
	if err != nil {
		return fmt.Errorf("prepare mention insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mentions {
		if _, err := stmt.ExecContext(ctx, int64(id), m.Brand, m.Brand, m.Count); err != nil {
			return fmt.Errorf("insert mention %q: %w", m.Brand, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mentions tx: %w", err)
	}
	return nil
}

// ListAnalyses returns all analyses ordered by id desc with their mentions attached.
func (r *Repository) ListAnalyses(ctx context.Context) ([]*domain.Analysis, error) {
	const qa = `
SELECT id, input_text, created_at
FROM analyses
ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, qa)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	var out []*domain.Analysis
	byID := make(map[domain.AnalysisID]*domain.Analysis)
	for rows.Next() {
		var a domain.Analysis
		var created time.Time
		if err := rows.Scan(&a.ID, &a.Text, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.CreatedAt = created.UTC()
		out = append(out, &a)
		byID[a.ID] = &a
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	const qm = `
SELECT id, analysis_id, brand, mention_count
FROM mentions
ORDER BY analysis_id DESC, id ASC`
	mrows, err := r.db.QueryContext(ctx, qm)
	if err != nil {
		return nil, fmt.Errorf("query mentions: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m domain.Mention
		if err := mrows.Scan(&m.ID, &m.AnalysisID, &m.Brand, &m.Count); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		if a, ok := byID[m.AnalysisID]; ok {
			a.Mentions = append(a.Mentions, m)
		}
	}
	return out, mrows.Err()
}

// RecordFailure stores one failed extraction.
func (r *Repository) RecordFailure(ctx context.Context, f *domain.Failure) error {
	const q = `INSERT INTO extraction_failures (analysis_id, phase, kind, message, created_at) VALUES (?, ?, ?, ?, ?)`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	msg := f.Message
	if msg == "" {
		msg = "-"
	}
	id, err := r.insertID(ctx, q, int64(f.AnalysisID), string(f.Phase), string(f.Kind), msg, created.UTC())
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	f.ID = id
	return nil
}

// ListFailures ambil N failure terakhir dari 1 analysis
func (r *Repository) ListFailures(ctx context.Context, id domain.AnalysisID, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, analysis_id, phase, kind, message, created_at
FROM extraction_failures
WHERE analysis_id = ?
ORDER BY id DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(q), int64(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Failure
	for rows.Next() {
		var f domain.Failure
		var created time.Time
		if err := rows.Scan(&f.ID, &f.AnalysisID, &f.Phase, &f.Kind, &f.Message, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = created.UTC()
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *Repository) insertID(ctx context.Context, q string, args ...any) (int64, error) {
	if r.d.returning {
		var id int64
		err := r.db.QueryRowContext(ctx, r.d.rebind(q+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := r.db.ExecContext(ctx, r.d.rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
