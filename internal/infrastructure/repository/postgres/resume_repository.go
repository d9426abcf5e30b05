package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResumeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS resumes (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	raw_text TEXT NOT NULL DEFAULT '',
	chunk_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	summary TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resumes_status ON resumes(status);
CREATE INDEX IF NOT EXISTS idx_resumes_submitted_at ON resumes(submitted_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ResumeRepository) Create(ctx context.Context, resume *domain.Resume) error {
	chunkIDsJSON, err := json.Marshal(chunkIDsOrEmpty(resume.ChunkIDs))
	if err != nil {
		return fmt.Errorf("marshal chunk ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO resumes (
	id, filename, raw_text, chunk_ids, summary, status, error_message, submitted_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		resume.ID, resume.Filename, resume.RawText, chunkIDsJSON, resume.Summary,
		string(resume.Status), resume.Error, resume.SubmittedAt, resume.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

func (r *ResumeRepository) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, raw_text, chunk_ids, summary, status, error_message, submitted_at, updated_at
FROM resumes
WHERE id = $1
`, id)

	resume, err := scanResume(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResumeNotFound, "get resume", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan resume: %w", err)
	}
	return resume, nil
}

func (r *ResumeRepository) SetChunkIDs(ctx context.Context, id string, chunkIDs []string) error {
	chunkIDsJSON, err := json.Marshal(chunkIDsOrEmpty(chunkIDs))
	if err != nil {
		return fmt.Errorf("marshal chunk ids: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET chunk_ids = $2, updated_at = $3
WHERE id = $1
`, id, chunkIDsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set chunk ids: %w", err)
	}
	return r.requireRow(ctx, res, id, "set chunk ids")
}

// CompleteWithSummary is the only transition into complete. The status guard
// keeps complete records immutable so the lifecycle never moves backwards.
func (r *ResumeRepository) CompleteWithSummary(ctx context.Context, id string, summary string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET summary = $2, status = $3, error_message = '', updated_at = $4
WHERE id = $1 AND status <> $3
`, id, summary, string(domain.StatusComplete), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete resume: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete resume rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if existing.Status == domain.StatusComplete {
			return nil
		}
		return domain.WrapError(domain.ErrResumeNotFound, "complete resume", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *ResumeRepository) UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status <> $5
`, id, string(status), errMessage, time.Now().UTC(), string(domain.StatusComplete))
	if err != nil {
		return fmt.Errorf("update resume status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if existing.Status == domain.StatusComplete {
			// Complete is terminal; silently ignore late transitions.
			return nil
		}
		return domain.WrapError(domain.ErrResumeNotFound, "update status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *ResumeRepository) List(ctx context.Context) ([]domain.Resume, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, raw_text, chunk_ids, summary, status, error_message, submitted_at, updated_at
FROM resumes
ORDER BY submitted_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	var out []domain.Resume
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		out = append(out, *resume)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resumes: %w", err)
	}
	return out, nil
}

func (r *ResumeRepository) requireRow(ctx context.Context, res sql.Result, id, operation string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrResumeNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (*domain.Resume, error) {
	var resume domain.Resume
	var chunkIDsRaw []byte
	var status string

	err := row.Scan(
		&resume.ID, &resume.Filename, &resume.RawText, &chunkIDsRaw, &resume.Summary,
		&status, &resume.Error, &resume.SubmittedAt, &resume.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(chunkIDsRaw, &resume.ChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshal chunk ids: %w", err)
	}
	resume.Status = domain.ResumeStatus(status)
	return &resume, nil
}

func chunkIDsOrEmpty(chunkIDs []string) []string {
	if chunkIDs == nil {
		return []string{}
	}
	return chunkIDs
}
