package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/docsim/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.SimilarityRun) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO similarity_runs (id, threshold, strategy, status, error_message, stats, report_path, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, run.ID, run.Threshold, run.Strategy, string(run.Status), run.Error, statsJSON, run.ReportPath, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert similarity run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.SimilarityRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, threshold, strategy, status, error_message, stats, report_path, created_at, updated_at
FROM similarity_runs
WHERE id = $1
`, id)

	var run domain.SimilarityRun
	var status string
	var statsRaw []byte
	err := row.Scan(
		&run.ID,
		&run.Threshold,
		&run.Strategy,
		&status,
		&run.Error,
		&statsRaw,
		&run.ReportPath,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get similarity run", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan similarity run: %w", err)
	}
	if err := json.Unmarshal(statsRaw, &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal run stats: %w", err)
	}
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func (r *RunRepository) UpdateRunStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE similarity_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return expectOneRow(result, domain.ErrRunNotFound, "update run status", id)
}

// FinishRun stores the terminal status together with the run counters and report location.
func (r *RunRepository) FinishRun(ctx context.Context, run *domain.SimilarityRun) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE similarity_runs
SET status = $2, error_message = $3, stats = $4, report_path = $5, updated_at = $6
WHERE id = $1
`, run.ID, string(run.Status), run.Error, statsJSON, run.ReportPath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish similarity run: %w", err)
	}
	return expectOneRow(result, domain.ErrRunNotFound, "finish similarity run", run.ID)
}

func (r *RunRepository) SaveGroupResults(ctx context.Context, runID string, records []domain.SimilarityRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin results tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO similarity_results (run_id, group_key, document_a, document_b, score)
VALUES ($1,$2,$3,$4,$5)
`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, runID, rec.GroupKey, rec.DocumentA, rec.DocumentB, rec.Score); err != nil {
			return fmt.Errorf("insert similarity result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results tx: %w", err)
	}
	return nil
}

func (r *RunRepository) ListResults(ctx context.Context, runID string, minScore float64) ([]domain.SimilarityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT group_key, document_a, document_b, score
FROM similarity_results
WHERE run_id = $1 AND score >= $2
ORDER BY score DESC, document_a, document_b
`, runID, minScore)
	if err != nil {
		return nil, fmt.Errorf("list similarity results: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SimilarityRecord, 0)
	for rows.Next() {
		var rec domain.SimilarityRecord
		if err := rows.Scan(&rec.GroupKey, &rec.DocumentA, &rec.DocumentB, &rec.Score); err != nil {
			return nil, fmt.Errorf("scan similarity result: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similarity results: %w", err)
	}
	return out, nil
}
