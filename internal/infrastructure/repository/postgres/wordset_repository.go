package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/docsim/internal/core/domain"
)

// WordSetRepository holds the records handed from the transform stage to the aggregation stage.
type WordSetRepository struct {
	db *sql.DB
}

func NewWordSetRepository(db *sql.DB) *WordSetRepository {
	return &WordSetRepository{db: db}
}

// SaveRecord upserts the record of one source document; reprocessing replaces it.
func (r *WordSetRepository) SaveRecord(ctx context.Context, sourceID string, rec domain.WordSetRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO word_sets (source_id, group_key, payload, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (source_id) DO UPDATE SET group_key = EXCLUDED.group_key, payload = EXCLUDED.payload
`, sourceID, rec.GroupKey, rec.Value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert word set: %w", err)
	}
	return nil
}

func (r *WordSetRepository) ForEachRecord(ctx context.Context, fn func(domain.WordSetRecord) error) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT group_key, payload
FROM word_sets
ORDER BY created_at, source_id
`)
	if err != nil {
		return fmt.Errorf("query word sets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.WordSetRecord
		if err := rows.Scan(&rec.GroupKey, &rec.Value); err != nil {
			return fmt.Errorf("scan word set: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate word sets: %w", err)
	}
	return nil
}
