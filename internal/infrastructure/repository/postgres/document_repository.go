package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/docsim/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.SourceDocument) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, mime_type, storage_path, word_count, group_key, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, doc.WordCount, doc.GroupKey,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.SourceDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, word_count, group_key, status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return expectOneRow(result, domain.ErrDocumentNotFound, "update document status", id)
}

func (r *DocumentRepository) SaveWordStats(ctx context.Context, id string, wordCount int, groupKey string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET word_count = $2, group_key = $3, updated_at = $4
WHERE id = $1
`, id, wordCount, groupKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save word stats: %w", err)
	}
	return expectOneRow(result, domain.ErrDocumentNotFound, "save word stats", id)
}

func scanDocument(row rowScanner) (domain.SourceDocument, error) {
	var doc domain.SourceDocument
	var status string
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.MimeType,
		&doc.StoragePath,
		&doc.WordCount,
		&doc.GroupKey,
		&status,
		&doc.Error,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return domain.SourceDocument{}, err
	}
	doc.Status = domain.DocumentStatus(status)
	return doc, nil
}
