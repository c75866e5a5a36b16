package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docsim/internal/core/domain"
)

// DocumentRepository persists source document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.SourceDocument) error
	GetByID(ctx context.Context, id string) (*domain.SourceDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveWordStats(ctx context.Context, id string, wordCount int, groupKey string) error
}

// WordSetRepository stores the records passed from the transform to the aggregation stage.
type WordSetRepository interface {
	SaveRecord(ctx context.Context, sourceID string, rec domain.WordSetRecord) error
	// ForEachRecord streams every stored record. Returning an error from fn stops the scan.
	ForEachRecord(ctx context.Context, fn func(domain.WordSetRecord) error) error
}

// RunRepository persists similarity runs and their emitted pairs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.SimilarityRun) error
	GetRun(ctx context.Context, id string) (*domain.SimilarityRun, error)
	UpdateRunStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	FinishRun(ctx context.Context, run *domain.SimilarityRun) error
	// SaveGroupResults stores one group's records atomically.
	SaveGroupResults(ctx context.Context, runID string, records []domain.SimilarityRecord) error
	ListResults(ctx context.Context, runID string, minScore float64) ([]domain.SimilarityRecord, error)
}

// ObjectStorage stores source documents and reports.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// MessageQueue publishes/consumes pipeline events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishRunRequested(ctx context.Context, runID string) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.SourceDocument) (string, error)
}

// WordNormalizer reduces text to its normalized word set.
type WordNormalizer interface {
	Words(text string) domain.WordSet
}

// ReportWriter renders emitted pairs as a text report.
type ReportWriter interface {
	Write(w io.Writer, records []domain.SimilarityRecord) error
}

// SimilarityGraph receives emitted pairs as graph edges.
type SimilarityGraph interface {
	WriteSimilarities(ctx context.Context, runID string, records []domain.SimilarityRecord) error
}
