package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docsim/internal/core/domain"
)

// DocumentIngestor is the inbound contract for source document uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.SourceDocument, error)
}

// DocumentReader is the inbound read model for source document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.SourceDocument, error)
}

// DocumentTransformer reduces one uploaded document to its word-set record.
type DocumentTransformer interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// RunScheduler queues similarity runs and exposes their state and results.
type RunScheduler interface {
	RequestRun(ctx context.Context, threshold *float64) (*domain.SimilarityRun, error)
	GetRun(ctx context.Context, runID string) (*domain.SimilarityRun, error)
	ListResults(ctx context.Context, runID string, minScore float64) ([]domain.SimilarityRecord, error)
}

// RunExecutor executes a queued similarity run.
type RunExecutor interface {
	ExecuteByID(ctx context.Context, runID string) error
}
