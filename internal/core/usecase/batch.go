package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
	"github.com/kirillkom/docsim/internal/core/similarity"
)

// BatchResult summarizes one local batch run.
type BatchResult struct {
	Stats   domain.RunStats
	Empty   int
	Skipped int
}

// BatchUseCase runs both stages in-process over every object in a storage backend.
type BatchUseCase struct {
	storage    ports.ObjectStorage
	extractor  ports.TextExtractor
	normalizer ports.WordNormalizer
	aggregator *similarity.Aggregator
	report     ports.ReportWriter
	workers    int
}

func NewBatchUseCase(
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	normalizer ports.WordNormalizer,
	aggregator *similarity.Aggregator,
	report ports.ReportWriter,
	workers int,
) *BatchUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &BatchUseCase{
		storage:    storage,
		extractor:  extractor,
		normalizer: normalizer,
		aggregator: aggregator,
		report:     report,
		workers:    workers,
	}
}

// ExtractRecord reduces one stored object to its record. ok is false for documents
// without any word, which produce no record.
func (uc *BatchUseCase) ExtractRecord(ctx context.Context, key string) (rec domain.WordSetRecord, ok bool, err error) {
	doc, err := uc.extract(ctx, key)
	if err != nil {
		return domain.WordSetRecord{}, false, err
	}
	if doc.Words.Len() == 0 {
		return domain.WordSetRecord{}, false, nil
	}
	return domain.EncodeRecord(uc.aggregator.Strategy().GroupKey(doc), doc), true, nil
}

// Run transforms every object under prefix in parallel, aggregates the resulting
// documents and writes the text report to out. Objects that cannot be read as text
// are skipped. Failed groups contribute no lines and make Run return an error
// after the report of the healthy groups is written.
func (uc *BatchUseCase) Run(ctx context.Context, prefix string, out io.Writer) (BatchResult, error) {
	keys, err := uc.storage.List(ctx, prefix)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list inputs: %w", err)
	}

	extracted := make([]*domain.Document, len(keys))
	skipped := make([]bool, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i, key := range keys {
		g.Go(func() error {
			doc, err := uc.extract(gctx, key)
			if err != nil {
				if domain.IsKind(err, domain.ErrInvalidInput) {
					slog.Warn("batch_input_skipped", "key", key, "error", err)
					skipped[i] = true
					return nil
				}
				return fmt.Errorf("extract %s: %w", key, err)
			}
			extracted[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	docs := make([]domain.Document, 0, len(keys))
	for i, doc := range extracted {
		switch {
		case skipped[i]:
			result.Skipped++
		case doc.Words.Len() == 0:
			result.Empty++
		default:
			docs = append(docs, *doc)
		}
	}
	result.Stats.Documents = len(docs)

	groups, err := uc.aggregator.AggregateAll(ctx, docs)
	if err != nil {
		return result, fmt.Errorf("aggregate: %w", err)
	}

	var records []domain.SimilarityRecord
	var failed error
	result.Stats.Groups = len(groups)
	for _, res := range groups {
		if res.Err != nil {
			result.Stats.FaultedGroups++
			failed = res.Err
			slog.Error("aggregation_group_failed", "group_key", res.Key, "error", res.Err)
			continue
		}
		result.Stats.Compared += res.Compared
		records = append(records, res.Records...)
	}
	result.Stats.Emitted = len(records)

	if err := uc.report.Write(out, records); err != nil {
		return result, fmt.Errorf("write report: %w", err)
	}
	if failed != nil {
		return result, fmt.Errorf("%d of %d groups failed: %w", result.Stats.FaultedGroups, result.Stats.Groups, failed)
	}
	return result, nil
}

func (uc *BatchUseCase) extract(ctx context.Context, key string) (domain.Document, error) {
	src := &domain.SourceDocument{
		ID:          key,
		Filename:    path.Base(key),
		StoragePath: key,
	}
	text, err := uc.extractor.Extract(ctx, src)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{ID: RecordID(key), Words: uc.normalizer.Words(text)}, nil
}
