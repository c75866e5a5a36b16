package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
	"github.com/kirillkom/docsim/internal/core/similarity"
)

// TransformDocumentUseCase reduces one uploaded document to the word-set record
// consumed by the aggregation stage.
type TransformDocumentUseCase struct {
	repo       ports.DocumentRepository
	records    ports.WordSetRepository
	extractor  ports.TextExtractor
	normalizer ports.WordNormalizer
	grouping   similarity.GroupingStrategy
}

func NewTransformDocumentUseCase(
	repo ports.DocumentRepository,
	records ports.WordSetRepository,
	extractor ports.TextExtractor,
	normalizer ports.WordNormalizer,
	grouping similarity.GroupingStrategy,
) *TransformDocumentUseCase {
	if grouping == nil {
		grouping = similarity.ConstantGroup{}
	}
	return &TransformDocumentUseCase{
		repo:       repo,
		records:    records,
		extractor:  extractor,
		normalizer: normalizer,
		grouping:   grouping,
	}
}

func (uc *TransformDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	_, err := uc.Transform(ctx, documentID)
	return err
}

// Transform runs the stage and reports the terminal status it stored.
func (uc *TransformDocumentUseCase) Transform(ctx context.Context, documentID string) (domain.DocumentStatus, error) {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return "", fmt.Errorf("set status=processing: %w", err)
	}

	status, err := uc.transform(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return domain.StatusFailed, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return domain.StatusFailed, err
	}

	if err := uc.markStatus(ctx, documentID, status, ""); err != nil {
		return status, fmt.Errorf("set status=%s: %w", status, err)
	}
	return status, nil
}

func (uc *TransformDocumentUseCase) transform(ctx context.Context, documentID string) (domain.DocumentStatus, error) {
	src, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, src)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	doc := domain.Document{ID: RecordID(src.Filename), Words: uc.normalizer.Words(text)}
	if doc.Words.Len() == 0 {
		if err := uc.repo.SaveWordStats(ctx, documentID, 0, ""); err != nil {
			return "", fmt.Errorf("save word stats: %w", err)
		}
		slog.Info("transform_document_empty", "document_id", documentID, "filename", src.Filename)
		return domain.StatusEmpty, nil
	}

	groupKey := uc.grouping.GroupKey(doc)
	if err := uc.records.SaveRecord(ctx, documentID, domain.EncodeRecord(groupKey, doc)); err != nil {
		return "", fmt.Errorf("save word set record: %w", err)
	}
	if err := uc.repo.SaveWordStats(ctx, documentID, doc.Words.Len(), groupKey); err != nil {
		return "", fmt.Errorf("save word stats: %w", err)
	}
	return domain.StatusReady, nil
}

func (uc *TransformDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *TransformDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(context.WithoutCancel(ctx), documentID, domain.StatusFailed, processErr.Error())
}

// RecordID turns a source filename into the document id carried by its record.
// Tabs and line breaks would split the record value, so they become underscores.
func RecordID(filename string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return '_'
		default:
			return r
		}
	}, filename)
}
