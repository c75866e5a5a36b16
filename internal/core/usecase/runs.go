package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
)

type SimilarityRunUseCase struct {
	runs             ports.RunRepository
	queue            ports.MessageQueue
	defaultThreshold float64
	strategy         string
}

func NewSimilarityRunUseCase(
	runs ports.RunRepository,
	queue ports.MessageQueue,
	defaultThreshold float64,
	strategy string,
) *SimilarityRunUseCase {
	return &SimilarityRunUseCase{
		runs:             runs,
		queue:            queue,
		defaultThreshold: defaultThreshold,
		strategy:         strategy,
	}
}

// RequestRun queues a run over every stored record. A nil threshold takes the configured default.
func (uc *SimilarityRunUseCase) RequestRun(ctx context.Context, threshold *float64) (*domain.SimilarityRun, error) {
	t := uc.defaultThreshold
	if threshold != nil {
		t = *threshold
	}
	if err := domain.ValidateThreshold(t); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run := &domain.SimilarityRun{
		ID:        uuid.NewString(),
		Threshold: t,
		Strategy:  uc.strategy,
		Status:    domain.RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create similarity run: %w", err)
	}

	if err := uc.queue.PublishRunRequested(ctx, run.ID); err != nil {
		if markErr := uc.runs.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, domain.RunFailed, err.Error()); markErr != nil {
			slog.Error("run_mark_failed_error", "run_id", run.ID, "error", markErr)
		}
		return nil, fmt.Errorf("publish run request: %w", err)
	}
	return run, nil
}

func (uc *SimilarityRunUseCase) GetRun(ctx context.Context, runID string) (*domain.SimilarityRun, error) {
	run, err := uc.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetch similarity run: %w", err)
	}
	return run, nil
}

// ListResults returns the pairs of a run scoring at least minScore.
func (uc *SimilarityRunUseCase) ListResults(ctx context.Context, runID string, minScore float64) ([]domain.SimilarityRecord, error) {
	if minScore < 0 || minScore > 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list similarity results", fmt.Errorf("min_score %v outside [0,1]", minScore))
	}
	if _, err := uc.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	records, err := uc.runs.ListResults(ctx, runID, minScore)
	if err != nil {
		return nil, fmt.Errorf("list similarity results: %w", err)
	}
	return records, nil
}
