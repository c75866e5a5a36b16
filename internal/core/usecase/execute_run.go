package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
	"github.com/kirillkom/docsim/internal/core/similarity"
)

// RunObserver receives aggregation counters as a run progresses.
type RunObserver interface {
	ObserveMalformedRecord()
	ObserveGroup(documents int, compared int64, emitted int)
	ObserveFaultedGroup()
}

type noopObserver struct{}

func (noopObserver) ObserveMalformedRecord() {}

func (noopObserver) ObserveGroup(int, int64, int) {}

func (noopObserver) ObserveFaultedGroup() {}

type ExecuteRunConfig struct {
	Grouping          similarity.GroupingStrategy
	Workers           int
	MaxGroupDocuments int
	MaxGroupWords     int
}

// ExecuteRunUseCase is the aggregation stage: it groups every stored record,
// compares all pairs per group and persists what crosses the run threshold.
type ExecuteRunUseCase struct {
	runs     ports.RunRepository
	records  ports.WordSetRepository
	storage  ports.ObjectStorage
	report   ports.ReportWriter
	graph    ports.SimilarityGraph
	observer RunObserver
	cfg      ExecuteRunConfig
}

// NewExecuteRunUseCase wires the stage. graph and observer are optional.
func NewExecuteRunUseCase(
	runs ports.RunRepository,
	records ports.WordSetRepository,
	storage ports.ObjectStorage,
	report ports.ReportWriter,
	graph ports.SimilarityGraph,
	observer RunObserver,
	cfg ExecuteRunConfig,
) *ExecuteRunUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.Grouping == nil {
		cfg.Grouping = similarity.ConstantGroup{}
	}
	return &ExecuteRunUseCase{
		runs:     runs,
		records:  records,
		storage:  storage,
		report:   report,
		graph:    graph,
		observer: observer,
		cfg:      cfg,
	}
}

func (uc *ExecuteRunUseCase) ExecuteByID(ctx context.Context, runID string) error {
	_, err := uc.Execute(ctx, runID)
	return err
}

// Execute runs the stage and returns the run as finally stored.
// Redelivered requests for a finished run are a no-op.
func (uc *ExecuteRunUseCase) Execute(ctx context.Context, runID string) (*domain.SimilarityRun, error) {
	run, err := uc.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetch similarity run: %w", err)
	}
	if isTerminal(run.Status) {
		slog.Info("similarity_run_already_finished", "run_id", run.ID, "status", run.Status)
		return run, nil
	}

	if err := uc.runs.UpdateRunStatus(ctx, run.ID, domain.RunRunning, ""); err != nil {
		return nil, fmt.Errorf("set run status=running: %w", err)
	}
	run.Status = domain.RunRunning

	started := time.Now()
	runErr := uc.execute(ctx, run)
	if runErr != nil {
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	}

	if err := uc.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		if runErr != nil {
			return run, fmt.Errorf("%w; finish run: %v", runErr, err)
		}
		return run, fmt.Errorf("finish similarity run: %w", err)
	}

	slog.Info(
		"similarity_run_finished",
		"run_id", run.ID,
		"status", run.Status,
		"documents", run.Stats.Documents,
		"groups", run.Stats.Groups,
		"faulted_groups", run.Stats.FaultedGroups,
		"malformed", run.Stats.Malformed,
		"compared", run.Stats.Compared,
		"emitted", run.Stats.Emitted,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return run, runErr
}

func (uc *ExecuteRunUseCase) execute(ctx context.Context, run *domain.SimilarityRun) error {
	agg, err := similarity.NewAggregator(similarity.Config{
		Threshold:         run.Threshold,
		Grouping:          uc.cfg.Grouping,
		Workers:           uc.cfg.Workers,
		MaxGroupDocuments: uc.cfg.MaxGroupDocuments,
		MaxGroupWords:     uc.cfg.MaxGroupWords,
	})
	if err != nil {
		return err
	}

	buf, err := uc.collect(ctx, agg, &run.Stats)
	if err != nil {
		return err
	}

	groups := buf.Groups()
	faults := buf.Faults()
	run.Stats.Groups = len(groups) + len(faults)
	for _, fault := range faults {
		run.Stats.FaultedGroups++
		uc.observer.ObserveFaultedGroup()
		slog.Error("aggregation_group_faulted", "run_id", run.ID, "group_key", fault.Key, "error", fault.Err)
	}

	results, err := agg.AggregateGroups(ctx, groups)
	if err != nil {
		return fmt.Errorf("aggregate groups: %w", err)
	}

	var emitted []domain.SimilarityRecord
	for _, res := range results {
		if res.Err == nil {
			res.Err = uc.runs.SaveGroupResults(ctx, run.ID, res.Records)
		}
		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			run.Stats.FaultedGroups++
			uc.observer.ObserveFaultedGroup()
			slog.Error("aggregation_group_failed", "run_id", run.ID, "group_key", res.Key, "error", res.Err)
			continue
		}
		run.Stats.Compared += res.Compared
		run.Stats.Emitted += len(res.Records)
		uc.observer.ObserveGroup(res.Documents, res.Compared, len(res.Records))
		emitted = append(emitted, res.Records...)
	}

	var sinkErrs []error
	if err := uc.writeReport(ctx, run, emitted); err != nil {
		sinkErrs = append(sinkErrs, err)
	}
	if uc.graph != nil && len(emitted) > 0 {
		if err := uc.graph.WriteSimilarities(ctx, run.ID, emitted); err != nil {
			sinkErrs = append(sinkErrs, fmt.Errorf("write similarity graph: %w", err))
		}
	}

	run.Status = domain.RunCompleted
	if run.Stats.FaultedGroups > 0 || len(sinkErrs) > 0 {
		run.Status = domain.RunCompletedWithErrors
	}
	if len(sinkErrs) > 0 {
		run.Error = errors.Join(sinkErrs...).Error()
	} else if run.Stats.FaultedGroups > 0 {
		run.Error = fmt.Sprintf("%d of %d groups failed", run.Stats.FaultedGroups, run.Stats.Groups)
	}
	return nil
}

// collect streams stored records into a bounded group buffer. Malformed records are
// skipped and counted. A record without a group key is routed by the configured strategy.
func (uc *ExecuteRunUseCase) collect(ctx context.Context, agg *similarity.Aggregator, stats *domain.RunStats) (*similarity.GroupBuffer, error) {
	buf := agg.NewBuffer()
	err := uc.records.ForEachRecord(ctx, func(rec domain.WordSetRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := domain.DecodeRecord(rec)
		if err != nil {
			stats.Malformed++
			uc.observer.ObserveMalformedRecord()
			slog.Warn("malformed_record", "group_key", rec.GroupKey, "error", err)
			return nil
		}
		stats.Documents++

		key := rec.GroupKey
		if key == "" {
			key = agg.Strategy().GroupKey(doc)
		}
		// Overflow faults the group inside the buffer and is reported after the scan.
		_ = buf.Add(key, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan word set records: %w", err)
	}
	return buf, nil
}

func (uc *ExecuteRunUseCase) writeReport(ctx context.Context, run *domain.SimilarityRun, records []domain.SimilarityRecord) error {
	var out bytes.Buffer
	if err := uc.report.Write(&out, records); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	path := domain.ReportPath(run.ID)
	if err := uc.storage.Save(ctx, path, bytes.NewReader(out.Bytes())); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	run.ReportPath = path
	return nil
}

func isTerminal(status domain.RunStatus) bool {
	switch status {
	case domain.RunCompleted, domain.RunCompletedWithErrors, domain.RunFailed:
		return true
	default:
		return false
	}
}
