package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/similarity"
)

func queuedRun() *domain.SimilarityRun {
	return &domain.SimilarityRun{ID: "run-1", Threshold: 0.5, Status: domain.RunQueued}
}

func referenceRecords() []domain.WordSetRecord {
	return []domain.WordSetRecord{
		{GroupKey: "doc", Value: "doc1\ta,b,c,d"},
		{GroupKey: "doc", Value: "doc2\ta,b,c,e"},
		{GroupKey: "doc", Value: "doc3\tx,y,z"},
	}
}

func TestExecuteRunReferenceCorpus(t *testing.T) {
	runs := &runRepoFake{run: queuedRun()}
	storage := newStorageFake(nil)
	graph := &graphFake{}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: referenceRecords()}, storage, &reportFake{}, graph, nil, ExecuteRunConfig{Workers: 2})

	run, err := uc.Execute(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if run.Status != domain.RunCompleted {
		t.Fatalf("expected completed, got %s (%s)", run.Status, run.Error)
	}
	if len(runs.statuses) != 1 || runs.statuses[0] != domain.RunRunning {
		t.Fatalf("expected running transition, got %+v", runs.statuses)
	}
	if runs.finished == nil || runs.finished.Status != domain.RunCompleted {
		t.Fatalf("expected finished run to be stored, got %+v", runs.finished)
	}
	if run.Stats.Documents != 3 || run.Stats.Groups != 1 || run.Stats.Compared != 3 || run.Stats.Emitted != 1 {
		t.Fatalf("unexpected stats %+v", run.Stats)
	}
	stored := runs.results["doc"]
	if len(stored) != 1 || stored[0].DocumentA != "doc1" || stored[0].DocumentB != "doc2" {
		t.Fatalf("unexpected stored results %+v", stored)
	}
	report := storage.objects["runs/run-1/part-r-00000"]
	if report != "doc1, doc2\tSimilarity: 0.60\n" {
		t.Fatalf("unexpected report %q", report)
	}
	if run.ReportPath != "runs/run-1/part-r-00000" {
		t.Fatalf("unexpected report path %q", run.ReportPath)
	}
	if graph.runID != "run-1" || len(graph.records) != 1 {
		t.Fatalf("expected graph write, got %+v", graph)
	}
}

func TestExecuteRunSkipsMalformedRecords(t *testing.T) {
	stream := append(referenceRecords(),
		domain.WordSetRecord{GroupKey: "doc", Value: "no separator here"},
		domain.WordSetRecord{GroupKey: "doc", Value: "\ta,b"},
	)
	runs := &runRepoFake{run: queuedRun()}
	observer := &observerFake{}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: stream}, newStorageFake(nil), &reportFake{}, nil, observer, ExecuteRunConfig{})

	run, err := uc.Execute(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if run.Status != domain.RunCompleted {
		t.Fatalf("malformed records must not fail the run, got %s", run.Status)
	}
	if run.Stats.Malformed != 2 || observer.malformed != 2 {
		t.Fatalf("expected 2 malformed records, got stats=%d observer=%d", run.Stats.Malformed, observer.malformed)
	}
	if run.Stats.Emitted != 1 {
		t.Fatalf("expected 1 emitted pair, got %d", run.Stats.Emitted)
	}
}

func TestExecuteRunOverflowFailsOnlyThatGroup(t *testing.T) {
	stream := []domain.WordSetRecord{
		{GroupKey: "big", Value: "b1\tx"},
		{GroupKey: "big", Value: "b2\tx"},
		{GroupKey: "big", Value: "b3\tx"},
		{GroupKey: "small", Value: "s1\tx"},
		{GroupKey: "small", Value: "s2\tx"},
	}
	runs := &runRepoFake{run: queuedRun()}
	observer := &observerFake{}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: stream}, newStorageFake(nil), &reportFake{}, nil, observer, ExecuteRunConfig{MaxGroupDocuments: 2})

	run, err := uc.Execute(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if run.Status != domain.RunCompletedWithErrors {
		t.Fatalf("expected completed_with_errors, got %s", run.Status)
	}
	if run.Stats.FaultedGroups != 1 || run.Stats.Groups != 2 || observer.faulted != 1 {
		t.Fatalf("unexpected stats %+v (observer faulted=%d)", run.Stats, observer.faulted)
	}
	if _, ok := runs.results["big"]; ok {
		t.Fatalf("faulted group must not persist results")
	}
	if len(runs.results["small"]) != 1 {
		t.Fatalf("healthy group must persist its pair, got %+v", runs.results)
	}
}

func TestExecuteRunDropsGroupWhenPersistFails(t *testing.T) {
	stream := []domain.WordSetRecord{
		{GroupKey: "a", Value: "a1\tx"},
		{GroupKey: "a", Value: "a2\tx"},
		{GroupKey: "b", Value: "b1\tx"},
		{GroupKey: "b", Value: "b2\tx"},
	}
	runs := &runRepoFake{
		run: queuedRun(),
		saveErr: func(records []domain.SimilarityRecord) error {
			if len(records) > 0 && records[0].GroupKey == "a" {
				return errors.New("insert failed")
			}
			return nil
		},
	}
	report := &reportFake{}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: stream}, newStorageFake(nil), report, nil, nil, ExecuteRunConfig{})

	run, err := uc.Execute(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if run.Status != domain.RunCompletedWithErrors {
		t.Fatalf("expected completed_with_errors, got %s", run.Status)
	}
	if len(report.written) != 1 || report.written[0].GroupKey != "b" {
		t.Fatalf("report must only carry the persisted group, got %+v", report.written)
	}
}

func TestExecuteRunRoutesRecordsWithoutGroupKey(t *testing.T) {
	stream := []domain.WordSetRecord{
		{Value: "t1/a\tx,y"},
		{Value: "t1/b\tx,y"},
		{Value: "t2/a\tx,y"},
	}
	runs := &runRepoFake{run: queuedRun()}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: stream}, newStorageFake(nil), &reportFake{}, nil, nil,
		ExecuteRunConfig{Grouping: similarity.IDPrefixGroup{}})

	run, err := uc.Execute(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if run.Stats.Groups != 2 || run.Stats.Emitted != 1 {
		t.Fatalf("unexpected stats %+v", run.Stats)
	}
	if len(runs.results["t1"]) != 1 {
		t.Fatalf("expected pair in group t1, got %+v", runs.results)
	}
}

func TestExecuteRunFailsOnScanError(t *testing.T) {
	runs := &runRepoFake{run: queuedRun()}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{scanErr: errors.New("connection reset")}, newStorageFake(nil), &reportFake{}, nil, nil, ExecuteRunConfig{})

	run, err := uc.Execute(context.Background(), "run-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if run.Status != domain.RunFailed || runs.finished.Status != domain.RunFailed {
		t.Fatalf("expected failed run, got %+v", runs.finished)
	}
	if !strings.Contains(runs.finished.Error, "connection reset") {
		t.Fatalf("expected failure message, got %q", runs.finished.Error)
	}
}

func TestExecuteRunCancelledDiscardsOutput(t *testing.T) {
	runs := &runRepoFake{run: queuedRun()}
	storage := newStorageFake(nil)
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: referenceRecords()}, storage, &reportFake{}, nil, nil, ExecuteRunConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Execute(ctx, "run-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(runs.results) != 0 || len(storage.objects) != 0 {
		t.Fatalf("cancelled run must not emit output: results=%+v objects=%+v", runs.results, storage.objects)
	}
	if runs.finished == nil || runs.finished.Status != domain.RunFailed {
		t.Fatalf("expected failed status to be stored, got %+v", runs.finished)
	}
}

func TestExecuteRunReportFailureCompletesWithErrors(t *testing.T) {
	runs := &runRepoFake{run: queuedRun()}
	storage := newStorageFake(nil)
	storage.saveErr = errors.New("disk full")
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: referenceRecords()}, storage, &reportFake{}, nil, nil, ExecuteRunConfig{})

	run, err := uc.Execute(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if run.Status != domain.RunCompletedWithErrors || run.ReportPath != "" {
		t.Fatalf("unexpected run %+v", run)
	}
	if !strings.Contains(run.Error, "disk full") {
		t.Fatalf("expected report error in run, got %q", run.Error)
	}
}

func TestExecuteRunIgnoresFinishedRun(t *testing.T) {
	runs := &runRepoFake{run: &domain.SimilarityRun{ID: "run-1", Status: domain.RunCompleted}}
	uc := NewExecuteRunUseCase(runs, &wordSetRepoFake{stream: referenceRecords()}, newStorageFake(nil), &reportFake{}, nil, nil, ExecuteRunConfig{})

	if err := uc.ExecuteByID(context.Background(), "run-1"); err != nil {
		t.Fatalf("ExecuteByID() error = %v", err)
	}
	if len(runs.statuses) != 0 || runs.finished != nil {
		t.Fatalf("finished run must not be executed again")
	}
}
