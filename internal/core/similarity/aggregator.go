package similarity

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docsim/internal/core/domain"
)

// sequentialBelow is the group size under which a single goroutine does the whole pass.
const sequentialBelow = 64

type Config struct {
	Threshold         float64
	Grouping          GroupingStrategy
	Workers           int
	MaxGroupDocuments int
	MaxGroupWords     int
}

func (c Config) normalize() Config {
	out := c
	if out.Grouping == nil {
		out.Grouping = ConstantGroup{}
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	return out
}

// Aggregator runs the all-pairs comparison over aggregation groups.
type Aggregator struct {
	cfg Config
}

func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := domain.ValidateThreshold(cfg.Threshold); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg.normalize()}, nil
}

func (a *Aggregator) Threshold() float64 { return a.cfg.Threshold }

func (a *Aggregator) Strategy() GroupingStrategy { return a.cfg.Grouping }

// NewBuffer returns an empty GroupBuffer carrying the configured memory bound.
func (a *Aggregator) NewBuffer() *GroupBuffer {
	return NewGroupBuffer(a.cfg.MaxGroupDocuments, a.cfg.MaxGroupWords)
}

// GroupResult is the outcome of one group. When Err is set, Records is nil.
type GroupResult struct {
	Key       string
	Documents int
	Compared  int64
	Records   []domain.SimilarityRecord
	Err       error
}

// Aggregate compares every pair in docs once. The slice is shared read-only between
// workers, each owning an interleaved subset of rows. On cancellation all partial
// output is discarded and the context error returned.
func (a *Aggregator) Aggregate(ctx context.Context, docs []domain.Document) ([]domain.SimilarityRecord, error) {
	return a.aggregate(ctx, docs, a.cfg.Workers)
}

func (a *Aggregator) aggregate(ctx context.Context, docs []domain.Document, workers int) ([]domain.SimilarityRecord, error) {
	if len(docs) < 2 {
		return nil, nil
	}
	if workers > len(docs)-1 {
		workers = len(docs) - 1
	}
	if workers <= 1 || len(docs) < sequentialBelow {
		var out []domain.SimilarityRecord
		for i := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = appendRow(out, docs, i, a.cfg.Threshold)
		}
		return out, nil
	}

	parts := make([][]domain.SimilarityRecord, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var local []domain.SimilarityRecord
			for i := w; i < len(docs); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				local = appendRow(local, docs, i, a.cfg.Threshold)
			}
			parts[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]domain.SimilarityRecord, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// AggregateGroups processes independent groups concurrently. A failing group does not
// affect the others. Cancellation of ctx returns ctx.Err() and no results.
func (a *Aggregator) AggregateGroups(ctx context.Context, groups []Group) ([]GroupResult, error) {
	results := make([]GroupResult, len(groups))
	if len(groups) == 0 {
		return results, nil
	}

	perGroup := a.cfg.Workers / len(groups)
	if perGroup < 1 {
		perGroup = 1
	}

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i, group := range groups {
		g.Go(func() error {
			res := GroupResult{
				Key:       group.Key,
				Documents: len(group.Documents),
				Compared:  pairCount(len(group.Documents)),
			}
			records, err := a.aggregate(ctx, group.Documents, perGroup)
			if err != nil {
				res.Err = err
				res.Compared = 0
			} else {
				for k := range records {
					records[k].GroupKey = group.Key
				}
				res.Records = records
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// AggregateAll routes docs through the grouping strategy and aggregates every group.
// Groups that overflow the memory bound come back as results with ErrGroupOverflow.
func (a *Aggregator) AggregateAll(ctx context.Context, docs []domain.Document) ([]GroupResult, error) {
	buf := a.NewBuffer()
	for _, doc := range docs {
		_ = buf.Route(a.cfg.Grouping, doc)
	}

	results, err := a.AggregateGroups(ctx, buf.Groups())
	if err != nil {
		return nil, err
	}
	for _, fault := range buf.Faults() {
		results = append(results, GroupResult{Key: fault.Key, Err: fault.Err})
	}
	return results, nil
}
