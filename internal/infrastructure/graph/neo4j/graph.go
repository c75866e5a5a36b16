package neo4j

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/infrastructure/resilience"
)

const mergeSimilaritiesCypher = `
UNWIND $pairs AS pair
MERGE (a:Document {id: pair.a})
MERGE (b:Document {id: pair.b})
MERGE (a)-[r:SIMILAR_TO {run_id: $run_id}]->(b)
SET r.score = pair.score, r.group_key = pair.group_key
`

// defaultBatchSize bounds the number of pairs sent in one UNWIND statement.
const defaultBatchSize = 500

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Graph writes emitted pairs as SIMILAR_TO edges between Document nodes.
type Graph struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	executor  *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Graph{
		driver:    driver,
		database:  cfg.Database,
		batchSize: defaultBatchSize,
		executor:  executor,
	}, nil
}

func (g *Graph) WriteSimilarities(ctx context.Context, runID string, records []domain.SimilarityRecord) error {
	for start := 0; start < len(records); start += g.batchSize {
		end := min(start+g.batchSize, len(records))
		params := map[string]any{
			"run_id": runID,
			"pairs":  pairParams(records[start:end]),
		}
		err := g.executor.Execute(ctx, "neo4j.merge_similarities", func(ctx context.Context) error {
			_, err := neo4j.ExecuteQuery(ctx, g.driver, mergeSimilaritiesCypher, params,
				neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(g.database))
			return err
		}, classifyNeo4jError)
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, "write similarity graph", err)
		}
	}
	slog.Debug("similarity_graph_written", "run_id", runID, "edges", len(records))
	return nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func pairParams(records []domain.SimilarityRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]any{
			"a":         rec.DocumentA,
			"b":         rec.DocumentB,
			"score":     rec.Score,
			"group_key": rec.GroupKey,
		})
	}
	return out
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case resilience.IsContextError(err):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case neo4j.IsRetryable(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
