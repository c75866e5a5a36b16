package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docsim/internal/config"
	"github.com/kirillkom/docsim/internal/core/ports"
	"github.com/kirillkom/docsim/internal/core/usecase"
	"github.com/kirillkom/docsim/internal/infrastructure/extractor"
	graphneo4j "github.com/kirillkom/docsim/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/docsim/internal/infrastructure/normalize"
	"github.com/kirillkom/docsim/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docsim/internal/infrastructure/report"
	"github.com/kirillkom/docsim/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docsim/internal/infrastructure/resilience"
	"github.com/kirillkom/docsim/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docsim/internal/infrastructure/storage/s3"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Docs    ports.DocumentRepository
	Storage ports.ObjectStorage

	IngestUC    *usecase.IngestDocumentUseCase
	TransformUC *usecase.TransformDocumentUseCase
	RunsUC      *usecase.SimilarityRunUseCase
	ExecuteUC   *usecase.ExecuteRunUseCase

	closeFns []func()
}

type Options struct {
	// RunObserver receives aggregation counters; nil disables them.
	RunObserver usecase.RunObserver
	// WithGraph connects the similarity graph sink when NEO4J_URI is set.
	WithGraph bool
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	if err := app.init(ctx, cfg, opts); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context, cfg config.Config, opts Options) error {
	executor := resilience.NewExecutor(cfg.Resilience())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	a.onClose(func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := NewStorage(ctx, cfg, executor)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSRunSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return fmt.Errorf("init message queue: %w", err)
	}
	a.onClose(queue.Close)

	grouping, err := cfg.Grouping()
	if err != nil {
		return err
	}

	var graph ports.SimilarityGraph
	if opts.WithGraph && cfg.Neo4jURI != "" {
		g, err := graphneo4j.New(ctx, graphneo4j.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		}, executor)
		if err != nil {
			return fmt.Errorf("init similarity graph: %w", err)
		}
		a.onClose(func() { _ = g.Close(context.Background()) })
		graph = g
		slog.Info("similarity_graph_enabled", "uri", cfg.Neo4jURI, "database", cfg.Neo4jDatabase)
	}

	docs := postgres.NewDocumentRepository(db)
	records := postgres.NewWordSetRepository(db)
	runs := postgres.NewRunRepository(db)
	textExtractor := extractor.NewDispatcher(storage)
	normalizer := normalize.NewNormalizer(cfg.MinWordLength)

	a.Queue = queue
	a.Docs = docs
	a.Storage = storage
	a.IngestUC = usecase.NewIngestDocumentUseCase(docs, storage, queue)
	a.TransformUC = usecase.NewTransformDocumentUseCase(docs, records, textExtractor, normalizer, grouping)
	a.RunsUC = usecase.NewSimilarityRunUseCase(runs, queue, cfg.SimilarityThreshold, grouping.Name())
	a.ExecuteUC = usecase.NewExecuteRunUseCase(runs, records, storage, report.NewTextWriter(), graph, opts.RunObserver, usecase.ExecuteRunConfig{
		Grouping:          grouping,
		Workers:           cfg.AggregationWorkers,
		MaxGroupDocuments: cfg.MaxGroupDocuments,
		MaxGroupWords:     cfg.MaxGroupWords,
	})
	return nil
}

// NewStorage selects the object storage backend named by STORAGE_BACKEND.
func NewStorage(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		storage, err := s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, executor)
		if err != nil {
			return nil, err
		}
		return storage, nil
	default:
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return storage, nil
	}
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
