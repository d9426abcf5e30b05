package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkotenko/resume-insight/internal/config"
	"github.com/dkotenko/resume-insight/internal/core/ports"
	"github.com/dkotenko/resume-insight/internal/core/usecase"
	"github.com/dkotenko/resume-insight/internal/export"
	"github.com/dkotenko/resume-insight/internal/infrastructure/chunking"
	"github.com/dkotenko/resume-insight/internal/infrastructure/extractor/pdftext"
	"github.com/dkotenko/resume-insight/internal/infrastructure/llm/ollama"
	"github.com/dkotenko/resume-insight/internal/infrastructure/queue/nats"
	"github.com/dkotenko/resume-insight/internal/infrastructure/repository/postgres"
	"github.com/dkotenko/resume-insight/internal/infrastructure/resilience"
	"github.com/dkotenko/resume-insight/internal/infrastructure/vector/qdrant"
	"github.com/dkotenko/resume-insight/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Repo     ports.ResumeRepository
	IngestUC ports.ResumeIngestor
	BulkUC   ports.BulkIngestor
	Hub      *usecase.ProgressHub
	Bus      *nats.Bus
	Exporter *export.Service

	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

const serviceName = "resume-insight-api"

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewResumeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	pipeMetrics := metrics.NewPipelineMetrics(serviceName, httpMetrics.Registry())

	// With the default settings (one attempt, breaker off) the executor is a
	// pass-through; retries stay an explicit opt-in.
	executor := resilience.NewExecutor(resilience.FromAppSettings(cfg.RetryMaxAttempts, cfg.BreakerEnabled))

	model, err := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		cfg.ModelWorkers,
		ollama.WithResilienceExecutor(executor),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init model client: %w", err)
	}

	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		model.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init completion bus: %w", err)
	}

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	ingest := usecase.NewIngestResumeUseCase(
		repo,
		pdftext.New(),
		chunking.NewSplitter(cfg.ChunkSize),
		ollama.NewEmbedder(model),
		index,
		ollama.NewSummarizer(model),
		bus,
		cfg.SummaryQuery,
		cfg.SummaryTopK,
		logger,
	)
	instrumented := metrics.NewInstrumentedIngestor(ingest, pipeMetrics, serviceName)

	return &App{
		Config: cfg,

		Repo:     repo,
		IngestUC: instrumented,
		BulkUC:   usecase.NewBulkIngestUseCase(instrumented, cfg.BulkDir, cfg.BulkWorkers, logger),
		Hub:      usecase.NewProgressHub(repo, cfg.PollInterval(), logger),
		Bus:      bus,
		Exporter: export.NewService(repo, logger),

		HTTPMetrics: httpMetrics,

		closeFn: func() {
			bus.Close()
			model.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
