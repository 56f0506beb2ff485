package indexer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/activity"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/status"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/workflow"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres"
	indexerdb "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/logging"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/metrics"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/redis"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/source"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/temporal"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/temporal/indexer"
)

type App struct {
	Worker          worker.Worker
	TemporalClient  *temporal.Client
	IndexerDB       *indexerdb.DB
	RedisClient     *redis.Client
	Source          source.Source
	ActivityContext *activity.Context
	StatusServer    *http.Server
	Logger          *zap.Logger
}

// Start starts the worker and the status server and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}

	go func() {
		a.Logger.Info("Status server listening", zap.String("addr", a.StatusServer.Addr))
		if err := a.StatusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Status server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and releases every connection.
func (a *App) Stop() {
	a.Worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.StatusServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("Status server shutdown", zap.Error(err))
	}

	a.ActivityContext.Close()
	if c, ok := a.Source.(interface{ Close() }); ok {
		c.Close()
	}
	if a.RedisClient != nil {
		_ = a.RedisClient.Close()
	}
	a.IndexerDB.Close()
	a.TemporalClient.TClient.Close()
	a.Logger.Info("さようなら!")
	_ = a.Logger.Sync()
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	registry, enabled, err := cfg.SelectPipelines()
	if err != nil {
		logger.Fatal("Invalid pipeline selection", zap.Error(err))
	}
	names := make([]string, 0, len(enabled))
	for _, p := range enabled {
		names = append(names, p.Name())
	}
	logger.Info("Pipelines enabled", zap.Strings("pipelines", names))
	for _, t := range cfg.TrackedTypes.Types() {
		logger.Info("Tracking blob type", zap.Stringer("type", t.Path), zap.Stringer("layout", t.Layout))
	}

	indexerDB, err := indexerdb.NewWithPoolConfig(ctx, logger, cfg.DatabaseName, *postgres.GetPoolConfigForComponent("indexer"))
	if err != nil {
		logger.Fatal("Unable to initialize indexer database", zap.Error(err))
	}

	src, err := source.New(cfg.CheckpointSource, cfg.CacheOptions(len(enabled)), logger)
	if err != nil {
		logger.Fatal("Unable to initialize checkpoint source", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer, "sui_indexer")

	activityContext := &activity.Context{
		Logger:           logger,
		Store:            indexerDB,
		Source:           src,
		Pipelines:        registry,
		Metrics:          pipelineMetrics,
		FetchParallelism: cfg.FetchParallelism,
	}

	checks := map[string]status.HealthCheck{
		"postgres": indexerDB.Ping,
		"temporal": func(ctx context.Context) error {
			_, err := temporalClient.Health(ctx)
			return err
		},
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Fatal("Unable to connect to Redis", zap.Error(err))
		}
		activityContext.Publisher = redisClient
		checks["redis"] = redisClient.Health
	} else {
		logger.Info("REDIS_HOST not set, indexed events disabled")
	}

	workflowContext := workflow.Context{
		TemporalClient:  temporalClient,
		ActivityContext: activityContext,
		Config: workflow.Config{
			WindowSize:       cfg.WindowSize,
			MaxWindowsPerRun: cfg.MaxWindowsPerRun,
			FirstCheckpoint:  cfg.FirstCheckpoint,
		},
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.IndexerQueue,
		worker.Options{
			MaxConcurrentWorkflowTaskPollers: 5,
			MaxConcurrentActivityTaskPollers: 10,
			// Each pipeline runs one window at a time; this only bounds pipelines in parallel.
			MaxConcurrentActivityExecutionSize: 32,
			WorkerStopTimeout:                  1 * time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.HeadScanWorkflow,
		temporalworkflow.RegisterOptions{Name: indexer.HeadScanWorkflowName},
	)
	wkr.RegisterWorkflowWithOptions(
		workflowContext.IndexRangeWorkflow,
		temporalworkflow.RegisterOptions{Name: indexer.IndexRangeWorkflowName},
	)
	wkr.RegisterActivity(activityContext.IndexCheckpoints)
	wkr.RegisterActivity(activityContext.GetWatermark)
	wkr.RegisterActivity(activityContext.GetLatestCheckpoint)

	for _, name := range names {
		if err := temporalClient.EnsureHeadScanSchedule(ctx, logger, name, cfg.HeadScanInterval); err != nil {
			logger.Fatal("Unable to ensure head scan schedule", zap.String("pipeline", name), zap.Error(err))
		}
	}

	controller := &status.Controller{
		Logger:     logger,
		Watermarks: indexerDB,
		Checks:     checks,
		Gatherer:   prometheus.DefaultGatherer,
		Pipelines:  names,
	}

	return &App{
		Worker:          wkr,
		TemporalClient:  temporalClient,
		IndexerDB:       indexerDB,
		RedisClient:     redisClient,
		Source:          src,
		ActivityContext: activityContext,
		StatusServer: &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           controller.NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		Logger: logger,
	}
}
