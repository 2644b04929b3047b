package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/appraisal"
	"domainworth-backend/internal/artifacts"
	"domainworth-backend/internal/batch"
	"domainworth-backend/internal/predictions"
	"domainworth-backend/internal/queue"
	"domainworth-backend/internal/shared/config"
	"domainworth-backend/internal/shared/server"
	"domainworth-backend/internal/shared/storage/db"
	"domainworth-backend/internal/shared/storage/object"
	localstore "domainworth-backend/internal/shared/storage/object/local"
	s3store "domainworth-backend/internal/shared/storage/object/s3"
	"domainworth-backend/internal/valuation"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	BatchRepo    batch.Repo
	Runner       *batch.Runner
	BatchService *batch.Service

	BatchHandler       *batch.Handler
	AppraisalHandler   *appraisal.Handler
	PredictionsHandler *predictions.Handler
	ArtifactsHandler   *artifacts.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultServerOptions())
}

// BuildWorker prepares dependencies for the queue worker, which holds fewer
// database connections than the API server.
func BuildWorker(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultWorkerOptions())
}

func build(cfg config.Config, dbOpts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             app.Config,
		BatchHandler:       app.BatchHandler,
		AppraisalHandler:   app.AppraisalHandler,
		PredictionsHandler: app.PredictionsHandler,
		ArtifactsHandler:   app.ArtifactsHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, dbOpts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(dbOpts)
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.ArtifactSecret, cfg.ArtifactPublicBase), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildServices(app *App) error {
	cfg := app.Config

	var repo batch.Repo
	if app.DB != nil {
		repo = &batch.PGRepo{DB: app.DB}
	} else {
		repo = batch.NewMemoryRepo()
	}

	client, err := valuation.NewReplicateClient(cfg.ReplicateBaseURL, cfg.ReplicateAPIToken, cfg.ReplicateModelVersion)
	if err != nil {
		return err
	}
	poller := valuation.NewPoller(client, cfg.PollInterval, cfg.PollMaxAttempts)

	runner := &batch.Runner{
		Repo:   repo,
		Valuer: poller,
		Store:  app.Store,
		Pacing: batch.Pacing{
			InterBatchDelay: cfg.InterBatchDelay,
			EveryNBatches:   cfg.ExtraDelayEvery,
			ExtraDelay:      cfg.ExtraDelay,
		},
		BatchSize: cfg.BatchSize,
		URLTTL:    cfg.ArtifactURLTTL,
	}

	var dispatcher batch.Dispatcher
	if app.Queue != nil {
		dispatcher = &queue.Dispatcher{Client: app.Queue}
	}
	batchSvc := &batch.Service{
		Repo:       repo,
		Runner:     runner,
		Dispatcher: dispatcher,
	}

	appraisalClient, err := appraisal.NewClient(cfg.AtomBaseURL)
	if err != nil {
		return err
	}

	predictionsHandler, err := predictions.NewHandler(cfg.ReplicateBaseURL, cfg.ReplicateAPIToken)
	if err != nil {
		return err
	}

	app.BatchRepo = repo
	app.Runner = runner
	app.BatchService = batchSvc
	app.BatchHandler = batch.NewHandler(batchSvc)
	app.AppraisalHandler = appraisal.NewHandler(appraisalClient)
	app.PredictionsHandler = predictionsHandler
	app.ArtifactsHandler = artifacts.NewHandler(app.Store, cfg.ArtifactSecret)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
