// Package server builds the application's dependency graph and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/ymm-sync/internal/api"
	"github.com/JakeFAU/ymm-sync/internal/clock/system"
	"github.com/JakeFAU/ymm-sync/internal/config"
	dedupememory "github.com/JakeFAU/ymm-sync/internal/dedupe/memory"
	dedupredis "github.com/JakeFAU/ymm-sync/internal/dedupe/redis"
	"github.com/JakeFAU/ymm-sync/internal/extract"
	"github.com/JakeFAU/ymm-sync/internal/fitment"
	"github.com/JakeFAU/ymm-sync/internal/fitsync"
	"github.com/JakeFAU/ymm-sync/internal/forward"
	"github.com/JakeFAU/ymm-sync/internal/hash/sha256"
	"github.com/JakeFAU/ymm-sync/internal/id/uuid"
	"github.com/JakeFAU/ymm-sync/internal/logging"
	"github.com/JakeFAU/ymm-sync/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/ymm-sync/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/ymm-sync/internal/publisher/pubsub"
	archive "github.com/JakeFAU/ymm-sync/internal/storage"
	gcsstorage "github.com/JakeFAU/ymm-sync/internal/storage/gcs"
	localstorage "github.com/JakeFAU/ymm-sync/internal/storage/local"
	memorystorage "github.com/JakeFAU/ymm-sync/internal/storage/memory"
	pgstore "github.com/JakeFAU/ymm-sync/internal/storage/postgres"
	"github.com/JakeFAU/ymm-sync/internal/telemetry"
)

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	apiServer      *api.Server
	fitmentStore   fitment.Store
	pgStore        *pgstore.FitmentStore
	pubsubClient   *pubsub.Client
	pubsubPub      *gcppublisher.Publisher
	storage        *storage.Client
	redisGuard     *dedupredis.Guard
	tracerShutdown func(context.Context) error
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP until ctx is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	closeErr := a.Close(shutdownCtx)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close releases every client the app opened.
func (a *App) Close(ctx context.Context) error {
	if a.pubsubPub != nil {
		a.pubsubPub.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.redisGuard != nil {
		if err := a.redisGuard.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return nil
}

// Build creates the application's dependencies from cfg.
func Build(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	logger, err := logging.ForService(cfg.Logging.Development, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, version, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, version string, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("dedupe_backend", cfg.Dedupe.Backend),
		zap.Bool("database", cfg.DB.DSN != ""),
	)

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.ServiceName, version)
		if err != nil {
			return nil, fmt.Errorf("tracer init failed: %w", err)
		}
		app.tracerShutdown = tp.Shutdown
	}

	clock := system.New()
	probes := map[string]fitment.Pinger{}

	if err := setupDatabase(ctx, app); err != nil {
		return nil, app.abort(ctx, err)
	}
	if p, ok := app.fitmentStore.(fitment.Pinger); ok {
		probes["store"] = p
	}

	blobs, err := setupStorage(ctx, app)
	if err != nil {
		return nil, app.abort(ctx, err)
	}

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, app.abort(ctx, err)
	}

	guard, err := setupGuard(ctx, app, clock)
	if err != nil {
		return nil, app.abort(ctx, err)
	}
	if app.redisGuard != nil {
		probes["redis"] = app.redisGuard
	}

	target := cfg.Forward.TargetURL
	if target == "" {
		target = fmt.Sprintf("http://127.0.0.1:%d/api/update-ymm", cfg.Server.Port)
	}
	relay, err := forward.New(target, cfg.ForwardTimeout(), nil, logger.Named("forward"))
	if err != nil {
		return nil, app.abort(ctx, fmt.Errorf("relay init failed: %w", err))
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.New(ratelimit.Config{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		logger.Info("rate limiter enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	app.apiServer = api.NewServer(api.Dependencies{
		Extractor: extract.New(extract.Options{
			LowConfidenceFallback: cfg.Extract.LowConfidenceFallback,
		}, logger.Named("extract")),
		Synchronizer: fitsync.New(app.fitmentStore, clock, fitsync.Config{
			Concurrency:  cfg.Sync.Concurrency,
			TupleTimeout: cfg.TupleTimeout(),
		}, logger.Named("fitsync")),
		Archiver:  archive.NewArchiver(blobs, sha256.New(), cfg.Storage.Prefix),
		Publisher: publisher,
		Guard:     guard,
		Limiter:   limiter,
		Relay:     relay,
		Clock:     clock,
		Probes:    probes,
	}, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Topic:          cfg.PubSub.TopicName,
	}, logger)

	return app, nil
}

func (a *App) abort(ctx context.Context, err error) error {
	_ = a.Close(ctx)
	return err
}

func setupDatabase(ctx context.Context, app *App) error {
	if app.cfg.DB.DSN == "" {
		app.logger.Warn("no DSN specified, fitments are kept in memory")
		app.fitmentStore = memorystorage.NewFitmentStore(uuid.NewUUIDGenerator())
		return nil
	}
	store, err := pgstore.NewFitmentStore(ctx, pgstore.FitmentStoreConfig{
		DSN:             app.cfg.DB.DSN,
		Table:           app.cfg.DB.Table,
		MaxConns:        app.cfg.DB.MaxConns,
		MinConns:        app.cfg.DB.MinConns,
		MaxConnLifetime: app.cfg.MaxConnLifetime(),
	})
	if err != nil {
		return fmt.Errorf("fitment store init failed: %w", err)
	}
	app.pgStore = store
	app.fitmentStore = store
	app.logger.Info("fitment store initialized", zap.String("table", app.cfg.DB.Table))
	return nil
}

func setupStorage(ctx context.Context, app *App) (fitment.BlobStore, error) {
	switch app.cfg.Storage.Backend {
	case "gcs":
		var err error
		app.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobs, err := gcsstorage.New(app.storage, gcsstorage.Config{Bucket: app.cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.logger.Info("archiving payloads to GCS", zap.String("bucket", app.cfg.Storage.Bucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Info("archiving payloads locally", zap.String("path", app.cfg.Storage.Local.BaseDir))
		return blobs, nil
	case "memory":
		app.logger.Info("archiving payloads in memory")
		return memorystorage.NewBlobStore(), nil
	default:
		app.logger.Info("payload archive disabled")
		return nil, nil
	}
}

func setupPublisher(ctx context.Context, app *App) (fitment.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("no Pub/Sub project configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPub = gcppublisher.New(app.pubsubClient)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return app.pubsubPub, nil
}

func setupGuard(ctx context.Context, app *App, clock fitment.Clock) (fitment.DeliveryGuard, error) {
	switch app.cfg.Dedupe.Backend {
	case "redis":
		guard, err := dedupredis.New(ctx, dedupredis.Options{
			Addr:     app.cfg.Redis.Addr,
			Password: app.cfg.Redis.Password,
			DB:       app.cfg.Redis.DB,
			TTL:      app.cfg.DedupeTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("redis delivery guard init failed: %w", err)
		}
		app.redisGuard = guard
		app.logger.Info("delivery guard backed by redis", zap.String("addr", app.cfg.Redis.Addr))
		return guard, nil
	case "memory":
		app.logger.Info("delivery guard in memory", zap.Duration("ttl", app.cfg.DedupeTTL()))
		return dedupememory.New(app.cfg.DedupeTTL(), clock), nil
	default:
		return nil, nil
	}
}
