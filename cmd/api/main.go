package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/postspot/user-service/internal/api/http"
	"github.com/postspot/user-service/internal/api/http/handlers"
	"github.com/postspot/user-service/internal/auth"
	"github.com/postspot/user-service/internal/config"
	"github.com/postspot/user-service/internal/events"
	"github.com/postspot/user-service/internal/observability"
	"github.com/postspot/user-service/internal/persistence"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/repository/memory"
	"github.com/postspot/user-service/internal/repository/postgres"
	"github.com/postspot/user-service/internal/repository/redisstore"
	"github.com/postspot/user-service/internal/service"
	"github.com/postspot/user-service/internal/txn"
	"github.com/postspot/user-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	tx := txn.NewCoordinator(txn.Config{
		MaxAttempts: cfg.Store.TxMaxAttempts,
		BackoffBase: cfg.Store.TxBackoffBase,
		BackoffMax:  cfg.Store.TxBackoffMax,
	}, logger, metrics)

	store, err := buildStore(ctx, cfg, tx, logger)
	if err != nil {
		logger.Fatal("failed to initialise store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer store.Close()
	logger.Info("store ready", zap.String("backend", store.Name))

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	directory := service.NewDirectoryService(service.DirectoryDependencies{
		UserRepo:   store.Users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	graph := service.NewGraphService(service.GraphDependencies{
		FollowRepo: store.Follows,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, auth.Options{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway(),
		TTL:      cfg.Auth.AccessTokenTTL(),
	})

	limiter := httptransport.NewRateLimiter(httptransport.RateLimiterConfig{
		PerMinute: cfg.App.FollowRatePerMinute,
		Burst:     cfg.App.FollowRateBurst,
	}, logger)
	defer limiter.Stop()

	app := httptransport.NewApp(cfg.App.Name, httptransport.AppDependencies{
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		Routes: httptransport.RouteConfig{
			Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
				store.Name: store.Ping,
			}, logger),
			Users:          handlers.NewUsersHandler(directory),
			Follows:        handlers.NewFollowsHandler(graph),
			AuthMiddleware: auth.NewMiddleware(tokens),
			RateLimiter:    limiter,
			Metrics:        metrics,
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// buildStore connects the configured backend. The returned Store owns its
// connections and releases them in Close.
func buildStore(ctx context.Context, cfg *config.Config, tx *txn.Coordinator, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return repository.Store{}, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return repository.Store{}, err
			}
		}
		store := postgres.NewRepositoryStore(pg.PoolHandle(), tx)
		store.Ping = pg.Ping
		store.Close = pg.Close
		return store, nil

	case config.BackendRedis:
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return repository.Store{}, err
		}
		store := redisstore.NewRepositoryStore(rdb.Client, cfg.Redis.KeyPrefix, tx)
		store.Ping = rdb.Ping
		store.Close = rdb.Close
		return store, nil

	case config.BackendMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
		return memory.NewRepositoryStore(tx), nil
	}
	return repository.Store{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
