package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api"
	"github.com/electrix/tracker/internal/api/middleware"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/service"
	"github.com/electrix/tracker/internal/infrastructure/backend/rest"
	"github.com/electrix/tracker/internal/infrastructure/config"
	mongodb "github.com/electrix/tracker/internal/infrastructure/db/mongo"
	redisdb "github.com/electrix/tracker/internal/infrastructure/db/redis"
	"github.com/electrix/tracker/internal/infrastructure/http/handlers"
	"github.com/electrix/tracker/internal/infrastructure/queue"
	"github.com/electrix/tracker/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "electrix-tracker",
		Env:     cfg.Env,
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	sessions := redisdb.NewSessionStore(rdb, cfg.SessionTTL)
	views := redisdb.NewViewStore(rdb, cfg.SessionTTL)
	checks := []handlers.Checker{redisdb.NewChecker(rdb)}

	var (
		backend ports.Backend
		objects handlers.ObjectOpener
	)
	switch cfg.Backend.Driver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Backend.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("connect mongo")
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		mb := mongodb.New(db, mongodb.Options{
			JWTSecret: cfg.Mongo.JWTSecret,
			TokenTTL:  cfg.Mongo.TokenTTL,
			PublicURL: cfg.PublicURL,
		}, logger.Named("mongo"))
		if err := mb.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure indexes")
		}
		backend = mb
		objects = mb.Files()
		checks = append(checks, mongodb.NewChecker(db))
	default:
		backend = rest.New(rest.Config{
			URL:     cfg.Supabase.URL,
			AnonKey: cfg.Supabase.AnonKey,
			Timeout: cfg.Backend.Timeout,
		}, logger.Named("rest"))
	}
	log.Info().Str("driver", cfg.Backend.Driver).Msg("backend ready")

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	cleanup := queue.NewDispatcher(cfg.CleanupWorkers, logger.Named("cleanup"))
	cleanup.Start(workerCtx)

	svcLog := logger.Named("service")
	e, err := api.NewRouter(api.Deps{
		Sessions: service.NewAuthService(backend, sessions, views, cfg.LoginEmailDomain, svcLog),
		Workflow: service.NewWorkflowService(backend, views, cfg.LoginEmailDomain, svcLog),
		Units:    service.NewUnitService(backend, views, cleanup, svcLog),
		CashFlow: service.NewCashFlowService(backend, views, svcLog),
		Team:     service.NewTeamService(backend, views, cfg.LoginEmailDomain, svcLog),
		Portal:   service.NewPortalService(backend, svcLog),
		Guard:    redisdb.NewSubmissionGuard(rdb),
		Objects:  objects,
		Checks:   checks,
		Cookies: middleware.Cookies{
			Secure: cfg.CookieSecure,
			TTL:    cfg.SessionTTL,
		},
		UploadMaxBytes: cfg.UploadMaxBytes,
		Log:            logger.Named("http"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("electrix tracker listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	waitForSignal(log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	stopWorkers()
	log.Info().Msg("server stopped")
}

func waitForSignal(log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")
}
