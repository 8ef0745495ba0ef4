package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patient-care/internal/adapters/auth/jwtauth"
	"patient-care/internal/adapters/storage/localcache"
	"patient-care/internal/adapters/storage/mongostore"
	pg "patient-care/internal/adapters/storage/postgres"
	"patient-care/internal/config"
	"patient-care/internal/domain/registration"
	"patient-care/internal/platform/logger"
	"patient-care/internal/router"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// @title Patient Care API
// @version 1.0
// @description Backend para cuidadores: pacientes, delegaciones, care plans, medicación y registro de cuidado.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token emitido por /auth/login
func main() {
	// .env es opcional (dev)
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		App:    cfg.AppName,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", logger.Fields{"error": err})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.Warn("sentry init failed", logger.Fields{"error": err})
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	var (
		db    *sql.DB
		mdb   *mongo.Database
		cache *sqlx.DB
		err   error
	)

	if cfg.DatabaseDSN != "" {
		db, err = pg.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := pg.Migrate(ctx, db); err != nil {
			return err
		}
	}

	if cfg.MongoURI != "" {
		mdb, err = mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
		if err := mongostore.NewCareLogsRepo(mdb).EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	if cfg.CacheDSN != "" {
		cache, err = localcache.Open(ctx, cfg.CacheDSN)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	if cfg.InsecureJWTSecret() {
		log.Warn("JWT_SECRET not set: signing tokens with the development default", logger.Fields{"environment": cfg.Environment})
	}
	tokens := jwtauth.New(jwtauth.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})

	app := router.New(router.Options{
		Logger:       log,
		AuthVerifier: tokens,
		Tokens:       tokens,
		DevAuth:      cfg.DevAuth,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		DB:           db,
		Mongo:        mdb,
		Cache:        cache,
	})
	if cfg.DevAuth {
		log.Warn("dev auth enabled: X-Debug-User-ID is trusted without verification", nil)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return registration.NewSyncer(app.Registration, cfg.SyncInterval, log).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
