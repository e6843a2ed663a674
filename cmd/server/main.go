// Command server runs the places marketplace HTTP API.
//
// @title                      Places Market API
// @version                    1.0
// @description                Marketplace for listing, buying and discussing places.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-places-market/internal/auth"
	"github.com/tbourn/go-places-market/internal/config"
	"github.com/tbourn/go-places-market/internal/domain"
	httpapi "github.com/tbourn/go-places-market/internal/http"
	"github.com/tbourn/go-places-market/internal/observability"
	"github.com/tbourn/go-places-market/internal/repo"
	"github.com/tbourn/go-places-market/internal/services"
	"github.com/tbourn/go-places-market/internal/storage"
	"github.com/tbourn/go-places-market/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger(os.Stderr, sysutil.LogOptions{Service: "places-market"})
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.SetupLogger(os.Stdout, sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Service: cfg.OTEL.ServiceName,
		Version: appVersion,
		Pretty:  cfg.LogPretty,
	})
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now()); err != nil {
		log.Warn().Err(err).Msg("purge idempotency records")
	} else if n > 0 {
		log.Info().Int64("purged", n).Msg("expired idempotency records removed")
	}

	images, err := storage.NewLocal(cfg.UploadDir, cfg.MaxUploadBytes, domain.DefaultAvatar)
	if err != nil {
		log.Fatal().Err(err).Msg("upload storage")
	}

	var sessions auth.SessionStore = auth.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		store, client, err := auth.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("connect session store")
		}
		defer client.Close()
		sessions = store
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis session store")
	}

	if cfg.Admin.Username != "" {
		users := services.NewUserService(db, images, cfg.Auth.BcryptCost)
		if _, err := users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			log.Fatal().Err(err).Str("username", cfg.Admin.Username).Msg("ensure admin account")
		}
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, images, sessions, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
