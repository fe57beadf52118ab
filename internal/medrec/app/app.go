package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/medrec/internal/medrec/http"
	"github.com/aussiebroadwan/medrec/internal/medrec/metrics"
	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/internal/medrec/store/drivers/sqlite"
	"github.com/aussiebroadwan/medrec/internal/medrec/store/drivers/valkey"
	"github.com/aussiebroadwan/medrec/pkg/cryptox"
	"github.com/aussiebroadwan/medrec/pkg/ratelimit"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

// BuildVersion is overridden at build time with
// -ldflags "-X github.com/aussiebroadwan/medrec/internal/medrec/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application owns the medrec service and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	metrics *metrics.Metrics

	// Exactly one of these is set, depending on RATELIMIT_BACKEND.
	memBuckets    *ratelimit.MemoryStore
	valkeyBuckets *valkey.BucketStore

	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds every dependency. Configuration problems are
// returned wrapped in service.ErrConfiguration before anything is opened.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "medrec",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}
	slog.SetDefault(app.logger)
	app.metrics.SetBuildInfo(BuildVersion)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRateLimiter(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.closeStores()
		return nil, err
	}

	return app, nil
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("medrec starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"ratelimit_backend", app.cfg.RateLimitBackend,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down medrec...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.closeStores(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("medrec stopped")
	return nil
}

func (app *Application) closeStores() error {
	if app.valkeyBuckets != nil {
		app.valkeyBuckets.Close()
	}
	return app.db.Close()
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		_ = db.Close()
		return fmt.Errorf("database schema version %d is dirty", version)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile, "schema_version", version)
	return nil
}

// initRateLimiter picks the bucket store. Only the in-process store needs
// sweeping; Valkey expires keys itself.
func (app *Application) initRateLimiter() error {
	switch app.cfg.RateLimitBackend {
	case BackendValkey:
		buckets, err := valkey.New(valkey.Config{
			Address:  app.cfg.ValkeyAddr,
			Password: app.cfg.ValkeyPassword,
			DB:       app.cfg.ValkeyDB,
			Logger:   app.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize rate limit store: %w", err)
		}
		app.valkeyBuckets = buckets
	default:
		app.memBuckets = ratelimit.NewMemoryStore()
		app.housekeepingService = service.NewHousekeepingService(
			app.memBuckets,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
		app.housekeepingService.OnSweep = app.metrics.RateLimitBucketsSwept
	}
	return nil
}

func (app *Application) bucketStore() ratelimit.BucketStore {
	if app.valkeyBuckets != nil {
		return app.valkeyBuckets
	}
	return app.memBuckets
}

// initHTTP builds the services, the router and the server
func (app *Application) initHTTP() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher := cryptox.NewHasher(pepper)

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:    []byte(app.cfg.SecretKey),
		Algorithm: app.cfg.Algorithm,
		Issuer:    app.cfg.Issuer,
		AccessTTL: app.cfg.AccessTokenTTL,
	})
	if err != nil {
		return err
	}
	app.tokenService = tokens

	routerCfg := httpapi.RouterConfig{
		BuildVersion: BuildVersion,
		TrustProxy:   app.cfg.TrustProxy,
		Limiter:      ratelimit.New(app.bucketStore()),
		Policy:       app.cfg.Policy(),
	}
	if app.valkeyBuckets != nil {
		routerCfg.BucketStore = app.valkeyBuckets
	}

	router := httpapi.NewRouter(routerCfg, app.db, app.metrics, app.logger)

	guard := service.NewAccessGuard(tokens, app.db)
	audit := service.NewAuditLogger(app.db, app.metrics, app.cfg.TrustProxy)

	router.Guard = guard
	router.Audit = audit
	router.Query = service.NewAuditQueryEngine(app.db)
	router.Auth = &service.AuthService{
		Store:   app.db,
		Hasher:  hasher,
		Tokens:  tokens,
		Guard:   guard,
		Audit:   audit,
		Metrics: app.metrics,
	}
	router.Directory = &service.DirectoryService{Store: app.db, Audit: audit}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
