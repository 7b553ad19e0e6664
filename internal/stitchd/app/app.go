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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/stitch/internal/stitchd/http"
	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/internal/stitchd/store"
	"github.com/aussiebroadwan/stitch/internal/stitchd/store/drivers/sqlite"
	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags.
var BuildVersion = "v0.1.0"

// Application is the stitchd dev backend with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	keys     *jwtx.KeySet
	verifier jwtx.Verifier
	registry *prometheus.Registry

	tokenService        *service.TokenService
	authService         *service.AuthService
	apiKeyService       *service.APIKeyService
	functionService     *service.FunctionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New opens the database, loads keys and wires the HTTP server. Nothing is
// served until Run.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "stitchd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, keys, err := initSigningKey(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	app.signer = signer
	app.keys = keys
	app.verifier = jwtx.NewVerifierEdDSA(keys, cfg.Issuer)

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler is the fully wired router.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the server
// fails, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.housekeepingService.Start()

	app.logger.Info("stitchd starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown requested")
	}

	if err := app.shutdown(); err != nil {
		return errors.Join(serveErr, fmt.Errorf("graceful shutdown failed: %w", err))
	}
	return serveErr
}

func (app *Application) shutdown() error {
	app.logger.Info("shutting down stitchd...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("stitchd stopped")
	return nil
}

// Close releases the database of an application that was never Run.
func (app *Application) Close() error {
	return app.db.Close()
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	app.tokenService = &service.TokenService{
		Store:      app.db,
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}
	app.authService = &service.AuthService{
		Store:             app.db,
		Tokens:            app.tokenService,
		Hasher:            cryptox.NewPasswordHasher(pepper),
		CustomTokenSecret: []byte(app.cfg.CustomTokenSecret),
	}
	app.apiKeyService = &service.APIKeyService{Store: app.db, Tokens: app.tokenService}
	app.functionService = service.NewFunctionService(app.authService)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	if app.cfg.CustomTokenSecret == "" {
		app.logger.Info("custom-token provider disabled; set STITCHD_CUSTOM_TOKEN_SECRET to enable it")
	}
	return nil
}

func (app *Application) initHTTP() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := httpapi.NewRouter(
		app.keys,
		app.verifier,
		BuildVersion,
		app.db,
		app.registry,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.APIKeyService = app.apiKeyService
	router.FunctionService = app.functionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
