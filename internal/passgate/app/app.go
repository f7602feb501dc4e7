package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/passgate/passgate/internal/passgate/http"
	"github.com/passgate/passgate/internal/passgate/notify"
	"github.com/passgate/passgate/internal/passgate/service"
	"github.com/passgate/passgate/internal/passgate/session"
	"github.com/passgate/passgate/internal/passgate/store"
	"github.com/passgate/passgate/internal/passgate/store/drivers/memory"
	"github.com/passgate/passgate/internal/passgate/store/drivers/sqlite"
	"github.com/passgate/passgate/pkg/clockx"
	"github.com/passgate/passgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the passgate service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	sessions *session.Manager
	notifier notify.Notifier

	// Services
	registryService     *service.RegistryService
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "passgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initNotifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("passgate starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down passgate...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close the verification record store
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("passgate stopped")
	return nil
}

// initStore initializes the verification record store for the configured
// driver and applies migrations where the driver needs them.
func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case "memory", "":
		app.db = memory.NewStore()
		app.logger.Info("using in-memory verification store")
		return nil

	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
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

	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}
}

// initNotifier picks the code delivery channel. Without an SMTP host the
// service falls back to logging codes, which is only useful in dev.
func (app *Application) initNotifier() error {
	if app.cfg.SMTP.Host == "" {
		app.notifier = &notify.LogNotifier{Logger: app.logger}
		app.logger.Warn("SMTP_HOST not set, verification codes will be logged instead of mailed")
		return nil
	}

	mailer, err := notify.NewSMTPNotifier(app.cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to initialize SMTP notifier: %w", err)
	}
	app.notifier = mailer

	app.logger.Info("SMTP notifier configured", "host", app.cfg.SMTP.Host, "port", app.cfg.SMTP.Port)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	clock := clockx.New()

	app.sessions = session.NewManager(app.cfg.SessionIdleTimeout, clock)

	app.registryService = service.NewRegistryService(
		app.db,
		service.PseudoRandomCodes{},
		clock,
		app.cfg.OTPTTL,
	)

	app.authService = service.NewAuthService(
		app.registryService,
		app.notifier,
		app.cfg.NotifyAddress,
		app.cfg.NotifyTimeout,
	)

	app.housekeepingService = service.NewHousekeepingService(
		app.registryService,
		app.sessions,
		app.logger,
		app.cfg.SweepInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.sessions, app.logger)

	// Wire services to router
	router.AuthService = app.authService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
