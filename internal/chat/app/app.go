package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/anongram/server/internal/chat/http"
	"github.com/anongram/server/internal/chat/mail"
	"github.com/anongram/server/internal/chat/realtime"
	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/internal/chat/store/drivers/memory"
	"github.com/anongram/server/internal/chat/store/drivers/sqlite"
	"github.com/anongram/server/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the chat server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	mailer mail.Sender
	hub    *realtime.Hub

	// Services
	tokenService        *service.TokenService
	verificationService *service.VerificationService
	userService         *service.UserService
	professionService   *service.ProfessionService
	messageService      *service.MessageService
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
			Service: "anongram-server",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	if err := app.seed(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("chat server starting", "port", app.cfg.Port, "version", BuildVersion, "store", app.cfg.StoreDriver)

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
	app.logger.Info("shutting down chat server...")

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

	// Close the backing store
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("chat server stopped")
	return nil
}

// initStore initializes the configured store driver and, for sqlite,
// applies migrations.
func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case "memory", "":
		app.db = memory.NewStore()
		return nil

	case "sqlite":
		db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
		app.logger.Info("database migrations applied successfully")
		return nil

	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}
}

// initServices initializes all business logic services and the websocket hub
func (app *Application) initServices() error {
	secret := app.cfg.TokenSecret
	if secret == "" {
		if app.cfg.Env != "dev" {
			return fmt.Errorf("TOKEN_SECRET is required when ENV=%s", app.cfg.Env)
		}
		// Dev convenience: sessions do not survive a restart.
		secret = randomSecret()
		app.logger.Warn("TOKEN_SECRET not set, using an ephemeral secret")
	}

	app.tokenService = &service.TokenService{
		Secret: []byte(secret),
		Issuer: "anongram-server",
		TTL:    app.cfg.TokenTTL,
	}

	if app.cfg.SMTPHost != "" {
		app.mailer = &mail.SMTPSender{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		}
	} else {
		app.mailer = &mail.LogSender{Logger: app.logger}
		app.logger.Info("SMTP_HOST not set, verification codes are logged instead of mailed")
	}

	app.hub = realtime.NewHub(app.logger)

	app.userService = &service.UserService{
		Store:     app.db,
		Broadcast: app.hub,
	}
	app.verificationService = &service.VerificationService{
		Store:       app.db,
		Mailer:      app.mailer,
		Broadcast:   app.hub,
		AdminCodes:  app.cfg.AdminCodes,
		CodeTTL:     app.cfg.CodeTTL,
		MailTimeout: app.cfg.MailTimeout,
	}
	app.professionService = &service.ProfessionService{
		Store:     app.db,
		Broadcast: app.hub,
	}
	app.messageService = &service.MessageService{
		Store:     app.db,
		Broadcast: app.hub,
		Users:     app.userService,
	}

	// The hub drives presence and inbound frames through the services,
	// which in turn broadcast through the hub.
	app.hub.Presence = app.userService
	app.hub.Messages = app.messageService
	app.hub.Tokens = app.tokenService

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.VerificationService = app.verificationService
	router.UserService = app.userService
	router.ProfessionService = app.professionService
	router.MessageService = app.messageService
	router.TokenService = app.tokenService
	router.Hub = app.hub
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
