// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/schemakit/internal/api"
	"github.com/starford/schemakit/internal/docservice"
	"github.com/starford/schemakit/internal/docstore"
	"github.com/starford/schemakit/internal/index"
	"github.com/starford/schemakit/internal/mcpserver"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/sse"
	"github.com/starford/schemakit/internal/storage"
)

// runtime holds the components shared by the HTTP and MCP entry points.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	files  *storage.FS
	db     *index.DB
	svc    *docservice.Service
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

// bootstrap opens the document folder and catalog and builds the service.
// Logs go to out unless WithLogOutput overrides it.
func bootstrap(app *application, out io.Writer, pub docservice.Publisher) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config
	if app.logOutput != nil {
		out = app.logOutput
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the document folders exist.
	for _, kind := range models.DocumentKinds {
		if err := os.MkdirAll(filepath.Join(cfg.Store.Path, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	files, err := storage.NewFS(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	opts := []docservice.Option{
		docservice.WithLogger(logger),
		docservice.WithMaxDepth(cfg.Export.MaxDepth),
	}
	if pub != nil {
		opts = append(opts, docservice.WithPublisher(pub))
	}
	svc := docservice.NewService(docstore.New(files, db, logger), db, opts...)

	return &runtime{cfg: cfg, logger: logger, files: files, db: db, svc: svc}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	broker := sse.NewBroker(app.config.Events.CatalogThrottle)
	defer broker.Close()

	rt, err := bootstrap(app, os.Stdout, broker)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger
	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Hand edits in the store folder reach subscribers through the service.
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.files, rt.files.Root(), logger, rt.svc.NotifyExternal)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until ctx is cancelled or the
// client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	// The MCP transport owns stdout.
	rt, err := bootstrap(app, os.Stderr, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.files, rt.files.Root(), rt.logger, nil)
	})
	g.Go(func() error {
		if err := mcpserver.New(rt.svc).ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}
