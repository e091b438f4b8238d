// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gaceta/internal/api"
	"github.com/starford/gaceta/internal/article"
	"github.com/starford/gaceta/internal/editor"
	"github.com/starford/gaceta/internal/inbox"
	"github.com/starford/gaceta/internal/mcpserver"
	"github.com/starford/gaceta/internal/metrics"
	"github.com/starford/gaceta/internal/sse"
	"github.com/starford/gaceta/internal/storage"
	"github.com/starford/gaceta/internal/store"
	"github.com/starford/gaceta/internal/upload"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend_url", cfg.Backend.BaseURL),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("upload_mode", cfg.Uploads.Mode),
		slog.String("inbox_path", cfg.Inbox.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite state.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	client := article.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	uploads, err := app.uploadService(ctx, client)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.LedgerThrottle)
	defer broker.Close()

	// The session gauge reads the manager, which in turn reports to metrics.
	var mgr *editor.Manager
	m := metrics.New(func() int {
		if mgr == nil {
			return 0
		}
		return mgr.Len()
	})
	mgr = editor.NewManager(editor.Deps{
		Adapter:     article.NewAdapter(client, logger),
		Uploads:     uploads,
		Images:      db,
		Preferences: db,
		Events:      broker,
		Metrics:     m,
		Logger:      logger,
	}, editor.Options{
		SettleDelay:  cfg.Editor.PasteSettleDelay,
		IdleTTL:      cfg.Editor.SessionTTL,
		MaxSessions:  cfg.Editor.MaxSessions,
		PrincipalTTL: cfg.Editor.PrincipalTTL,
	})

	apiRouter := api.NewRouter(mgr, db, cfg.Auth.AuthEnabled(), cfg.Backend.Token, broker)

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
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// stop ends the inbox watcher once the server is down.
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start the draft inbox with SSE callback.
	if cfg.Inbox.Enabled() {
		in, files, err := app.openInbox(db)
		if err != nil {
			return err
		}
		notify := func(kind, path string) {
			broker.PublishDraftEvent(kind, path)
		}
		if err := in.Sync(notify); err != nil {
			logger.Warn("initial inbox sync failed", slog.String("error", err.Error()))
		}
		g.Go(func() error {
			if err := in.Watch(gCtx, files.Root(), notify); err != nil {
				logger.Error("inbox watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append(opts, withLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	cfg := app.config

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	client := article.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	uploads, err := app.uploadService(ctx, client)
	if err != nil {
		return err
	}

	deps := mcpserver.Deps{Uploads: uploads, Images: db, Token: cfg.Backend.Token}
	if cfg.Inbox.Enabled() {
		_, files, err := app.openInbox(db)
		if err != nil {
			return err
		}
		deps.Drafts = db
		deps.Files = files
	}

	app.logger.Info("MCP server starting", slog.String("backend_url", cfg.Backend.BaseURL))
	return mcpserver.New(deps).ServeStdio()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(app.logger)
	return app, nil
}

func (a *application) uploadService(ctx context.Context, client *article.Client) (*upload.Service, error) {
	var uploader upload.Uploader = upload.NewHTTPUploader(client)
	if a.config.Uploads.Mode == UploadModeS3 {
		s3u, err := upload.NewS3Uploader(ctx, a.config.Uploads.S3.Uploader())
		if err != nil {
			return nil, fmt.Errorf("init s3 uploads: %w", err)
		}
		uploader = s3u
	}
	return upload.NewService(uploader, a.config.Uploads.MaxBytes, a.logger), nil
}

func (a *application) openInbox(db *store.DB) (*inbox.Inbox, *storage.FS, error) {
	// Ensure inbox directory exists.
	if err := os.MkdirAll(a.config.Inbox.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create inbox dir: %w", err)
	}
	files, err := storage.NewFS(a.config.Inbox.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init inbox storage: %w", err)
	}
	return inbox.New(db, files, a.config.Inbox.Pattern, a.logger), files, nil
}
