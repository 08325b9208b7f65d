package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgorozz/notflix/internal/api"
	"github.com/dgorozz/notflix/internal/catalog"
	"github.com/dgorozz/notflix/internal/config"
	"github.com/dgorozz/notflix/internal/sessions"
	"github.com/dgorozz/notflix/internal/store"
)

func main() {
	importPath := flag.String("import", "", "import a show catalog file (YAML or JSON) and exit")
	flag.Parse()

	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	logLevel := slog.LevelInfo
	if cfg.Debug() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// SQLite
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Stores
	showStore := store.NewShowStore(db)
	sessionStore := store.NewSessionStore(db)

	if *importPath != "" {
		if err := importCatalog(context.Background(), showStore, *importPath, logger); err != nil {
			logger.Error("catalog import failed", "path", *importPath, "error", err)
			db.Close()
			os.Exit(1)
		}
		return
	}

	if cfg.CatalogPath != "" {
		if err := importCatalog(context.Background(), showStore, cfg.CatalogPath, logger); err != nil {
			logger.Error("catalog seed failed", "path", cfg.CatalogPath, "error", err)
			db.Close()
			os.Exit(1)
		}
	}

	sessionSvc := sessions.NewService(sessionStore, logger)

	// Router
	router := api.NewRouter(db, showStore, sessionSvc, cfg.APIKey, logger)

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("notflix server starting", "addr", addr, "db", cfg.DBPath, "auth", cfg.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func importCatalog(ctx context.Context, shows *store.ShowStore, path string, logger *slog.Logger) error {
	entries, err := catalog.Load(path)
	if err != nil {
		return err
	}
	res, err := catalog.Seed(ctx, shows, entries, logger)
	if err != nil {
		return err
	}
	logger.Info("catalog imported", "path", path, "created", res.Created, "updated", res.Updated)
	return nil
}
