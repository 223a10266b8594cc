package main

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

	"github.com/use-agent/menugrab/api"
	"github.com/use-agent/menugrab/api/handler"
	"github.com/use-agent/menugrab/cache"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/logging"
	"github.com/use-agent/menugrab/scraper"
	"github.com/use-agent/menugrab/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	closeLog := logging.Setup(cfg.Log, os.Stdout)
	defer closeLog()
	slog.Info("menugrab server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxRuns", cfg.Server.MaxConcurrentRuns,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled without MENUGRAB_API_KEYS, API is open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Scraper (browsers are started per run) ───────────────────
	sc := scraper.NewScraper(cfg.Browser, cfg.Scraper, cfg.Server.MaxConcurrentRuns)

	// ── 4. Cache and job store ──────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Close()
	jobs := handler.NewJobStore(ctx, &webhook.Sender{Logger: slog.Default()}, slog.Default())

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, sc, jobs, cfg, cc, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	// Synchronous extractions hold the connection; give them a moment.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("menugrab server stopped")
}
