// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/backend"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/config"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/handler"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/telemetry"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/widget"
)

func main() {
	ctx := context.Background()

	// ── 1. Configuration and logging ──────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	// ── 2. Connect to the website ─────────────────────────────────────────
	client, err := backend.NewClient(ctx, backend.Options{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		SessionCookie: cfg.BackendSessionCookie,
	}, log)
	if err != nil {
		log.Error("website unreachable", "url", cfg.BackendURL, "error", err)
		os.Exit(1)
	}
	log.Info("connected to website", "url", cfg.BackendURL)

	// ── 3. Telemetry ──────────────────────────────────────────────────────
	var publisher telemetry.Publisher = telemetry.Nop{}
	if cfg.NATSUrl != "" {
		nc, err := telemetry.Connect(cfg.NATSUrl, cfg.NATSSubjectPrefix, log)
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
		} else {
			defer nc.Close()
			publisher = nc
		}
	}

	// ── 4. Wire up layers ─────────────────────────────────────────────────
	registry := live.NewRegistry(256, log)
	tokens := live.NewTokens(cfg.SessionSecret, cfg.SessionTTL)
	liveHandler := handler.NewLiveHandler(registry, tokens,
		func(cookie string) widget.Backend { return client.WithSession(cookie) },
		widget.Deps{
			Publisher: publisher,
			Log:       log,
			Options: widget.Options{
				SearchDebounce: cfg.SearchDebounce,
				SearchLimit:    cfg.SearchLimit,
				PollInterval:   cfg.PollInterval,
				NoticeTTL:      cfg.NoticeTTL,
				LoginURL:       cfg.LoginURL,
			},
		},
		cfg.BackendSessionCookie,
	)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, registry, cfg.SessionIdle, log)

	// ── 5. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(log))     // structured access log
	r.Use(handler.CORS(cfg.AllowedOrigin))

	// Health
	r.Get("/health", handler.HealthCheck)

	// Live session API
	r.Route("/live/sessions", liveHandler.Routes)

	// Browser shim
	r.Handle("/live/static/*", http.StripPrefix("/live/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Patch streams lift their own write deadline.
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	// Closing the sessions ends their patch streams so Shutdown can finish.
	registry.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}

// sweepSessions closes sessions nobody has streamed from for idle.
func sweepSessions(ctx context.Context, reg *live.Registry, idle time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := reg.Sweep(now, idle); n > 0 {
				log.Info("idle sessions closed", "closed", n, "open", reg.Len())
			}
		}
	}
}
