package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	achttp "github.com/agentcoord/agentcoord/internal/adapter/http"
	"github.com/agentcoord/agentcoord/internal/adapter/jsonfile"
	acmcp "github.com/agentcoord/agentcoord/internal/adapter/mcp"
	acnats "github.com/agentcoord/agentcoord/internal/adapter/nats"
	"github.com/agentcoord/agentcoord/internal/adapter/otel"
	"github.com/agentcoord/agentcoord/internal/adapter/postgres"
	"github.com/agentcoord/agentcoord/internal/adapter/ws"
	"github.com/agentcoord/agentcoord/internal/config"
	"github.com/agentcoord/agentcoord/internal/logger"
	"github.com/agentcoord/agentcoord/internal/middleware"
	"github.com/agentcoord/agentcoord/internal/port/database"
	"github.com/agentcoord/agentcoord/internal/port/messagequeue"
	"github.com/agentcoord/agentcoord/internal/resilience"
	"github.com/agentcoord/agentcoord/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Persistence ---
	var store database.Store
	switch cfg.Store.Backend {
	case "postgres":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		slog.Info("postgres connected")
	default:
		fileStore, err := jsonfile.New(cfg.Store.Dir)
		if err != nil {
			return fmt.Errorf("file store: %w", err)
		}
		store = fileStore
		slog.Info("file store opened", "dir", cfg.Store.Dir)
	}

	// --- Events ---
	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		natsQueue, err := acnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := natsQueue.Drain(); err != nil {
				slog.Error("nats drain failed", "error", err)
			}
		}()
		queue = natsQueue
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	hub := ws.NewHub()
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	notifier := service.NewNotifier(queue, breaker, hub, log)

	// --- Coordinator ---
	coord, err := service.NewCoordinator(ctx, store, notifier, metrics, log)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	// --- HTTP ---
	handlers := &achttp.Handlers{Coordinator: coord}

	r := chi.NewRouter()
	r.Use(achttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(achttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/health", healthHandler(cfg, hub, queue))
	r.Get("/ws", hub.HandleWS)
	achttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- MCP ---
	mcpServer := acmcp.NewServer(acmcp.ServerConfig{
		Addr:    cfg.MCP.Addr,
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
		APIKey:  cfg.Server.APIKey,
	}, acmcp.ServerDeps{Coordinator: coord})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := mcpServer.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			mcpServer.Stop(shutdownCtx),
		)
	})

	return g.Wait()
}

// healthHandler reports overall service health including live connections.
func healthHandler(cfg *config.Config, hub *ws.Hub, queue messagequeue.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status        string `json:"status"`
		Store         string `json:"store"`
		NATS          bool   `json:"nats"`
		WSConnections int    `json:"wsConnections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:        "ok",
			Store:         cfg.Store.Backend,
			NATS:          queue != nil && queue.IsConnected(),
			WSConnections: hub.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
