package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	tghttp "github.com/Strob0t/ToolGate/internal/adapter/http"
	tgnats "github.com/Strob0t/ToolGate/internal/adapter/nats"
	tgotel "github.com/Strob0t/ToolGate/internal/adapter/otel"
	"github.com/Strob0t/ToolGate/internal/adapter/ws"
	"github.com/Strob0t/ToolGate/internal/config"
	"github.com/Strob0t/ToolGate/internal/domain/call"
	"github.com/Strob0t/ToolGate/internal/domain/policy"
	"github.com/Strob0t/ToolGate/internal/logger"
	"github.com/Strob0t/ToolGate/internal/scheduler"
	"github.com/Strob0t/ToolGate/internal/service"
	"github.com/Strob0t/ToolGate/internal/tools"
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

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"policy_profile", cfg.Policy.Profile,
		"workers", cfg.Scheduler.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer := tgotel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := tgotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	profile, err := resolveProfile(cfg.Policy)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	// --- Services ---
	hub := ws.NewHub()
	registry := tools.Builtin()

	sched := scheduler.New(registry,
		scheduler.WithBroadcaster(hub),
		scheduler.WithMetrics(metrics),
		scheduler.WithWorkers(cfg.Scheduler.Workers),
	)

	decisions := service.NewDecisionService(sched.Confirmations(), profile, hub)

	// Optional NATS bridge for detached decision sources.
	if cfg.NATS.Enabled {
		queue, err := tgnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()

		bridge := tgnats.NewBridge(queue, sched.Confirmations())
		stopBridge, err := bridge.Start(ctx)
		if err != nil {
			return fmt.Errorf("nats bridge: %w", err)
		}
		defer stopBridge()

		decisions.SetForwarder(func(req call.ConfirmationRequest) {
			if err := bridge.ForwardRequest(ctx, req); err != nil {
				slog.Error("forward confirmation request", "correlation_id", req.CorrelationID, "error", err)
			}
		})
	}

	if err := decisions.Start(); err != nil {
		return fmt.Errorf("decision service: %w", err)
	}
	defer decisions.Stop()

	// Execution workers.
	runErr := make(chan error, 1)
	go func() { runErr <- sched.Run(ctx) }()

	// --- HTTP ---
	handlers := tghttp.NewHandlers(sched, decisions)

	r := chi.NewRouter()
	r.Use(tghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(tghttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(cfg, hub))
	r.Get("/ws", hub.HandleWS)
	tghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-runErr
}

// resolveProfile picks the active policy profile: a custom profile from
// the configured directory wins over a built-in preset of the same name.
func resolveProfile(cfg config.Policy) (policy.Profile, error) {
	if cfg.CustomDir != "" {
		profiles, err := policy.LoadFromDirectory(cfg.CustomDir)
		if err != nil {
			return policy.Profile{}, err
		}
		for _, p := range profiles {
			if p.Name == cfg.Profile {
				return p, nil
			}
		}
	}
	if p, ok := policy.PresetByName(cfg.Profile); ok {
		return p, nil
	}
	return policy.Profile{}, fmt.Errorf("unknown policy profile %q", cfg.Profile)
}

// healthHandler reports service health.
func healthHandler(cfg *config.Config, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		NATS        string `json:"nats"`
		Profile     string `json:"profile"`
		Connections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		natsState := "disabled"
		if cfg.NATS.Enabled {
			natsState = cfg.NATS.URL
		}
		status := healthStatus{
			Status:      "ok",
			NATS:        natsState,
			Profile:     cfg.Policy.Profile,
			Connections: hub.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
