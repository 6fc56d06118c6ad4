package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/8adimka/Go_Weather_Assistant/internal/app"
	"github.com/8adimka/Go_Weather_Assistant/internal/chat"
	"github.com/8adimka/Go_Weather_Assistant/internal/chat/model"
	"github.com/8adimka/Go_Weather_Assistant/internal/config"
	"github.com/8adimka/Go_Weather_Assistant/internal/httpx"
	"github.com/8adimka/Go_Weather_Assistant/internal/logging"
	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
	"github.com/8adimka/Go_Weather_Assistant/internal/otel"
)

const serviceName = "weather-assistant"

var version = "dev"

func main() {
	ctx := context.Background()

	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, logging.Options{
		Verbose: cfg.Verbose,
		JSON:    true,
		Secrets: []string{cfg.OpenAIApiKey, cfg.CaiyunApiKey, cfg.AmapApiKey, cfg.APIKey},
	}))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	tel, err := otel.InitOpenTelemetry(ctx, serviceName, version)
	if err != nil {
		slog.Error("Failed to initialize OpenTelemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	appMetrics, err := metrics.NewMetrics(otel.Meter())
	if err != nil {
		slog.Error("Failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, appMetrics, app.Options{})
	if err != nil {
		slog.Error("Failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	var store chat.ConversationStore
	if a.Repo != nil {
		store = a.Repo
	}
	server := chat.NewServer(map[model.Mode]chat.Runner{
		model.ModeTeam:   a.Team,
		model.ModeSingle: a.Single,
	}, store, a.Surface)

	handler := mux.NewRouter()
	handler.Use(
		httpx.OTelMiddleware(serviceName),
		httpx.Logger(),
		httpx.Recovery(),
		appMetrics.HTTPMetricsMiddleware(),
		httpx.SecurityHeaders(),
		httpx.Security(httpx.SecurityConfig{
			APIKey:             cfg.APIKey,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			RateLimitBurst:     cfg.RateLimitBurst,
			PublicPaths:        []string{"/health", "/ready", "/metrics"},
		}),
	)

	handler.HandleFunc("/health", a.Health.HealthHandler).Methods(http.MethodGet)
	handler.HandleFunc("/ready", a.Health.ReadyHandler).Methods(http.MethodGet)
	handler.Handle("/metrics", tel.MetricsHandler).Methods(http.MethodGet)
	server.Routes(handler)

	// A team run makes several model calls plus forecast requests.
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting the server...", "port", cfg.HTTPPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")
	a.Health.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
