// Package main is the entry point for the assistant API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/malidaftari/assistant/internal/advice"
	"github.com/malidaftari/assistant/internal/audit"
	"github.com/malidaftari/assistant/internal/config"
	"github.com/malidaftari/assistant/internal/gateway"
	"github.com/malidaftari/assistant/internal/handler"
	"github.com/malidaftari/assistant/internal/intent"
	"github.com/malidaftari/assistant/internal/middleware"
	"github.com/malidaftari/assistant/internal/session"
	"github.com/malidaftari/assistant/internal/tenant"
	"github.com/malidaftari/assistant/internal/ws"
	"github.com/malidaftari/assistant/pkg/logger"
	"github.com/malidaftari/assistant/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting assistant server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Audit trail: JetStream when a broker is configured, structured log
	// otherwise.
	var recorder audit.Recorder = audit.NewLogRecorder(log)
	var broker handler.BrokerChecker
	if cfg.NATSURL != "" {
		natsRecorder, err := audit.Connect(ctx, audit.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect audit broker", zap.Error(err))
			os.Exit(1)
		}
		defer natsRecorder.Close()
		recorder = natsRecorder
		broker = natsRecorder
	}

	store, err := gateway.OpenReadOnly(cfg.StorePath, cfg.StoreMaxConns)
	if err != nil {
		log.Error("failed to open business store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	gw := gateway.New(store, cfg.QueryMaxRows, int64(cfg.StoreMaxConns), recorder, log)

	// Advice backend: Anthropic preferred, OpenAI as alternative. No key
	// means data answers only.
	var advisor session.Advisor
	var backend advice.Backend
	if cfg.AnthropicAPIKey != "" {
		backend, err = advice.NewBackend(advice.ProviderAnthropic, cfg.AnthropicAPIKey, cfg.AdviceModel)
	} else if cfg.OpenAIAPIKey != "" {
		backend, err = advice.NewBackend(advice.ProviderOpenAI, cfg.OpenAIAPIKey, cfg.AdviceModel)
	}
	if err != nil {
		log.Warn("failed to create advice backend, advice disabled", zap.Error(err))
	} else if backend != nil {
		advisor = advice.NewLimited(backend, int64(cfg.AdviceMaxCalls))
		log.Info("advice backend ready", zap.String("provider", backend.Name()))
	}

	resolver := tenant.NewResolver(recorder, log)
	translator := intent.NewRuleTranslator()

	manager := session.NewManager(session.Config{
		HistoryMaxTurns:  cfg.HistoryMaxTurns,
		IdleTimeout:      cfg.IdleTimeout,
		CloseGracePeriod: cfg.CloseGracePeriod,
		TranslateTimeout: cfg.TranslateTimeout,
		QueryTimeout:     cfg.QueryTimeout,
		AdviceTimeout:    cfg.AdviceTimeout,
	}, translator, gw, advisor, log)

	supervisor := ws.NewSupervisor(resolver, manager, log)
	healthHandler := handler.NewHealthHandler(gw, manager, broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/chat", supervisor.ServeChat)
	})

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     r,
		ReadTimeout: cfg.ServerReadTimeout,
		// Write timeout stays off the websocket path; connections are bounded
		// by the session idle timeout instead.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Warn("sessions did not drain in time", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
