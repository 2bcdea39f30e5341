package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/omvyx/voice-receptionist/internal/config"
	"github.com/omvyx/voice-receptionist/internal/directory"
	"github.com/omvyx/voice-receptionist/internal/engine"
	"github.com/omvyx/voice-receptionist/internal/knowledge"
	"github.com/omvyx/voice-receptionist/internal/nlu"
	"github.com/omvyx/voice-receptionist/internal/observability/metrics"
	"github.com/omvyx/voice-receptionist/internal/scheduling"
	"github.com/omvyx/voice-receptionist/internal/session"
	"github.com/omvyx/voice-receptionist/internal/store"
	"github.com/omvyx/voice-receptionist/internal/transport"
	"github.com/omvyx/voice-receptionist/pkg/logging"
)

func main() {
	// Load .env if present (local development)
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voice receptionist",
		"env", cfg.Env,
		"port", cfg.Port,
		"state_backend", cfg.StateBackend,
		"directory_backend", cfg.DirectoryBackend,
	)

	// Conversation store
	var callStore store.Store
	switch cfg.StateBackend {
	case "redis":
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cancel()
		callStore = store.NewRedisStore(client, cfg.CallStateTTL, nil)
	default:
		callStore = store.NewMemoryStore()
	}

	// Client directory
	var dir engine.Directory
	switch cfg.DirectoryBackend {
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		dir = directory.NewPostgresService(pool)
	default:
		dir = directory.NewSeededService()
	}

	// Availability calendar, pre-seeded with taken slots until a real
	// calendar backend lands.
	calendar := scheduling.NewCalendarWithBusy(
		"2026-02-09 10:00",
		"2026-02-09 11:00",
		"2026-02-10 09:00",
	)

	pipeline := engine.NewPipeline(engine.PipelineConfig{
		Extractor:    nlu.NewRegexExtractor(),
		Classifier:   nlu.NewKeywordClassifier(),
		Directory:    dir,
		Availability: calendar,
		Knowledge:    knowledge.NewDefaultBase(),
		Logger:       logger,
	})

	turnMetrics := metrics.NewTurnMetrics(prometheus.DefaultRegisterer)

	supervisor := session.NewSupervisor(session.Config{
		Pipeline:    pipeline,
		Store:       callStore,
		Logger:      logger,
		Metrics:     turnMetrics,
		TurnTimeout: cfg.TurnTimeout,
	})

	wsHandler := transport.NewHandler(supervisor, logger, turnMetrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/calls/{callID}/ws", wsHandler.ServeCall)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket connections live for the whole call.
		IdleTimeout: cfg.KeepaliveTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := supervisor.Shutdown(ctx); err != nil {
		logger.Error("supervisor shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
