package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/config"
	dbRedis "github.com/kailas-cloud/invman/internal/db/redis"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	logpkg "github.com/kailas-cloud/invman/internal/logger"
	"github.com/kailas-cloud/invman/internal/metrics"
	eventsrepo "github.com/kailas-cloud/invman/internal/repository/events"
	chiTransport "github.com/kailas-cloud/invman/internal/transport/chi"
	"github.com/kailas-cloud/invman/internal/transport/ws"
	"github.com/kailas-cloud/invman/internal/usecase/display"
	healthuc "github.com/kailas-cloud/invman/internal/usecase/health"
	inventoryuc "github.com/kailas-cloud/invman/internal/usecase/inventory"
	"github.com/kailas-cloud/invman/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting invman API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("events_driver", cfg.Events.Driver),
		zap.Strings("events_addrs", cfg.Events.Addrs),
		zap.Int("items", len(cfg.Items)),
	)

	ctx := context.Background()

	// Display sinks: Prometheus gauges, WebSocket subscribers, optional Redis pub/sub.
	metrics.RegisterInventoryMetrics()
	hub := ws.NewHub(logger)
	defer hub.Close()
	sinks := display.Fanout{metrics.Sink{}, hub}

	// Pass nil interface (not typed nil pointer) when no event backend is configured.
	var eventsPinger healthuc.Pinger
	switch cfg.Events.Driver {
	case "redis", "valkey":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Events.Addrs,
			Password: cfg.Events.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create event store", zap.Error(err))
		}
		defer store.Close()

		timeout := time.Duration(cfg.Events.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Event backend not ready", zap.Error(err))
		}
		logger.Info("Connected to event backend")

		sinks = append(sinks, eventsrepo.New(store, cfg.Events.KeyPrefix, logger))
		eventsPinger = store
	case "none":
		logger.Info("Event publishing disabled")
	}

	// Inventory service
	inventorySvc := inventoryuc.New(sinks, logger).WithRemoveHook(metrics.Forget)
	if err := registerItems(ctx, inventorySvc, cfg.Items); err != nil {
		logger.Fatal("Failed to register configured items", zap.Error(err))
	}

	// Health service
	healthSvc := healthuc.New(eventsPinger, inventorySvc)

	// Create chi server
	server := chiTransport.NewServer(inventorySvc, healthSvc, hub, logger).
		WithPagination(cfg.API.DefaultPageSize, cfg.API.MaxPageSize)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// registerItems loads the items declared in the config file.
func registerItems(ctx context.Context, svc *inventoryuc.Service, items []config.ItemConfig) error {
	for i, ic := range items {
		it, err := item.New(ic.Name, ic.Size, ic.Vendor, ic.WarnBeforeEmpty)
		if err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
		initial := make(map[quantity.Quantity]float64, len(ic.Quantities))
		for k, v := range ic.Quantities {
			q, err := quantity.Parse(k)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			initial[q] = v
		}
		if _, err := svc.Register(ctx, it, initial); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("item", chi.URLParamFromCtx(r.Context(), "item")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
