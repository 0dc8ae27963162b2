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

	"github.com/cloudrag/kbretrieve/internal/config"
	logpkg "github.com/cloudrag/kbretrieve/internal/logger"
	"github.com/cloudrag/kbretrieve/internal/metrics"
	"github.com/cloudrag/kbretrieve/internal/transport/awskb"
	"github.com/cloudrag/kbretrieve/internal/transport/httpapi"
	"github.com/cloudrag/kbretrieve/internal/usecase/retrieve"
	"github.com/cloudrag/kbretrieve/internal/version"
	"github.com/cloudrag/kbretrieve/retrieval"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting kbgate gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("knowledge_bases", len(cfg.KnowledgeBases)),
	)

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	ctx := context.Background()
	client, err := awskb.New(ctx, awskb.Config{
		Region:         cfg.AWS.Region,
		Profile:        cfg.AWS.Profile,
		EndpointURL:    cfg.AWS.EndpointURL,
		ConnectTimeout: time.Duration(cfg.AWS.ConnectTimeoutSec) * time.Second,
		ReadTimeout:    time.Duration(cfg.AWS.ReadTimeoutSec) * time.Second,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to create knowledge base client", zap.Error(err))
	}

	// One retrieval service per configured knowledge base
	retrievers := make(map[string]httpapi.DocumentRetriever, len(cfg.KnowledgeBases))
	for _, kb := range cfg.KnowledgeBases {
		svc, err := buildRetriever(client, kb, logger)
		if err != nil {
			logger.Fatal("Failed to set up knowledge base",
				zap.String("name", kb.Name),
				zap.Error(err),
			)
		}
		retrievers[kb.Name] = svc
		logger.Info("Knowledge base registered",
			zap.String("name", kb.Name),
			zap.String("id", kb.ID),
			zap.Float64("min_score_confidence", kb.MinScoreConfidence),
		)
	}

	server := httpapi.NewServer(retrievers, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
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

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildRetriever assembles a retrieval service for one configured knowledge base.
func buildRetriever(client retrieve.Client, kb config.KnowledgeBaseConfig, logger *zap.Logger) (*retrieve.Service, error) {
	var retrievalCfg *retrieval.RetrievalConfig
	if kb.RetrievalConfiguration != nil {
		parsed, err := retrieval.RetrievalConfigFromMap(kb.RetrievalConfiguration)
		if err != nil {
			return nil, fmt.Errorf("parse retrieval_configuration: %w", err)
		}
		retrievalCfg = &parsed
	}

	svc, err := retrieve.New(client, kb.ID, retrievalCfg, kb.MinScoreConfidence,
		logger.With(zap.String("knowledge_base", kb.Name)))
	if err != nil {
		return nil, err
	}
	if kb.SkipInvalidResults {
		svc = svc.WithSkipInvalidResults()
	}
	return svc, nil
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
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
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
