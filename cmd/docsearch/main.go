package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/config"
	"github.com/kailas-cloud/docsearch/internal/crawler"
	dbMemory "github.com/kailas-cloud/docsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/docsearch/internal/db/redis"
	"github.com/kailas-cloud/docsearch/internal/domain"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
	logpkg "github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/docsearch/internal/repository/document"
	"github.com/kailas-cloud/docsearch/internal/repository/embcache"
	"github.com/kailas-cloud/docsearch/internal/repository/mongodb"
	"github.com/kailas-cloud/docsearch/internal/repository/ratelimit"
	"github.com/kailas-cloud/docsearch/internal/repository/rescache"
	"github.com/kailas-cloud/docsearch/internal/repository/sqlite"
	"github.com/kailas-cloud/docsearch/internal/telemetry"
	chiTransport "github.com/kailas-cloud/docsearch/internal/transport/chi"
	localEmb "github.com/kailas-cloud/docsearch/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/docsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docsearch/internal/usecase/search"
	"github.com/kailas-cloud/docsearch/internal/version"
)

// kvStore is what the composition root needs from the KV backend.
type kvStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close()
}

// documentStore is what the search and ingest services need from the document backend.
type documentStore interface {
	Insert(ctx context.Context, doc *domdoc.Document) error
	Scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error)
	Ping(ctx context.Context) error
}

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

	logger.Info("Starting docsearch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("documents_driver", cfg.Documents.Driver),
		zap.String("rate_limit_driver", cfg.RateLimit.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version.Version,
		Environment: env,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	// KV store: result cache, rate limiter, embedding cache, redis documents
	var (
		kv          kvStore
		redisStore  *dbRedis.Store
		memoryStore *dbMemory.Store
	)
	switch cfg.Database.Driver {
	case "redis", "valkey":
		redisStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		kv = redisStore
	case "memory":
		memoryStore, err = dbMemory.NewStore(cfg.Database.MemoryEntries)
		if err != nil {
			logger.Fatal("Failed to create memory store", zap.Error(err))
		}
		kv = memoryStore
	}
	defer kv.Close()
	logger.Info("Connected to KV store", zap.String("driver", cfg.Database.Driver))

	// MongoDB is shared by the document store and the limiter
	var mongoDB *mongo.Database
	if cfg.Documents.Driver == "mongo" || cfg.RateLimit.Driver == "mongo" {
		client, err := mongodb.Connect(ctx, cfg.Documents.Mongo.URI, time.Duration(cfg.Database.ReadinessTimeout)*time.Second)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mongoDB = client.Database(cfg.Documents.Mongo.Database)
		err = mongodb.EnsureIndexes(ctx,
			mongoDB.Collection(cfg.Documents.Mongo.Collection),
			mongoDB.Collection(cfg.Documents.Mongo.UsersCollection),
		)
		if err != nil {
			logger.Fatal("Failed to create MongoDB indexes", zap.Error(err))
		}
	}

	// Document store
	var docs documentStore
	switch cfg.Documents.Driver {
	case "memory":
		docs = documentrepo.NewMemory()
	case "redis":
		docs = documentrepo.New(redisStore, cfg.Storage.KeyPrefix)
	case "mongo":
		docs = mongodb.NewStore(mongoDB.Collection(cfg.Documents.Mongo.Collection))
	case "sqlite":
		sq, err := sqlite.Open(ctx, cfg.Documents.SQLite.Path)
		if err != nil {
			logger.Fatal("Failed to open SQLite", zap.Error(err))
		}
		defer func() { _ = sq.Close() }()
		docs = sq
	}

	// Rate limiter
	var limiter searchuc.Limiter
	switch cfg.RateLimit.Driver {
	case "redis":
		limiter = ratelimit.NewRedis(redisStore, cfg.Storage.KeyPrefix, cfg.RateLimit.Ceiling)
	case "mongo":
		limiter = mongodb.NewLimiter(mongoDB.Collection(cfg.Documents.Mongo.UsersCollection), cfg.RateLimit.Ceiling)
	case "memory":
		limiter = ratelimit.NewMemory(cfg.RateLimit.Ceiling)
	}

	// Build embedder chain
	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, kv, cfg.Storage.KeyPrefix, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, kv, cfg.Storage.KeyPrefix, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Use case services
	searchSvc := searchuc.New(limiter, rescache.New(kv, cfg.Storage.KeyPrefix), docs, queryEmbedder).
		WithCacheTTL(cfg.Search.CacheTTL()).
		WithTimeouts(cfg.Search.EmbedTimeout(), cfg.Search.ScanTimeout()).
		WithScanRetries(cfg.Search.ScanRetries)
	ingestSvc := ingestuc.New(docs, docEmbedder)
	healthSvc := healthuc.New(kv, docs, newEmbeddingHealthChecker(docEmbedder))

	// News crawler
	var sched *crawler.Scheduler
	if cfg.Crawler.Enabled {
		c := crawler.New(crawler.Config{
			SourceURL:     cfg.Crawler.SourceURL,
			MaxArticles:   cfg.Crawler.MaxArticles,
			FetchArticles: cfg.Crawler.FetchArticles,
			Timeout:       time.Duration(cfg.Crawler.TimeoutSec) * time.Second,
			UserAgent:     cfg.Crawler.UserAgent,
		}, logger.Named("crawler"))
		job := crawler.NewJob(c, ingestuc.New(docs, docEmbedder).WithSource("crawler"), logger.Named("crawler"))
		sched = crawler.NewScheduler(job, time.Duration(cfg.Crawler.IntervalMin)*time.Minute, 5*time.Minute, logger.Named("crawler"))
		if err := sched.Start(); err != nil {
			logger.Fatal("Failed to start crawler", zap.Error(err))
		}
	}

	// Create chi server
	server := chiTransport.NewServer(searchSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	kv kvStore,
	keyPrefix string,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	var base domain.Embedder
	switch cfg.Provider {
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	default:
		base = localEmb.NewEmbedder(cfg.Dimensions)
	}

	// Cached
	embedder := base
	if cfg.Cache && cfg.Provider != "local" {
		embedder = embcache.New(base, kv, keyPrefix, cfg.Model).
			WithDimensions(cfg.Dimensions).
			WithMetrics(metrics.EmbeddingCacheTotal).
			WithLogger(logger)
	}

	// Instrumented (throttle + breaker + logging)
	inst := embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger).
		WithThrottle(cfg.RequestsPerSecond, cfg.Burst)
	if cfg.Breaker.Enabled {
		inst = inst.WithBreaker(embeddinguc.BreakerSettings{
			Failures:    cfg.Breaker.FailureThreshold,
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    time.Duration(cfg.Breaker.IntervalSec) * time.Second,
			Cooldown:    time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		})
	}

	// Instruction prefix (outermost, cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(inst, instruction)
	}
	return inst
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
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

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if userID := r.Header.Get(chiTransport.UserIDHeader); userID != "" {
				fields = append(fields, zap.String("user_id", userID))
			}
			// Canonical log line, one per request
			reqLogger.Info("http_request", fields...)
		})
	}
}
