package main

import (
	"context"
	"database/sql"
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
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/config"
	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/db/embedded"
	"github.com/kailas-cloud/cmsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/cmsearch/internal/db/redis"
	"github.com/kailas-cloud/cmsearch/internal/events"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
	"github.com/kailas-cloud/cmsearch/internal/metrics"
	permissionrepo "github.com/kailas-cloud/cmsearch/internal/repository/permission"
	searchrepo "github.com/kailas-cloud/cmsearch/internal/repository/search"
	"github.com/kailas-cloud/cmsearch/internal/repository/secret"
	chiTransport "github.com/kailas-cloud/cmsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cmsearch/internal/usecase/health"
	"github.com/kailas-cloud/cmsearch/internal/usecase/postprocess"
	searchuc "github.com/kailas-cloud/cmsearch/internal/usecase/search"
	"github.com/kailas-cloud/cmsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cmsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("engine_driver", cfg.Engine.Driver),
		zap.Strings("engine_addrs", cfg.Engine.Addrs),
		zap.Int("indexes", len(cfg.Indexes)),
	)

	store, layout, err := openEngine(cfg.Engine)
	if err != nil {
		logger.Fatal("Failed to create engine store", zap.Error(err))
	}
	defer store.Close()

	// Wait for the engine to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Engine.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Engine not ready", zap.Error(err))
	}
	logger.Info("Connected to search engine")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	searchRepo := searchrepo.New(store, layout)
	indexes := make([]*searchuc.Index, 0, len(cfg.Indexes))
	for _, ic := range cfg.Indexes {
		settings, err := ic.Settings()
		if err != nil {
			logger.Fatal("Invalid index config", zap.String("index", ic.Name), zap.Error(err))
		}
		if err := store.CreateIndex(ctx, searchRepo.Definition(settings.EngineIndex())); err != nil &&
			!errors.Is(err, db.ErrIndexExists) {
			logger.Fatal("Failed to create engine index", zap.String("index", ic.Name), zap.Error(err))
		}
		post, err := postprocess.ForIndex(settings)
		if err != nil {
			logger.Fatal("Invalid post-processor", zap.String("index", ic.Name), zap.Error(err))
		}
		var pp searchuc.PostProcessor
		if post != nil {
			pp = post
		}
		indexes = append(indexes, searchuc.NewIndex(settings, searchRepo.Bind(settings.EngineIndex()), pp))
	}
	registry, err := searchuc.NewRegistry(indexes...)
	if err != nil {
		logger.Fatal("Failed to build index registry", zap.Error(err))
	}

	// Permission store. Pass nil interfaces (not typed nil pointers) when disabled.
	var (
		resolver    searchuc.PermissionResolver
		roles       searchuc.RoleChecker
		secrets     searchuc.SecretReader
		permPinger  healthuc.Pinger
		permissions *sql.DB
	)
	if cfg.Permissions.Enabled {
		pg, err := postgres.New(ctx, cfg.Permissions.Postgres())
		if err != nil {
			logger.Fatal("Failed to connect to permission store", zap.Error(err))
		}
		permissions = pg.DB
		defer func() { _ = pg.Close() }()

		if cfg.Permissions.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Fatal("Failed to migrate permission store", zap.Error(err))
			}
		}

		permRepo := permissionrepo.New(permissions)
		resolver, roles, permPinger = permRepo, permRepo, permRepo
		secrets = secret.New(permRepo, cfg.Search.SecretCacheSize,
			time.Duration(cfg.Search.SecretCacheTTLSec)*time.Second)
		logger.Info("Connected to permission store", zap.String("database", cfg.Permissions.Database))
	} else {
		logger.Warn("Permission store disabled, documents are not permission-checked")
	}

	guard := searchuc.NewGuard(roles, secrets, logger)
	searchSvc := searchuc.New(registry, guard, resolver, searchuc.NewThrottle(cfg.Search.BackgroundSlots), logger)

	// Analytics
	var collector *events.Collector
	if cfg.Events.Enabled {
		producer := events.NewProducer(cfg.Events.Brokers, cfg.Events.Topic, logger)
		defer func() { _ = producer.Close() }()
		collector = events.NewCollector(producer, cfg.Events.BufferSize, logger)
		collector.Start(ctx)
		searchSvc.WithRecorder(collector)
	}

	healthSvc := healthuc.New(store, permPinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.Auth(cfg.Auth.Keys()))
	r.Use(metrics.Middleware(chiTransport.HeaderCallerUser))
	server.Register(r)

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
	if collector != nil {
		collector.Close()
	}

	logger.Info("Server stopped gracefully")
}

// openEngine creates the engine store for the configured driver and the key
// layout its documents use.
func openEngine(cfg config.EngineConfig) (db.Store, searchrepo.Layout, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		return s, searchrepo.HashLayout{Prefix: cfg.KeyPrefix}, nil
	case config.DriverBleve:
		s, err := embedded.NewStore(embedded.Config{Dir: cfg.Path})
		if err != nil {
			return nil, nil, fmt.Errorf("embedded store: %w", err)
		}
		return s, searchrepo.FlatLayout{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine driver %q", cfg.Driver)
	}
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
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
				zap.String("query", r.URL.RawQuery),
				zap.String("caller", r.Header.Get(chiTransport.HeaderCallerUser)),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
