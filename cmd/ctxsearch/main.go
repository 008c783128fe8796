package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/config"
	dbRedis "github.com/kailas-cloud/ctxsearch/internal/db/redis"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/ctxsearch/internal/logger"
	"github.com/kailas-cloud/ctxsearch/internal/metrics"
	"github.com/kailas-cloud/ctxsearch/internal/repository/searchcache"
	"github.com/kailas-cloud/ctxsearch/internal/repository/source/static"
	"github.com/kailas-cloud/ctxsearch/internal/score"
	chiTransport "github.com/kailas-cloud/ctxsearch/internal/transport/chi"
	"github.com/kailas-cloud/ctxsearch/internal/transport/contentstack"
	openaiChat "github.com/kailas-cloud/ctxsearch/internal/transport/openai"
	chatuc "github.com/kailas-cloud/ctxsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ctxsearch/internal/usecase/health"
	"github.com/kailas-cloud/ctxsearch/internal/usecase/match"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
	"github.com/kailas-cloud/ctxsearch/internal/version"
)

// contentSource is what the server needs from a content backend.
type contentSource interface {
	searchuc.Source
	healthuc.Checker
}

// searchCache is what the server needs from a cache backend.
type searchCache interface {
	searchuc.Cache
	healthuc.Pinger
}

func main() {
	// Local development reads secrets from .env; a missing file is fine.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ctxsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("source_driver", cfg.Source.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metrics.RegisterHTTPMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterLLMMetrics()

	src, err := buildSource(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create content source", zap.Error(err))
	}
	if !src.Ready() {
		logger.Warn("Content source credentials missing, search will answer 503")
	}

	c, closeCache, err := buildCache(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}
	defer closeCache()

	searchSvc := searchuc.New(src, match.New(score.New(), cfg.Search.Workers), c, searchuc.Config{
		MaxResults:       cfg.Search.Limit,
		Threshold:        cfg.Search.RelevanceThreshold,
		Mode:             mode.FromFlag(cfg.Search.IsSemantic()),
		UseCache:         c != nil,
		CacheTTL:         time.Duration(cfg.Cache.TTLSec) * time.Second,
		FetchMultiplier:  cfg.Search.FetchMultiplier,
		DefaultLocale:    cfg.Search.DefaultLocale,
		KeyPrefix:        cfg.Cache.KeyPrefix,
		MaxContextLength: cfg.Search.MaxContextLength,
	})

	// Pass nil interfaces, not typed nil pointers, for absent components.
	var (
		chatSvc    *chatuc.Service
		models     chiTransport.ModelLister
		llmChecker healthuc.Checker
		pinger     healthuc.Pinger
	)
	if cfg.LLM.APIKey != "" {
		completer := openaiChat.NewCompleter(&openaiChat.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Logger:      logger,
		})
		chatSvc = chatuc.New(completer, searchSvc)
		models = completer
		llmChecker = completer
		logger.Info("Chat enabled", zap.String("model", completer.Model()))
	} else {
		logger.Warn("LLM api_key not set, chat endpoints disabled")
	}
	if c != nil {
		pinger = c
	}

	healthSvc := healthuc.New(src, pinger, llmChecker)
	server := chiTransport.NewServer(searchSvc, chatSvc, healthSvc, models, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.APIKeyMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func buildSource(cfg *config.Config, logger *zap.Logger) (contentSource, error) {
	switch cfg.Source.Driver {
	case config.SourceStatic:
		src, err := static.Load(cfg.Source.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		logger.Info("Serving static fixtures", zap.String("path", cfg.Source.FixturePath))
		return src, nil
	case config.SourceContentstack:
		return contentstack.NewClient(&contentstack.Config{
			APIKey:        cfg.Source.APIKey,
			DeliveryToken: cfg.Source.DeliveryToken,
			Environment:   cfg.Source.Environment,
			Region:        cfg.Source.Region,
			BaseURL:       cfg.Source.BaseURL,
			Timeout:       time.Duration(cfg.Source.TimeoutSec) * time.Second,
			Concurrency:   cfg.Source.Concurrency,
			Logger:        logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source driver %q", cfg.Source.Driver)
	}
}

// buildCache returns a nil cache when caching is disabled.
func buildCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (searchCache, func(), error) {
	if !cfg.Cache.IsEnabled() {
		logger.Info("Result cache disabled")
		return nil, func() {}, nil
	}
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second

	if !cfg.Cache.Shared() {
		mem := cache.NewMemory[result.Response](cfg.Cache.MaxItems, ttl)
		mem.StartSweeper(ctx, time.Duration(cfg.Cache.SweepIntervalSec)*time.Second)
		logger.Info("Using in-memory result cache", zap.Int("max_items", cfg.Cache.MaxItems))
		return mem, mem.Close, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Password:   cfg.Database.Password,
		Standalone: cfg.Database.Standalone,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s store: %w", cfg.Cache.Backend, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Cache.Backend, err)
	}
	logger.Info("Connected to shared result cache",
		zap.String("backend", cfg.Cache.Backend),
		zap.Strings("addrs", cfg.Database.Addrs),
	)
	return searchcache.New(store, cfg.Cache.KeyPrefix, ttl, logger), store.Close, nil
}
