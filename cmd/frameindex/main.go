package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/events"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frameindex"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/source"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/watch"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting frame index service",
		"port", cfg.Server.Port,
		"source_kind", cfg.Source.Kind,
		"saddle_height", cfg.Rider.SaddleHeight,
		"saddle_fore_aft", cfg.Rider.SaddleForeAft,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker(0)

	var pgClient *postgres.Client
	var raw source.Fetcher
	switch cfg.Source.Kind {
	case config.SourceFile:
		raw = source.NewFile(cfg.Source.Path)
	case config.SourcePostgres:
		pgClient, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Close()
		checker.Register("postgres", health.Optional(pgClient.Ping))
		raw = source.NewPostgres(pgClient)
	default:
		raw = source.NewHTTP(cfg.Source.URL, cfg.Source.Timeout)
	}

	breaker := resilience.NewCircuitBreaker("frame-source", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Source.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Source.Breaker.ResetTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	src := source.NewResilient(raw, resilience.RetryConfig{
		MaxAttempts:  cfg.Source.Retry.MaxAttempts,
		InitialDelay: cfg.Source.Retry.InitialDelay,
		MaxDelay:     cfg.Source.Retry.MaxDelay,
	}, breaker)
	checker.Register("source", func(ctx context.Context) health.ComponentHealth {
		st := breaker.Status()
		if st.State == resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusUp}
		}
		return health.ComponentHealth{
			Status:  health.StatusDegraded,
			Message: "circuit " + st.State.String(),
			Details: map[string]any{
				"consecutive_failures": st.ConsecutiveFailures,
				"retry_after":          st.RetryAfter.String(),
			},
		}
	})

	policy, err := frameindex.ParseDuplicatePolicy(cfg.Index.DuplicatePolicy)
	if err != nil {
		slog.Error("invalid duplicate policy", "error", err)
		os.Exit(1)
	}
	idx := frameindex.New(src, frameindex.Options{
		Rider: frame.Rider{
			SaddleHeight:  cfg.Rider.SaddleHeight,
			SaddleForeAft: cfg.Rider.SaddleForeAft,
		},
		DuplicatePolicy: policy,
	})
	checker.Register("frame_index", func(ctx context.Context) health.ComponentHealth {
		snap, err := idx.Snapshot()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d frames", snap.Len()),
			Details: map[string]any{"version": snap.Version, "loaded_at": snap.LoadedAt},
		}
	})

	reloadOpts := catalogue.Options{Metrics: m}

	var nearestCache *cache.NearestCache
	if cfg.Redis.Addr != "" {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, nearest caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			var observer cache.Observer
			if m != nil {
				observer = m
			}
			nearestCache = cache.New(redisClient, cfg.Redis.CacheTTL, observer)
			reloadOpts.Cache = nearestCache
			checker.Register("redis", health.Optional(redisClient.Ping))
			slog.Info("nearest cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher := events.NewPublisher(producer, 0)
		publisher.Start(ctx)
		defer publisher.Close()
		reloadOpts.Events = publisher
		slog.Info("catalogue events enabled", "topic", cfg.Kafka.EventsTopic)
	}

	reloader := catalogue.NewReloader(idx, reloadOpts)
	if _, err := reloader.Reload(ctx, catalogue.TriggerStartup); err != nil {
		slog.Warn("initial catalogue load failed, serving 503 until a reload succeeds", "error", err)
	}
	var loops sync.WaitGroup
	loops.Add(1)
	go func() {
		defer loops.Done()
		reloader.RunInterval(ctx, cfg.Index.ReloadInterval)
	}()

	if cfg.Source.Kind == config.SourceFile && cfg.Source.Watch {
		watcher, err := watch.New(cfg.Source.Path, 0)
		if err != nil {
			slog.Error("failed to watch catalogue file", "path", cfg.Source.Path, "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
		go watcher.Run(ctx)
		loops.Add(1)
		go func() {
			defer loops.Done()
			reloader.RunOnChange(ctx, watcher.Changes())
		}()
	}

	var reloadLimiter *ratelimit.Limiter
	if cfg.Index.ReloadsPerMinute > 0 {
		reloadLimiter = ratelimit.New(cfg.Index.ReloadsPerMinute, time.Minute)
		go reloadLimiter.Run(ctx, 5*time.Minute)
	}

	h := handler.New(handler.Config{
		Index:         idx,
		Reloader:      reloader,
		Cache:         nearestCache,
		Metrics:       m,
		ReloadLimiter: reloadLimiter,
		DefaultLimit:  cfg.Index.DefaultLimit,
		MaxLimit:      cfg.Index.MaxLimit,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("frame index service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Shutdown returns once in-flight requests finish; only then may the
	// deferred closes tear down the event publisher and clients.
	<-shutdownDone
	loops.Wait()
	slog.Info("frame index service stopped")
}
