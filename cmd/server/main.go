package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/sqlite"
)

const analyticsPath = "/api/v1/analytics"

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("phrase book server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("phrase book server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting phrase book server", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdown(context.Background())
	}

	checker := health.NewChecker()
	source, closeSource, err := openSource(cfg, checker)
	if err != nil {
		return err
	}
	defer closeSource()

	l := loader.New(source, loader.Options{
		RetryOnFailure: cfg.Loader.RetryOnFailure,
		FetchTimeout:   cfg.Loader.FetchTimeout,
		FetchAttempts:  cfg.Loader.FetchAttempts,
		RetryBackoff:   cfg.Loader.RetryBackoff,
		Metrics:        m,
	})
	checker.Register("dataset", lookup.ReadinessCheck(l))
	if cfg.Loader.Preload {
		go func() {
			if _, err := l.Load(ctx); err != nil {
				slog.Warn("phrase book preload failed", "error", err)
			}
		}()
	}

	var (
		tracker   analytics.Tracker
		statsPage http.HandlerFunc
	)
	if cfg.Analytics.Enabled {
		collector, agg, stopAnalytics, err := startAnalytics(ctx, cfg, checker)
		if err != nil {
			return err
		}
		defer stopAnalytics()
		tracker = collector
		statsPage = analytics.NewHandler(agg).Stats
	}

	handler := lookup.New(l, lookup.Options{
		Tracker:      tracker,
		Metrics:      m,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, handler, checker, statsPage, m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, server, ln, cfg.Server.ShutdownTimeout)
}

// serve runs server on ln until ctx ends, then shuts it down gracefully. It
// returns only after in-flight requests have finished or shutdownTimeout
// has passed, so the caller's deferred cleanup never races a live handler.
func serve(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("phrase book server listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

// newRouter mounts the API and health routes behind the middleware chain.
// statsPage may be nil when analytics is disabled.
func newRouter(cfg *config.Config, h *lookup.Handler, checker *health.Checker, statsPage http.HandlerFunc, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	if statsPage != nil {
		mux.HandleFunc("GET "+analyticsPath, statsPage)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORS.AllowOrigins

	timeout := cfg.Server.WriteTimeout - time.Second
	if timeout <= 0 {
		timeout = cfg.Server.WriteTimeout
	}

	chain := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery,
		middleware.CORS(cors),
		middleware.Metrics(m, lookup.PhrasesPath, lookup.LanguagesPath, analyticsPath, "/health/live", "/health/ready"),
	}
	if n := cfg.Server.RateLimitPerMinute; n > 0 {
		chain = append(chain, middleware.RateLimit(middleware.NewLimiter(n, time.Minute)))
	}
	chain = append(chain, middleware.Timeout(timeout))
	return middleware.Chain(chain...)(mux)
}

// openSource builds the configured document source and registers health
// checks for the store behind it.
func openSource(cfg *config.Config, checker *health.Checker) (loader.Source, func(), error) {
	noop := func() {}
	switch cfg.Source.Kind {
	case config.SourceFile:
		return loader.FileSource{Path: cfg.Source.Path}, noop, nil
	case config.SourceHTTP:
		return loader.HTTPSource{URL: cfg.Source.URL, Client: &http.Client{Timeout: cfg.Loader.FetchTimeout}}, noop, nil
	case config.SourceRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("redis", health.PingCheck(client.Ping))
		return loader.NewRedisSource(client, cfg.Source.RedisKey), func() { client.Close() }, nil
	case config.SourcePostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("postgres", health.PingCheck(client.Ping))
		return loader.NewSQLSource(client.DB, cfg.Source.Name), func() { client.Close() }, nil
	case config.SourceSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return loader.NewSQLSource(db, cfg.Source.Name), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// startAnalytics wires collector → Kafka → aggregator, or collector →
// aggregator directly when no brokers are configured, plus optional
// snapshots to the configured store. The returned stop function flushes the
// collector, ends the pipeline's context and waits for the final snapshot;
// it does not depend on ctx having ended.
func startAnalytics(ctx context.Context, cfg *config.Config, checker *health.Checker) (*analytics.Collector, *analytics.Aggregator, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	agg := analytics.NewAggregator()
	var stops []func()
	abort := func(err error) (*analytics.Collector, *analytics.Aggregator, func(), error) {
		cancel()
		stopAll(stops)
		return nil, nil, nil, err
	}

	var publisher analytics.Publisher = analytics.DirectPublisher{Aggregator: agg}
	if len(cfg.Kafka.Brokers) > 0 {
		topic := cfg.Kafka.Topics.LookupEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		stops = append(stops, func() { producer.Close() })
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(agg))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("lookup event consumer error", "error", err)
			}
		}()
		slog.Info("lookup events routed through kafka", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}

	if cfg.Analytics.Persist {
		db, closeDB, err := openSnapshotDB(cfg, checker)
		if err != nil {
			return abort(fmt.Errorf("analytics snapshots: %w", err))
		}
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			closeDB()
			return abort(err)
		}
		saved := store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		stops = append(stops, func() {
			<-saved
			closeDB()
		})
	}

	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
	collector.Start(ctx)

	stop := func() {
		// Flush first so the final snapshot sees every tracked lookup;
		// the snapshot loop only finishes once ctx is cancelled.
		collector.Close()
		cancel()
		stopAll(stops)
	}
	return collector, agg, stop, nil
}

func openSnapshotDB(cfg *config.Config, checker *health.Checker) (*sql.DB, func(), error) {
	switch cfg.Analytics.Store {
	case config.SourceSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case config.SourcePostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("analytics_store", health.PingCheck(client.Ping))
		return client.DB, func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown analytics store %q", cfg.Analytics.Store)
	}
}

// stopAll runs the stop functions in reverse order of registration.
func stopAll(stops []func()) {
	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
}
