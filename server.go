package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"Scrumble/cache"
	"Scrumble/config"
	"Scrumble/controllers"
	"Scrumble/matchups"
	"Scrumble/metrics"
	"Scrumble/store"
	"Scrumble/store/dynamostore"
	"Scrumble/store/gormstore"
	"Scrumble/store/memstore"
	"Scrumble/voting"
)

// Services is everything a process needs to serve or administer matchups.
type Services struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    store.Store
	Engine   *matchups.Engine
	Ledger   *voting.Ledger
	Cache    *cache.Cache
	Registry *prometheus.Registry

	closers []func() error
}

// NewLogger returns a JSON logger in production and a text logger elsewhere.
func NewLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// OpenStore connects the configured driver and wraps it with the standard
// per-call timeout. The returned func releases the connection.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, func() error, error) {
	noop := func() error { return nil }
	var (
		s       store.Store
		closeFn = noop
	)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		s = memstore.New()

	case config.DriverDynamoDB:
		client, err := dynamostore.NewClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DynamoDBEndpoint != "" {
			if err := dynamostore.EnsureTable(ctx, client, cfg.TableName); err != nil {
				return nil, nil, err
			}
		}
		s = dynamostore.New(client, cfg.TableName)

	case config.DriverPostgres, config.DriverSQLite:
		open := func() (*gormstore.Store, func() error, error) {
			var (
				db  *gorm.DB
				err error
			)
			if cfg.StoreDriver == config.DriverPostgres {
				db, err = gormstore.OpenPostgres(cfg.DatabaseURL)
			} else {
				db, err = gormstore.OpenSQLite(cfg.SQLitePath)
			}
			if err != nil {
				return nil, nil, fmt.Errorf("open %s: %w", cfg.StoreDriver, err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return nil, nil, err
			}
			gs, err := gormstore.New(db)
			if err != nil {
				_ = sqlDB.Close()
				return nil, nil, err
			}
			return gs, sqlDB.Close, nil
		}
		gs, closer, err := open()
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = gs, closer

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.StoreTimeout > 0 {
		s = store.WithTimeout(s, cfg.StoreTimeout)
	}
	return s, closeFn, nil
}

// NewServices opens the store, connects the optional cache and builds the
// matchup engine and vote ledger on a fresh metrics registry.
func NewServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := &Services{Config: cfg, Logger: logger, Store: s, closers: []func() error{closeStore}}

	svc.Registry = prometheus.NewRegistry()
	svc.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink, err := metrics.NewPrometheus(svc.Registry)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	svc.Cache = cache.New(nil)
	if cfg.RedisConfigured() {
		client, err := cache.Connect(ctx, cache.Options{
			URL:       cfg.RedisURL,
			ValkeyURL: cfg.ValkeyURL,
			Addr:      cfg.RedisAddr,
			Username:  cfg.RedisUsername,
			Password:  cfg.RedisPassword,
		})
		if err != nil {
			// Listings can be served uncached.
			logger.Warn("could not connect to redis", "error", err)
		} else {
			svc.Cache = cache.New(client)
			svc.closers = append(svc.closers, svc.Cache.Close)
		}
	}

	svc.Engine = matchups.NewEngine(s, matchups.WithMetrics(sink), matchups.WithLogger(logger))
	svc.Ledger = voting.NewLedger(s,
		voting.WithDedupWindow(cfg.DedupWindow),
		voting.WithMetrics(sink),
		voting.WithLogger(logger),
	)
	return svc, nil
}

func (svc *Services) Close() error {
	var first error
	for i := len(svc.closers) - 1; i >= 0; i-- {
		if err := svc.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func initSentry(cfg config.Config) (func(), error) {
	if cfg.SentryDSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Run loads the environment and serves the API until SIGINT or SIGTERM.
func Run() error {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := NewLogger(cfg)
	slog.SetDefault(logger)

	flush, err := initSentry(cfg)
	if err != nil {
		logger.Warn("error reporting disabled", "error", err)
		flush = func() {}
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := NewServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	archiver, err := StartArchiver(cfg.ArchiveSchedule, svc.Engine, logger)
	if err != nil {
		return err
	}
	defer archiver.Stop()

	server := controllers.Server{
		Engine:  svc.Engine,
		Ledger:  svc.Ledger,
		Cache:   svc.Cache,
		Config:  cfg,
		Metrics: svc.Registry,
		Logger:  logger,
	}
	server.Initialize()

	logger.Info("starting scrumble api", "env", cfg.AppEnv, "store", cfg.StoreDriver, "cache", svc.Cache.Enabled())
	return server.Run(ctx, ":"+cfg.Port)
}
