package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Bookshelf/internal/bookshelf"
	"Bookshelf/pkg/kit"
)

const service = "bookshelf"

func main() {
	_ = godotenv.Load(".env.local")

	cfg, cfgErr := loadConfig(os.Getenv)

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfgErr != nil {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open book store failed", zap.Error(err), zap.String("store", cfg.Store))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &bookshelf.Server{
		Store: bookshelf.NewInstrumentedStore(store, reg),
		Log:   log,
	}

	deps := bookshelf.HTTPDeps{
		Log:            log,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	}
	if cfg.WriteRateLimit > 0 {
		deps.WriteLimiter = kit.NewIPRateLimiter(cfg.WriteRateLimit, cfg.WriteRateBurst)
	}

	if err := kit.RunHTTPServer(ctx, cfg.Addr(), bookshelf.NewHandler(s, deps), log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg Config, log *zap.Logger) (bookshelf.Store, func(), error) {
	if cfg.Store != storePostgres {
		log.Info("using in-memory book store")
		return bookshelf.NewMemStore(), func() {}, nil
	}

	db, err := bookshelf.OpenPostgres(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	s := bookshelf.NewPostgresStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("using postgres book store")
	return s, func() { _ = db.Close() }, nil
}
