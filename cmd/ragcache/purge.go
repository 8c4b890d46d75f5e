package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcache/config"
)

// runPurge 删除 SQL 缓存中的过期行
func runPurge(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, _ := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	return purge(context.Background(), cfg, stdout, logger)
}

func purge(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *zap.Logger) error {
	if cfg.Cache.Backend != config.CacheBackendSQL {
		return fmt.Errorf("purge requires the sql cache backend, got %q", cfg.Cache.Backend)
	}

	app := &App{logger: logger}
	defer func() { _ = app.Close() }()

	store, err := app.openSQL(ctx, cfg)
	if err != nil {
		return err
	}

	n, err := store.Purge(ctx)
	if err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "purged %d expired entries (%d remaining)\n", n, stats.Total)
	return nil
}
