package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcache/config"
	"github.com/BaSui01/ragcache/internal/server"
	"github.com/BaSui01/ragcache/internal/telemetry"
)

// runServe 启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅关闭
func runServe(args []string, newDeps depsFunc) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, loader, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, level := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, loader, level, newDeps, logger)
}

// serve 装配并运行服务直到 ctx 结束
func serve(ctx context.Context, cfg *config.Config, loader *config.Loader, level zap.AtomicLevel, newDeps depsFunc, logger *zap.Logger) (err error) {
	deps, err := newDeps(cfg, logger)
	if err != nil {
		return err
	}

	tel, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := tel.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(shutdownErr))
		}
	}()

	app, err := buildApp(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	// 配置文件变化时只热更新日志级别，其余配置需要重启
	if loader.ConfigPath() != "" {
		watcher := config.NewWatcher(loader, cfg, config.WithWatcherLogger(logger))
		watcher.OnReload(func(next *config.Config) {
			level.SetLevel(parseLevel(next.Log.Level))
			logger.Info("log level reloaded", zap.String("level", next.Log.Level))
		})
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr := server.NewManager(newHandler(handlerCtx, app, cfg, logger), server.ConfigFrom(cfg.Server), logger)
	if err := mgr.Start(); err != nil {
		return err
	}
	logger.Info("ragcache serving", zap.String("addr", mgr.Addr()))

	return mgr.Wait(ctx)
}
