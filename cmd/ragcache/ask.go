package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/BaSui01/ragcache/rag"
)

// runAsk 单次问答，打印回答与缓存命中情况
func runAsk(args []string, stdout io.Writer, newDeps depsFunc) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "Path to configuration file")
	query := fs.String("query", "", "Question to answer")
	persona := fs.String("persona", "novice", "Customer persona")
	repeat := fs.Int("repeat", 1, "Ask the same question n times")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" && fs.NArg() > 0 {
		*query = fs.Arg(0)
	}
	if *repeat < 1 {
		return errors.New("--repeat must be at least 1")
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, _ := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	deps, err := newDeps(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	for i := 0; i < *repeat; i++ {
		outcome, err := app.Orchestrator.Handle(ctx, *query, *persona)
		if err != nil {
			fmt.Fprintf(stdout, "%s\n", rag.UserMessage(err))
			return err
		}
		printOutcome(stdout, i+1, outcome)
	}
	return nil
}

func printOutcome(w io.Writer, attempt int, o *rag.Outcome) {
	fmt.Fprintf(w, "[%d] %s\n", attempt, o.Answer)
	fmt.Fprintf(w, "    intent=%s confidence=%.3f items=%d\n", o.Intent, o.Confidence, o.ItemsRetrieved)
	fmt.Fprintf(w, "    response_cache_hit=%t embedding_cache_hit=%t degraded=%t request_id=%s\n",
		o.ResponseCacheHit, o.EmbeddingCacheHit, o.Degraded, o.RequestID)
}
