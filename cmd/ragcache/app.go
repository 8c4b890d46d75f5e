package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcache/cache"
	"github.com/BaSui01/ragcache/config"
	"github.com/BaSui01/ragcache/internal/database"
	"github.com/BaSui01/ragcache/internal/metrics"
	"github.com/BaSui01/ragcache/llm"
	"github.com/BaSui01/ragcache/llm/embedding"
	"github.com/BaSui01/ragcache/llm/providers"
	"github.com/BaSui01/ragcache/llm/providers/openaicompat"
	"github.com/BaSui01/ragcache/llm/response"
	"github.com/BaSui01/ragcache/llm/tokenizer"
	"github.com/BaSui01/ragcache/rag"
)

// ErrOffline 未配置上游 API Key
var ErrOffline = errors.New("no upstream credentials: set embedding.api_key and llm.api_key (RAGCACHE_EMBEDDING_API_KEY, RAGCACHE_LLM_API_KEY)")

// =============================================================================
// 🔌 上游依赖
// =============================================================================

// Deps 上游服务：按模型取嵌入生成器，以及对话模型
type Deps struct {
	Embeddings func(model string) embedding.Generator
	Chat       llm.Provider
}

// depsFunc 按配置构建上游依赖，测试中替换为 mock
type depsFunc func(cfg *config.Config, logger *zap.Logger) (*Deps, error)

// productionDeps 连接 OpenAI 兼容的嵌入与对话接口
func productionDeps(cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	if cfg.Embedding.APIKey == "" || cfg.LLM.APIKey == "" {
		return nil, ErrOffline
	}

	emb := cfg.Embedding
	chat := openaicompat.New(openaicompat.Config{
		ProviderName:      cfg.LLM.Provider,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		DefaultModel:      cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	}, logger)

	return &Deps{
		Embeddings: func(model string) embedding.Generator {
			return embedding.NewOpenAIGenerator(embedding.OpenAIConfig{
				APIKey:            emb.APIKey,
				BaseURL:           emb.BaseURL,
				Model:             model,
				Dimensions:        emb.Dimensions,
				Timeout:           emb.Timeout,
				RequestsPerSecond: emb.RequestsPerSecond,
				Burst:             emb.Burst,
			})
		},
		Chat: chat,
	}, nil
}

// =============================================================================
// 🏗️ 应用装配
// =============================================================================

// App 装配完成的问答服务
type App struct {
	Orchestrator *rag.Orchestrator
	Collector    *metrics.Collector // metrics 关闭时为 nil

	closers []func() error
	logger  *zap.Logger
}

// Close 按创建的逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// buildApp 按配置装配存储、两级缓存、意图路由、检索与编排器
func buildApp(ctx context.Context, cfg *config.Config, deps *Deps, logger *zap.Logger) (*App, error) {
	app := &App{logger: logger}
	if cfg.Metrics.Enabled {
		app.Collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	store, err := app.buildStore(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	embStore := cache.NewSafeStore(store, cfg.Cache.OpTimeout, logger).WithName(embedding.CacheName)
	respStore := cache.NewSafeStore(store, cfg.Cache.OpTimeout, logger).WithName(response.CacheName)

	embCache := embedding.NewCache(embStore, embedding.Config{
		TTL:             cfg.Cache.EmbeddingTTL,
		MaxInputChars:   cfg.Embedding.MaxInputChars,
		MaxInputTokens:  cfg.Embedding.MaxInputTokens,
		GenerateTimeout: cfg.Embedding.Timeout,
	}, logger)
	if cfg.Embedding.MaxInputTokens > 0 {
		tokenizer.RegisterOpenAITokenizers()
		tok := tokenizer.GetTokenizerOrEstimator(cfg.Embedding.Model)
		embCache.WithTruncator(tokenizer.NewTokenTruncator(tok, cfg.Embedding.MaxInputTokens, logger))
	}

	retry := providers.DefaultRetryConfig()
	retry.MaxRetries = cfg.LLM.MaxRetries

	respCache := response.NewCache(respStore, response.Config{
		TTL:             cfg.Cache.ResponseTTL,
		GenerateTimeout: retry.Budget(cfg.LLM.Timeout),
	}, logger)

	var chat llm.Provider = providers.NewRetryableProvider(deps.Chat, retry, logger)

	embedderFor := func(model string) *embedding.Embedder {
		gen := deps.Embeddings(model)
		if app.Collector != nil {
			gen = metrics.InstrumentGenerator(gen, app.Collector)
		}
		return embedding.NewEmbedder(embCache, gen, model)
	}

	if app.Collector != nil {
		embStore.WithRecorder(app.Collector)
		respStore.WithRecorder(app.Collector)
		embCache.WithRecorder(app.Collector)
		respCache.WithRecorder(app.Collector)
		chat = metrics.NewInstrumentedProvider(chat, app.Collector)
	}

	router, err := buildRouter(ctx, cfg, embedderFor(cfg.EmbeddingModelFor(cfg.Router.EmbeddingModel)), logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	retriever, err := buildRetriever(ctx, cfg, embedderFor(cfg.EmbeddingModelFor(cfg.Retrieval.EmbeddingModel)), logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	generator := rag.NewLLMAnswerGenerator(chat, rag.GeneratorConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: float32(cfg.LLM.Temperature),
	})

	app.Orchestrator = rag.NewOrchestrator(router, retriever, respCache, generator, rag.OrchestratorConfig{
		RetrievalIntents: cfg.Retrieval.Intents,
		MaxContextChars:  cfg.Retrieval.MaxContextChars,
		TopK:             cfg.Retrieval.TopK,
	}, logger)
	if app.Collector != nil {
		app.Orchestrator.WithObserver(app.Collector)
	}

	logger.Info("ragcache assembled",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Strings("retrieval_intents", cfg.Retrieval.Intents),
	)
	return app, nil
}

// buildStore 按 cache.backend 创建共享存储；none 返回 nil（缓存关闭）
func (a *App) buildStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendNone:
		return nil, nil

	case config.CacheBackendMemory:
		return cache.NewMemoryStore(cfg.Cache.LocalCapacity, cache.WithLogger(a.logger)), nil

	case config.CacheBackendRedis:
		return a.openRedis(cfg)

	case config.CacheBackendTiered:
		remote, err := a.openRedis(cfg)
		if err != nil {
			return nil, err
		}
		local := cache.NewMemoryStore(cfg.Cache.LocalCapacity, cache.WithLogger(a.logger))
		return cache.NewTieredStore(local, remote, a.logger), nil

	case config.CacheBackendSQL:
		return a.openSQL(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

func (a *App) openRedis(cfg *config.Config) (*cache.RedisStore, error) {
	store, err := cache.NewRedisStore(redisConfigFrom(cfg.Redis), a.logger,
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open redis cache: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *App) openSQL(ctx context.Context, cfg *config.Config) (*cache.SQLStore, error) {
	pm, err := database.Open(cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pm.Close)

	if a.Collector != nil {
		pm.WithRecorder(a.Collector)
	}
	pm.StartHealthCheck(ctx)

	store := cache.NewSQLStore(pm.DB(), cache.WithLogger(a.logger))
	if err := store.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate cache table: %w", err)
	}
	return store, nil
}

func redisConfigFrom(cfg config.RedisConfig) cache.RedisConfig {
	return cache.RedisConfig{
		Addr:                cfg.Addr,
		Password:            cfg.Password,
		DB:                  cfg.DB,
		MaxRetries:          cfg.MaxRetries,
		PoolSize:            cfg.PoolSize,
		MinIdleConns:        cfg.MinIdleConns,
		HealthCheckInterval: cfg.HealthCheckInterval,
		TLSEnabled:          cfg.TLSEnabled,
	}
}

// buildRouter 加载并嵌入意图样例
func buildRouter(ctx context.Context, cfg *config.Config, embedder rag.Embedder, logger *zap.Logger) (*rag.IntentRouter, error) {
	specs := rag.DefaultExemplarSpecs()
	if cfg.Router.ExemplarsPath != "" {
		loaded, err := rag.LoadExemplarSpecs(cfg.Router.ExemplarsPath)
		if err != nil {
			return nil, err
		}
		specs = loaded
	}

	set, err := rag.EmbedExemplars(ctx, embedder, specs)
	if err != nil {
		return nil, fmt.Errorf("embed intent exemplars: %w", err)
	}

	return rag.NewIntentRouter(embedder, set, rag.IntentRouterConfig{
		ConfidenceThreshold: cfg.Router.ConfidenceThreshold,
		DefaultIntent:       cfg.Router.DefaultIntent,
	}, logger), nil
}

// buildRetriever 加载商品目录并建立内存索引；没有检索意图时返回 nil
func buildRetriever(ctx context.Context, cfg *config.Config, embedder rag.Embedder, logger *zap.Logger) (*rag.Retriever, error) {
	if len(cfg.Retrieval.Intents) == 0 {
		return nil, nil
	}

	products := rag.DefaultCatalog()
	if cfg.Retrieval.CatalogPath != "" {
		loaded, err := rag.LoadCatalog(cfg.Retrieval.CatalogPath)
		if err != nil {
			return nil, err
		}
		products = loaded
	}

	index := rag.NewInMemoryIndex(logger)
	n, err := rag.IndexCatalog(ctx, index, embedder, products)
	if err != nil {
		return nil, fmt.Errorf("index catalog: %w", err)
	}
	logger.Debug("catalog indexed", zap.Int("items", n))

	return rag.NewRetriever(embedder, index, rag.RetrieverConfig{
		TopK:          cfg.Retrieval.TopK,
		SearchTimeout: cfg.Retrieval.SearchTimeout,
	}, logger), nil
}
