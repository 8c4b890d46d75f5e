package rag

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/ragcache/internal/ctxkeys"
	"github.com/BaSui01/ragcache/llm/response"
	"github.com/BaSui01/ragcache/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/ragcache/rag"

// 请求状态
const (
	StateClassifying        = "CLASSIFYING"
	StateRetrieving         = "RETRIEVING"
	StateGeneratingOrCached = "GENERATING_OR_CACHED"
	StateDone               = "DONE"
)

// Observer 请求级指标上报（由 internal/metrics.Collector 实现）
type Observer interface {
	RecordIntent(intent string, confidence float64, fallback bool)
	RecordAnswer(intent string, responseHit, embeddingHit, degraded bool, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) RecordIntent(string, float64, bool) {}
func (nopObserver) RecordAnswer(string, bool, bool, bool, time.Duration) {}

// OrchestratorConfig 编排配置
type OrchestratorConfig struct {
	// 需要检索商品上下文的意图
	RetrievalIntents []string `json:"retrieval_intents" yaml:"retrieval_intents"`
	MaxContextChars  int      `json:"max_context_chars" yaml:"max_context_chars"`
	TopK             int      `json:"top_k" yaml:"top_k"`
}

// DefaultOrchestratorConfig 返回默认配置
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		RetrievalIntents: []string{IntentProductRAG},
		MaxContextChars:  DefaultMaxContextChars,
		TopK:             3,
	}
}

// Outcome 单次请求的结果与缓存命中信息
type Outcome struct {
	RequestID             string  `json:"request_id"`
	Answer                string  `json:"answer"`
	Model                 string  `json:"model,omitempty"`
	Intent                string  `json:"intent"`
	Confidence            float64 `json:"confidence"`
	ResponseCacheHit      bool    `json:"response_cache_hit"`
	EmbeddingCacheHit     bool    `json:"embedding_cache_hit"`
	IntentEmbeddingHit    bool    `json:"intent_embedding_hit"`
	RetrievalEmbeddingHit bool    `json:"retrieval_embedding_hit"`
	ItemsRetrieved        int     `json:"items_retrieved"`
	Degraded              bool    `json:"degraded"`
}

// Orchestrator 回答编排：分类 → [检索] → 回答缓存/生成
type Orchestrator struct {
	router    *IntentRouter
	retriever *Retriever
	responses *response.Cache
	generator response.Generator
	config    OrchestratorConfig
	retrieve  map[string]struct{}
	observer  Observer
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewOrchestrator 创建编排器。retriever 为 nil 时所有意图都不检索。
func NewOrchestrator(router *IntentRouter, retriever *Retriever, responses *response.Cache, generator response.Generator, config OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOrchestratorConfig()
	if config.RetrievalIntents == nil {
		config.RetrievalIntents = def.RetrievalIntents
	}
	if config.MaxContextChars <= 0 {
		config.MaxContextChars = def.MaxContextChars
	}

	retrieve := make(map[string]struct{}, len(config.RetrievalIntents))
	for _, intent := range config.RetrievalIntents {
		retrieve[intent] = struct{}{}
	}

	return &Orchestrator{
		router:    router,
		retriever: retriever,
		responses: responses,
		generator: generator,
		config:    config,
		retrieve:  retrieve,
		observer:  nopObserver{},
		tracer:    otel.Tracer(instrumentationName),
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
}

// WithObserver 设置指标上报
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	if obs != nil {
		o.observer = obs
	}
	return o
}

// RequiresRetrieval 意图是否需要商品上下文
func (o *Orchestrator) RequiresRetrieval(intent string) bool {
	if o.retriever == nil {
		return false
	}
	_, ok := o.retrieve[intent]
	return ok
}

// Handle 处理一次问答请求。
// 分类或检索失败时降级继续（Degraded=true），只有回答生成失败会返回 GENERATION 错误。
func (o *Orchestrator) Handle(ctx context.Context, query, persona string) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query is empty")
	}

	requestID, ok := ctxkeys.RequestID(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = ctxkeys.WithRequestID(ctx, requestID)
	}
	start := time.Now()
	logger := o.logger.With(zap.String("request_id", requestID))

	ctx, span := o.tracer.Start(ctx, "rag.handle", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("rag.persona", persona),
	))
	defer span.End()

	out := &Outcome{RequestID: requestID}

	// CLASSIFYING
	o.enter(logger, StateClassifying)
	route := o.classify(ctx, query, logger)
	if route == nil {
		out.Intent = o.router.DefaultIntent()
		out.Degraded = true
	} else {
		out.Intent = route.Intent
		out.Confidence = route.Confidence
		out.IntentEmbeddingHit = route.EmbeddingHit
		o.observer.RecordIntent(route.Intent, route.Confidence, route.Fallback)
	}

	// RETRIEVING
	var contextText string
	if route != nil && o.RequiresRetrieval(out.Intent) {
		o.enter(logger, StateRetrieving)
		res := o.retrieveContext(ctx, query, logger)
		if res == nil {
			out.Degraded = true
		} else {
			out.RetrievalEmbeddingHit = res.EmbeddingHit
			out.ItemsRetrieved = len(res.Items)
			contextText = BuildContext(res.Items, o.config.MaxContextChars)
		}
	}
	out.EmbeddingCacheHit = out.IntentEmbeddingHit || out.RetrievalEmbeddingHit

	// GENERATING_OR_CACHED
	o.enter(logger, StateGeneratingOrCached)
	ans, err := o.answer(ctx, response.Request{
		Query:   query,
		Context: contextText,
		Intent:  out.Intent,
		Persona: persona,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		logger.Error("answer generation failed",
			zap.String("intent", out.Intent),
			zap.Error(err))
		return nil, err
	}
	out.Answer = ans.Value.Text
	out.Model = ans.Value.Model
	out.ResponseCacheHit = ans.Hit

	o.enter(logger, StateDone)
	span.SetAttributes(
		attribute.String("rag.intent", out.Intent),
		attribute.Bool("rag.response_cache_hit", out.ResponseCacheHit),
		attribute.Bool("rag.embedding_cache_hit", out.EmbeddingCacheHit),
		attribute.Bool("rag.degraded", out.Degraded),
	)
	o.observer.RecordAnswer(out.Intent, out.ResponseCacheHit, out.EmbeddingCacheHit, out.Degraded, time.Since(start))

	logger.Info("request handled",
		zap.String("intent", out.Intent),
		zap.Float64("confidence", out.Confidence),
		zap.Bool("response_cache_hit", out.ResponseCacheHit),
		zap.Bool("embedding_cache_hit", out.EmbeddingCacheHit),
		zap.Int("items", out.ItemsRetrieved),
		zap.Bool("degraded", out.Degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (o *Orchestrator) enter(logger *zap.Logger, state string) {
	logger.Debug("state", zap.String("state", state))
}

func (o *Orchestrator) classify(ctx context.Context, query string, logger *zap.Logger) *RouteResult {
	ctx, span := o.tracer.Start(ctx, "rag.classify")
	defer span.End()

	route, err := o.router.Route(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		logger.Warn("intent classification failed, using default intent",
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Error(err))
		return nil
	}
	span.SetAttributes(
		attribute.String("rag.intent", route.Intent),
		attribute.Float64("rag.confidence", route.Confidence),
		attribute.Bool("rag.embedding_hit", route.EmbeddingHit),
	)
	return route
}

func (o *Orchestrator) retrieveContext(ctx context.Context, query string, logger *zap.Logger) *RetrievalResult {
	ctx, span := o.tracer.Start(ctx, "rag.retrieve")
	defer span.End()

	res, err := o.retriever.Search(ctx, query, o.config.TopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		logger.Warn("retrieval failed, continuing without context", zap.Error(err))
		return nil
	}
	span.SetAttributes(
		attribute.Int("rag.items", len(res.Items)),
		attribute.Bool("rag.embedding_hit", res.EmbeddingHit),
	)
	return res
}

func (o *Orchestrator) answer(ctx context.Context, req response.Request) (types.Lookup[response.Answer], error) {
	ctx, span := o.tracer.Start(ctx, "rag.answer")
	defer span.End()

	res, err := o.responses.GetOrCreate(ctx, req, o.generator)
	if err == nil {
		span.SetAttributes(attribute.Bool("rag.response_cache_hit", res.Hit))
	}
	return res, err
}

// UserMessage 把错误渲染为面向用户的提示
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch types.GetErrorCode(err) {
	case types.ErrInvalidRequest:
		return "Please enter a question."
	case types.ErrRateLimited:
		return "Too many requests right now, please wait a moment and retry."
	default:
		return "Sorry, I couldn't generate a response. Please retry."
	}
}
