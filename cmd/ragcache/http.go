package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/ragcache/config"
	"github.com/BaSui01/ragcache/internal/ctxkeys"
	"github.com/BaSui01/ragcache/internal/metrics"
	"github.com/BaSui01/ragcache/rag"
	"github.com/BaSui01/ragcache/types"
)

const maxRequestBody = 64 << 10

// =============================================================================
// 🌐 路由
// =============================================================================

// answerRequest POST /v1/answer 请求体
type answerRequest struct {
	Query   string `json:"query"`
	Persona string `json:"persona"`
}

// errorResponse 错误响应体
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// newHandler 组装路由与中间件，ctx 结束时停止限流器的后台清理
func newHandler(ctx context.Context, app *App, cfg *config.Config, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/answer", handleAnswer(app.Orchestrator, logger))
	mux.HandleFunc("GET /health", handleHealth)
	if app.Collector != nil {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	middlewares := []Middleware{
		Recovery(logger),
		RequestID(),
		ClientID(),
		OTelTracing(),
	}
	if app.Collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(app.Collector))
	}
	middlewares = append(middlewares, RequestLogger(logger))
	if cfg.Server.RateLimitRPS > 0 {
		middlewares = append(middlewares, RateLimiter(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger))
	}

	return Chain(mux, middlewares...)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleAnswer(o *rag.Orchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeError(w, r, types.NewError(types.ErrInvalidRequest, "malformed request body").WithCause(err))
			return
		}

		outcome, err := o.Handle(r.Context(), req.Query, req.Persona)
		if err != nil {
			logger.Warn("answer failed", zap.Error(err))
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

// statusFor 把错误码映射为 HTTP 状态
func statusFor(err error) int {
	switch types.GetErrorCode(err) {
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := string(types.GetErrorCode(err))
	if code == "" {
		code = string(types.ErrInternalError)
	}
	requestID, _ := ctxkeys.RequestID(r.Context())
	writeJSON(w, statusFor(err), errorResponse{
		Error:     code,
		Message:   rag.UserMessage(err),
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// 🧅 中间件
// =============================================================================

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个在最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", zap.Any("error", err), zap.String("path", r.URL.Path))
					writeJSON(w, http.StatusInternalServerError, errorResponse{
						Error:   string(types.ErrInternalError),
						Message: rag.UserMessage(types.NewError(types.ErrInternalError, "panic")),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID 为每个请求分配 ID（保留客户端传入的 X-Request-ID）并写入 context
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
		})
	}
}

// ClientID 识别客户端：优先 X-Client-ID，否则使用远端 IP
func ClientID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Client-ID")
			if id == "" {
				id = remoteIP(r)
			}
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithClientID(r.Context(), id)))
		})
	}
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RequestLogger 请求日志中间件
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			requestID, _ := ctxkeys.RequestID(r.Context())
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// MetricsMiddleware 记录 HTTP 请求数与耗时。
// 只有已注册的路由使用原始路径作为标签，其余归为 "other"。
func MetricsMiddleware(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			collector.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), rw.statusCode, time.Since(start))
		})
	}
}

func routeLabel(path string) string {
	switch path {
	case "/v1/answer", "/health", "/metrics":
		return path
	default:
		return "other"
	}
}

// OTelTracing 为每个请求创建 server span，并从请求头提取上游 trace context
func OTelTracing() Middleware {
	tracer := otel.Tracer("ragcache/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+routeLabel(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))
			span.SetAttributes(attribute.Int("http.response.status_code", rw.statusCode))
		})
	}
}

// RateLimiter 按远端 IP 限流；X-Client-ID 由客户端自报，只用于日志
func RateLimiter(ctx context.Context, rps float64, burst int, logger *zap.Logger) Middleware {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)
	if burst <= 0 {
		burst = 1
	}

	// 后台清理过期 visitor
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for id, v := range visitors {
					if time.Since(v.lastSeen) > 3*time.Minute {
						delete(visitors, id)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := remoteIP(r)

			mu.Lock()
			v, exists := visitors[id]
			if !exists {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				visitors[id] = v
			}
			v.lastSeen = time.Now()
			mu.Unlock()

			if !v.limiter.Allow() {
				clientID, _ := ctxkeys.ClientID(r.Context())
				logger.Debug("client rate limited", zap.String("remote_ip", id), zap.String("client_id", clientID))
				writeError(w, r, types.NewError(types.ErrRateLimited, "client rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
