package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/ragcache/config"
	"github.com/BaSui01/ragcache/internal/ctxkeys"
	"github.com/BaSui01/ragcache/rag"
	"github.com/BaSui01/ragcache/types"
)

func newTestServer(t *testing.T, cfg *config.Config, up *testUpstream) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)

	app, err := buildApp(context.Background(), cfg, up.deps(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(newHandler(ctx, app, cfg, logger))
	t.Cleanup(srv.Close)
	return srv
}

func postAnswer(t *testing.T, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/v1/answer", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAnswerEndpoint_CachesSecondRequest(t *testing.T) {
	up := newTestUpstream()
	srv := newTestServer(t, testConfig(), up)
	body := `{"query":"light roast coffee","persona":"novice"}`

	resp := postAnswer(t, srv.URL, body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[rag.Outcome](t, resp)
	assert.Equal(t, testAnswer, first.Answer)
	assert.Equal(t, rag.IntentProductRAG, first.Intent)
	assert.False(t, first.ResponseCacheHit)
	assert.Equal(t, resp.Header.Get("X-Request-ID"), first.RequestID)

	resp = postAnswer(t, srv.URL, body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[rag.Outcome](t, resp)
	assert.True(t, second.ResponseCacheHit)
	assert.True(t, second.EmbeddingCacheHit)
	assert.Equal(t, 1, up.chat.CallCount())
}

func TestAnswerEndpoint_PersonaSeparatesEntries(t *testing.T) {
	up := newTestUpstream()
	srv := newTestServer(t, testConfig(), up)

	resp := postAnswer(t, srv.URL, `{"query":"light roast coffee","persona":"novice"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postAnswer(t, srv.URL, `{"query":"light roast coffee","persona":"expert"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[rag.Outcome](t, resp)
	assert.False(t, out.ResponseCacheHit)
	assert.Equal(t, 2, up.chat.CallCount())
}

func TestAnswerEndpoint_PreservesRequestID(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestUpstream())

	resp := postAnswer(t, srv.URL, `{"query":"hello, how are you"}`, map[string]string{"X-Request-ID": "req-fixed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-fixed", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "req-fixed", decode[rag.Outcome](t, resp).RequestID)
}

func TestAnswerEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		chatErr     error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "empty query",
			body:        `{"query":"   ","persona":"novice"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please enter a question.",
		},
		{
			name:        "malformed body",
			body:        `{"query":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please enter a question.",
		},
		{
			name:        "generation failure",
			body:        `{"query":"light roast coffee","persona":"novice"}`,
			chatErr:     errors.New("llm down"),
			wantStatus:  http.StatusBadGateway,
			wantMessage: "Sorry, I couldn't generate a response. Please retry.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newTestUpstream()
			if tt.chatErr != nil {
				up.chat.WithError(tt.chatErr)
			}
			srv := newTestServer(t, testConfig(), up)

			resp := postAnswer(t, srv.URL, tt.body, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			er := decode[errorResponse](t, resp)
			assert.Equal(t, tt.wantMessage, er.Message)
			assert.NotEmpty(t, er.Error)
			assert.Equal(t, resp.Header.Get("X-Request-ID"), er.RequestID)
		})
	}
}

func TestAnswerEndpoint_FailedGenerationIsNotCached(t *testing.T) {
	up := newTestUpstream()
	up.chat.WithError(errors.New("llm down"))
	srv := newTestServer(t, testConfig(), up)
	body := `{"query":"light roast coffee","persona":"novice"}`

	resp := postAnswer(t, srv.URL, body, nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	up.chat.WithError(nil)
	resp = postAnswer(t, srv.URL, body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[rag.Outcome](t, resp).ResponseCacheHit)
}

func TestAnswerEndpoint_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestUpstream())

	resp, err := http.Get(srv.URL + "/v1/answer")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestUpstream())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]string](t, resp)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "ragcache_cmd_test"
	srv := newTestServer(t, cfg, newTestUpstream())

	resp := postAnswer(t, srv.URL, `{"query":"light roast coffee","persona":"novice"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	require.Equal(t, http.StatusOK, mresp.StatusCode)

	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "ragcache_cmd_test_answers_total")
	assert.Contains(t, text, "ragcache_cmd_test_cache_misses_total")
	assert.Contains(t, text, "ragcache_cmd_test_llm_requests_total")
}

func TestMetricsEndpoint_DisabledIsNotFound(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestUpstream())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimiter_KeyedOnRemoteIP(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	srv := newTestServer(t, cfg, newTestUpstream())
	body := `{"query":"hello, how are you"}`

	resp := postAnswer(t, srv.URL, body, map[string]string{"X-Client-ID": "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 换一个自报的 X-Client-ID 不能绕过限流
	resp = postAnswer(t, srv.URL, body, map[string]string{"X-Client-ID": "bob"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	er := decode[errorResponse](t, resp)
	assert.Equal(t, string(types.ErrRateLimited), er.Error)
	assert.Equal(t, "Too many requests right now, please wait a moment and retry.", er.Message)
}

func TestRateLimiter_SeparatesRemoteAddrs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), ClientID(), RateLimiter(ctx, 0.001, 1, zap.NewNop()))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/answer", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2:1111"))
}

func TestClientID_FallsBackToRemoteIP(t *testing.T) {
	var got string
	h := ClientID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ctxkeys.ClientID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.1.2.3", got)

	req.Header.Set("X-Client-ID", "kiosk-7")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "kiosk-7", got)
}

func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery(zap.NewNop()), RequestID())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(types.ErrInternalError))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(types.NewError(types.ErrInvalidRequest, "x")))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(types.NewError(types.ErrRateLimited, "x")))
	assert.Equal(t, http.StatusBadGateway, statusFor(types.NewError(types.ErrGeneration, "x")))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("plain")))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/answer", routeLabel("/v1/answer"))
	assert.Equal(t, "/health", routeLabel("/health"))
	assert.Equal(t, "other", routeLabel("/v1/answer/123"))
}
