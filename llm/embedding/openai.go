package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/BaSui01/ragcache/types"
)

// OpenAIGenerator implements embedding using an OpenAI-compatible /v1/embeddings API.
type OpenAIGenerator struct {
	*BaseProvider
	cfg OpenAIConfig
}

// NewOpenAIGenerator creates a new OpenAI-compatible embedding generator.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}

	return &OpenAIGenerator{
		BaseProvider: NewBaseProvider(BaseConfig{
			Name:              "openai-embedding",
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}),
		cfg: cfg,
	}
}

type openAIEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbedBatch generates embeddings for the given inputs, ordered by input index.
// OpenAI 的接口不区分 query/document，InputType 仅参与缓存键。
func (g *OpenAIGenerator) EmbedBatch(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	if len(req.Input) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "embedding input is empty").
			WithHTTPStatus(http.StatusBadRequest)
	}
	dims := req.Dimensions
	if dims == 0 {
		dims = g.cfg.Dimensions
	}

	body := openAIEmbedRequest{
		Input:      req.Input,
		Model:      ChooseModel(req.Model, g.cfg.Model, "text-embedding-3-small"),
		Dimensions: dims,
	}

	respBody, err := g.DoRequest(ctx, http.MethodPost, "/v1/embeddings", body, map[string]string{
		"Authorization": "Bearer " + g.cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var oaResp openAIEmbedResponse
	if err := json.Unmarshal(respBody, &oaResp); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "invalid embedding response").
			WithCause(err).
			WithProvider(g.Name())
	}

	embeddings := make([]EmbeddingData, len(oaResp.Data))
	for i, d := range oaResp.Data {
		embeddings[i] = EmbeddingData{Index: d.Index, Embedding: d.Embedding}
	}
	sort.Slice(embeddings, func(i, j int) bool { return embeddings[i].Index < embeddings[j].Index })

	return &EmbeddingResponse{
		Provider:   g.Name(),
		Model:      oaResp.Model,
		Embeddings: embeddings,
		Usage: EmbeddingUsage{
			PromptTokens: oaResp.Usage.PromptTokens,
			TotalTokens:  oaResp.Usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

// Embed 实现 Generator，单条文本.
func (g *OpenAIGenerator) Embed(ctx context.Context, text string, inputType InputType) ([]float64, error) {
	resp, err := g.EmbedBatch(ctx, &EmbeddingRequest{
		Input:     []string{text},
		InputType: inputType,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Embeddings[0].Embedding, nil
}
