package embedding

import "time"

// Config 嵌入缓存配置
type Config struct {
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
	MaxInputChars   int           `json:"max_input_chars" yaml:"max_input_chars"`
	MaxInputTokens  int           `json:"max_input_tokens" yaml:"max_input_tokens"` // > 0 时按 tiktoken 截断
	GenerateTimeout time.Duration `json:"generate_timeout" yaml:"generate_timeout"`
}

// DefaultConfig 默认配置：向量长期有效，TTL 24h.
func DefaultConfig() Config {
	return Config{
		TTL:             24 * time.Hour,
		MaxInputChars:   8000,
		GenerateTimeout: 30 * time.Second,
	}
}

// OpenAIConfig 配置 OpenAI 兼容的嵌入生成器.
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`           // text-embedding-3-small
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"` // 0 表示使用模型默认维度
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// 上游限速，RequestsPerSecond <= 0 表示不限速
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// DefaultOpenAIConfig returns default OpenAI embedding config.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:           "https://api.openai.com",
		Model:             "text-embedding-3-small",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             5,
	}
}
