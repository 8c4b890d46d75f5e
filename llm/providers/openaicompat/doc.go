// Package openaicompat provides the chat completion client used for answer
// generation against any OpenAI-compatible API (OpenAI, DeepSeek, Qwen, a
// local vLLM or Ollama gateway, ...).
//
// The client applies a token-bucket limiter before every upstream call and
// maps HTTP failures to types.Error so callers can classify them.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "openai",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.openai.com",
//	    DefaultModel: "gpt-4o-mini",
//	}, logger)
package openaicompat
