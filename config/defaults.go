// =============================================================================
// 📦 ragcache 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Metrics:   DefaultMetricsConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Cache:     DefaultCacheConfig(),
		Embedding: DefaultEmbeddingConfig(),
		LLM:       DefaultLLMConfig(),
		Router:    DefaultRouterConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "ragcache",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		PoolSize:            10,
		MinIdleConns:        2,
		MaxRetries:          1,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "ragcache",
		Password:        "",
		Name:            "ragcache.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultCacheConfig 返回默认缓存配置：嵌入长期有效，回答很快过期
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:       CacheBackendMemory,
		LocalCapacity: 10000,
		KeyPrefix:     "ragcache:",
		OpTimeout:     200 * time.Millisecond,
		EmbeddingTTL:  24 * time.Hour,
		ResponseTTL:   5 * time.Minute,
	}
}

// DefaultEmbeddingConfig 返回默认嵌入配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		BaseURL:           "https://api.openai.com",
		Model:             "text-embedding-3-small",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             5,
		MaxInputChars:     8000,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:          "openai",
		BaseURL:           "https://api.openai.com",
		Model:             "gpt-4o-mini",
		Timeout:           60 * time.Second,
		MaxRetries:        2,
		RequestsPerSecond: 5,
		Burst:             5,
		MaxTokens:         512,
		Temperature:       0.3,
	}
}

// DefaultRouterConfig 返回默认意图路由配置
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ConfidenceThreshold: 0.5,
		DefaultIntent:       "GENERAL_CONVERSATION",
	}
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:            3,
		SearchTimeout:   5 * time.Second,
		MaxContextChars: 2000,
		Intents:         []string{"PRODUCT_RAG"},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "ragcache",
		SampleRate:   0.1,
		Insecure:     true,
	}
}
