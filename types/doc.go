// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ragcache 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 cache、llm、rag 等上层
模块提供统一的错误契约与查找结果类型，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - Lookup[T] — 缓存查找结果，显式携带 Hit 标记，替代位置型二元组

# 错误分类

  - EMBEDDING_GENERATION — 上游嵌入调用失败，总是向上暴露
  - GENERATION — 上游回答生成失败，总是向上暴露
  - CACHE_UNAVAILABLE — 缓存存储失败，仅在存储边界内部使用，降级为未命中

# 错误工具链

IsErrorCode / GetErrorCode / IsRetryable 基于 errors.As，能穿透 fmt.Errorf 包装。
*/
package types
