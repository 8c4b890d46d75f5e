// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供上游模型服务的公共基础层：错误语义映射、OpenAI 兼容
格式的请求/响应结构，以及带指数退避的重试包装。嵌入生成器与聊天补全
客户端都依赖本包完成错误映射。

# 核心类型

  - OpenAICompat* 系列 — OpenAI 兼容 API 的请求/响应结构体
  - RetryableProvider — 带指数退避重试的 Provider 包装器
  - RetryConfig — 重试策略配置（最大次数、初始延迟、退避因子）

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为 types.Error（含 Retryable 标记）
  - MapTransportError — 网络错误与超时映射
  - ConvertMessagesToOpenAI / ToLLMChatResponse — 格式转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
