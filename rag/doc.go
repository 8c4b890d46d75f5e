// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 提供咖啡店问答的检索增强生成管线，以及贯穿其中的两级缓存协调。

单次请求严格串行：意图分类 → （按意图）商品检索 → 回答缓存/生成。
分类与检索的查询嵌入都经过嵌入缓存，回答经过回答缓存，
最终汇总为一个 Outcome，带有各级缓存是否命中的标记。

# 核心接口/类型

  - Embedder — 经嵌入缓存获取向量（*embedding.Embedder 实现）
  - IntentRouter — 最近样例意图分类，低于阈值回退到默认意图
  - SimilaritySearch — 最近邻检索接口；InMemoryIndex 为内存暴力余弦实现
  - Retriever — 检索协调器，检索结果本身不缓存
  - Orchestrator — 请求编排，产出 Outcome
  - LLMAnswerGenerator — 把 llm.Provider 适配为 response.Generator

# 降级策略

  - 分类失败：使用默认意图，跳过检索，Degraded=true
  - 检索失败：空上下文继续，Degraded=true
  - 生成失败：返回 GENERATION 错误，UserMessage 渲染用户提示
*/
package rag
