// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、上游调用、两级缓存、问答流水线与数据库。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器。实现 cache.Recorder（命中/未命中/存储错误）
    与 rag.Observer（意图分布、回答结果与耗时）。
  - InstrumentedProvider：包装 llm.Provider，记录请求状态、耗时与 token 用量。
  - InstrumentGenerator：包装嵌入生成器，只统计真正打到上游的调用，
    与 cache_misses_total 对照即可看出缓存节省了多少次嵌入请求。

# 主要能力

  - HTTP 指标：请求总数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 缓存指标：按 cache_type（embedding/response）分组。
  - 流水线指标：answers_total 以 response_cache/embedding_cache/degraded 为标签。
  - 数据库指标：SQL 缓存后端的活跃/空闲连接数 Gauge。
*/
package metrics
