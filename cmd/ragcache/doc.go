// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ragcache 命令行与 HTTP 服务入口。

# 概述

cmd/ragcache 把存储后端、嵌入缓存、回答缓存、意图路由、商品检索和
回答编排器装配成一个进程，提供单次问答、HTTP 服务和 SQL 缓存清理三个子命令。
未配置嵌入或 LLM 的 API Key 时 ask/serve 直接拒绝启动。

# 核心类型

  - App        — 装配完成的编排器、可选指标收集器及需要关闭的资源
  - Deps       — 上游嵌入生成器（按模型）与对话模型，测试中替换为 mock
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：ask（--repeat 观察缓存命中）、serve、purge、version
  - 缓存后端：none、memory、redis、sql（GORM）、tiered（内存 L1 + Redis L2）
  - 路由：POST /v1/answer、GET /health、GET /metrics
  - 中间件链：Recovery、RequestID、ClientID、OTelTracing、Metrics、
    RequestLogger、按远端 IP 限流
  - 配置热重载：只更新日志级别
  - 优雅关闭：信号 → 停止 watcher → 关闭 HTTP → 释放存储 → 关闭 telemetry
*/
package main
