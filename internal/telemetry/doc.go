// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 ragcache 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 编排器的 rag.handle / rag.classify / rag.retrieve / rag.answer span
// 通过全局 TracerProvider 导出；禁用时使用 noop 实现，不连接任何外部服务。
package telemetry
