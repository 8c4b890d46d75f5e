// Package config 提供 ragcache 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（RAGCACHE_ 前缀）的顺序加载，
// Watcher 轮询配置文件并在变更后重新加载，用于运行时调整日志级别。
package config
