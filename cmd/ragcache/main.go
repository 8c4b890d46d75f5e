// =============================================================================
// ragcache 主入口
// =============================================================================
// 咖啡店问答助手的两级缓存（嵌入缓存 + 回答缓存）命令行与 HTTP 服务
//
// 使用方法:
//
//	ragcache ask --query "I like light roast coffee"   # 单次问答
//	ragcache ask --query "..." --repeat 2              # 重复提问，观察缓存命中
//	ragcache serve --config config.yaml                # 启动 HTTP 服务
//	ragcache purge --config config.yaml                # 清理 SQL 缓存中的过期行
//	ragcache version                                   # 显示版本信息
// =============================================================================

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/ragcache/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "ask":
		err = runAsk(args[1:], stdout, productionDeps)
	case "serve":
		err = runServe(args[1:], productionDeps)
	case "purge":
		err = runPurge(args[1:], stdout)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ragcache %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ragcache - two-level cache for a retrieval-augmented coffee shop assistant

Usage:
  ragcache <command> [options]

Commands:
  ask       Answer a single question and print cache flags
  serve     Start the HTTP answer service
  purge     Delete expired rows from the SQL cache backend
  version   Show version information
  help      Show this help message

Options for 'ask':
  --config <path>     Path to configuration file (YAML)
  --query <text>      Question to answer
  --persona <name>    Customer persona (default: novice)
  --repeat <n>        Ask the same question n times

Options for 'serve' and 'purge':
  --config <path>     Path to configuration file (YAML)

Examples:
  ragcache ask --query "I like light roast coffee" --repeat 2
  ragcache serve --config /etc/ragcache/config.yaml
  RAGCACHE_CACHE_BACKEND=sql ragcache purge`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, *config.Loader, error) {
	loader := config.NewLoader().
		WithValidator(func(c *config.Config) error { return c.Validate() })
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// parseLevel 解析日志级别，未知值按 info 处理
func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// initLogger 按配置构建 logger，返回的 AtomicLevel 用于热重载日志级别
func initLogger(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            level,
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger, level
}
