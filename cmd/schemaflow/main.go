// =============================================================================
// SchemaFlow 主入口
// =============================================================================
// 命令行入口，包含单次执行、批量执行、Prometheus 指标
//
// 使用方法:
//
//	schemaflow run --prompt "..."                 # 单次结构化请求
//	schemaflow run --config config.yaml --prompt-file posting.txt
//	schemaflow batch --input requests.jsonl       # 批量执行
//	schemaflow version                            # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/structured"
	"github.com/BaSui01/schemaflow/types"
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "batch":
		runBatch(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("SchemaFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`SchemaFlow - Structured Output Resilience Gateway

Usage:
  schemaflow <command> [options]

Commands:
  run       Execute a single structured request
  batch     Execute a JSONL batch of structured requests
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>        Path to configuration file (YAML)
  --schema <name>        Payload schema: skill, gap, advice (default skill)
  --prompt <text>        Prompt text
  --prompt-file <path>   Read prompt from file, "-" for stdin
  --hint <name>          Backend hint: auto, force_economy, force_premium
  --enforce              Request schema-constrained decoding (premium tier)
  --attempts <n>         Attempt budget override
  --metrics-addr <addr>  Expose Prometheus /metrics on this address

Options for 'batch':
  --config <path>        Path to configuration file (YAML)
  --input <path>         JSONL input, one request per line, "-" for stdin
  --concurrency <n>      Parallel requests (default 4)
  --metrics-addr <addr>  Expose Prometheus /metrics on this address

Batch input lines look like:
  {"id": "posting-17", "prompt": "...", "schema": "skill"}

Examples:
  schemaflow run --prompt-file posting.txt --schema skill
  schemaflow run --config /etc/schemaflow/config.yaml --prompt "..." --enforce
  schemaflow batch --input requests.jsonl --concurrency 8
  schemaflow version`)
}

// =============================================================================
// 🔧 共享辅助
// =============================================================================

// loadConfig 加载配置文件（路径为空时走默认值 + 环境变量）。
func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// descriptorFor 把 schema 名称映射为目标载荷描述。
func descriptorFor(name string) (types.SchemaDescriptor, error) {
	switch name {
	case "skill", "":
		return structured.SkillDescriptor(), nil
	case "gap":
		return structured.GapDescriptor(), nil
	case "advice":
		return structured.AdviceDescriptor(), nil
	default:
		return types.SchemaDescriptor{}, fmt.Errorf("unknown schema %q (supported: skill, gap, advice)", name)
	}
}

// startMetricsServer 在独立端口暴露 /metrics，返回用于优雅关闭的句柄。
func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func stopMetricsServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// 日志走 stderr，stdout 留给结果信封
	outputs := cfg.OutputPaths
	if len(outputs) == 0 || (len(outputs) == 1 && outputs[0] == "stdout") {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
