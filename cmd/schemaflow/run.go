// =============================================================================
// 🖥️ run 命令：执行单次结构化请求并输出结果信封
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow"
	"github.com/BaSui01/schemaflow/internal/metrics"
	"github.com/BaSui01/schemaflow/internal/telemetry"
	"github.com/BaSui01/schemaflow/types"
)

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	schemaName := fs.String("schema", "skill", "Payload schema: skill, gap, advice")
	prompt := fs.String("prompt", "", "Prompt text")
	promptFile := fs.String("prompt-file", "", `Read prompt from file, "-" for stdin`)
	hint := fs.String("hint", "", "Backend hint: auto, force_economy, force_premium")
	enforce := fs.Bool("enforce", false, "Request schema-constrained decoding")
	attempts := fs.Int("attempts", 0, "Attempt budget override")
	metricsAddr := fs.String("metrics-addr", "", "Expose Prometheus metrics on this address")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	promptText, err := resolvePrompt(*prompt, *promptFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read prompt: %v\n", err)
		os.Exit(1)
	}

	schema, err := descriptorFor(*schemaName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if otelProviders != nil {
			_ = otelProviders.Shutdown(context.Background())
		}
	}()

	collector := metrics.NewCollector("schemaflow", logger)
	var metricsSrv *http.Server
	if *metricsAddr != "" {
		metricsSrv = startMetricsServer(*metricsAddr, logger)
	}
	defer stopMetricsServer(metricsSrv)

	client, err := schemaflow.New(cfg,
		schemaflow.WithLogger(logger),
		schemaflow.WithRecorder(collector))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := client.Execute(ctx, &types.StructuredRequest{
		Prompt:          promptText,
		Schema:          schema,
		Hint:            types.BackendHint(*hint),
		MaxAttempts:     *attempts,
		EnforceDecoding: *enforce,
	})

	printEnvelope(env)
	if !env.OK {
		os.Exit(1)
	}
}

// resolvePrompt 按 flag > 文件 > stdin 的顺序取提示词。
func resolvePrompt(text, file string) (string, error) {
	if text != "" {
		return text, nil
	}
	if file == "" {
		return "", fmt.Errorf("either --prompt or --prompt-file is required")
	}
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// printEnvelope 把结果信封以缩进 JSON 输出到 stdout。
func printEnvelope(env *types.ResultEnvelope) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode envelope: %v\n", err)
	}
}
