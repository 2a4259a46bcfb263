// =============================================================================
// 🖥️ batch 命令：并发执行 JSONL 批量请求
// =============================================================================

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/schemaflow"
	"github.com/BaSui01/schemaflow/internal/metrics"
	"github.com/BaSui01/schemaflow/internal/telemetry"
	"github.com/BaSui01/schemaflow/types"
)

// batchItem 是输入文件中的一行请求。
type batchItem struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Schema string `json:"schema,omitempty"`
}

func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	inputPath := fs.String("input", "", `JSONL input path, "-" for stdin`)
	concurrency := fs.Int("concurrency", 4, "Parallel requests")
	metricsAddr := fs.String("metrics-addr", "", "Expose Prometheus metrics on this address")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	items, err := readBatchInput(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "Input contains no requests")
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

	// schema 名称在发起任何上游调用前整体校验
	schemas := make([]types.SchemaDescriptor, len(items))
	for i, item := range items {
		schema, err := descriptorFor(item.Schema)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Line %d: %v\n", i+1, err)
			os.Exit(1)
		}
		schemas[i] = schema
	}

	logger.Info("batch started",
		zap.Int("requests", len(items)),
		zap.Int("concurrency", *concurrency))

	// 信封按输入顺序写出，与输入行一一对应
	envelopes := make([]*types.ResultEnvelope, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			envelopes[i] = client.Execute(gctx, &types.StructuredRequest{
				RequestID: item.ID,
				Prompt:    item.Prompt,
				Schema:    schemas[i],
			})
			return nil
		})
	}

	// Execute 将失败折叠进信封，Wait 只会看到 ctx 取消
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Batch aborted: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	succeeded := 0
	for _, env := range envelopes {
		if env.OK {
			succeeded++
		}
		if err := enc.Encode(env); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode envelope: %v\n", err)
		}
	}

	logger.Info("batch finished",
		zap.Int("total", len(items)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(items)-succeeded))

	if succeeded < len(items) {
		os.Exit(1)
	}
}

// readBatchInput 逐行解析 JSONL 输入，空行跳过。
func readBatchInput(path string) ([]batchItem, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}

	var in *os.File
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var items []batchItem
	scanner := bufio.NewScanner(in)
	// 提示词可能很长，放宽单行上限
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var item batchItem
		if err := json.Unmarshal(text, &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if item.Prompt == "" {
			return nil, fmt.Errorf("line %d: prompt is required", line)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
