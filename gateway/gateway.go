package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/structured"
	"github.com/BaSui01/schemaflow/trail"
	"github.com/BaSui01/schemaflow/types"
)

// 纠正指令的原文是提示词协议的一部分，不能改动措辞。
const (
	parseDirective      = "[SYSTEM ERROR]: Invalid JSON. Use standard JSON format."
	validationDirective = "[SYSTEM ERROR]: %s. Please fix this and follow the protocol."
)

// Gateway 驱动单个结构化请求的尝试循环。实例只持有只读配置与无状态
// 组件，可被并发调用；每次 Execute 的可变状态都在调用栈上。
type Gateway struct {
	router      *llm.Router
	guard       *llm.TPMGuard
	extractor   *structured.Extractor
	normalizer  *structured.Normalizer
	policy      BackoffPolicy
	maxAttempts int
	sink        trail.Sink
	recorder    Recorder
	estimate    llm.EstimateFunc
	obs         *obs
	logger      *zap.Logger
}

// Option 配置 Gateway。
type Option func(*Gateway)

// WithLogger 注入日志器，不注入时静默。
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTrailSink 注入诊断轨迹 Sink。Sink 失败只记日志，不影响请求结果。
func WithTrailSink(sink trail.Sink) Option {
	return func(g *Gateway) {
		if sink != nil {
			g.sink = sink
		}
	}
}

// WithRecorder 注入指标记录器。
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithTables 替换规范化数据表（包装键别名、指纹、槽位、修复规则）。
func WithTables(t *structured.Tables) Option {
	return func(g *Gateway) {
		if t != nil {
			g.extractor = structured.NewExtractor(t)
			g.normalizer = structured.NewNormalizer(t)
		}
	}
}

// WithEstimateFunc 替换路由器的 Token 估算函数。
func WithEstimateFunc(fn llm.EstimateFunc) Option {
	return func(g *Gateway) { g.estimate = fn }
}

// New 组装网关。这是唯一允许返回错误的地方：配置不合法或后端缺失
// 在此失败，之后每次 Execute 都只产出信封。cfg 为 nil 时使用默认配置。
func New(cfg *config.Config, economy, premium llm.Backend, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if economy == nil || premium == nil {
		return nil, types.NewError(types.ErrBackendNotSet,
			"gateway requires both economy and premium backends")
	}

	g := &Gateway{
		policy:      PolicyFromConfig(cfg.Retry),
		maxAttempts: cfg.Retry.MaxAttempts,
		recorder:    nopRecorder{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	base := g.logger
	g.logger = base.With(zap.String("component", "gateway"))

	if g.extractor == nil {
		tables := structured.DefaultTables()
		g.extractor = structured.NewExtractor(tables)
		g.normalizer = structured.NewNormalizer(tables)
	}

	routerOpts := []llm.RouterOption{llm.WithRouterLogger(base)}
	if g.estimate != nil {
		routerOpts = append(routerOpts, llm.WithEstimateFunc(g.estimate))
	}
	g.router = llm.NewRouter(economy, premium, cfg.Routing.TokenThreshold, routerOpts...)
	g.guard = llm.NewTPMGuard(cfg.RateLimit.EconomyTokensPerMinute, base)

	o, err := newObs()
	if err != nil {
		return nil, err
	}
	g.obs = o

	return g, nil
}

// attemptResult 一次尝试的分类结果。payload 仅在 outcome 为 success
// 时有效。
type attemptResult struct {
	outcome   types.OutcomeClass
	backend   string
	raw       string
	errDetail string
	payload   types.NormalizedPayload
}

// Execute 运行一个结构化请求直至成功或预算耗尽。永不返回 nil、
// 永不 panic：任何失败都收敛成带空规范集合的信封。
func (g *Gateway) Execute(ctx context.Context, req *types.StructuredRequest) *types.ResultEnvelope {
	start := time.Now()
	if req == nil {
		return g.finish(types.FailureEnvelope(types.ErrKindMaxRetries, "nil request", nil, 0),
			"", "", start, nil)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = g.maxAttempts
	}

	ctx, span := g.obs.tracer.Start(ctx, "gateway.execute",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Int("request.max_attempts", maxAttempts)))
	defer span.End()

	log := g.logger.With(zap.String("request_id", requestID))
	hint := req.EffectiveHint()
	prompt := req.Prompt
	var last *types.AttemptLog

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := g.policy.Delay(attempt-1, last.Outcome)
			log.Debug("backing off before retry",
				zap.Int("attempt", attempt),
				zap.String("previous_outcome", string(last.Outcome)),
				zap.Duration("delay", delay))
			if err := Sleep(ctx, delay); err != nil {
				env := types.FailureEnvelope(types.ErrKindMaxRetries,
					fmt.Sprintf("request cancelled during backoff: %v", err), last, attempt-1)
				return g.finish(env, requestID, last.Backend, start, span)
			}
		}

		attemptCtx, attemptSpan := g.obs.tracer.Start(ctx, "gateway.attempt",
			trace.WithAttributes(attribute.Int("attempt", attempt)))
		res := g.attempt(attemptCtx, log, requestID, attempt, prompt, hint, req)
		attemptSpan.SetAttributes(
			attribute.String("backend", res.backend),
			attribute.String("outcome", string(res.outcome)))
		attemptSpan.End()

		entry := types.NewAttemptLog(attempt, res.outcome, res.backend, res.raw, res.errDetail)
		last = &entry
		g.recorder.RecordAttempt(res.backend, res.outcome)
		g.obs.countAttempt(ctx, res.backend, res.outcome)
		g.appendTrail(ctx, trail.NewEntry(requestID, attempt, res.backend, res.outcome,
			prompt, res.raw, res.errDetail))

		switch res.outcome {
		case types.OutcomeSuccess:
			if attempt > 1 {
				log.Info("payload repaired by corrective retry", zap.Int("attempt", attempt))
			}
			env := types.SuccessEnvelope(res.payload, attempt)
			env.Last = last
			return g.finish(env, requestID, res.backend, start, span)

		case types.OutcomeQuotaFatal:
			env := types.FailureEnvelope(types.ErrKindQuota, res.errDetail, last, attempt)
			return g.finish(env, requestID, res.backend, start, span)

		case types.OutcomeParseFail:
			prompt += "\n\n" + parseDirective

		case types.OutcomeValidationFail:
			prompt += "\n\n" + fmt.Sprintf(validationDirective, res.errDetail)

		case types.OutcomeInfraFail:
			// 基础设施失败不占用纠正通道，提示词原样重试
		}
	}

	reason := "no attempts executed"
	backend := ""
	if last != nil {
		reason = last.ErrDetail
		backend = last.Backend
	}
	env := types.FailureEnvelope(types.ErrKindMaxRetries, reason, last, maxAttempts)
	return g.finish(env, requestID, backend, start, span)
}

// attempt 执行一次完整的 路由 → 生成 → 提取 → 解析 → 规范化 → 校验。
func (g *Gateway) attempt(ctx context.Context, log *zap.Logger, requestID string,
	attempt int, prompt string, hint types.BackendHint, req *types.StructuredRequest) attemptResult {

	decision := g.router.Route(ctx, prompt, hint)
	res := attemptResult{backend: decision.Backend.Name()}

	if decision.EstimatedTokens > 0 {
		g.recorder.RecordEstimatedTokens(decision.EstimatedTokens)
	}

	// 经济档共享上游的每分钟 Token 预算，调用前先预约
	if decision.Tier == types.TierEconomy && g.guard.Enabled() {
		if err := g.guard.Wait(ctx, decision.EstimatedTokens); err != nil {
			res.outcome = types.OutcomeInfraFail
			res.errDetail = fmt.Sprintf("tpm reservation aborted: %v", err)
			return res
		}
	}

	genReq := &llm.GenerateRequest{
		TraceID: requestID,
		Prompt:  prompt,
	}
	if req.EnforceDecoding && decision.Backend.Profile().SupportsSchemaDecoding {
		genReq.ResponseSchema = req.Schema.EffectiveRoot()
	}

	callStart := time.Now()
	resp, err := decision.Backend.Generate(ctx, genReq)
	callDur := time.Since(callStart)
	g.recorder.RecordBackendCall(res.backend, callDur)
	g.obs.recordCall(ctx, res.backend, callDur)

	if err != nil {
		if llm.IsQuotaExhausted(err) {
			log.Error("backend quota exhausted, aborting request",
				zap.String("backend", res.backend),
				zap.Error(err))
			res.outcome = types.OutcomeQuotaFatal
			res.errDetail = err.Error()
			return res
		}
		log.Warn("backend call failed",
			zap.String("backend", res.backend),
			zap.Int("attempt", attempt),
			zap.Error(err))
		res.outcome = types.OutcomeInfraFail
		res.errDetail = err.Error()
		return res
	}

	res.raw = resp.Text

	extracted := g.extractor.Extract(resp.Text)
	value := extracted.Value
	if value == nil {
		parsed, perr := structured.ParseLoose(extracted.Raw)
		if perr != nil {
			log.Warn("no parseable payload in response",
				zap.String("protocol", string(extracted.Protocol)),
				zap.Int("attempt", attempt))
			res.outcome = types.OutcomeParseFail
			res.errDetail = perr.Error()
			return res
		}
		value = parsed
	}

	payload, nerr := g.normalizer.Normalize(value)
	if nerr != nil {
		log.Warn("payload structure not recognized",
			zap.Int("attempt", attempt),
			zap.Error(nerr))
		res.outcome = types.OutcomeValidationFail
		res.errDetail = nerr.Error()
		return res
	}

	if verdict := structured.ValidatePayload(payload, req.Schema); !verdict.OK {
		log.Warn("payload failed validation",
			zap.Int("attempt", attempt),
			zap.String("message", verdict.Message))
		res.outcome = types.OutcomeValidationFail
		res.errDetail = verdict.Message
		return res
	}

	res.outcome = types.OutcomeSuccess
	res.payload = payload
	return res
}

// appendTrail 写一条轨迹。轨迹只用于事后排查，写失败不影响请求。
func (g *Gateway) appendTrail(ctx context.Context, e trail.Entry) {
	if g.sink == nil {
		return
	}
	if err := g.sink.Append(ctx, e); err != nil {
		g.logger.Warn("trail append failed",
			zap.String("request_id", e.RequestID),
			zap.Error(err))
	}
}

// finish 补全信封的关联字段并上报终态，所有出口共用。
func (g *Gateway) finish(env *types.ResultEnvelope, requestID, backend string,
	start time.Time, span trace.Span) *types.ResultEnvelope {

	env.RequestID = requestID
	env.Backend = backend
	env.ElapsedMS = time.Since(start).Milliseconds()

	status := "success"
	if !env.OK {
		status = env.ErrorKind
	}
	g.recorder.RecordRequest(status, time.Since(start))

	if span != nil {
		span.SetAttributes(
			attribute.Bool("request.ok", env.OK),
			attribute.Int("request.attempts", env.Attempts))
		if !env.OK {
			span.SetStatus(codes.Error, env.FailureReason)
		}
	}

	if env.OK {
		g.logger.Info("structured request succeeded",
			zap.String("request_id", requestID),
			zap.String("backend", backend),
			zap.Int("attempts", env.Attempts),
			zap.Int64("elapsed_ms", env.ElapsedMS))
	} else {
		g.logger.Warn("structured request failed",
			zap.String("request_id", requestID),
			zap.String("error_kind", env.ErrorKind),
			zap.String("reason", env.FailureReason),
			zap.Int("attempts", env.Attempts))
	}
	return env
}
