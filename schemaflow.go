// Package schemaflow provides a top-level convenience entry point for
// executing structured requests with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/schemaflow"
//
//	client, err := schemaflow.New(nil) // default config, env-provided keys
//	defer client.Close()
//
//	env := client.Execute(ctx, &types.StructuredRequest{
//	    Prompt: prompt,
//	    Schema: structured.SkillDescriptor(),
//	})
//
// This is a thin wrapper around [config.Config], [factory.BuildPair], the
// trail sinks, and [gateway.New]; use those packages directly when you need
// finer control over backends, normalization tables, or observability.
package schemaflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/gateway"
	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/llm/factory"
	"github.com/BaSui01/schemaflow/trail"
	"github.com/BaSui01/schemaflow/types"
)

// Client bundles a gateway with the trail sinks it owns. Instances are
// safe for concurrent use; Close releases owned sinks only, injected
// sinks stay with their creator.
type Client struct {
	gw    *gateway.Gateway
	owned []trail.Sink
}

// Option configures the client created by [New].
type Option func(*clientOptions)

type clientOptions struct {
	logger   *zap.Logger
	economy  llm.Backend
	premium  llm.Backend
	recorder gateway.Recorder
	sink     trail.Sink
}

// WithLogger sets a custom zap logger. Without it the client is silent.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEconomyBackend replaces the config-built economy backend.
func WithEconomyBackend(b llm.Backend) Option {
	return func(o *clientOptions) { o.economy = b }
}

// WithPremiumBackend replaces the config-built premium backend.
func WithPremiumBackend(b llm.Backend) Option {
	return func(o *clientOptions) { o.premium = b }
}

// WithRecorder injects a metrics recorder, e.g. the Prometheus collector.
func WithRecorder(r gateway.Recorder) Option {
	return func(o *clientOptions) { o.recorder = r }
}

// WithTrailSink replaces the config-built trail sinks with a caller-owned
// sink. The client will not close it.
func WithTrailSink(s trail.Sink) Option {
	return func(o *clientOptions) { o.sink = s }
}

// New builds a ready-to-use client from configuration. A nil cfg means
// [config.DefaultConfig]. Construction is the only place that can fail;
// afterwards every Execute resolves to a ResultEnvelope.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	o := &clientOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	economy, premium := o.economy, o.premium
	if economy == nil || premium == nil {
		e, p, err := factory.BuildPair(cfg, o.logger)
		if err != nil {
			return nil, err
		}
		if economy == nil {
			economy = e
		}
		if premium == nil {
			premium = p
		}
	}

	sink := o.sink
	var owned []trail.Sink
	if sink == nil && cfg.Trail.Enabled {
		built, err := buildTrailSinks(cfg.Trail, o.logger)
		if err != nil {
			closeSinks(built)
			return nil, err
		}
		owned = built
		switch len(built) {
		case 0:
			// Trail enabled but no destination configured
		case 1:
			sink = built[0]
		default:
			sink = trail.NewMultiSink(built...)
		}
	}

	gwOpts := []gateway.Option{gateway.WithLogger(o.logger)}
	if sink != nil {
		gwOpts = append(gwOpts, gateway.WithTrailSink(sink))
	}
	if o.recorder != nil {
		gwOpts = append(gwOpts, gateway.WithRecorder(o.recorder))
	}

	gw, err := gateway.New(cfg, economy, premium, gwOpts...)
	if err != nil {
		closeSinks(owned)
		return nil, err
	}

	return &Client{gw: gw, owned: owned}, nil
}

// Execute runs one structured request through the resilience pipeline.
// It never returns an error; failures resolve into the envelope.
func (c *Client) Execute(ctx context.Context, req *types.StructuredRequest) *types.ResultEnvelope {
	return c.gw.Execute(ctx, req)
}

// Gateway exposes the underlying gateway for callers that need it.
func (c *Client) Gateway() *gateway.Gateway { return c.gw }

// Close releases the trail sinks owned by the client.
func (c *Client) Close() error {
	var errs []error
	for _, s := range c.owned {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.owned = nil
	return errors.Join(errs...)
}

// buildTrailSinks constructs every sink the trail configuration names.
// Partial construction is rolled back by the caller on error.
func buildTrailSinks(tc config.TrailConfig, logger *zap.Logger) ([]trail.Sink, error) {
	var sinks []trail.Sink

	if tc.Path != "" {
		fs, err := trail.NewFileSink(tc.Path, logger)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, fs)
	}
	if tc.SQLitePath != "" {
		gs, err := trail.NewGormSink(tc.SQLitePath, logger)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, gs)
	}
	if tc.RedisAddr != "" {
		rs, err := trail.NewRedisSink(tc.RedisAddr, tc.RedisStream, logger)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, rs)
	}

	return sinks, nil
}

func closeSinks(sinks []trail.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
