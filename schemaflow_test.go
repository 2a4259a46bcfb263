package schemaflow

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/structured"
	"github.com/BaSui01/schemaflow/testutil/fixtures"
	"github.com/BaSui01/schemaflow/testutil/mocks"
	"github.com/BaSui01/schemaflow/trail"
	"github.com/BaSui01/schemaflow/types"
)

func quietConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Trail.Enabled = false
	cfg.Retry = config.RetryConfig{
		MaxAttempts:    3,
		BaseBackoff:    time.Millisecond,
		SemanticFactor: 0.5,
		MaxDelay:       10 * time.Millisecond,
	}
	cfg.RateLimit.EconomyTokensPerMinute = 0
	return cfg
}

func skillRequest() *types.StructuredRequest {
	return &types.StructuredRequest{
		RequestID: "req-facade",
		Prompt:    "Analyze the following job posting.",
		Schema:    structured.SkillDescriptor(),
	}
}

func TestNew_InjectedBackends(t *testing.T) {
	economy := mocks.NewEconomyBackend().WithResponse(fixtures.ConformantSkillJSON())

	client, err := New(quietConfig(),
		WithEconomyBackend(economy),
		WithPremiumBackend(mocks.NewPremiumBackend()))
	require.NoError(t, err)
	defer client.Close()

	env := client.Execute(context.Background(), skillRequest())
	require.True(t, env.OK)
	assert.Len(t, env.Payload.Records(types.WrapperSkills), 2)
	assert.Equal(t, 1, env.Attempts)
}

func TestNew_FactoryBuildsFromConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Backends.Economy = config.BackendConfig{Vendor: "gemini", Model: "gemma-3-27b-it", APIKey: "test-key"}
	cfg.Backends.Premium = config.BackendConfig{Vendor: "openai", Model: "gpt-4o-mini", APIKey: "sk-test"}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, client.Gateway())
	assert.NoError(t, client.Close())
}

func TestNew_UnknownVendorFails(t *testing.T) {
	cfg := quietConfig()
	cfg.Backends.Economy.Vendor = "bogus"

	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownVendor, types.GetErrorCode(err))
}

func TestNew_InvalidConfigFails(t *testing.T) {
	cfg := quietConfig()
	cfg.Retry.MaxAttempts = 0

	_, err := New(cfg,
		WithEconomyBackend(mocks.NewEconomyBackend()),
		WithPremiumBackend(mocks.NewPremiumBackend()))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

func TestNew_TrailSinkFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := quietConfig()
	cfg.Trail.Enabled = true
	cfg.Trail.Path = filepath.Join(dir, "trail.log")

	economy := mocks.NewEconomyBackend().WithResponse(fixtures.ConformantSkillJSON())
	client, err := New(cfg,
		WithEconomyBackend(economy),
		WithPremiumBackend(mocks.NewPremiumBackend()))
	require.NoError(t, err)

	env := client.Execute(context.Background(), skillRequest())
	require.True(t, env.OK)
	require.NoError(t, client.Close())

	data, err := os.ReadFile(cfg.Trail.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "req-facade")
	assert.Contains(t, string(data), string(types.OutcomeSuccess))
}

// closableSink 记录 Close 是否被调用过。
type closableSink struct {
	mu      sync.Mutex
	entries int
	closed  bool
}

func (s *closableSink) Append(_ context.Context, _ trail.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries++
	return nil
}

func (s *closableSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestNew_CallerSinkNotOwned(t *testing.T) {
	sink := &closableSink{}
	economy := mocks.NewEconomyBackend().WithResponse(fixtures.ConformantSkillJSON())

	client, err := New(quietConfig(),
		WithEconomyBackend(economy),
		WithPremiumBackend(mocks.NewPremiumBackend()),
		WithTrailSink(sink))
	require.NoError(t, err)

	client.Execute(context.Background(), skillRequest())
	require.NoError(t, client.Close())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Positive(t, sink.entries)
	assert.False(t, sink.closed, "注入的 sink 归调用方所有，客户端不应关闭")
}

func TestClient_FailureResolvesToEnvelope(t *testing.T) {
	economy := mocks.NewEconomyBackend().WithResponse("I cannot produce JSON today.")

	cfg := quietConfig()
	cfg.Retry.MaxAttempts = 2

	client, err := New(cfg,
		WithEconomyBackend(economy),
		WithPremiumBackend(mocks.NewPremiumBackend()))
	require.NoError(t, err)
	defer client.Close()

	env := client.Execute(context.Background(), skillRequest())
	require.False(t, env.OK)
	assert.Equal(t, types.ErrKindMaxRetries, env.ErrorKind)
	assert.Equal(t, 2, env.Attempts)
}
