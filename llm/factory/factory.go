// Package factory maps backend configuration to vendor adapter instances.
// It imports the vendor sub-packages and switches on the vendor name,
// breaking the import cycle that would occur if this logic lived in the
// providers package directly.
package factory

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/schemaflow/config"
	"github.com/BaSui01/schemaflow/llm"
	"github.com/BaSui01/schemaflow/providers"
	"github.com/BaSui01/schemaflow/providers/gemini"
	"github.com/BaSui01/schemaflow/providers/openai"
	"github.com/BaSui01/schemaflow/types"
)

// Build creates a Backend from a single backend configuration. The tier
// determines the profile: premium backends advertise schema-constrained
// decoding, economy backends do not.
//
// Supported vendors: gemini, openai.
func Build(cfg config.BackendConfig, tier types.BackendTier, logger *zap.Logger) (llm.Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseAdapterConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	profile := cfg.Profile(tier)

	switch strings.ToLower(cfg.Vendor) {
	case "gemini":
		return gemini.New(providers.GeminiConfig{BaseAdapterConfig: base}, profile, logger), nil

	case "openai":
		return openai.New(providers.OpenAIConfig{BaseAdapterConfig: base}, profile, logger), nil

	default:
		return nil, types.Errorf(types.ErrUnknownVendor,
			"unsupported backend vendor %q (supported: %s)",
			cfg.Vendor, strings.Join(SupportedVendors(), ", "))
	}
}

// BuildPair creates the economy and premium backends from a full
// configuration. Both must resolve or the pair is unusable.
func BuildPair(cfg *config.Config, logger *zap.Logger) (economy, premium llm.Backend, err error) {
	economy, err = Build(cfg.Backends.Economy, types.TierEconomy, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("economy backend: %w", err)
	}
	premium, err = Build(cfg.Backends.Premium, types.TierPremium, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("premium backend: %w", err)
	}
	return economy, premium, nil
}

// SupportedVendors returns the list of built-in vendor names.
func SupportedVendors() []string {
	return []string{"gemini", "openai"}
}
