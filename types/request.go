package types

// DefaultMaxAttempts is the attempt budget applied when a request does not
// set one.
const DefaultMaxAttempts = 3

// BackendHint steers backend selection for one request.
type BackendHint string

const (
	// HintAuto lets the router pick a backend from the token estimate.
	HintAuto BackendHint = "auto"
	// HintForceEconomy pins the economy backend, bypassing estimation.
	HintForceEconomy BackendHint = "force_economy"
	// HintForcePremium pins the premium backend, bypassing estimation.
	// Required when the caller wants enforced schema-constrained decoding,
	// which only the premium tier supports.
	HintForcePremium BackendHint = "force_premium"
)

// SchemaDescriptor describes the target shape of a structured request.
// Either Root is set (whole-payload schema), or Item plus WrapperKey
// (item schema with its expected canonical collection). Both may be set;
// Root then drives whole-payload validation and Item per-item validation.
type SchemaDescriptor struct {
	Root       *JSONSchema `json:"root,omitempty"`
	Item       *JSONSchema `json:"item,omitempty"`
	WrapperKey string      `json:"wrapper_key,omitempty"`
}

// EffectiveRoot returns the schema used for whole-payload validation,
// synthesizing object{WrapperKey: array[Item]} when only an item schema
// was supplied. Returns nil when the descriptor is empty.
func (d SchemaDescriptor) EffectiveRoot() *JSONSchema {
	if d.Root != nil {
		return d.Root
	}
	if d.Item == nil || d.WrapperKey == "" {
		return nil
	}
	return NewObjectSchema().
		AddProperty(d.WrapperKey, NewArraySchema(d.Item)).
		AddRequired(d.WrapperKey)
}

// ItemSchema returns the per-item schema for a wrapper key, falling back to
// the Root schema's wrapper property when Item was not given directly.
func (d SchemaDescriptor) ItemSchema(wrapperKey string) *JSONSchema {
	if d.Item != nil && (d.WrapperKey == "" || d.WrapperKey == wrapperKey) {
		return d.Item
	}
	if d.Root != nil && d.Root.Properties != nil {
		if prop, ok := d.Root.Properties[wrapperKey]; ok && prop != nil && prop.Items != nil {
			return prop.Items
		}
	}
	return nil
}

// IsZero reports whether the descriptor carries no schema at all.
func (d SchemaDescriptor) IsZero() bool {
	return d.Root == nil && d.Item == nil
}

// StructuredRequest is one structured-generation request. The request and
// all state derived from it live only for the duration of a single Execute
// call chain.
type StructuredRequest struct {
	// RequestID correlates envelope, trail entries, and spans. Filled with
	// a fresh UUID when empty.
	RequestID string `json:"request_id,omitempty"`
	// Prompt is the finished prompt text; template rendering happens
	// upstream.
	Prompt string `json:"prompt"`
	// Schema describes the expected payload shape.
	Schema SchemaDescriptor `json:"schema"`
	// Hint steers backend selection. Empty means HintAuto.
	Hint BackendHint `json:"hint,omitempty"`
	// MaxAttempts caps backend calls for this request. 0 applies
	// DefaultMaxAttempts.
	MaxAttempts int `json:"max_attempts,omitempty"`
	// EnforceDecoding asks the backend for schema-constrained decoding.
	// Implies premium selection since only that tier supports it.
	EnforceDecoding bool `json:"enforce_decoding,omitempty"`
}

// EffectiveHint resolves the hint, promoting to premium when enforced
// decoding is requested.
func (r *StructuredRequest) EffectiveHint() BackendHint {
	if r.EnforceDecoding {
		return HintForcePremium
	}
	if r.Hint == "" {
		return HintAuto
	}
	return r.Hint
}

// EffectiveMaxAttempts resolves the attempt budget.
func (r *StructuredRequest) EffectiveMaxAttempts() int {
	if r.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return r.MaxAttempts
}

// BackendTier distinguishes the two interchangeable backend roles.
type BackendTier string

const (
	TierEconomy BackendTier = "economy"
	TierPremium BackendTier = "premium"
)

// BackendProfile describes one generative backend's identity and cost
// characteristics. Profiles are read-only after construction.
type BackendProfile struct {
	ID string `json:"id"`
	// Vendor names the adapter family (gemini, openai).
	Vendor string      `json:"vendor"`
	Model  string      `json:"model"`
	Tier   BackendTier `json:"tier"`
	// CostPer1KTokens is an approximate input-token price used for
	// observability only; routing decisions use the token threshold.
	CostPer1KTokens float64 `json:"cost_per_1k_tokens,omitempty"`
	// SupportsSchemaDecoding marks backends that honor an enforced
	// response schema at decode time.
	SupportsSchemaDecoding bool `json:"supports_schema_decoding"`
}

// RawResponse is the text a backend returned for one attempt.
type RawResponse struct {
	Text    string `json:"text"`
	Attempt int    `json:"attempt"`
	Backend string `json:"backend"`
	// Token usage as reported by the backend; zero when unknown.
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	// LatencyMS is the wall-clock duration of the backend call.
	LatencyMS int64 `json:"latency_ms,omitempty"`
}

// ExtractionProtocol tags which extraction strategy located the payload.
type ExtractionProtocol string

const (
	ProtocolFenced  ExtractionProtocol = "fenced-block"
	ProtocolBracket ExtractionProtocol = "brace-matched"
	ProtocolTagged  ExtractionProtocol = "tagged-protocol"
	ProtocolNone    ExtractionProtocol = "none"
)

// ExtractedPayload is the substring (or pre-parsed value) isolated from a
// raw response. When no protocol matched, Raw holds the trimmed original
// text so downstream parsing fails explicitly instead of silently dropping
// data.
type ExtractedPayload struct {
	Raw      string             `json:"raw"`
	Protocol ExtractionProtocol `json:"protocol"`
	// Value is set when the protocol parses records directly (tagged
	// protocol); nil otherwise.
	Value any `json:"-"`
}
