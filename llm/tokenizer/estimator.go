package tokenizer

import (
	"fmt"
	"unicode"
)

// EstimatorTokenizer provides heuristic token estimation for models
// without a local encoding table (gemini, gemma, self-hosted weights).
// Routing only needs the count to land on the right side of a threshold,
// so the estimate is deliberately conservative: CJK text densifies to
// roughly 1.5 characters per token, ASCII to charsPerToken.
type EstimatorTokenizer struct {
	model         string
	maxTokens     int
	charsPerToken float64
}

// EstimatorOption configures an EstimatorTokenizer.
type EstimatorOption func(*EstimatorTokenizer)

// WithMaxTokens sets the model's context window size.
func WithMaxTokens(max int) EstimatorOption {
	return func(e *EstimatorTokenizer) {
		e.maxTokens = max
	}
}

// WithCharsPerToken overrides the ASCII characters-per-token ratio.
// Lower values estimate high; useful for code-heavy prompts.
func WithCharsPerToken(ratio float64) EstimatorOption {
	return func(e *EstimatorTokenizer) {
		if ratio > 0 {
			e.charsPerToken = ratio
		}
	}
}

// NewEstimatorTokenizer creates an estimator for the given model.
func NewEstimatorTokenizer(model string, opts ...EstimatorOption) *EstimatorTokenizer {
	e := &EstimatorTokenizer{
		model:         model,
		maxTokens:     4096,
		charsPerToken: 4.0,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CountTokens estimates token count from character classes.
// Never returns an error; the estimate is always usable.
func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}

	estimate := float64(cjk)/1.5 + float64(other)/e.charsPerToken
	n := int(estimate)
	if n < 1 {
		n = 1
	}
	return n, nil
}

// Encode produces pseudo token IDs, one per rune. Debug use only.
func (e *EstimatorTokenizer) Encode(text string) ([]int, error) {
	tokens := make([]int, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, int(r))
	}
	return tokens, nil
}

// Decode is not supported for estimated tokens.
func (e *EstimatorTokenizer) Decode(tokens []int) (string, error) {
	return "", fmt.Errorf("decode not supported by estimator tokenizer")
}

// MaxTokens returns the configured context window size.
func (e *EstimatorTokenizer) MaxTokens() int {
	return e.maxTokens
}

// Name returns the tokenizer name.
func (e *EstimatorTokenizer) Name() string {
	return "estimator-" + e.model
}

func isCJK(r rune) bool {
	return unicode.In(r,
		unicode.Han,
		unicode.Hiragana,
		unicode.Katakana,
		unicode.Hangul,
	)
}
