package types

import (
	"time"
)

// OutcomeClass classifies what one attempt produced.
type OutcomeClass string

const (
	OutcomeSuccess        OutcomeClass = "success"
	OutcomeParseFail      OutcomeClass = "parse_fail"
	OutcomeValidationFail OutcomeClass = "validation_fail"
	OutcomeInfraFail      OutcomeClass = "infra_fail"
	OutcomeQuotaFatal     OutcomeClass = "quota_fatal"
)

// snippetLimit caps the raw text carried inside an AttemptLog. The full
// response goes to the diagnostic trail instead.
const snippetLimit = 200

// AttemptLog records one attempt. Entries are append-only values and are
// never mutated after creation.
type AttemptLog struct {
	Attempt    int          `json:"attempt"`
	Outcome    OutcomeClass `json:"outcome"`
	Backend    string       `json:"backend,omitempty"`
	RawSnippet string       `json:"raw_snippet,omitempty"`
	ErrDetail  string       `json:"err_detail,omitempty"`
	At         time.Time    `json:"at"`
}

// NewAttemptLog builds an entry, truncating the raw text to the snippet cap.
func NewAttemptLog(attempt int, outcome OutcomeClass, backend, raw, errDetail string) AttemptLog {
	return AttemptLog{
		Attempt:    attempt,
		Outcome:    outcome,
		Backend:    backend,
		RawSnippet: Snippet(raw, snippetLimit),
		ErrDetail:  errDetail,
		At:         time.Now(),
	}
}

// Snippet truncates s to at most n bytes on a rune boundary, appending an
// ellipsis marker when cut.
func Snippet(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && cut < len(s) && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}

// ValidationOutcome is the validator's verdict on a normalized payload.
type ValidationOutcome struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	// WrapperKey names the collection the failing item belongs to, when
	// item-level validation ran.
	WrapperKey string `json:"wrapper_key,omitempty"`
	// ItemIndex is the first failing item's index, or -1 when the failure
	// is not item-scoped.
	ItemIndex int `json:"item_index"`
}

// ValidOutcome is the success verdict.
func ValidOutcome() ValidationOutcome {
	return ValidationOutcome{OK: true, ItemIndex: -1}
}

// InvalidOutcome builds a root-level failure verdict.
func InvalidOutcome(message string) ValidationOutcome {
	return ValidationOutcome{OK: false, Message: message, ItemIndex: -1}
}

// InvalidItemOutcome builds an item-level failure verdict.
func InvalidItemOutcome(message, wrapperKey string, index int) ValidationOutcome {
	return ValidationOutcome{OK: false, Message: message, WrapperKey: wrapperKey, ItemIndex: index}
}

// Terminal error kinds carried by a failure envelope.
const (
	ErrKindMaxRetries = "max_retries_reached"
	ErrKindQuota      = "quota_exhausted"
)

// ResultEnvelope is the terminal state of one structured request. Every
// Execute call produces exactly one envelope; it is never nil and failure
// envelopes always carry iterable empty canonical collections.
type ResultEnvelope struct {
	OK      bool              `json:"ok"`
	Payload NormalizedPayload `json:"payload"`
	// ErrorKind is empty on success, else max_retries_reached or
	// quota_exhausted.
	ErrorKind     string `json:"error,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	// Last is the final attempt's log entry; nil only when no backend call
	// was ever made.
	Last      *AttemptLog `json:"last_attempt,omitempty"`
	Attempts  int         `json:"attempts"`
	RequestID string      `json:"request_id,omitempty"`
	Backend   string      `json:"backend,omitempty"`
	ElapsedMS int64       `json:"elapsed_ms,omitempty"`
}

// SuccessEnvelope wraps a validated payload.
func SuccessEnvelope(payload NormalizedPayload, attempts int) *ResultEnvelope {
	return &ResultEnvelope{OK: true, Payload: payload, Attempts: attempts}
}

// FailureEnvelope builds a terminal failure with pre-populated empty
// collections so callers can iterate without nil checks.
func FailureEnvelope(kind, reason string, last *AttemptLog, attempts int) *ResultEnvelope {
	return &ResultEnvelope{
		OK:            false,
		Payload:       EmptyPayload(),
		ErrorKind:     kind,
		FailureReason: reason,
		Last:          last,
		Attempts:      attempts,
	}
}

// Err returns a typed error describing a failure envelope, or nil on
// success. Provided for callers that prefer error-style control flow; the
// envelope itself remains the authoritative result.
func (e *ResultEnvelope) Err() error {
	if e == nil || e.OK {
		return nil
	}
	code := ErrMaxRetries
	if e.ErrorKind == ErrKindQuota {
		code = ErrQuotaFatal
	}
	return NewError(code, e.FailureReason)
}
