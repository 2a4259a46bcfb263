package llm

import "errors"

// ErrorCode 标识后端失败的类别，是重试决策的唯一依据。
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "GEN_INVALID_REQUEST"     // 参数/格式错误
	ErrUnauthorized       ErrorCode = "GEN_UNAUTHORIZED"        // 未授权或密钥失效
	ErrForbidden          ErrorCode = "GEN_FORBIDDEN"           // 权限或内容策略拒绝
	ErrRateLimited        ErrorCode = "GEN_RATE_LIMITED"        // 上游或本地限流
	ErrQuotaExceeded      ErrorCode = "GEN_QUOTA_EXCEEDED"      // 额度/配额用尽，致命
	ErrContentFiltered    ErrorCode = "GEN_CONTENT_FILTERED"    // 命中内容安全
	ErrUpstreamTimeout    ErrorCode = "GEN_UPSTREAM_TIMEOUT"    // 上游超时
	ErrUpstreamError      ErrorCode = "GEN_UPSTREAM_ERROR"      // 上游 5xx/网络错误
	ErrBackendUnavailable ErrorCode = "GEN_BACKEND_UNAVAILABLE" // 后端不可用
)

// Error 是后端适配器返回的结构化错误。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Backend    string    `json:"backend,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// NewError 创建结构化错误。
func NewError(code ErrorCode, message, backend string) *Error {
	return &Error{Code: code, Message: message, Backend: backend}
}

// AsError 尝试把任意 error 还原为 *Error，包装过的错误会先解包。
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf 提取错误码，非 *Error 返回空串。
func CodeOf(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsQuotaExhausted 判断是否为配额用尽（致命，不可重试）。
func IsQuotaExhausted(err error) bool {
	return CodeOf(err) == ErrQuotaExceeded
}

// IsInfra 判断是否为可重试的基础设施失败（限流、上游故障等）。
// 配额错误即使被适配器误标为可重试也不算。
func IsInfra(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.Retryable && e.Code != ErrQuotaExceeded
}
