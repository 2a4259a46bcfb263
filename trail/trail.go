package trail

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/schemaflow/types"
)

// PromptTailLimit 是 Entry 中保留的提示词尾部长度。完整提示词可能
// 含有大量上下文，轨迹只需要看到最近追加的纠正指令。
const PromptTailLimit = 300

// Entry 是一次后端调用的轨迹记录。创建后不可变。
type Entry struct {
	RequestID   string             `json:"request_id"`
	Attempt     int                `json:"attempt"`
	Backend     string             `json:"backend"`
	Outcome     types.OutcomeClass `json:"outcome"`
	PromptTail  string             `json:"prompt_tail"`
	RawResponse string             `json:"raw_response"`
	ErrDetail   string             `json:"err_detail,omitempty"`
	At          time.Time          `json:"at"`
}

// NewEntry 组装一条轨迹记录，提示词截到尾部上限。
func NewEntry(requestID string, attempt int, backend string, outcome types.OutcomeClass, prompt, raw, errDetail string) Entry {
	return Entry{
		RequestID:   requestID,
		Attempt:     attempt,
		Backend:     backend,
		Outcome:     outcome,
		PromptTail:  Tail(prompt, PromptTailLimit),
		RawResponse: raw,
		ErrDetail:   errDetail,
		At:          time.Now(),
	}
}

// Tail 返回 s 的末尾至多 n 字节，在符文边界上截断。
func Tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && (s[cut]&0xC0) == 0x80 {
		cut++
	}
	return s[cut:]
}

// Sink 接收轨迹记录。实现必须可安全地被单个网关串行调用；
// 写失败返回错误，由调用方记日志，绝不向上传播到请求结果。
type Sink interface {
	// Append 写入一条记录
	Append(ctx context.Context, e Entry) error
	// Close 释放底层资源
	Close() error
}

// NopSink 丢弃所有记录，用于关闭轨迹的场景。
type NopSink struct{}

func (NopSink) Append(context.Context, Entry) error { return nil }
func (NopSink) Close() error                        { return nil }

// MultiSink 把每条记录扇出到全部子 Sink。任何子 Sink 的失败不会
// 阻止其余子 Sink 收到记录，错误合并返回。
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink 创建扇出 Sink，nil 子项被忽略。
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Append 实现 Sink。
func (m *MultiSink) Append(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 关闭全部子 Sink。
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
