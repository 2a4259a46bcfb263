package trail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultFilePath 是文本轨迹的固定相对路径。
const DefaultFilePath = "data/trail.log"

// FileSink 把轨迹写成人类可读的文本转录，只追加。进程内加锁保证
// 单写者；文件句柄以 O_APPEND 打开，崩溃后旧内容完好。
type FileSink struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	logger *zap.Logger
}

// NewFileSink 打开（必要时创建）轨迹文件。path 为空时使用默认路径，
// 父目录不存在时自动创建。
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if path == "" {
		path = DefaultFilePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create trail directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trail file: %w", err)
	}
	return &FileSink{
		f:      f,
		path:   path,
		logger: logger.With(zap.String("component", "trail_file")),
	}, nil
}

// Path 返回轨迹文件路径。
func (s *FileSink) Path() string { return s.path }

// Append 实现 Sink。块格式沿用调试转录的惯例：分隔线、提示词尾部、
// 原始响应、结果分类，方便直接 tail -f 观察。
func (s *FileSink) Append(_ context.Context, e Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n%s ATTEMPT %d (%s) %s\n",
		strings.Repeat("=", 20), e.Attempt, e.At.Format("15:04:05"), strings.Repeat("=", 20))
	fmt.Fprintf(&b, "request: %s  backend: %s\n", e.RequestID, e.Backend)
	fmt.Fprintf(&b, "--- PROMPT TAIL (last %d chars) ---\n...%s\n", PromptTailLimit, e.PromptTail)
	fmt.Fprintf(&b, "--- RAW RESPONSE ---\n%s\n", e.RawResponse)
	fmt.Fprintf(&b, "--- OUTCOME ---\n%s", e.Outcome)
	if e.ErrDetail != "" {
		fmt.Fprintf(&b, ": %s", e.ErrDetail)
	}
	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 50))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("trail file %s already closed", s.path)
	}
	if _, err := s.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append trail entry: %w", err)
	}
	return nil
}

// Close 关闭文件句柄，之后的 Append 返回错误。
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
