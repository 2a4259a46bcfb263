package trail

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream 是轨迹流的默认键名。
const DefaultStream = "schemaflow:trail"

// defaultMaxLen 限制流长度，旧记录被近似裁剪（XADD MAXLEN ~）。
const defaultMaxLen = 10000

// RedisSink 把轨迹追加到 Redis Stream，供外部消费者（告警、看板）
// 订阅。网关侧仍然只写不读。
type RedisSink struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	ownsCli bool
	logger  *zap.Logger
}

// RedisSinkOption 配置 RedisSink。
type RedisSinkOption func(*RedisSink)

// WithStreamMaxLen 覆盖流长度上限。
func WithStreamMaxLen(n int64) RedisSinkOption {
	return func(s *RedisSink) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// NewRedisSink 连接 Redis 并校验连通性。stream 为空时使用默认键名。
func NewRedisSink(addr, stream string, logger *zap.Logger, opts ...RedisSinkOption) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect trail redis: %w", err)
	}

	s := newRedisSink(client, stream, logger, opts...)
	s.ownsCli = true
	return s, nil
}

// NewRedisSinkWithClient 复用已有客户端（测试注入 miniredis 时使用），
// Close 不会关闭传入的客户端。
func NewRedisSinkWithClient(client *redis.Client, stream string, logger *zap.Logger, opts ...RedisSinkOption) *RedisSink {
	return newRedisSink(client, stream, logger, opts...)
}

func newRedisSink(client *redis.Client, stream string, logger *zap.Logger, opts ...RedisSinkOption) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RedisSink{
		client: client,
		stream: stream,
		maxLen: defaultMaxLen,
		logger: logger.With(zap.String("component", "trail_redis")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append 实现 Sink。字段平铺成流条目，时间用 RFC3339 便于人读。
func (s *RedisSink) Append(ctx context.Context, e Entry) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"request_id":   e.RequestID,
			"attempt":      e.Attempt,
			"backend":      e.Backend,
			"outcome":      string(e.Outcome),
			"prompt_tail":  e.PromptTail,
			"raw_response": e.RawResponse,
			"err_detail":   e.ErrDetail,
			"at":           e.At.Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd trail entry: %w", err)
	}
	return nil
}

// Close 关闭自建的客户端；注入的客户端由调用方负责。
func (s *RedisSink) Close() error {
	if !s.ownsCli {
		return nil
	}
	return s.client.Close()
}
