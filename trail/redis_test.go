// Redis Stream 轨迹 Sink 测试。
package trail

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

func setupRedisSink(t *testing.T, opts ...RedisSinkOption) (*miniredis.Miniredis, *redis.Client, *RedisSink) {
	// 创建 miniredis 实例
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewRedisSinkWithClient(client, "", nil, opts...)
	return mr, client, sink
}

func TestRedisSink_AppendWritesStreamEntry(t *testing.T) {
	_, client, sink := setupRedisSink(t)
	ctx := context.Background()

	e := NewEntry("req-1", 2, "gemini/gemini-2.0-flash", types.OutcomeValidationFail,
		"prompt text", "{\"skills\": 1}", "skills: expected array")
	require.NoError(t, sink.Append(ctx, e))

	msgs, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	v := msgs[0].Values
	assert.Equal(t, "req-1", v["request_id"])
	assert.Equal(t, "2", v["attempt"])
	assert.Equal(t, "gemini/gemini-2.0-flash", v["backend"])
	assert.Equal(t, "validation_fail", v["outcome"])
	assert.Equal(t, "prompt text", v["prompt_tail"])
	assert.Equal(t, "{\"skills\": 1}", v["raw_response"])
	assert.Equal(t, "skills: expected array", v["err_detail"])
	assert.NotEmpty(t, v["at"])
}

func TestRedisSink_CustomStreamName(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisSinkWithClient(client, "myapp:attempts", nil)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, NewEntry("req-2", 1, "b", types.OutcomeSuccess, "p", "{}", "")))

	n, err := client.XLen(ctx, "myapp:attempts").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisSink_PreservesAttemptOrder(t *testing.T) {
	_, client, sink := setupRedisSink(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, sink.Append(ctx, NewEntry("req-3", i, "b", types.OutcomeParseFail, "p", "r", "oops")))
	}

	msgs, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// 流条目按写入序返回
	assert.Equal(t, "1", msgs[0].Values["attempt"])
	assert.Equal(t, "2", msgs[1].Values["attempt"])
	assert.Equal(t, "3", msgs[2].Values["attempt"])
}

func TestRedisSink_CloseKeepsInjectedClient(t *testing.T) {
	_, client, sink := setupRedisSink(t)

	// 注入的客户端不随 Sink 关闭
	require.NoError(t, sink.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisSink_UnreachableAddr(t *testing.T) {
	_, err := NewRedisSink("localhost:1", "", nil)
	assert.Error(t, err)
}
