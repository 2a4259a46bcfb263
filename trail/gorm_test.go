// SQLite 轨迹 Sink 测试。
package trail

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/schemaflow/types"
)

func setupGormSink(t *testing.T) *GormSink {
	sink, err := NewGormSink(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestNewGormSink_RequiresPath(t *testing.T) {
	_, err := NewGormSink("", nil)
	assert.Error(t, err)
}

func TestNewGormSink_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.db")
	sink, err := NewGormSink(path, nil)
	require.NoError(t, err)
	defer sink.Close()

	err = sink.Append(context.Background(), NewEntry("req-1", 1, "b", types.OutcomeSuccess, "p", "{}", ""))
	assert.NoError(t, err)
}

func TestGormSink_AppendAndByRequest(t *testing.T) {
	sink := setupGormSink(t)
	ctx := context.Background()

	// 同一请求的三次尝试，乱序写入
	require.NoError(t, sink.Append(ctx, NewEntry("req-2", 2, "eco", types.OutcomeParseFail, "p2", "not json", "invalid")))
	require.NoError(t, sink.Append(ctx, NewEntry("req-2", 3, "eco", types.OutcomeSuccess, "p3", "{}", "")))
	require.NoError(t, sink.Append(ctx, NewEntry("req-2", 1, "eco", types.OutcomeInfraFail, "p1", "", "timeout")))
	// 混入另一个请求
	require.NoError(t, sink.Append(ctx, NewEntry("other", 1, "prem", types.OutcomeSuccess, "p", "{}", "")))

	rows, err := sink.ByRequest(ctx, "req-2")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// 按尝试序号升序回放
	assert.Equal(t, 1, rows[0].Attempt)
	assert.Equal(t, 2, rows[1].Attempt)
	assert.Equal(t, 3, rows[2].Attempt)
	assert.Equal(t, string(types.OutcomeInfraFail), rows[0].Outcome)
	assert.Equal(t, "timeout", rows[0].ErrDetail)
	assert.Equal(t, "not json", rows[1].RawResponse)
}

func TestGormSink_ByRequestUnknownID(t *testing.T) {
	sink := setupGormSink(t)

	rows, err := sink.ByRequest(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGormSink_CountByOutcome(t *testing.T) {
	sink := setupGormSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, NewEntry("a", 1, "b", types.OutcomeQuotaFatal, "p", "", "quota exceeded")))
	require.NoError(t, sink.Append(ctx, NewEntry("b", 1, "b", types.OutcomeQuotaFatal, "p", "", "quota exceeded")))
	require.NoError(t, sink.Append(ctx, NewEntry("c", 1, "b", types.OutcomeSuccess, "p", "{}", "")))

	n, err := sink.CountByOutcome(ctx, types.OutcomeQuotaFatal)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = sink.CountByOutcome(ctx, types.OutcomeValidationFail)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestGormSink_PreservesEntryTimestamp(t *testing.T) {
	sink := setupGormSink(t)
	ctx := context.Background()

	e := NewEntry("req-5", 1, "b", types.OutcomeSuccess, "p", "{}", "")
	require.NoError(t, sink.Append(ctx, e))

	rows, err := sink.ByRequest(ctx, "req-5")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.WithinDuration(t, e.At, rows[0].At, 0)
}
