package finetune

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

type stubExporter struct {
	content string
	err     error
	calls   int
}

func (e *stubExporter) Collect(ctx context.Context, dataSetID string) (*bytes.Buffer, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return bytes.NewBufferString(e.content), nil
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, ttl), mr
}

func TestSubmit(t *testing.T) {
	fp, ts := newFakeProvider(t)
	exp := &stubExporter{content: "{\"prompt\":\"Q: hi\",\"completion\":\"A\"}\n"}
	svc := NewService(newTestClient(ts, "tok"), nil, exp)

	sub, err := svc.Submit(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "uploads/ds-1.jsonl", sub.Key)
	assert.Equal(t, len(exp.content), sub.Bytes)
	assert.JSONEq(t, `{"id":"ft-1","status":"pending"}`, string(sub.Job))
	assert.Equal(t, exp.content, fp.upload("file"))
	assert.Equal(t, "uploads/ds-1.jsonl", fp.started())
}

func TestSubmit_ExportFailureSkipsProvider(t *testing.T) {
	fp, ts := newFakeProvider(t)
	exp := &stubExporter{err: types.NotFoundf("data set ds-1")}
	svc := NewService(newTestClient(ts, "tok"), nil, exp)

	_, err := svc.Submit(context.Background(), "ds-1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, fp.auths())
}

func TestSubmit_UploadRejectedDoesNotStart(t *testing.T) {
	fp, ts := newFakeProvider(t)
	fp.storageStatus = http.StatusBadRequest
	svc := NewService(newTestClient(ts, "tok"), nil, &stubExporter{content: "x\n"})

	_, err := svc.Submit(context.Background(), "ds-1")
	assert.ErrorIs(t, err, types.ErrUpload)
	assert.Empty(t, fp.started())
}

func TestListJobs_Cached(t *testing.T) {
	fp, ts := newFakeProvider(t)
	cache, mr := newTestCache(t, time.Minute)
	svc := NewService(newTestClient(ts, "tok"), cache, &stubExporter{content: "x\n"})
	ctx := context.Background()

	first, err := svc.ListJobs(ctx)
	require.NoError(t, err)
	second, err := svc.ListJobs(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, int32(1), fp.jobListCalls.Load())
	assert.True(t, mr.Exists(cacheKeyPrefix+jobsCacheKey))

	mr.FastForward(2 * time.Minute)
	_, err = svc.ListJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fp.jobListCalls.Load())

	// 提交后任务列表缓存失效
	_, err = svc.Submit(ctx, "ds-1")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKeyPrefix+jobsCacheKey))
}

func TestListModels_CacheDisabled(t *testing.T) {
	fp, ts := newFakeProvider(t)
	cache, mr := newTestCache(t, 0)
	svc := NewService(newTestClient(ts, "tok"), cache, &stubExporter{})

	for i := 0; i < 2; i++ {
		_, err := svc.ListModels(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), fp.modelListCalls.Load())
	assert.False(t, mr.Exists(cacheKeyPrefix+modelsCacheKey))
}

func TestCache_RedisDown(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, ok := cache.Get(context.Background(), "k")
	assert.False(t, ok)
	cache.Set(context.Background(), "k", []byte(`[]`))
}
