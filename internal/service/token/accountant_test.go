package token

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/service/tokenizer"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
	"github.com/ashwinyue/finetune-admin/internal/testutil"
)

func TestTotalForDataSet(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{
		Title:                        "ds",
		PromptTemplateTokenCount:     3,
		CompletionTemplateTokenCount: 2,
	})
	rowTokens := [][2]int{{1, 2}, {10, 20}, {0, 5}, {7, 0}}
	want := int64(0)
	for _, rt := range rowTokens {
		testutil.SeedRow(t, repos, ds.ID, "p", "c", rt[0], rt[1])
		want += int64(rt[0] + rt[1])
	}
	want += int64(len(rowTokens)) * (3 + 2)

	// 批大小小于行数，覆盖多批
	acc := NewAccountant(repos.DataSet, repos.Row, 3)
	total, err := acc.TotalForDataSet(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, want, total)

	sum, err := acc.Summarize(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.RowCount)
	assert.Equal(t, int64(20), sum.TemplateTokens)
}

func TestTotalForDataSet_BareTemplates(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	counter := tokenizer.Default()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{
		Title:              "ds",
		PromptTemplate:     "{{prompt}}",
		CompletionTemplate: "{{completion}}",
	})
	testutil.SeedRow(t, repos, ds.ID, "a", "b", counter.Count("a"), counter.Count("b"))

	total, err := NewAccountant(repos.DataSet, repos.Row, 0).TotalForDataSet(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(counter.Count("a")+counter.Count("b")), total)
}

func TestTotalForDataSet_Empty(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds", PromptTemplateTokenCount: 9})

	total, err := NewAccountant(repos.DataSet, repos.Row, 10).TotalForDataSet(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTotalForDataSet_NotFound(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	_, err := NewAccountant(repos.DataSet, repos.Row, 10).TotalForDataSet(context.Background(), model.NewID())
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = NewAccountant(repos.DataSet, repos.Row, 10).TotalForDataSet(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

// appendingScanner 在读完第一批后插入新行，模拟扫描期间的并发写入
type appendingScanner struct {
	inner TokenCountScanner
	onFirstBatch func()
}

func (s *appendingScanner) ScanTokenCounts(ctx context.Context, dataSetID string, batchSize int) iter.Seq2[[]model.RowTokenCount, error] {
	return func(yield func([]model.RowTokenCount, error) bool) {
		first := true
		for batch, err := range s.inner.ScanTokenCounts(ctx, dataSetID, batchSize) {
			if !yield(batch, err) {
				return
			}
			if first && s.onFirstBatch != nil {
				s.onFirstBatch()
				first = false
			}
		}
	}
}

func TestTotalForDataSet_RowAppendedMidScanIsIncluded(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds", PromptTemplateTokenCount: 1})
	testutil.SeedRow(t, repos, ds.ID, "p", "c", 1, 1)
	testutil.SeedRow(t, repos, ds.ID, "p", "c", 1, 1)

	scanner := &appendingScanner{
		inner: repos.Row,
		onFirstBatch: func() {
			testutil.SeedRow(t, repos, ds.ID, "late", "late", 100, 100)
		},
	}
	total, err := NewAccountant(repos.DataSet, scanner, 1).TotalForDataSet(context.Background(), ds.ID)
	require.NoError(t, err)
	// 2 行初始 + 1 行追加，每行模板开销 1
	assert.Equal(t, int64(2+2+200+3), total)
}

type failingScanner struct{ err error }

func (s failingScanner) ScanTokenCounts(ctx context.Context, dataSetID string, batchSize int) iter.Seq2[[]model.RowTokenCount, error] {
	return func(yield func([]model.RowTokenCount, error) bool) {
		yield(nil, s.err)
	}
}

func TestTotalForDataSet_ScanFailure(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})

	_, err := NewAccountant(repos.DataSet, failingScanner{err: errors.New("disk I/O error")}, 1).
		TotalForDataSet(context.Background(), ds.ID)
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.ErrorContains(t, err, "disk I/O error")
}

func TestTotalForDataSet_Canceled(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	testutil.SeedRow(t, repos, ds.ID, "p", "c", 1, 1)

	acc := NewAccountant(repos.DataSet, repos.Row, 1)
	_, err := acc.TotalForDataSet(testutil.CanceledContext(), ds.ID)
	assert.Error(t, err)
}
