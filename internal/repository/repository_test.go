package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/testutil"
)

func TestRowRepository_ListAndCount(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	other := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "other"})

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, testutil.SeedRow(t, repos, ds.ID, "p", "c", 1, 1).ID)
	}
	testutil.SeedRow(t, repos, other.ID, "x", "y", 1, 1)

	total, err := repos.Row.Count(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	page, err := repos.Row.List(ctx, ds.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// 插入顺序
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)
}

func TestRowRepository_ScanAscendingById(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})

	var want []string
	for i := 0; i < 7; i++ {
		want = append(want, testutil.SeedRow(t, repos, ds.ID, "p", "c", 1, 2).ID)
	}

	var got []string
	batches := 0
	for batch, err := range repos.Row.Scan(ctx, ds.ID, 3) {
		require.NoError(t, err)
		batches++
		for _, row := range batch {
			got = append(got, row.ID)
		}
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 3, batches)
}

func TestRowRepository_ScanTokenCounts(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	testutil.SeedRow(t, repos, ds.ID, "a", "b", 3, 4)
	testutil.SeedRow(t, repos, ds.ID, "c", "d", 5, 6)

	sum := 0
	for batch, err := range repos.Row.ScanTokenCounts(ctx, ds.ID, 1) {
		require.NoError(t, err)
		for _, c := range batch {
			assert.NotEmpty(t, c.ID)
			sum += c.PromptTokenCount + c.CompletionTokenCount
		}
	}
	assert.Equal(t, 18, sum)
}

func TestRowRepository_ScanIncludesRowsAppendedMidScan(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	testutil.SeedRow(t, repos, ds.ID, "a", "a", 1, 1)
	testutil.SeedRow(t, repos, ds.ID, "b", "b", 1, 1)

	seen := 0
	appended := false
	for batch, err := range repos.Row.Scan(ctx, ds.ID, 1) {
		require.NoError(t, err)
		seen += len(batch)
		if !appended {
			testutil.SeedRow(t, repos, ds.ID, "late", "late", 1, 1)
			appended = true
		}
	}
	// 新行 id 更大，扫描尚未读到空批次，因此一定被包含
	assert.Equal(t, 3, seen)
}

func TestDataSetRepository_DeleteCascade(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	keep := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "keep"})
	testutil.SeedRow(t, repos, ds.ID, "a", "b", 1, 1)
	testutil.SeedRow(t, repos, ds.ID, "c", "d", 1, 1)
	testutil.SeedRow(t, repos, keep.ID, "e", "f", 1, 1)

	require.NoError(t, repos.DataSet.Delete(ctx, ds.ID))

	_, err := repos.DataSet.GetByID(ctx, ds.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	n, err := repos.Row.Count(ctx, ds.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repos.Row.Count(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDataSetRepository_DeleteMissing(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	err := repos.DataSet.Delete(context.Background(), model.NewID())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDataSetRepository_DeleteRollsBackOnFailure(t *testing.T) {
	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	testutil.SeedRow(t, repos, ds.ID, "a", "b", 1, 1)
	testutil.SeedRow(t, repos, ds.ID, "c", "d", 1, 1)

	// 数据行已删除后，删除数据集本身失败
	err := db.Callback().Delete().Before("gorm:delete").Register("test:fail_data_set_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "data_sets" {
			_ = tx.AddError(errors.New("simulated failure"))
		}
	})
	require.NoError(t, err)

	err = repos.DataSet.Delete(ctx, ds.ID)
	require.ErrorContains(t, err, "simulated failure")

	_, err = repos.DataSet.GetByID(ctx, ds.ID)
	assert.NoError(t, err)
	n, err := repos.Row.Count(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "rows must survive a failed cascade")
}

func TestFileRepository(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	f := &model.StoredFile{ID: model.NewID(), DataSetID: "ds-1", FileName: "a.csv", StorageType: "local", FilePath: "ds-1/a.csv"}
	require.NoError(t, repos.File.Create(ctx, f))

	files, err := repos.File.ListByDataSetID(ctx, "ds-1")
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, repos.File.DeleteByDataSetID(ctx, "ds-1"))
	_, err = repos.File.GetByID(ctx, f.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRowRepository_UpdateAfterDataSetDeleted(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	row := testutil.SeedRow(t, repos, ds.ID, "a", "b", 1, 1)

	require.NoError(t, repos.DataSet.Delete(ctx, ds.ID))

	row.Prompt = "changed"
	err := repos.Row.Update(ctx, row)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repos.Row.Count(ctx, ds.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRowRepository_UpdateChangesOnlyTarget(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	row := testutil.SeedRow(t, repos, ds.ID, "a", "b", 1, 1)
	other := testutil.SeedRow(t, repos, ds.ID, "c", "d", 1, 1)

	row.Prompt = "changed"
	row.PromptTokenCount = 7
	require.NoError(t, repos.Row.Update(ctx, row))

	got, err := repos.Row.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Prompt)
	assert.Equal(t, 7, got.PromptTokenCount)
	assert.Equal(t, "b", got.Completion)

	got, err = repos.Row.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "c", got.Prompt)

	// 数据行不能挪到其他数据集
	row.DataSetID = model.NewID()
	assert.ErrorIs(t, repos.Row.Update(ctx, row), gorm.ErrRecordNotFound)
}

func TestRowRepository_CreateRequiresDataSet(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	require.NoError(t, repos.DataSet.Delete(ctx, ds.ID))

	err := repos.Row.Create(ctx, &model.Row{ID: model.NewID(), DataSetID: ds.ID, Prompt: "p"})
	assert.Error(t, err)

	n, err := repos.Row.Count(ctx, ds.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDataSetRepository_UpdateDeleted(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	ctx := context.Background()
	ds := testutil.SeedDataSet(t, repos, &model.DataSet{Title: "ds"})
	require.NoError(t, repos.DataSet.Delete(ctx, ds.ID))

	ds.Title = "back"
	assert.ErrorIs(t, repos.DataSet.Update(ctx, ds), gorm.ErrRecordNotFound)
	_, err := repos.DataSet.GetByID(ctx, ds.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	total, err := repos.DataSet.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
