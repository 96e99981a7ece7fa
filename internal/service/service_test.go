package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/finetune-admin/internal/config"
	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/service/dataset"
	"github.com/ashwinyue/finetune-admin/internal/service/ingest"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
	"github.com/ashwinyue/finetune-admin/internal/testutil"
)

func newTestServices(t *testing.T, storageType string) (*Services, *repository.Repositories) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Type = storageType
	cfg.Storage.BasePath = t.TempDir()

	repos := testutil.NewTestRepositories(t)
	svcs, err := NewServices(context.Background(), repos, cfg, nil)
	require.NoError(t, err)
	return svcs, repos
}

func opener(content string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}
}

func TestUpload_CSVWithArchive(t *testing.T) {
	svcs, repos := newTestServices(t, "local")
	ctx := context.Background()
	ds, err := svcs.DataSet.CreateDataSet(ctx, &dataset.CreateDataSetRequest{Title: "canto"})
	require.NoError(t, err)

	content := "cantonese,mandarin\n你好,您好\n多謝,谢谢\n"
	res, err := svcs.Upload(ctx, &UploadRequest{
		DataSetID:   ds.ID,
		FileName:    "corpus.csv",
		ContentType: "text/csv",
		Size:        int64(len(content)),
		Columns:     ingest.Columns{Prompt: "cantonese", Completion: "mandarin"},
		Open:        opener(content),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows)
	require.NotNil(t, res.File)
	assert.Equal(t, "corpus.csv", res.File.FileName)

	rows, total, err := svcs.DataSet.ListRows(ctx, ds.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "你好", rows[0].Prompt)

	// 导出后再以 JSONL 导入，记录保持不变
	buf, err := svcs.Exporter.Collect(ctx, ds.ID)
	require.NoError(t, err)
	other, err := svcs.DataSet.CreateDataSet(ctx, &dataset.CreateDataSetRequest{Title: "copy"})
	require.NoError(t, err)
	_, err = svcs.Upload(ctx, &UploadRequest{DataSetID: other.ID, FileName: "export.jsonl", Open: opener(buf.String())})
	require.NoError(t, err)
	again, err := svcs.Exporter.Collect(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), again.String())

	total2, err := svcs.Accountant.TotalForDataSet(ctx, ds.ID)
	require.NoError(t, err)
	assert.Positive(t, total2)

	require.NoError(t, svcs.DeleteDataSet(ctx, ds.ID))
	files, err := repos.File.ListByDataSetID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUpload_Errors(t *testing.T) {
	svcs, _ := newTestServices(t, "none")
	ctx := context.Background()

	_, err := svcs.Upload(ctx, &UploadRequest{DataSetID: model.NewID(), FileName: "a.csv", Open: opener("prompt,completion\n")})
	assert.ErrorIs(t, err, types.ErrNotFound)

	ds, err := svcs.DataSet.CreateDataSet(ctx, &dataset.CreateDataSetRequest{Title: "t"})
	require.NoError(t, err)
	_, err = svcs.Upload(ctx, &UploadRequest{DataSetID: ds.ID, FileName: "a.csv", Open: opener("q,a\nx,y\n")})
	assert.ErrorIs(t, err, types.ErrValidation)

	res, err := svcs.Upload(ctx, &UploadRequest{DataSetID: ds.ID, FileName: "a.csv", Open: opener("prompt,completion\n\"broken,x\n")})
	var ierr *ingest.Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 0, ierr.Index)
	assert.Nil(t, res.File)
}
