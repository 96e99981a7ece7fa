package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/finetune-admin/internal/config"
	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
	"github.com/ashwinyue/finetune-admin/internal/testutil"
)

func TestArchive_LocalRoundTrip(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	dir := t.TempDir()
	svc, err := NewServiceFromConfig(context.Background(), repos, &config.StorageConfig{Type: "local", BasePath: dir})
	require.NoError(t, err)
	require.True(t, svc.Enabled())

	dsID := model.NewID()
	content := "prompt,completion\nhi,hello\n"
	stored, err := svc.Archive(context.Background(), &ArchiveRequest{
		DataSetID:   dsID,
		FileName:    "Rows.CSV",
		ContentType: "text/csv",
		Size:        int64(len(content)),
		Reader:      strings.NewReader(content),
	})
	require.NoError(t, err)
	assert.Equal(t, "local", stored.StorageType)
	assert.True(t, strings.HasPrefix(stored.FilePath, dsID+"/"))
	assert.True(t, strings.HasSuffix(stored.FilePath, ".csv"))

	_, _, err = svc.Open(context.Background(), model.NewID(), stored.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, rc, err := svc.Open(context.Background(), dsID, stored.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	files, err := svc.List(context.Background(), dsID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, svc.DeleteByDataSetID(context.Background(), dsID))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(stored.FilePath)))
	assert.True(t, os.IsNotExist(err))
	_, _, err = svc.Open(context.Background(), dsID, stored.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestArchive_Disabled(t *testing.T) {
	repos := testutil.NewTestRepositories(t)
	svc, err := NewServiceFromConfig(context.Background(), repos, &config.StorageConfig{Type: "none"})
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	stored, err := svc.Archive(context.Background(), &ArchiveRequest{DataSetID: "x", Reader: strings.NewReader("")})
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestNewServiceFromConfig_Errors(t *testing.T) {
	repos := testutil.NewTestRepositories(t)

	_, err := NewServiceFromConfig(context.Background(), repos, &config.StorageConfig{Type: "minio"})
	assert.ErrorContains(t, err, "MinIO")

	_, err = NewServiceFromConfig(context.Background(), repos, &config.StorageConfig{Type: "cos"})
	assert.ErrorContains(t, err, "unsupported")
}

func TestExtensionByContentType(t *testing.T) {
	assert.Equal(t, ".csv", extensionByContentType("text/csv; charset=utf-8"))
	assert.Equal(t, ".jsonl", extensionByContentType("application/x-ndjson"))
	assert.Equal(t, ".bin", extensionByContentType(""))
	assert.Equal(t, "ds/f.jsonl", objectName("f", &SaveRequest{DataSetID: "ds", FileName: "noext", ContentType: "application/json"}))
}
