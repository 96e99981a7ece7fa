package service

import (
	"context"
	"fmt"
	"io"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/service/file"
	"github.com/ashwinyue/finetune-admin/internal/service/ingest"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// UploadRequest 上传文件导入请求
// Open 每次调用都返回从头开始的新 reader，归档和导入各读一遍
type UploadRequest struct {
	DataSetID   string
	FileName    string
	ContentType string
	Size        int64
	Format      ingest.Format
	Columns     ingest.Columns
	Open        func() (io.ReadCloser, error)
}

// UploadResult 上传结果
type UploadResult struct {
	*ingest.Result
	File *model.StoredFile `json:"file,omitempty"`
}

// Upload 归档上传文件并导入其中的记录
func (s *Services) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req.DataSetID == "" {
		return nil, types.Validationf("data_set_id is required")
	}
	if _, err := s.DataSet.GetDataSet(ctx, req.DataSetID); err != nil {
		return nil, err
	}

	format := req.Format
	if format == "" {
		format = ingest.DetectFormat(req.FileName)
	}

	result := &UploadResult{}
	if s.Files.Enabled() {
		stored, err := s.archive(ctx, req)
		if err != nil {
			return nil, err
		}
		result.File = stored
	}

	rc, err := req.Open()
	if err != nil {
		return nil, types.Validationf("open upload: %v", err)
	}
	defer rc.Close()

	src, err := ingest.NewSource(format, rc, req.Columns)
	if err != nil {
		return nil, types.Validationf("%v", err)
	}
	res, err := s.Ingest.Run(ctx, req.DataSetID, src)
	result.Result = res
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *Services) archive(ctx context.Context, req *UploadRequest) (*model.StoredFile, error) {
	rc, err := req.Open()
	if err != nil {
		return nil, types.Validationf("open upload: %v", err)
	}
	defer rc.Close()

	stored, err := s.Files.Archive(ctx, &file.ArchiveRequest{
		DataSetID:   req.DataSetID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Reader:      rc,
	})
	if err != nil {
		return nil, fmt.Errorf("archive upload: %w", err)
	}
	return stored, nil
}
