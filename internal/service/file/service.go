// Package file 归档上传的原始数据文件
package file

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/ashwinyue/finetune-admin/internal/config"
	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// Service 文件服务，storage 为 nil 时不归档
type Service struct {
	repo        *repository.Repositories
	storage     Storage
	storageType StorageType
}

// NewService 创建文件服务
func NewService(repo *repository.Repositories, storage Storage, storageType StorageType) *Service {
	return &Service{
		repo:        repo,
		storage:     storage,
		storageType: storageType,
	}
}

// NewServiceFromConfig 从配置创建文件服务
func NewServiceFromConfig(ctx context.Context, repo *repository.Repositories, cfg *config.StorageConfig) (*Service, error) {
	storageType := StorageType(cfg.Type)
	var (
		storage Storage
		err     error
	)

	switch storageType {
	case StorageTypeNone, "":
		return NewService(repo, nil, StorageTypeNone), nil

	case StorageTypeLocal:
		basePath := cfg.BasePath
		if basePath == "" {
			basePath = "./data/uploads"
		}
		storage, err = NewLocalStorage(basePath)

	case StorageTypeMinIO:
		m := cfg.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		storage, err = NewMinIOStorage(ctx, &MinIOConfig{
			Endpoint:   m.Endpoint,
			AccessKey:  m.AccessKey,
			SecretKey:  m.SecretKey,
			BucketName: m.Bucket,
			UseSSL:     m.UseSSL,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return NewService(repo, storage, storageType), nil
}

// Enabled 是否配置了归档存储
func (s *Service) Enabled() bool {
	return s != nil && s.storage != nil
}

// ArchiveRequest 归档请求
type ArchiveRequest struct {
	DataSetID   string
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Archive 保存上传文件并记录，未配置存储时返回 nil
func (s *Service) Archive(ctx context.Context, req *ArchiveRequest) (*model.StoredFile, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if req.DataSetID == "" {
		return nil, types.Validationf("data_set_id is required")
	}

	filePath, err := s.storage.Save(ctx, &SaveRequest{
		DataSetID:   req.DataSetID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Reader:      req.Reader,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	storedFile := &model.StoredFile{
		ID:          model.NewID(),
		DataSetID:   req.DataSetID,
		FileName:    req.FileName,
		FileSize:    req.Size,
		ContentType: req.ContentType,
		StorageType: string(s.storageType),
		FilePath:    filePath,
	}
	if err := s.repo.File.Create(ctx, storedFile); err != nil {
		// 记录写入失败时删除已保存的文件
		_ = s.storage.Delete(ctx, filePath)
		return nil, types.StoreError(err, "create file record")
	}
	return storedFile, nil
}

// Open 打开数据集下的归档文件，调用方负责关闭 reader
func (s *Service) Open(ctx context.Context, dataSetID, id string) (*model.StoredFile, io.ReadCloser, error) {
	storedFile, err := s.repo.File.GetByID(ctx, id)
	if err != nil {
		return nil, nil, types.StoreError(err, "file "+id)
	}
	if storedFile.DataSetID != dataSetID {
		return nil, nil, types.NotFoundf("file %s in data set %s", id, dataSetID)
	}
	if !s.Enabled() {
		return nil, nil, types.NotFoundf("file storage is disabled")
	}
	reader, err := s.storage.Get(ctx, storedFile.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	return storedFile, reader, nil
}

// List 列出数据集的归档文件
func (s *Service) List(ctx context.Context, dataSetID string) ([]*model.StoredFile, error) {
	files, err := s.repo.File.ListByDataSetID(ctx, dataSetID)
	if err != nil {
		return nil, types.StoreError(err, "list files")
	}
	return files, nil
}

// DeleteByDataSetID 删除数据集的所有归档文件
// 存储中的文件删除失败只记录日志，记录总会被删除
func (s *Service) DeleteByDataSetID(ctx context.Context, dataSetID string) error {
	files, err := s.repo.File.ListByDataSetID(ctx, dataSetID)
	if err != nil {
		return types.StoreError(err, "list files")
	}
	if s.Enabled() {
		for _, f := range files {
			if err := s.storage.Delete(ctx, f.FilePath); err != nil {
				log.Printf("Warning: delete archived file %s: %v", f.FilePath, err)
			}
		}
	}
	if err := s.repo.File.DeleteByDataSetID(ctx, dataSetID); err != nil {
		return types.StoreError(err, "delete file records")
	}
	return nil
}
