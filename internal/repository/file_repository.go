package repository

import (
	"context"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"gorm.io/gorm"
)

// FileRepository 文件仓库
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建文件仓库
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create 创建文件记录
func (r *FileRepository) Create(ctx context.Context, file *model.StoredFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID 根据ID获取文件
func (r *FileRepository) GetByID(ctx context.Context, id string) (*model.StoredFile, error) {
	var file model.StoredFile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListByDataSetID 列出数据集的所有归档文件
func (r *FileRepository) ListByDataSetID(ctx context.Context, dataSetID string) ([]*model.StoredFile, error) {
	var files []*model.StoredFile
	err := r.db.WithContext(ctx).Where("data_set_id = ?", dataSetID).Order("created_at ASC").Find(&files).Error
	return files, err
}

// DeleteByDataSetID 删除数据集的所有文件记录
func (r *FileRepository) DeleteByDataSetID(ctx context.Context, dataSetID string) error {
	return r.db.WithContext(ctx).Delete(&model.StoredFile{}, "data_set_id = ?", dataSetID).Error
}
