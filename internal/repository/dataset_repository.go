package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"gorm.io/gorm"
)

// DataSetRepository 数据集仓库
type DataSetRepository struct {
	db *gorm.DB
}

// NewDataSetRepository 创建数据集仓库
func NewDataSetRepository(db *gorm.DB) *DataSetRepository {
	return &DataSetRepository{db: db}
}

// Create 创建数据集
func (r *DataSetRepository) Create(ctx context.Context, ds *model.DataSet) error {
	return r.db.WithContext(ctx).Create(ds).Error
}

// GetByID 根据ID获取数据集
func (r *DataSetRepository) GetByID(ctx context.Context, id string) (*model.DataSet, error) {
	var ds model.DataSet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ds).Error
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// List 列出数据集
func (r *DataSetRepository) List(ctx context.Context, offset, limit int) ([]*model.DataSet, error) {
	var dataSets []*model.DataSet
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&dataSets).Error
	return dataSets, err
}

// Count 统计数据集数量
func (r *DataSetRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.DataSet{}).Count(&total).Error
	return total, err
}

// Update 更新数据集，数据集已删除时返回 gorm.ErrRecordNotFound
func (r *DataSetRepository) Update(ctx context.Context, ds *model.DataSet) error {
	ds.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&model.DataSet{}).
		Where("id = ?", ds.ID).
		Updates(map[string]any{
			"title":                           ds.Title,
			"prompt_template":                 ds.PromptTemplate,
			"completion_template":             ds.CompletionTemplate,
			"prompt_template_token_count":     ds.PromptTemplateTokenCount,
			"completion_template_token_count": ds.CompletionTemplateTokenCount,
			"updated_at":                      ds.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除数据集及其所有数据行，两者在同一事务内完成
func (r *DataSetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 删除关联的数据行
		if err := tx.Delete(&model.Row{}, "data_set_id = ?", id).Error; err != nil {
			return err
		}
		// 删除数据集
		res := tx.Delete(&model.DataSet{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
