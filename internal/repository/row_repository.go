package repository

import (
	"context"
	"iter"
	"time"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"gorm.io/gorm"
)

// RowRepository 微调数据行仓库
type RowRepository struct {
	db *gorm.DB
}

// NewRowRepository 创建数据行仓库
func NewRowRepository(db *gorm.DB) *RowRepository {
	return &RowRepository{db: db}
}

// Create 创建数据行
func (r *RowRepository) Create(ctx context.Context, row *model.Row) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// GetByID 获取单个数据行
func (r *RowRepository) GetByID(ctx context.Context, id string) (*model.Row, error) {
	var row model.Row
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Update 更新数据行的内容与 token 数
// 只更新已存在的行，行或所属数据集已删除时返回 gorm.ErrRecordNotFound
func (r *RowRepository) Update(ctx context.Context, row *model.Row) error {
	row.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&model.Row{}).
		Where("id = ? AND data_set_id = ?", row.ID, row.DataSetID).
		Updates(map[string]any{
			"prompt":                 row.Prompt,
			"completion":             row.Completion,
			"prompt_token_count":     row.PromptTokenCount,
			"completion_token_count": row.CompletionTokenCount,
			"updated_at":             row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 按插入顺序分页查询数据集的数据行
func (r *RowRepository) List(ctx context.Context, dataSetID string, offset, limit int) ([]*model.Row, error) {
	var rows []*model.Row
	err := r.db.WithContext(ctx).
		Where("data_set_id = ?", dataSetID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Count 统计数据集的数据行数量
func (r *RowRepository) Count(ctx context.Context, dataSetID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Row{}).Where("data_set_id = ?", dataSetID).Count(&total).Error
	return total, err
}

// After 读取 id 大于 afterID 的下一批数据行，按 id 升序
func (r *RowRepository) After(ctx context.Context, dataSetID, afterID string, limit int) ([]*model.Row, error) {
	var rows []*model.Row
	err := r.after(ctx, dataSetID, afterID, limit).Find(&rows).Error
	return rows, err
}

// TokenCountsAfter 同 After，只读取 id 与 token 数
func (r *RowRepository) TokenCountsAfter(ctx context.Context, dataSetID, afterID string, limit int) ([]model.RowTokenCount, error) {
	var counts []model.RowTokenCount
	err := r.after(ctx, dataSetID, afterID, limit).
		Select("id", "prompt_token_count", "completion_token_count").
		Find(&counts).Error
	return counts, err
}

func (r *RowRepository) after(ctx context.Context, dataSetID, afterID string, limit int) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Row{}).Where("data_set_id = ?", dataSetID)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	return query.Order("id ASC").Limit(limit)
}

// Scan 逐批扫描数据集的全部数据行
func (r *RowRepository) Scan(ctx context.Context, dataSetID string, batchSize int) iter.Seq2[[]*model.Row, error] {
	fetch := func(ctx context.Context, afterID string, limit int) ([]*model.Row, error) {
		return r.After(ctx, dataSetID, afterID, limit)
	}
	return Batches(ctx, batchSize, fetch, func(row *model.Row) string { return row.ID })
}

// ScanTokenCounts 逐批扫描数据集的 token 数
func (r *RowRepository) ScanTokenCounts(ctx context.Context, dataSetID string, batchSize int) iter.Seq2[[]model.RowTokenCount, error] {
	fetch := func(ctx context.Context, afterID string, limit int) ([]model.RowTokenCount, error) {
		return r.TokenCountsAfter(ctx, dataSetID, afterID, limit)
	}
	return Batches(ctx, batchSize, fetch, func(c model.RowTokenCount) string { return c.ID })
}
