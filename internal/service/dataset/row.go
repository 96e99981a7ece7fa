package dataset

import (
	"context"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// ========== 数据行操作 ==========

// CreateRowRequest 创建数据行请求
type CreateRowRequest struct {
	DataSetID  string `json:"data_set_id"`
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// UpdateRowRequest 更新数据行请求，nil 字段保持不变
type UpdateRowRequest struct {
	ID         string  `json:"id"`
	DataSetID  string  `json:"data_set_id"`
	Prompt     *string `json:"prompt"`
	Completion *string `json:"completion"`
}

// NewRow 构造数据行并计算 token 数
func (s *Service) NewRow(dataSetID, prompt, completion string) *model.Row {
	return &model.Row{
		ID:                   model.NewID(),
		DataSetID:            dataSetID,
		Prompt:               prompt,
		Completion:           completion,
		PromptTokenCount:     s.counter.Count(prompt),
		CompletionTokenCount: s.counter.Count(completion),
	}
}

// CreateRow 创建数据行
func (s *Service) CreateRow(ctx context.Context, req *CreateRowRequest) (*model.Row, error) {
	if req.DataSetID == "" {
		return nil, types.Validationf("data_set_id is required")
	}
	// 验证数据集是否存在
	if _, err := s.GetDataSet(ctx, req.DataSetID); err != nil {
		return nil, err
	}

	row := s.NewRow(req.DataSetID, req.Prompt, req.Completion)
	if err := s.repo.Row.Create(ctx, row); err != nil {
		return nil, types.StoreError(err, "create row")
	}
	return row, nil
}

// GetRow 获取数据集中的单个数据行
func (s *Service) GetRow(ctx context.Context, dataSetID, id string) (*model.Row, error) {
	if id == "" || dataSetID == "" {
		return nil, types.Validationf("id and data_set_id are required")
	}
	row, err := s.repo.Row.GetByID(ctx, id)
	if err != nil {
		return nil, types.StoreError(err, "row "+id)
	}
	if row.DataSetID != dataSetID {
		return nil, types.NotFoundf("row %s in data set %s", id, dataSetID)
	}
	return row, nil
}

// UpdateRow 更新数据行，只重新计算请求中出现的字段的 token 数
func (s *Service) UpdateRow(ctx context.Context, req *UpdateRowRequest) (*model.Row, error) {
	row, err := s.GetRow(ctx, req.DataSetID, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Prompt != nil {
		row.Prompt = *req.Prompt
		row.PromptTokenCount = s.counter.Count(row.Prompt)
	}
	if req.Completion != nil {
		row.Completion = *req.Completion
		row.CompletionTokenCount = s.counter.Count(row.Completion)
	}

	if err := s.repo.Row.Update(ctx, row); err != nil {
		return nil, types.StoreError(err, "update row "+req.ID)
	}
	return row, nil
}

// ListRows 分页列出数据行，同时返回总数
func (s *Service) ListRows(ctx context.Context, dataSetID string, skip, take int) ([]*model.Row, int64, error) {
	if _, err := s.GetDataSet(ctx, dataSetID); err != nil {
		return nil, 0, err
	}
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}

	total, err := s.repo.Row.Count(ctx, dataSetID)
	if err != nil {
		return nil, 0, types.StoreError(err, "count rows")
	}
	rows, err := s.repo.Row.List(ctx, dataSetID, skip, take)
	if err != nil {
		return nil, 0, types.StoreError(err, "list rows")
	}
	return rows, total, nil
}
