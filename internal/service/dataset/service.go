package dataset

import (
	"context"
	"strings"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/service/template"
	"github.com/ashwinyue/finetune-admin/internal/service/tokenizer"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

const (
	// DefaultPromptTemplate 未指定模板时原样输出 prompt
	DefaultPromptTemplate = "{{prompt}}"
	// DefaultCompletionTemplate 未指定模板时原样输出 completion
	DefaultCompletionTemplate = "{{completion}}"

	defaultTake = 10
	maxTake     = 1000
)

// Service 数据集服务
type Service struct {
	repo    *repository.Repositories
	counter tokenizer.Counter
}

// NewService 创建数据集服务
func NewService(repo *repository.Repositories, counter tokenizer.Counter) *Service {
	return &Service{repo: repo, counter: counter}
}

// CreateDataSetRequest 创建数据集请求
type CreateDataSetRequest struct {
	Title              string  `json:"title"`
	PromptTemplate     *string `json:"prompt_template"`
	CompletionTemplate *string `json:"completion_template"`
}

// UpdateDataSetRequest 更新数据集请求，nil 字段保持不变
type UpdateDataSetRequest struct {
	Title              *string `json:"title"`
	PromptTemplate     *string `json:"prompt_template"`
	CompletionTemplate *string `json:"completion_template"`
}

// CreateDataSet 创建数据集
func (s *Service) CreateDataSet(ctx context.Context, req *CreateDataSetRequest) (*model.DataSet, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, types.Validationf("title is required")
	}

	ds := &model.DataSet{
		ID:                 model.NewID(),
		Title:              title,
		PromptTemplate:     DefaultPromptTemplate,
		CompletionTemplate: DefaultCompletionTemplate,
	}
	if req.PromptTemplate != nil {
		ds.PromptTemplate = *req.PromptTemplate
	}
	if req.CompletionTemplate != nil {
		ds.CompletionTemplate = *req.CompletionTemplate
	}
	ds.PromptTemplateTokenCount = template.StaticTokenCount(ds.PromptTemplate, s.counter)
	ds.CompletionTemplateTokenCount = template.StaticTokenCount(ds.CompletionTemplate, s.counter)

	if err := s.repo.DataSet.Create(ctx, ds); err != nil {
		return nil, types.StoreError(err, "create data set")
	}
	return ds, nil
}

// GetDataSet 获取数据集
func (s *Service) GetDataSet(ctx context.Context, id string) (*model.DataSet, error) {
	if id == "" {
		return nil, types.Validationf("id is required")
	}
	ds, err := s.repo.DataSet.GetByID(ctx, id)
	if err != nil {
		return nil, types.StoreError(err, "data set "+id)
	}
	return ds, nil
}

// ListDataSets 列出数据集
func (s *Service) ListDataSets(ctx context.Context, page, size int) ([]*model.DataSet, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	offset := (page - 1) * size

	dataSets, err := s.repo.DataSet.List(ctx, offset, size)
	if err != nil {
		return nil, 0, types.StoreError(err, "list data sets")
	}

	total, err := s.repo.DataSet.Count(ctx)
	if err != nil {
		return nil, 0, types.StoreError(err, "count data sets")
	}

	return dataSets, total, nil
}

// UpdateDataSet 更新数据集
// 模板字段取值变化时重新计算对应的模板 token 数
func (s *Service) UpdateDataSet(ctx context.Context, id string, req *UpdateDataSetRequest) (*model.DataSet, error) {
	ds, err := s.GetDataSet(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, types.Validationf("title must not be empty")
		}
		ds.Title = title
	}
	if req.PromptTemplate != nil && *req.PromptTemplate != ds.PromptTemplate {
		ds.PromptTemplate = *req.PromptTemplate
		ds.PromptTemplateTokenCount = template.StaticTokenCount(ds.PromptTemplate, s.counter)
	}
	if req.CompletionTemplate != nil && *req.CompletionTemplate != ds.CompletionTemplate {
		ds.CompletionTemplate = *req.CompletionTemplate
		ds.CompletionTemplateTokenCount = template.StaticTokenCount(ds.CompletionTemplate, s.counter)
	}

	if err := s.repo.DataSet.Update(ctx, ds); err != nil {
		return nil, types.StoreError(err, "update data set "+id)
	}

	return ds, nil
}

// DeleteDataSet 删除数据集及其全部数据行
func (s *Service) DeleteDataSet(ctx context.Context, id string) error {
	if id == "" {
		return types.Validationf("id is required")
	}
	if err := s.repo.DataSet.Delete(ctx, id); err != nil {
		return types.StoreError(err, "data set "+id)
	}
	return nil
}
