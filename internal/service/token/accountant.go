// Package token 统计数据集导出后的总 token 数
package token

import (
	"context"
	"iter"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// DataSetGetter 读取数据集
type DataSetGetter interface {
	GetByID(ctx context.Context, id string) (*model.DataSet, error)
}

// TokenCountScanner 按游标逐批读取数据行的 token 数
type TokenCountScanner interface {
	ScanTokenCounts(ctx context.Context, dataSetID string, batchSize int) iter.Seq2[[]model.RowTokenCount, error]
}

// Summary 一次统计的结果
type Summary struct {
	DataSetID      string `json:"data_set_id"`
	RowCount       int64  `json:"row_count"`
	RowTokens      int64  `json:"row_tokens"`
	TemplateTokens int64  `json:"template_tokens"`
	Total          int64  `json:"total"`
}

// Accountant token 统计器
// 总数不落库，每次调用都完整扫描一遍，结果只依赖行与模板上缓存的计数
type Accountant struct {
	dataSets  DataSetGetter
	rows      TokenCountScanner
	batchSize int
}

// NewAccountant 创建统计器，batchSize<=0 时使用默认批大小
func NewAccountant(dataSets DataSetGetter, rows TokenCountScanner, batchSize int) *Accountant {
	if batchSize <= 0 {
		batchSize = repository.DefaultBatchSize
	}
	return &Accountant{dataSets: dataSets, rows: rows, batchSize: batchSize}
}

// Summarize 扫描数据集，内存中只保留累计值与游标
func (a *Accountant) Summarize(ctx context.Context, dataSetID string) (*Summary, error) {
	if dataSetID == "" {
		return nil, types.Validationf("data_set_id is required")
	}
	ds, err := a.dataSets.GetByID(ctx, dataSetID)
	if err != nil {
		return nil, types.StoreError(err, "data set "+dataSetID)
	}

	sum := &Summary{DataSetID: dataSetID}
	for batch, err := range a.rows.ScanTokenCounts(ctx, dataSetID, a.batchSize) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, types.StoreError(err, "scan token counts")
		}
		for _, c := range batch {
			sum.RowTokens += int64(c.PromptTokenCount + c.CompletionTokenCount)
		}
		sum.RowCount += int64(len(batch))
	}

	// 每条导出记录都会渲染一次两个模板
	sum.TemplateTokens = sum.RowCount * int64(ds.TemplateTokenCount())
	sum.Total = sum.RowTokens + sum.TemplateTokens
	return sum, nil
}

// TotalForDataSet 返回数据集导出后的总 token 数
func (a *Accountant) TotalForDataSet(ctx context.Context, dataSetID string) (int64, error) {
	sum, err := a.Summarize(ctx, dataSetID)
	if err != nil {
		return 0, err
	}
	return sum.Total, nil
}
