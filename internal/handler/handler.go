package handler

import (
	"github.com/ashwinyue/finetune-admin/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	DataSet  *DataSetHandler
	Row      *RowHandler
	Finetune *FinetuneHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		DataSet:  NewDataSetHandler(svc),
		Row:      NewRowHandler(svc),
		Finetune: NewFinetuneHandler(svc),
	}
}
