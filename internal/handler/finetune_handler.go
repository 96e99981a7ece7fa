package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/finetune-admin/internal/service"
)

// FinetuneHandler 微调任务处理器
type FinetuneHandler struct {
	svc *service.Services
}

// NewFinetuneHandler 创建微调任务处理器
func NewFinetuneHandler(svc *service.Services) *FinetuneHandler {
	return &FinetuneHandler{svc: svc}
}

// Submit 导出数据集并提交微调任务
func (h *FinetuneHandler) Submit(c *gin.Context) {
	sub, err := h.svc.Finetune.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, sub)
}

// ListJobs 列出微调任务
func (h *FinetuneHandler) ListJobs(c *gin.Context) {
	jobs, err := h.svc.Finetune.ListJobs(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, jobs)
}

// ListModels 列出可用模型
func (h *FinetuneHandler) ListModels(c *gin.Context) {
	models, err := h.svc.Finetune.ListModels(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, models)
}
