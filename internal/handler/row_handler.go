package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/finetune-admin/internal/service"
	"github.com/ashwinyue/finetune-admin/internal/service/dataset"
)

// RowHandler 数据行处理器
type RowHandler struct {
	svc *service.Services
}

// NewRowHandler 创建数据行处理器
func NewRowHandler(svc *service.Services) *RowHandler {
	return &RowHandler{svc: svc}
}

// rowBody 创建与更新数据行的请求体，nil 字段表示未提供
type rowBody struct {
	Prompt     *string `json:"prompt"`
	Completion *string `json:"completion"`
}

// CreateRow 创建数据行
func (h *RowHandler) CreateRow(c *gin.Context) {
	var body rowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, err.Error())
		return
	}

	req := &dataset.CreateRowRequest{DataSetID: c.Param("id")}
	if body.Prompt != nil {
		req.Prompt = *body.Prompt
	}
	if body.Completion != nil {
		req.Completion = *body.Completion
	}

	row, err := h.svc.DataSet.CreateRow(c.Request.Context(), req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, row)
}

// ListRows 分页列出数据行
func (h *RowHandler) ListRows(c *gin.Context) {
	skip, take := getSkipTake(c)

	rows, total, err := h.svc.DataSet.ListRows(c.Request.Context(), c.Param("id"), skip, take)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, SliceData{Items: rows, Total: total, Skip: skip, Take: take})
}

// GetRow 获取数据行
func (h *RowHandler) GetRow(c *gin.Context) {
	row, err := h.svc.DataSet.GetRow(c.Request.Context(), c.Param("id"), c.Param("row_id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, row)
}

// UpdateRow 更新数据行，只重新计算提供了的字段
func (h *RowHandler) UpdateRow(c *gin.Context) {
	var body rowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, err.Error())
		return
	}

	row, err := h.svc.DataSet.UpdateRow(c.Request.Context(), &dataset.UpdateRowRequest{
		ID:         c.Param("row_id"),
		DataSetID:  c.Param("id"),
		Prompt:     body.Prompt,
		Completion: body.Completion,
	})
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, row)
}
