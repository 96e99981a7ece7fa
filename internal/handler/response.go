package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/finetune-admin/internal/service/ingest"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
// Index 仅在批量导入失败时给出失败记录的下标
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Index   *int   `json:"index,omitempty"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: msg})
}

// StatusFor 错误分类对应的 HTTP 状态码
func StatusFor(err error) int {
	switch types.Classify(err) {
	case types.ErrValidation:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrUpload, types.ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error 根据错误类型返回相应的错误响应，完整错误只写日志
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status := StatusFor(err)
	log.Printf("[%s] %s | Status: %d | Error: %v", c.Request.Method, c.Request.URL.Path, status, err)

	resp := ErrorResponse{Code: status, Message: err.Error()}
	if status == http.StatusInternalServerError && types.Classify(err) == nil {
		// 未分类的错误可能带有内部细节
		resp.Message = "internal server error"
	}
	var ierr *ingest.Error
	if errors.As(err, &ierr) {
		index := ierr.Index
		resp.Index = &index
	}
	c.JSON(status, resp)
}

// PaginationData 分页响应数据结构
type PaginationData struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages,omitempty"`
}

// SuccessWithPagination 分页成功响应
func SuccessWithPagination(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, PaginationData{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// SliceData skip/take 分页响应数据结构
type SliceData struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Skip  int         `json:"skip"`
	Take  int         `json:"take"`
}

// getPagination 读取 page/size，非法值回落到默认值
func getPagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// getSkipTake 读取 skip/take，非法值回落到默认值
func getSkipTake(c *gin.Context) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	take, err := strconv.Atoi(c.DefaultQuery("take", "10"))
	if err != nil || take < 1 {
		take = 10
	}
	if take > 1000 {
		take = 1000
	}
	return skip, take
}
