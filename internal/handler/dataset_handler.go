package handler

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/finetune-admin/internal/service"
	"github.com/ashwinyue/finetune-admin/internal/service/dataset"
	"github.com/ashwinyue/finetune-admin/internal/service/export"
	"github.com/ashwinyue/finetune-admin/internal/service/ingest"
)

// exportFlushLines 导出时每写多少行刷新一次
const exportFlushLines = 1000

// DataSetHandler 数据集处理器
type DataSetHandler struct {
	svc *service.Services
}

// NewDataSetHandler 创建数据集处理器
func NewDataSetHandler(svc *service.Services) *DataSetHandler {
	return &DataSetHandler{svc: svc}
}

// CreateDataSet 创建数据集
func (h *DataSetHandler) CreateDataSet(c *gin.Context) {
	var req dataset.CreateDataSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ds, err := h.svc.DataSet.CreateDataSet(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, ds)
}

// GetDataSet 获取数据集
func (h *DataSetHandler) GetDataSet(c *gin.Context) {
	ds, err := h.svc.DataSet.GetDataSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, ds)
}

// ListDataSets 列出数据集
func (h *DataSetHandler) ListDataSets(c *gin.Context) {
	page, size := getPagination(c)

	dataSets, total, err := h.svc.DataSet.ListDataSets(c.Request.Context(), page, size)
	if err != nil {
		Error(c, err)
		return
	}

	SuccessWithPagination(c, dataSets, total, page, size)
}

// UpdateDataSet 更新数据集
func (h *DataSetHandler) UpdateDataSet(c *gin.Context) {
	var req dataset.UpdateDataSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ds, err := h.svc.DataSet.UpdateDataSet(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, ds)
}

// DeleteDataSet 删除数据集
func (h *DataSetHandler) DeleteDataSet(c *gin.Context) {
	if err := h.svc.DeleteDataSet(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}

	NoContent(c)
}

// GetTokens 统计数据集导出后的总 token 数
func (h *DataSetHandler) GetTokens(c *gin.Context) {
	sum, err := h.svc.Accountant.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, sum)
}

// Export 以 JSONL 流式下载数据集
func (h *DataSetHandler) Export(c *gin.Context) {
	id := c.Param("id")
	lines, err := h.svc.Exporter.Lines(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.jsonl"`, id))
	c.Status(http.StatusOK)

	n := 0
	for line, err := range lines {
		if err != nil {
			// 响应头已发出，中断连接让客户端看到不完整的传输
			log.Printf("export data set %s aborted after %d lines: %v", id, n, err)
			c.Writer.Flush()
			panic(http.ErrAbortHandler)
		}
		if _, err := c.Writer.Write(line); err != nil {
			log.Printf("export data set %s: client gone after %d lines: %v", id, n, err)
			c.Abort()
			return
		}
		n++
		if n%exportFlushLines == 0 {
			c.Writer.Flush()
		}
	}
	c.Writer.Flush()
}

// Upload 上传 CSV 或 JSONL 文件导入数据行
func (h *DataSetHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	res, err := h.svc.Upload(c.Request.Context(), &service.UploadRequest{
		DataSetID:   c.Param("id"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Format:      ingest.Format(c.Query("format")),
		Columns: ingest.Columns{
			Prompt:     c.Query("prompt_column"),
			Completion: c.Query("completion_column"),
		},
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	})
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, res)
}

// ListFiles 列出数据集的归档上传文件
func (h *DataSetHandler) ListFiles(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.svc.DataSet.GetDataSet(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}

	files, err := h.svc.Files.List(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, files)
}

// DownloadFile 下载数据集的归档上传文件
func (h *DataSetHandler) DownloadFile(c *gin.Context) {
	stored, reader, err := h.svc.Files.Open(c.Request.Context(), c.Param("id"), c.Param("file_id"))
	if err != nil {
		Error(c, err)
		return
	}
	defer reader.Close()

	contentType := stored.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, stored.FileSize, contentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, stored.FileName),
	})
}
