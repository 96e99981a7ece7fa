package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/finetune-admin/internal/handler"
	"github.com/ashwinyue/finetune-admin/internal/middleware"
)

// maxUploadMemory multipart 表单在内存中保留的上限，超出部分写临时文件
const maxUploadMemory = 32 << 20

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadMemory

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware("/health"))
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// DataSet 数据集
		ds := v1.Group("/data-sets")
		{
			ds.POST("", h.DataSet.CreateDataSet)
			ds.GET("", h.DataSet.ListDataSets)
			ds.GET("/:id", h.DataSet.GetDataSet)
			ds.PUT("/:id", h.DataSet.UpdateDataSet)
			ds.DELETE("/:id", h.DataSet.DeleteDataSet)
			ds.GET("/:id/tokens", h.DataSet.GetTokens)
			ds.GET("/:id/export", h.DataSet.Export)
			ds.POST("/:id/upload", h.DataSet.Upload)
			ds.GET("/:id/files", h.DataSet.ListFiles)
			ds.GET("/:id/files/:file_id", h.DataSet.DownloadFile)
			ds.POST("/:id/finetune", h.Finetune.Submit)

			// Row 数据行
			ds.POST("/:id/rows", h.Row.CreateRow)
			ds.GET("/:id/rows", h.Row.ListRows)
			ds.GET("/:id/rows/:row_id", h.Row.GetRow)
			ds.PUT("/:id/rows/:row_id", h.Row.UpdateRow)
		}

		// Provider 外部微调服务
		v1.GET("/finetune-jobs", h.Finetune.ListJobs)
		v1.GET("/models", h.Finetune.ListModels)
	}

	return r
}
