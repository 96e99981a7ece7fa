package file

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Storage 文件存储接口
type Storage interface {
	// Save 保存文件，返回存储路径
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// Get 获取文件内容
	Get(ctx context.Context, filePath string) (io.ReadCloser, error)
	// Delete 删除文件，文件不存在不视为错误
	Delete(ctx context.Context, filePath string) error
}

// SaveRequest 保存文件请求
type SaveRequest struct {
	DataSetID   string
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeNone  StorageType = "none"
	StorageTypeLocal StorageType = "local"
	StorageTypeMinIO StorageType = "minio"
)

// objectName 生成存储路径: {dataSetID}/{fileID}{ext}
func objectName(fileID string, req *SaveRequest) string {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if ext == "" {
		ext = extensionByContentType(req.ContentType)
	}
	return fmt.Sprintf("%s/%s%s", req.DataSetID, fileID, ext)
}

// extensionByContentType 根据内容类型返回扩展名
func extensionByContentType(contentType string) string {
	// 去掉 "; charset=utf-8" 之类的参数
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.TrimSpace(contentType) {
	case "text/csv", "application/vnd.ms-excel":
		return ".csv"
	case "application/x-ndjson", "application/jsonl", "application/json":
		return ".jsonl"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
