package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ashwinyue/finetune-admin/internal/model"
)

// LocalStorage 本地文件存储
type LocalStorage struct {
	basePath string
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// 确保基础路径存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save 保存文件到本地
func (s *LocalStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	relativePath := objectName(model.NewID(), req)
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relativePath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, req.Reader); err != nil {
		file.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return relativePath, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(ctx context.Context, filePath string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(s.basePath, filepath.FromSlash(filePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, filePath string) error {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(filePath))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
