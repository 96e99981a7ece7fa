package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
)

// Exporter 把数据集导出为一个内存缓冲区
type Exporter interface {
	Collect(ctx context.Context, dataSetID string) (*bytes.Buffer, error)
}

// Submission 一次提交的结果
type Submission struct {
	DataSetID string          `json:"data_set_id"`
	Key       string          `json:"key"`
	Bytes     int             `json:"bytes"`
	Job       json.RawMessage `json:"job"`
}

// Service 微调任务服务
type Service struct {
	provider Provider
	cache    *Cache
	exporter Exporter
}

// NewService 创建微调任务服务，cache 可以为 nil
func NewService(provider Provider, cache *Cache, exporter Exporter) *Service {
	return &Service{provider: provider, cache: cache, exporter: exporter}
}

// Submit 导出数据集、上传训练文件并启动微调任务
// 任一步失败即返回，不自动重试
func (s *Service) Submit(ctx context.Context, dataSetID string) (*Submission, error) {
	buf, err := s.exporter.Collect(ctx, dataSetID)
	if err != nil {
		return nil, err
	}
	size := buf.Len()

	target, err := s.provider.RequestUpload(ctx)
	if err != nil {
		return nil, err
	}
	key, err := s.provider.Upload(ctx, target, dataSetID+".jsonl", buf)
	if err != nil {
		return nil, err
	}
	job, err := s.provider.StartJob(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, jobsCacheKey)

	log.Printf("submitted data set %s as %s (%d bytes)", dataSetID, key, size)
	return &Submission{DataSetID: dataSetID, Key: key, Bytes: size, Job: job}, nil
}

// ListJobs 列出微调任务，优先读缓存
func (s *Service) ListJobs(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, jobsCacheKey, s.provider.ListJobs)
}

// ListModels 列出可用模型，优先读缓存
func (s *Service) ListModels(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, modelsCacheKey, s.provider.ListModels)
}

func (s *Service) cached(ctx context.Context, key string, load func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if data, ok := s.cache.Get(ctx, key); ok {
		return data, nil
	}
	data, err := load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, data)
	return data, nil
}
