package service

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/finetune-admin/internal/config"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/service/dataset"
	"github.com/ashwinyue/finetune-admin/internal/service/export"
	"github.com/ashwinyue/finetune-admin/internal/service/file"
	"github.com/ashwinyue/finetune-admin/internal/service/finetune"
	"github.com/ashwinyue/finetune-admin/internal/service/ingest"
	"github.com/ashwinyue/finetune-admin/internal/service/token"
	"github.com/ashwinyue/finetune-admin/internal/service/tokenizer"
)

// Services 服务集合
type Services struct {
	DataSet    *dataset.Service
	Accountant *token.Accountant
	Exporter   *export.Streamer
	Ingest     *ingest.Pipeline
	Finetune   *finetune.Service
	Files      *file.Service
}

// Option 覆盖默认依赖，主要用于测试
type Option func(*options)

type options struct {
	provider finetune.Provider
	files    *file.Service
}

// WithProvider 替换外部微调服务
func WithProvider(p finetune.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithFiles 替换文件服务
func WithFiles(f *file.Service) Option {
	return func(o *options) { o.files = f }
}

// NewServices 创建所有服务，redisClient 可以为 nil
func NewServices(ctx context.Context, repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, opts ...Option) (*Services, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	counter, err := tokenizer.New(tokenizer.DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	files := o.files
	if files == nil {
		files, err = file.NewServiceFromConfig(ctx, repo, &cfg.Storage)
		if err != nil {
			return nil, err
		}
	}
	if !files.Enabled() {
		log.Printf("Upload archive disabled")
	}

	provider := o.provider
	if provider == nil {
		provider = finetune.NewClient(&cfg.Provider)
	}
	var cache *finetune.Cache
	if redisClient != nil {
		cache = finetune.NewCache(redisClient, cfg.Provider.GetCacheTTL())
	}

	exporter := export.NewStreamer(repo.DataSet, repo.Row, cfg.Export.BatchSize)

	return &Services{
		DataSet:    dataset.NewService(repo, counter),
		Accountant: token.NewAccountant(repo.DataSet, repo.Row, cfg.Export.BatchSize),
		Exporter:   exporter,
		Ingest:     ingest.NewPipeline(repo.DataSet, repo.Row, counter, cfg.Ingest.Concurrency),
		Finetune:   finetune.NewService(provider, cache, exporter),
		Files:      files,
	}, nil
}

// DeleteDataSet 删除数据集及其数据行，再清理归档文件
// 数据集删除成功后，归档清理失败只记录日志
func (s *Services) DeleteDataSet(ctx context.Context, id string) error {
	if err := s.DataSet.DeleteDataSet(ctx, id); err != nil {
		return err
	}
	if err := s.Files.DeleteByDataSetID(ctx, id); err != nil {
		log.Printf("Warning: cleanup archived files of data set %s: %v", id, err)
	}
	return nil
}
