// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/finetune-admin/internal/database"
	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
)

// NewTestDB 创建内存 sqlite 数据库并完成迁移
// 内存库每个连接独立，因此连接池限制为 1
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// NewTestRepositories 基于内存库创建仓库集合
func NewTestRepositories(t *testing.T) *repository.Repositories {
	t.Helper()
	return repository.NewRepositories(NewTestDB(t))
}

// SeedDataSet 直接写入一个数据集，不经过 service 层的 token 计算
func SeedDataSet(t *testing.T, repos *repository.Repositories, ds *model.DataSet) *model.DataSet {
	t.Helper()
	if ds.ID == "" {
		ds.ID = model.NewID()
	}
	if err := repos.DataSet.Create(context.Background(), ds); err != nil {
		t.Fatalf("seed data set: %v", err)
	}
	return ds
}

// SeedRow 直接写入一行数据，token 数由调用方给定
func SeedRow(t *testing.T, repos *repository.Repositories, dataSetID, prompt, completion string, promptTokens, completionTokens int) *model.Row {
	t.Helper()
	row := &model.Row{
		ID:                   model.NewID(),
		DataSetID:            dataSetID,
		Prompt:               prompt,
		Completion:           completion,
		PromptTokenCount:     promptTokens,
		CompletionTokenCount: completionTokens,
	}
	if err := repos.Row.Create(context.Background(), row); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	return row
}

// CanceledContext 返回已取消的 context
func CanceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
