package repository

import (
	"context"
	"iter"
)

// DefaultBatchSize 游标扫描的默认批大小
const DefaultBatchSize = 10000

// BatchFetcher 读取 id 大于 afterID 的下一批记录，afterID 为空表示从头开始
type BatchFetcher[T any] func(ctx context.Context, afterID string, limit int) ([]T, error)

// Batches 把按 id 升序的游标分页包装为惰性序列
//
// 每一批都是独立查询，批与批之间不持有数据库游标或锁；
// 扫描只在读到空批次时结束，因此扫描期间新插入且 id 更大的行会被包含。
// 上下文取消或调用方提前 break 时不会再发出查询。
func Batches[T any](ctx context.Context, batchSize int, fetch BatchFetcher[T], idOf func(T) string) iter.Seq2[[]T, error] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return func(yield func([]T, error) bool) {
		afterID := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			batch, err := fetch(ctx, afterID, batchSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}
			// 先记下游标，调用方可能复用 batch
			afterID = idOf(batch[len(batch)-1])
			if !yield(batch, nil) {
				return
			}
		}
	}
}
