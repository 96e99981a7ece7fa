// Package ingest 把上传文件中的记录批量写入数据集
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/service/tokenizer"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// DefaultConcurrency 同时在途的写入数
const DefaultConcurrency = 4

// DataSetGetter 读取数据集
type DataSetGetter interface {
	GetByID(ctx context.Context, id string) (*model.DataSet, error)
}

// RowCreator 写入单个数据行
type RowCreator interface {
	Create(ctx context.Context, row *model.Row) error
}

// Error 导入在第 Index 条记录处失败（从 0 开始）
// 之前已确认写入的记录保留在数据集中
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result 导入结果
type Result struct {
	DataSetID string `json:"data_set_id"`
	Rows      int64  `json:"rows"`
}

// Pipeline 批量导入流水线
// 记录按到达顺序分配 id，token 计数并发进行（受 concurrency 限制），
// 写入按到达顺序逐条确认：第 i 条失败时只有 0..i-1 已提交，之后的记录不会写入
type Pipeline struct {
	dataSets    DataSetGetter
	rows        RowCreator
	counter     tokenizer.Counter
	concurrency int
}

// NewPipeline 创建导入流水线
func NewPipeline(dataSets DataSetGetter, rows RowCreator, counter tokenizer.Counter, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{dataSets: dataSets, rows: rows, counter: counter, concurrency: concurrency}
}

// failure 记录最小的失败下标
type failure struct {
	mu  sync.Mutex
	err *Error
}

func (f *failure) set(index int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil || index < f.err.Index {
		f.err = &Error{Index: index, Err: err}
	}
}

func (f *failure) get() *Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// pending 已读取、等待写入的记录
type pending struct {
	index int
	row   *model.Row
	ready chan struct{}
}

// Run 从 src 读取全部记录写入数据集
func (p *Pipeline) Run(ctx context.Context, dataSetID string, src Source) (*Result, error) {
	if dataSetID == "" {
		return nil, types.Validationf("data_set_id is required")
	}
	if _, err := p.dataSets.GetByID(ctx, dataSetID); err != nil {
		return nil, types.StoreError(err, "data set "+dataSetID)
	}

	var (
		acked  atomic.Int64
		failed failure
	)
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *pending, p.concurrency)

	// 写入端：按下标顺序等待计数完成后逐条写入，遇到第一个失败即停止
	g.Go(func() error {
		for item := range queue {
			select {
			case <-item.ready:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.rows.Create(ctx, item.row); err != nil {
				err = types.StoreError(err, "create row")
				failed.set(item.index, err)
				return err
			}
			acked.Add(1)
		}
		return nil
	})

	var counters errgroup.Group
	counters.SetLimit(p.concurrency)

read:
	for index := 0; ; index++ {
		// 已有写入失败或调用方取消时不再读取
		if gctx.Err() != nil {
			break
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failed.set(index, types.Validationf("%v", err))
			break
		}

		item := &pending{
			index: index,
			row: &model.Row{
				ID:         model.NewID(),
				DataSetID:  dataSetID,
				Prompt:     rec.Prompt,
				Completion: rec.Completion,
			},
			ready: make(chan struct{}),
		}
		counters.Go(func() error {
			defer close(item.ready)
			item.row.PromptTokenCount = p.counter.Count(item.row.Prompt)
			item.row.CompletionTokenCount = p.counter.Count(item.row.Completion)
			return nil
		})
		// 队列满时阻塞，读取速度由写入端决定
		select {
		case queue <- item:
		case <-gctx.Done():
			break read
		}
	}
	close(queue)
	_ = counters.Wait()
	_ = g.Wait()

	res := &Result{DataSetID: dataSetID, Rows: acked.Load()}
	if ferr := failed.get(); ferr != nil {
		log.Printf("ingest into data set %s failed at record %d after %d rows: %v", dataSetID, ferr.Index, res.Rows, ferr.Err)
		return res, ferr
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log.Printf("ingested %d rows into data set %s", res.Rows, dataSetID)
	return res, nil
}
