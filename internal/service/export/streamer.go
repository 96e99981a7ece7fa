// Package export 把数据集渲染为 JSONL 微调文件
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"

	"github.com/ashwinyue/finetune-admin/internal/model"
	"github.com/ashwinyue/finetune-admin/internal/repository"
	"github.com/ashwinyue/finetune-admin/internal/service/template"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// ContentType 导出文件的 MIME 类型
const ContentType = "application/x-ndjson"

// Record 导出文件中的一行
type Record struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// DataSetGetter 读取数据集
type DataSetGetter interface {
	GetByID(ctx context.Context, id string) (*model.DataSet, error)
}

// RowScanner 按游标逐批读取数据行
type RowScanner interface {
	Scan(ctx context.Context, dataSetID string, batchSize int) iter.Seq2[[]*model.Row, error]
}

// Streamer 导出流
type Streamer struct {
	dataSets  DataSetGetter
	rows      RowScanner
	batchSize int
}

// NewStreamer 创建导出流，batchSize<=0 时使用默认批大小
func NewStreamer(dataSets DataSetGetter, rows RowScanner, batchSize int) *Streamer {
	if batchSize <= 0 {
		batchSize = repository.DefaultBatchSize
	}
	return &Streamer{dataSets: dataSets, rows: rows, batchSize: batchSize}
}

// Records 返回数据集渲染后的记录序列
// 数据集不存在时立即返回错误，不产生任何输出；序列只能消费一次，再次调用会重新扫描
func (s *Streamer) Records(ctx context.Context, dataSetID string) (iter.Seq2[Record, error], error) {
	if dataSetID == "" {
		return nil, types.Validationf("data_set_id is required")
	}
	ds, err := s.dataSets.GetByID(ctx, dataSetID)
	if err != nil {
		return nil, types.StoreError(err, "data set "+dataSetID)
	}
	pair := template.CompilePair(ds.PromptTemplate, ds.CompletionTemplate)

	return func(yield func(Record, error) bool) {
		for batch, err := range s.rows.Scan(ctx, dataSetID, s.batchSize) {
			if err != nil {
				if ctx.Err() == nil {
					err = types.StoreError(err, "scan rows")
				}
				yield(Record{}, err)
				return
			}
			for _, row := range batch {
				prompt, completion := pair.Render(row.Prompt, row.Completion)
				if !yield(Record{Prompt: prompt, Completion: completion}, nil) {
					return
				}
			}
		}
	}, nil
}

// Lines 返回序列化后的行，每行以 '\n' 结尾
func (s *Streamer) Lines(ctx context.Context, dataSetID string) (iter.Seq2[[]byte, error], error) {
	records, err := s.Records(ctx, dataSetID)
	if err != nil {
		return nil, err
	}
	return func(yield func([]byte, error) bool) {
		var buf bytes.Buffer
		enc := newEncoder(&buf)
		for rec, err := range records {
			if err != nil {
				yield(nil, err)
				return
			}
			buf.Reset()
			if err := enc.Encode(rec); err != nil {
				yield(nil, err)
				return
			}
			line := make([]byte, buf.Len())
			copy(line, buf.Bytes())
			if !yield(line, nil) {
				return
			}
		}
	}, nil
}

// WriteTo 把导出内容写入 w，写入失败或 ctx 取消时停止扫描
func (s *Streamer) WriteTo(ctx context.Context, dataSetID string, w io.Writer) (int64, error) {
	records, err := s.Records(ctx, dataSetID)
	if err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	enc := newEncoder(bw)
	for rec, err := range records {
		if err != nil {
			return cw.n, err
		}
		if err := enc.Encode(rec); err != nil {
			return cw.n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Collect 把导出内容收集到一个内存缓冲区，供上传使用
func (s *Streamer) Collect(ctx context.Context, dataSetID string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(ctx, dataSetID, &buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
