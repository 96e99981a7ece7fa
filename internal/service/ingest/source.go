package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Record 一条待导入的 prompt / completion
type Record struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// Source 逐条产出记录，读完后返回 io.EOF
type Source interface {
	Next() (Record, error)
}

// Format 上传文件格式
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// Columns 指定 prompt / completion 取自哪一列（CSV 表头或 JSON 键）
type Columns struct {
	Prompt     string
	Completion string
}

// DefaultColumns 默认列名
var DefaultColumns = Columns{Prompt: "prompt", Completion: "completion"}

func (c Columns) withDefaults() Columns {
	if c.Prompt == "" {
		c.Prompt = DefaultColumns.Prompt
	}
	if c.Completion == "" {
		c.Completion = DefaultColumns.Completion
	}
	return c
}

// DetectFormat 根据文件名判断格式，无法识别时按 CSV 处理
func DetectFormat(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL
	default:
		return FormatCSV
	}
}

// NewSource 按格式创建记录源
func NewSource(format Format, r io.Reader, cols Columns) (Source, error) {
	switch format {
	case FormatJSONL:
		return NewJSONLSource(r, cols), nil
	case FormatCSV, "":
		return NewCSVSource(r, cols)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ========== CSV ==========

// CSVSource 带表头的 CSV 记录源
type CSVSource struct {
	r             *csv.Reader
	promptIdx     int
	completionIdx int
}

// NewCSVSource 读取表头并定位 prompt / completion 列
func NewCSVSource(r io.Reader, cols Columns) (*CSVSource, error) {
	cols = cols.withDefaults()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv file is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	s := &CSVSource{r: cr, promptIdx: -1, completionIdx: -1}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case cols.Prompt:
			s.promptIdx = i
		case cols.Completion:
			s.completionIdx = i
		}
	}
	if s.promptIdx < 0 || s.completionIdx < 0 {
		return nil, fmt.Errorf("csv header must contain %q and %q columns", cols.Prompt, cols.Completion)
	}
	return s, nil
}

// Next 读取下一行，缺失的单元格视为空串
func (s *CSVSource) Next() (Record, error) {
	fields, err := s.r.Read()
	if err != nil {
		return Record{}, err
	}
	return Record{Prompt: cell(fields, s.promptIdx), Completion: cell(fields, s.completionIdx)}, nil
}

func cell(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// ========== JSONL ==========

// maxLineSize 单行 JSON 的上限
const maxLineSize = 16 << 20

// JSONLSource 每行一个 JSON 对象的记录源，与导出格式相同
// 无法解析的行先经 jsonrepair 修复再解码，空行跳过
type JSONLSource struct {
	sc   *bufio.Scanner
	cols Columns
}

// NewJSONLSource 创建 JSONL 记录源
func NewJSONLSource(r io.Reader, cols Columns) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONLSource{sc: sc, cols: cols.withDefaults()}
}

// Next 读取下一条记录
func (s *JSONLSource) Next() (Record, error) {
	for s.sc.Scan() {
		line := bytes.TrimSpace(s.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		obj, err := decodeObject(line)
		if err != nil {
			return Record{}, err
		}
		prompt, err := stringField(obj, s.cols.Prompt)
		if err != nil {
			return Record{}, err
		}
		completion, err := stringField(obj, s.cols.Completion)
		if err != nil {
			return Record{}, err
		}
		return Record{Prompt: prompt, Completion: completion}, nil
	}
	if err := s.sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

func decodeObject(line []byte) (map[string]any, error) {
	obj, err := unmarshalObject(line)
	if err == nil {
		return obj, nil
	}
	repaired, err := jsonrepair.JSONRepair(string(line))
	if err != nil {
		return nil, fmt.Errorf("invalid json line: %w", err)
	}
	obj, err = unmarshalObject([]byte(repaired))
	if err != nil {
		return nil, fmt.Errorf("invalid json line: %w", err)
	}
	return obj, nil
}

// unmarshalObject 解码单个对象，数字保留原始字面量
func unmarshalObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return obj, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	switch v := obj[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("field %q must be a string", key)
	}
}

// ========== 内存 ==========

// SliceSource 从切片读取记录，主要用于测试和 API 批量创建
type SliceSource struct {
	records []Record
	next    int
}

// NewSliceSource 创建切片记录源
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next 返回下一条记录
func (s *SliceSource) Next() (Record, error) {
	if s.next >= len(s.records) {
		return Record{}, io.EOF
	}
	rec := s.records[s.next]
	s.next++
	return rec, nil
}
