// Package tokenizer 提供与目标模型一致的 token 计数
// 默认使用 r50k_base（GPT-3 编码），入库计数与统计计数必须共用同一个 Counter
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter token 计数接口
type Counter interface {
	Count(text string) int
}

// DefaultEncoding 默认编码
const DefaultEncoding = tokenizer.R50kBase

// BPECounter 基于 tiktoken 词表的计数器，codec 只读，可并发使用
type BPECounter struct {
	codec tokenizer.Codec
}

// New 按编码名创建计数器
func New(encoding tokenizer.Encoding) (*BPECounter, error) {
	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return &BPECounter{codec: codec}, nil
}

// Count 返回 text 的 token 数，空串为 0
func (c *BPECounter) Count(text string) int {
	if text == "" {
		return 0
	}
	ids, _, _ := c.codec.Encode(text)
	return len(ids)
}

var (
	defaultOnce    sync.Once
	defaultCounter *BPECounter
)

// Default 返回进程内共享的 r50k_base 计数器
// 词表内嵌在二进制中，加载失败属于构建错误
func Default() *BPECounter {
	defaultOnce.Do(func() {
		c, err := New(DefaultEncoding)
		if err != nil {
			panic(err)
		}
		defaultCounter = c
	})
	return defaultCounter
}

// Count 使用默认计数器计数
func Count(text string) int {
	return Default().Count(text)
}

// CounterFunc 将普通函数适配为 Counter，测试中用于固定计数
type CounterFunc func(text string) int

// Count 实现 Counter
func (f CounterFunc) Count(text string) int {
	return f(text)
}
