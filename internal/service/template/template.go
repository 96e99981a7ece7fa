// Package template 编译只含一个占位符的提示词模板
//
// 模板是一段文本，第一个 "{{" 与其后第一个 "}}" 之间的内容是唯一的替换点，
// 其余文本都是静态部分。没有占位符或占位符未闭合时，整段文本按字面量处理。
package template

import (
	"strings"

	"github.com/ashwinyue/finetune-admin/internal/service/tokenizer"
)

const (
	OpenMarker  = "{{"
	CloseMarker = "}}"
)

// Fields 占位符名到替换值的映射
type Fields map[string]string

// Renderer 编译后的渲染函数，无状态，可并发调用
type Renderer func(fields Fields) string

// placeholder 定位第一个占位符，返回 [start, end) 区间与去空白后的名字
func placeholder(text string) (start, end int, name string, ok bool) {
	start = strings.Index(text, OpenMarker)
	if start < 0 {
		return 0, 0, "", false
	}
	rel := strings.Index(text[start+len(OpenMarker):], CloseMarker)
	if rel < 0 {
		return 0, 0, "", false
	}
	nameStart := start + len(OpenMarker)
	nameEnd := nameStart + rel
	return start, nameEnd + len(CloseMarker), strings.TrimSpace(text[nameStart:nameEnd]), true
}

// Compile 编译模板
// 占位符名不在 fields 中时替换为空串
func Compile(text string) Renderer {
	start, end, name, ok := placeholder(text)
	if !ok {
		return func(Fields) string { return text }
	}
	prefix, suffix := text[:start], text[end:]
	return func(fields Fields) string {
		value := fields[name]
		var b strings.Builder
		b.Grow(len(prefix) + len(value) + len(suffix))
		b.WriteString(prefix)
		b.WriteString(value)
		b.WriteString(suffix)
		return b.String()
	}
}

// Strip 去掉第一个占位符（含两端标记），没有占位符时原样返回
func Strip(text string) string {
	start, end, _, ok := placeholder(text)
	if !ok {
		return text
	}
	return text[:start] + text[end:]
}

// StaticTokenCount 模板静态文本的 token 数，与替换值无关
func StaticTokenCount(text string, counter tokenizer.Counter) int {
	return counter.Count(Strip(text))
}

// Pair 一组编译好的 prompt / completion 模板
type Pair struct {
	Prompt     Renderer
	Completion Renderer
}

// CompilePair 同时编译 prompt 与 completion 模板
func CompilePair(promptTemplate, completionTemplate string) Pair {
	return Pair{
		Prompt:     Compile(promptTemplate),
		Completion: Compile(completionTemplate),
	}
}

// Render 渲染一条记录，prompt 模板以 "prompt" 取值，completion 模板以 "completion" 取值
func (p Pair) Render(prompt, completion string) (string, string) {
	return p.Prompt(Fields{"prompt": prompt}), p.Completion(Fields{"completion": completion})
}
