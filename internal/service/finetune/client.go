// Package finetune 对接外部微调服务：上传训练文件、启动任务、查询任务与模型
package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ashwinyue/finetune-admin/internal/config"
	"github.com/ashwinyue/finetune-admin/internal/service/types"
)

// maxErrorBody 错误响应最多保留的字节数
const maxErrorBody = 512

// UploadTarget 预签名上传描述
type UploadTarget struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// Key 上传后对象的 key，支持 S3 风格的 ${filename} 占位
func (t *UploadTarget) Key(fileName string) string {
	key, ok := t.Fields["key"]
	if !ok || key == "" {
		return fileName
	}
	return strings.ReplaceAll(key, "${filename}", fileName)
}

// Provider 外部微调服务
type Provider interface {
	RequestUpload(ctx context.Context) (*UploadTarget, error)
	Upload(ctx context.Context, target *UploadTarget, fileName string, content io.Reader) (string, error)
	StartJob(ctx context.Context, key string) (json.RawMessage, error)
	ListJobs(ctx context.Context) (json.RawMessage, error)
	ListModels(ctx context.Context) (json.RawMessage, error)
}

// Client 外部微调服务 HTTP 客户端
type Client struct {
	baseURL    string
	token      string
	authScheme string
	httpClient *http.Client
	now        func() time.Time
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock 替换时钟，用于判断 token 是否过期
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient 创建客户端
func NewClient(cfg *config.ProviderConfig, opts ...Option) *Client {
	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = "Bearer"
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		authScheme: scheme,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// checkToken token 是 JWT 且已过期时直接拒绝，避免一次注定失败的请求
// 不是 JWT 的 token 原样使用
func (c *Client) checkToken() error {
	if c.token == "" {
		return fmt.Errorf("%w: provider token is not configured", types.ErrProvider)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !c.now().Before(exp.Time) {
		return fmt.Errorf("%w: provider token expired at %s", types.ErrProvider, exp.Time.Format(time.RFC3339))
	}
	return nil
}

// call 调用服务端 API，非 2xx 响应返回 ErrProvider
func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := c.checkToken(); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", types.ErrProvider, err)
	}
	req.Header.Set("Authorization", c.authScheme+" "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", types.ErrProvider, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned %d: %s", types.ErrProvider, method, path, resp.StatusCode, readSnippet(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", types.ErrProvider, path, err)
	}
	return nil
}

// RequestUpload 申请预签名上传地址
func (c *Client) RequestUpload(ctx context.Context) (*UploadTarget, error) {
	var target UploadTarget
	if err := c.call(ctx, http.MethodGet, "/upload", nil, &target); err != nil {
		return nil, err
	}
	if target.URL == "" {
		return nil, fmt.Errorf("%w: upload descriptor has no url", types.ErrProvider)
	}
	return &target, nil
}

// Upload 以 multipart 表单上传文件，返回对象 key
// 预签名地址自带授权，不附加 Authorization 头
func (c *Client) Upload(ctx context.Context, target *UploadTarget, fileName string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	names := make([]string, 0, len(target.Fields))
	for name := range target.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := mw.WriteField(name, target.Fields[name]); err != nil {
			return "", fmt.Errorf("%w: write field %s: %v", types.ErrUpload, name, err)
		}
	}
	// 存储服务要求文件字段在最后
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrUpload, err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &buf)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", types.ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrUpload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: storage returned %d: %s", types.ErrUpload, resp.StatusCode, readSnippet(resp.Body))
	}
	return target.Key(fileName), nil
}

// StartJob 以上传对象的 key 启动微调任务，返回任务描述
func (c *Client) StartJob(ctx context.Context, key string) (json.RawMessage, error) {
	var job json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/finetune_jobs/start", map[string]string{"key": key}, &job); err != nil {
		return nil, err
	}
	return job, nil
}

// listResponse 列表接口的外层结构
type listResponse struct {
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) list(ctx context.Context, path string) (json.RawMessage, error) {
	var resp listResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return json.RawMessage("[]"), nil
	}
	return resp.Data, nil
}

// ListJobs 列出微调任务
func (c *Client) ListJobs(ctx context.Context) (json.RawMessage, error) {
	return c.list(ctx, "/finetune_jobs/list")
}

// ListModels 列出可用模型
func (c *Client) ListModels(ctx context.Context) (json.RawMessage, error) {
	return c.list(ctx, "/models/list")
}

func readSnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(string(data))
}
