// Package testutil 提供测试辅助工具
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"
)

// HTTPRoundTripper 重写 HTTP 请求到测试服务器
// 用于将真实 API 请求重定向到 mock 服务器
type HTTPRoundTripper struct {
	base *url.URL          // 测试服务器 URL
	next http.RoundTripper // 下一个 Transport
}

// NewHTTPRoundTripper 创建 HTTP 请求重定向器
func NewHTTPRoundTripper(baseURL string) *HTTPRoundTripper {
	u, _ := url.Parse(baseURL)
	return &HTTPRoundTripper{
		base: u,
		next: http.DefaultTransport,
	}
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *HTTPRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.URL.Scheme = t.base.Scheme
	cloned.URL.Host = t.base.Host
	cloned.Host = t.base.Host
	return t.next.RoundTrip(cloned)
}

// NewTestClient 创建测试用 HTTP 客户端
// 自动将请求重定向到测试服务器，例如预签名上传地址指向的外部存储
func NewTestClient(ts *httptest.Server) *http.Client {
	return &http.Client{
		Timeout:   5 * time.Second,
		Transport: NewHTTPRoundTripper(ts.URL),
	}
}
