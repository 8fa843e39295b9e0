package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrRateLimited 服务商返回限流信号时包装该错误
var ErrRateLimited = errors.New("search provider rate limited")

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query      string
	MaxResults int
	StartDate  string // Format: YYYY-MM-DD
	EndDate    string // Format: YYYY-MM-DD
	Start      int    // 分页游标，从 1 开始
}

// Response 通用搜索响应
type Response struct {
	Results   []Result
	NextStart int // 0 表示没有下一页
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	Source        string // 展示域名
	PublishedDate string
	Metatags      map[string]string
}

// StatusError 将非 200 响应转换为错误，429 视为限流
func StatusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if status == http.StatusTooManyRequests || strings.Contains(msg, "rateLimitExceeded") {
		return fmt.Errorf("%s api error (status %d): %w", provider, status, ErrRateLimited)
	}
	return fmt.Errorf("%s api error (status %d): %s", provider, status, msg)
}

// IsRateLimited 判断错误链中是否包含限流信号
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
