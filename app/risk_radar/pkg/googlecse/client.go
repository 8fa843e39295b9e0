package googlecse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

const (
	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"
	// maxNum 单次请求允许的最大结果数
	maxNum = 10
	// maxStart 接口只允许翻到第 100 条结果
	maxStart = 91
)

// Client Google Custom Search JSON API 客户端
type Client struct {
	apiKey  string
	cx      string
	baseURL string
	client  *http.Client
}

// NewClient 创建一个新的 Google CSE 客户端
func NewClient(apiKey, cx string) *Client {
	return &Client{
		apiKey:  apiKey,
		cx:      cx,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL 替换接口地址
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// SearchResponse CSE 响应中用到的部分
type SearchResponse struct {
	Items   []Item `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

// Item 单条结果
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
	Pagemap     struct {
		Metatags []map[string]string `json:"metatags"`
	} `json:"pagemap"`
}

// Search 执行一次分页查询，日期区间通过 sort=date:r:YYYYMMDD:YYYYMMDD 限定
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	num := req.MaxResults
	if num <= 0 || num > maxNum {
		num = maxNum
	}
	start := req.Start
	if start < 1 {
		start = 1
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.cx)
	q.Set("q", req.Query)
	q.Set("num", strconv.Itoa(num))
	q.Set("start", strconv.Itoa(start))
	q.Set("lr", "lang_en")
	q.Set("filter", "1")
	if r := dateRestrict(req.StartDate, req.EndDate); r != "" {
		q.Set("sort", r)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, search.StatusError("google cse", res.StatusCode, body)
	}

	var sr SearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}

	results := make([]search.Result, 0, len(sr.Items))
	for _, it := range sr.Items {
		var tags map[string]string
		if len(it.Pagemap.Metatags) > 0 {
			tags = it.Pagemap.Metatags[0]
		}
		results = append(results, search.Result{
			Title:    it.Title,
			URL:      it.Link,
			Content:  it.Snippet,
			Source:   strings.TrimPrefix(it.DisplayLink, "www."),
			Metatags: tags,
		})
	}

	resp := &search.Response{Results: results}
	if len(sr.Queries.NextPage) > 0 {
		if next := sr.Queries.NextPage[0].StartIndex; next > start && next <= maxStart {
			resp.NextStart = next
		}
	}
	return resp, nil
}

// dateRestrict 将 YYYY-MM-DD 区间转换为 CSE 的排序限定参数
func dateRestrict(startDate, endDate string) string {
	if startDate == "" || endDate == "" {
		return ""
	}
	return fmt.Sprintf("date:r:%s:%s", strings.ReplaceAll(startDate, "-", ""), strings.ReplaceAll(endDate, "-", ""))
}
