package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
)

// ErrNoDate 页面中找不到可解析的发布日期
var ErrNoDate = errors.New("no publication date found")

// maxBody 抓取正文的上限，日期元素几乎总在 head 或文首
const maxBody = 2 << 20

// 按优先级排列的日期元素选择器与取值属性
var dateSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[property="og:published_time"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publishdate"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[name="dc.date"]`, "content"},
	{`meta[name="DC.date.issued"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`[itemprop="datePublished"]`, "datetime"},
	{`time[datetime]`, "datetime"},
}

// Client 页面抓取客户端，仅用于补全发布日期
type Client struct {
	client    *http.Client
	userAgent string
}

// NewClient 创建抓取客户端
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		client:    &http.Client{Timeout: timeout},
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// PublishedDate 抓取页面并尝试提取发布日期
func (c *Client) PublishedDate(ctx context.Context, rawURL string) (time.Time, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Scheme == "" {
		return time.Time{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("fetch %s: status %d", rawURL, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return ExtractDate(body, pageURL)
}

// ExtractDate 先查结构化日期元素，再退回 readability 的元数据解析
func ExtractDate(html []byte, pageURL *url.URL) (time.Time, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err == nil {
		if t, ok := fromElements(doc); ok {
			return t, nil
		}
	}

	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err == nil && article.PublishedTime != nil && !article.PublishedTime.IsZero() {
		return article.PublishedTime.UTC(), nil
	}
	return time.Time{}, ErrNoDate
}

func fromElements(doc *goquery.Document) (time.Time, bool) {
	for _, ds := range dateSelectors {
		var found time.Time
		doc.Find(ds.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, ok := s.Attr(ds.attr)
			if !ok {
				return true
			}
			if t, ok := ParseDate(v); ok {
				found = t
				return false
			}
			return true
		})
		if !found.IsZero() {
			return found, true
		}
	}
	return time.Time{}, false
}

// ParseDate 解析任意常见格式的日期，统一转为 UTC
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}
