package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/cache"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/retry"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/scrape"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/textnorm"
)

// DateScraper 抓取页面补全发布日期
type DateScraper interface {
	PublishedDate(ctx context.Context, url string) (time.Time, error)
}

// Options 采集参数
type Options struct {
	Terms            []string
	MonthsBack       int
	ArticlesPerMonth int
	PageSize         int
	MaxPages         int
	// Cutoff 早于该时间的文章直接丢弃；零值表示最早窗口的起点
	Cutoff           time.Time
	RequestDelay     time.Duration
	RateLimitBackoff time.Duration
	AuditDir         string
}

// Collector 按月采集新闻，优先使用缓存
type Collector struct {
	searcher search.Searcher
	scraper  DateScraper
	cache    *cache.Store
	opts     Options
	limiter  *rate.Limiter
	retrier  *retry.Retrier
	now      func() time.Time
}

// New 创建采集器，scraper 为 nil 时跳过页面抓取
func New(searcher search.Searcher, scraper DateScraper, store *cache.Store, opts Options) *Collector {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	return &Collector{
		searcher: searcher,
		scraper:  scraper,
		cache:    store,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		// 限流时固定退避后只重试一次
		retrier: retry.New(retry.Fixed(2, opts.RateLimitBackoff), search.IsRateLimited),
		now:     time.Now,
	}
}

// WithClock 替换时钟，测试用
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// WithRetrier 替换重试器，测试中用于跳过退避等待
func (c *Collector) WithRetrier(r *retry.Retrier) *Collector {
	c.retrier = r
	return c
}

// Result 一次采集的结果
type Result struct {
	Articles  []model.Article
	Buckets   []model.MonthlyBucket
	AuditPath string
}

// Collect 采集最近 MonthsBack 个自然月的文章，按月份正序合并
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	now := c.now()
	windows := MonthWindows(now, c.opts.MonthsBack)
	if len(windows) == 0 {
		return nil, fmt.Errorf("months back must be positive, got %d", c.opts.MonthsBack)
	}
	cutoff := c.opts.Cutoff
	if cutoff.IsZero() {
		cutoff = windows[0].Start
	}

	res := &Result{Articles: []model.Article{}}
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bucket, ok := c.cache.Get(w.Key)
		if !ok {
			logger.Log.Infof("开始采集 [%s] (%s ~ %s)", w.Key, w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
			articles, err := c.collectMonth(ctx, w, cutoff)
			if err != nil {
				return nil, err
			}
			bucket = model.NewMonthlyBucket(w.Key, articles)
			if err := c.cache.Put(bucket); err != nil {
				logger.Log.Warnf("写入缓存失败 [%s]: %v", w.Key, err)
			}
		}
		logger.Log.Infof("月份 [%s] 共 %d 篇文章", w.Key, bucket.Count)
		res.Buckets = append(res.Buckets, bucket)
		res.Articles = append(res.Articles, bucket.Articles...)
	}

	if c.opts.AuditDir != "" {
		path, err := WriteAudit(c.opts.AuditDir, now, res.Articles)
		if err != nil {
			logger.Log.Warnf("写入审计文件失败: %v", err)
		} else {
			res.AuditPath = path
		}
	}
	logger.Log.Infof("采集完成，共 %d 个月 %d 篇文章", len(res.Buckets), len(res.Articles))
	return res, nil
}

// collectMonth 对每个搜索词分页查询，直到凑满当月配额
func (c *Collector) collectMonth(ctx context.Context, w MonthWindow, cutoff time.Time) ([]model.Article, error) {
	seen := make(map[string]bool)
	articles := []model.Article{}
	quota := c.opts.ArticlesPerMonth

	for _, term := range c.opts.Terms {
		if len(articles) >= quota {
			break
		}
		start := 1
		for page := 0; page < c.opts.MaxPages && start > 0 && len(articles) < quota; page++ {
			req := &search.Request{
				Query:      term,
				MaxResults: c.opts.PageSize,
				StartDate:  w.Start.Format(time.DateOnly),
				EndDate:    w.End.Format(time.DateOnly),
				Start:      start,
			}
			resp, err := c.search(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Log.Warnf("搜索失败，跳过该搜索词剩余分页 [%s] %s: %v", w.Key, term, err)
				break
			}

			for _, r := range resp.Results {
				a, ok := c.toArticle(ctx, r, w, cutoff)
				if !ok || seen[a.Title] {
					continue
				}
				seen[a.Title] = true
				articles = append(articles, a)
				if len(articles) >= quota {
					break
				}
			}
			start = resp.NextStart
		}
	}
	return articles, nil
}

func (c *Collector) search(ctx context.Context, req *search.Request) (*search.Response, error) {
	var resp *search.Response
	err := c.retrier.Do(ctx, "search", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		r, err := c.searcher.Search(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// toArticle 规范化文本并解析发布日期，不在窗口内的结果被丢弃
func (c *Collector) toArticle(ctx context.Context, r search.Result, w MonthWindow, cutoff time.Time) (model.Article, bool) {
	title, description := r.Title, r.Content
	if v := r.Metatags["og:title"]; v != "" {
		title = v
	}
	if v := r.Metatags["og:description"]; v != "" {
		description = v
	}
	a := model.Article{
		Title:       textnorm.Clean(title),
		Description: textnorm.Clean(description),
		Source:      textnorm.Clean(r.Source),
		URL:         r.URL,
	}
	if a.Title == "" {
		return model.Article{}, false
	}
	if a.Source == "" {
		a.Source = "Unknown Source"
	}

	published := c.resolveDate(ctx, r, w)
	if published.Before(cutoff) || !w.Contains(published) {
		logger.Log.Debugf("丢弃窗口外文章 [%s] %s: %s", w.Key, published.Format(time.DateOnly), a.Title)
		return model.Article{}, false
	}
	a.PublishedDate = published.UTC().Format(time.RFC3339)
	return a, true
}

// 结构化元数据中表示发布日期的字段
var metaDateKeys = []string{
	"article:published_time",
	"og:published_time",
	"datepublished",
	"pubdate",
	"publishdate",
	"date",
	"dc.date",
	"dc.date.issued",
}

// resolveDate 依次尝试结果元数据、页面抓取、月份首日
func (c *Collector) resolveDate(ctx context.Context, r search.Result, w MonthWindow) time.Time {
	if t, ok := scrape.ParseDate(r.PublishedDate); ok {
		return t
	}
	for _, key := range metaDateKeys {
		if t, ok := scrape.ParseDate(r.Metatags[key]); ok {
			return t
		}
	}
	if c.scraper != nil && r.URL != "" {
		t, err := c.scraper.PublishedDate(ctx, r.URL)
		if err == nil {
			return t
		}
		if !errors.Is(err, scrape.ErrNoDate) {
			logger.Log.Debugf("抓取发布日期失败 %s: %v", r.URL, err)
		}
	}
	return w.Start
}

// WriteAudit 把本次采集的全部文章写入带时间戳的审计文件
func WriteAudit(dir string, now time.Time, articles []model.Article) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit: %w", err)
	}
	path := filepath.Join(dir, now.Format("2006-01-02-15-04-05")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audit: %w", err)
	}
	return path, nil
}

// LoadAudit 读取审计文件
func LoadAudit(path string) ([]model.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var articles []model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parse audit %s: %w", path, err)
	}
	return articles, nil
}
