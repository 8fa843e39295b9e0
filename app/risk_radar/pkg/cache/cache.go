package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const (
	filePrefix = "news_cache_"
	fileSuffix = ".json"

	// CurrentMonthWindow 当月缓存的有效期
	CurrentMonthWindow = 7 * 24 * time.Hour
	// PastMonthWindow 历史月份内容基本不再变化，有效期更长
	PastMonthWindow = 30 * 24 * time.Hour
)

// Entry 缓存文件的磁盘格式
type Entry struct {
	Month     string          `json:"month"`
	CacheDate string          `json:"cache_date"`
	Articles  []model.Article `json:"articles"`
	Count     int             `json:"count"`
}

// Store 按月存放文章的文件缓存。
// 没有任何文件锁，同一目录只应由单个进程写入。
type Store struct {
	dir string
	now func() time.Time
}

// NewStore 创建缓存，目录在首次写入时创建
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// WithClock 替换时钟，测试用
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir 缓存目录
func (s *Store) Dir() string { return s.dir }

// Path 返回某月缓存文件的路径
func (s *Store) Path(month string) string {
	return filepath.Join(s.dir, filePrefix+month+fileSuffix)
}

// FreshnessWindow 当月 7 天，其余月份 30 天；月份按 UTC 判断
func FreshnessWindow(month string, now time.Time) time.Duration {
	if month == now.UTC().Format("2006-01") {
		return CurrentMonthWindow
	}
	return PastMonthWindow
}

// Get 读取某月缓存。文件不存在、损坏或过期都视为未命中，不返回错误
func (s *Store) Get(month string) (model.MonthlyBucket, bool) {
	path := s.Path(month)
	entry, cachedAt, err := readEntry(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warnf("缓存文件损坏，按未命中处理 [%s]: %v", path, err)
		}
		return model.MonthlyBucket{}, false
	}
	if entry.Month != month {
		logger.Log.Warnf("缓存文件月份不匹配 [%s]: %s", path, entry.Month)
		return model.MonthlyBucket{}, false
	}

	now := s.now()
	age := now.Sub(cachedAt)
	if age >= FreshnessWindow(month, now) {
		logger.Log.WithField("age_days", int(age.Hours()/24)).Infof("缓存已过期 [%s]", month)
		return model.MonthlyBucket{}, false
	}

	logger.Log.Infof("命中缓存 [%s]: %d 篇文章", month, entry.Count)
	return model.NewMonthlyBucket(month, entry.Articles), true
}

// Put 写入某月缓存，先写临时文件再重命名
func (s *Store) Put(bucket model.MonthlyBucket) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	articles := bucket.Articles
	if articles == nil {
		articles = []model.Article{}
	}
	entry := Entry{
		Month:     bucket.Month,
		CacheDate: s.now().Format(time.RFC3339),
		Articles:  articles,
		Count:     len(articles),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := writeFileAtomic(s.Path(bucket.Month), data); err != nil {
		return fmt.Errorf("write cache %s: %w", bucket.Month, err)
	}
	logger.Log.Debugf("已写入缓存 [%s]: %d 篇文章", bucket.Month, entry.Count)
	return nil
}

// Clear 删除全部缓存文件，目录为空或不存在时什么也不做
func (s *Store) Clear() (int, error) {
	files, err := s.files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range files {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// FileInfo 单个缓存文件的概况，Err 非空表示无法解析
type FileInfo struct {
	File      string    `json:"file"`
	Month     string    `json:"month,omitempty"`
	CacheDate time.Time `json:"cache_date,omitempty"`
	Articles  int       `json:"article_count"`
	AgeDays   int       `json:"age_days"`
	Err       string    `json:"error,omitempty"`
}

// Report 缓存目录汇总
type Report struct {
	Exists        bool       `json:"exists"`
	Dir           string     `json:"dir"`
	Files         []FileInfo `json:"files"`
	TotalArticles int        `json:"total_articles"`
	Oldest        time.Time  `json:"oldest,omitempty"`
	Newest        time.Time  `json:"newest,omitempty"`
}

// Info 列出每个缓存文件的月份、时间、文章数与天龄
func (s *Store) Info() (*Report, error) {
	report := &Report{Dir: s.dir}
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return report, nil
	} else if err != nil {
		return nil, err
	}
	report.Exists = true

	files, err := s.files()
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, name := range files {
		fi := FileInfo{File: name}
		entry, cachedAt, err := readEntry(filepath.Join(s.dir, name))
		if err != nil {
			fi.Err = err.Error()
			report.Files = append(report.Files, fi)
			continue
		}
		fi.Month = entry.Month
		fi.CacheDate = cachedAt
		fi.Articles = entry.Count
		fi.AgeDays = int(now.Sub(cachedAt).Hours() / 24)
		report.Files = append(report.Files, fi)

		report.TotalArticles += entry.Count
		if report.Oldest.IsZero() || cachedAt.Before(report.Oldest) {
			report.Oldest = cachedAt
		}
		if cachedAt.After(report.Newest) {
			report.Newest = cachedAt
		}
	}
	return report, nil
}

// HealthReport 损坏文件列为问题，偏旧的缓存列为警告
type HealthReport struct {
	Issues   []string
	Warnings []string
}

// Healthy 没有问题也没有警告
func (h HealthReport) Healthy() bool {
	return len(h.Issues) == 0 && len(h.Warnings) == 0
}

// Health 根据 Info 的结果做健康检查
func Health(report *Report) HealthReport {
	var h HealthReport
	for _, f := range report.Files {
		switch {
		case f.Err != "":
			h.Issues = append(h.Issues, fmt.Sprintf("Corrupted cache file: %s", f.File))
		case f.AgeDays > 30:
			h.Warnings = append(h.Warnings, fmt.Sprintf("Old cache for %s: %d days old", f.Month, f.AgeDays))
		case f.AgeDays > 7:
			h.Warnings = append(h.Warnings, fmt.Sprintf("Recent cache for %s: %d days old", f.Month, f.AgeDays))
		}
	}
	return h
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// readEntry 解析缓存文件；计数与文章数不一致同样视为损坏
func readEntry(path string) (*Entry, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, time.Time{}, fmt.Errorf("parse: %w", err)
	}
	cachedAt, err := dateparse.ParseIn(entry.CacheDate, time.Local)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse cache_date %q: %w", entry.CacheDate, err)
	}
	if entry.Count != len(entry.Articles) {
		return nil, time.Time{}, fmt.Errorf("count %d != %d articles", entry.Count, len(entry.Articles))
	}
	return &entry, cachedAt, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
