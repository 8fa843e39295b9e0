package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 凭据与覆盖项的环境变量名
const (
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvOpenAIModel    = "OPENAI_MODEL"
	EnvGoogleAPIKey   = "GOOGLE_CUSTOMSEARCH_API_KEY"
	EnvGoogleCX       = "GOOGLE_CUSTOMSEARCH_CX_KEY"
	EnvTavilyAPIKey   = "TAVILY_API_KEY"
	EnvSearXNGBaseURL = "SEARXNG_BASE_URL"
	EnvDBDSN          = "RISK_RADAR_DB_DSN"
)

// 搜索服务商
const (
	ProviderGoogle  = "google"
	ProviderTavily  = "tavily"
	ProviderSearXNG = "searxng"
)

// Config 项目配置结构体
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Collector CollectorConfig `yaml:"collector"`
	Cache     CacheConfig     `yaml:"cache"`
	Output    OutputConfig    `yaml:"output"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
	RPM        int           `yaml:"rpm"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider         string        `yaml:"provider"`
	Google           GoogleConfig  `yaml:"google"`
	Tavily           TavilyConfig  `yaml:"tavily"`
	SearXNG          SearXNGConfig `yaml:"searxng"`
	Terms            []string      `yaml:"terms"`
	RequestDelay     time.Duration `yaml:"request_delay"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
}

// GoogleConfig Google Custom Search 配置
type GoogleConfig struct {
	APIKey string `yaml:"api_key"`
	CX     string `yaml:"cx"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// CollectorConfig 新闻采集配置
type CollectorConfig struct {
	MonthsBack       int           `yaml:"months_back"`
	ArticlesPerMonth int           `yaml:"articles_per_month"`
	PageSize         int           `yaml:"page_size"`
	MaxPages         int           `yaml:"max_pages"`
	Cutoff           string        `yaml:"cutoff"` // YYYY-MM-DD，为空时取最早月份的第一天
	ScrapeTimeout    time.Duration `yaml:"scrape_timeout"`
}

// CacheConfig 月度缓存配置
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig 产物目录配置
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	NewsDir string `yaml:"news_dir"`
}

// PipelineConfig 分析流水线配置
type PipelineConfig struct {
	MaxArticles int `yaml:"max_articles"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DBConfig 可选的运行归档数据库，DSN 为空时不启用
type DBConfig struct {
	DSN string `yaml:"dsn"`
}

// DefaultSearchTerms 默认搜索词
var DefaultSearchTerms = []string{
	`"cybersecurity risk"`, `"cyber threat"`, `"data breach"`,
	`"ransomware attack"`, `"phishing"`, `"malware"`, `"cyber attack"`,
	`"information security"`, `"cyber insurance"`, `"data protection"`,
	`"privacy regulations"`, `"GDPR compliance"`, `"cyber risk management"`,
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			MaxRetries: 2,
			Timeout:    120 * time.Second,
		},
		Search: SearchConfig{
			Provider:         ProviderGoogle,
			SearXNG:          SearXNGConfig{Timeout: 30},
			Terms:            DefaultSearchTerms,
			RequestDelay:     time.Second,
			RateLimitBackoff: 30 * time.Second,
		},
		Collector: CollectorConfig{
			MonthsBack:       12,
			ArticlesPerMonth: 10,
			PageSize:         10,
			MaxPages:         3,
			ScrapeTimeout:    15 * time.Second,
		},
		Cache:    CacheConfig{Dir: "news_cache"},
		Output:   OutputConfig{Dir: "output", NewsDir: "news"},
		Pipeline: PipelineConfig{MaxArticles: 50},
		Log:      LogConfig{Level: "info"},
	}
}

// LoadConfig 从指定路径加载配置，文件不存在时使用默认值；随后应用 .env 与环境变量覆盖
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	dotenv, err := godotenv.Read()
	if err != nil {
		dotenv = nil
	}
	cfg.applyEnv(newLookup(dotenv))
	cfg.fillDefaults()
	return cfg, nil
}

// lookup 按 .env 优先、进程环境次之的顺序查找变量
type lookup func(name string) string

func newLookup(dotenv map[string]string) lookup {
	return func(name string) string {
		if v := strings.TrimSpace(dotenv[name]); v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(name))
	}
}

func (c *Config) applyEnv(get lookup) {
	set := func(dst *string, name string) {
		if v := get(name); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.APIKey, EnvOpenAIAPIKey)
	set(&c.LLM.BaseURL, EnvOpenAIBaseURL)
	set(&c.LLM.Model, EnvOpenAIModel)
	set(&c.Search.Google.APIKey, EnvGoogleAPIKey)
	set(&c.Search.Google.CX, EnvGoogleCX)
	set(&c.Search.Tavily.APIKey, EnvTavilyAPIKey)
	set(&c.Search.SearXNG.BaseURL, EnvSearXNGBaseURL)
	set(&c.DB.DSN, EnvDBDSN)
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Collector.MonthsBack <= 0 {
		c.Collector.MonthsBack = d.Collector.MonthsBack
	}
	if c.Collector.ArticlesPerMonth <= 0 {
		c.Collector.ArticlesPerMonth = d.Collector.ArticlesPerMonth
	}
	if c.Collector.PageSize <= 0 {
		c.Collector.PageSize = d.Collector.PageSize
	}
	if c.Collector.MaxPages <= 0 {
		c.Collector.MaxPages = d.Collector.MaxPages
	}
	if c.Pipeline.MaxArticles <= 0 {
		c.Pipeline.MaxArticles = d.Pipeline.MaxArticles
	}
	if len(c.Search.Terms) == 0 {
		c.Search.Terms = d.Search.Terms
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = d.Cache.Dir
	}
	if c.Output.Dir == "" {
		c.Output.Dir = d.Output.Dir
	}
	if c.Output.NewsDir == "" {
		c.Output.NewsDir = d.Output.NewsDir
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 0
	}
	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
}

// MissingCredentialsError 一次性列出所有缺失的凭据
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing required credentials: %s (set them in .env or the environment)", strings.Join(e.Names, ", "))
}

// Validate 在任何网络访问之前校验凭据，缺失项全部列出
func (c *Config) Validate() error {
	var missing []string
	google := c.Search.Google
	switch c.Search.Provider {
	case "":
		// 与搜索工厂的回退顺序一致：google 凭据齐全或有 tavily key 即可；都没有时按 google 报缺
		if (google.APIKey == "" || google.CX == "") && c.Search.Tavily.APIKey == "" {
			if google.CX == "" {
				missing = append(missing, EnvGoogleCX)
			}
			if google.APIKey == "" {
				missing = append(missing, EnvGoogleAPIKey)
			}
		}
	case ProviderGoogle:
		if google.CX == "" {
			missing = append(missing, EnvGoogleCX)
		}
		if google.APIKey == "" {
			missing = append(missing, EnvGoogleAPIKey)
		}
	case ProviderTavily:
		if c.Search.Tavily.APIKey == "" {
			missing = append(missing, EnvTavilyAPIKey)
		}
	case ProviderSearXNG:
		if c.Search.SearXNG.BaseURL == "" {
			missing = append(missing, EnvSearXNGBaseURL)
		}
	default:
		return fmt.Errorf("unknown search provider: %s", c.Search.Provider)
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, EnvOpenAIAPIKey)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Names: missing}
	}
	return nil
}

// ValidateLLM 仅校验 LLM 凭据，用于不需要搜索的子命令
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return &MissingCredentialsError{Names: []string{EnvOpenAIAPIKey}}
	}
	return nil
}

// CutoffDate 解析采集截止日期，未配置时返回零值
func (c CollectorConfig) CutoffDate() (time.Time, error) {
	if c.Cutoff == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, c.Cutoff)
}
