package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalid 所有校验失败都包装该错误
var ErrInvalid = errors.New("invalid")

// Category 网络安全事件分类（封闭枚举）
type Category string

const (
	CategoryRansomware     Category = "Ransomware"
	CategoryDataBreach     Category = "Data Breach"
	CategoryPhishing       Category = "Phishing"
	CategoryVulnExploit    Category = "Vulnerability Exploit"
	CategoryStateSponsored Category = "State-Sponsored Attack"
	CategorySupplyChain    Category = "Supply Chain Attack"
	CategoryMalware        Category = "Malware"
	CategoryInsiderThreat  Category = "Insider Threat"
	CategoryDoS            Category = "Denial of Service"
	CategoryOther          Category = "Other"
)

// Categories 分类全集，顺序即提示词中的展示顺序
var Categories = []Category{
	CategoryRansomware,
	CategoryDataBreach,
	CategoryPhishing,
	CategoryVulnExploit,
	CategoryStateSponsored,
	CategorySupplyChain,
	CategoryMalware,
	CategoryInsiderThreat,
	CategoryDoS,
	CategoryOther,
}

// 旧数据与模型自由输出里常见的别名
var categoryAliases = map[string]Category{
	"vulnerability":   CategoryVulnExploit,
	"exploit":         CategoryVulnExploit,
	"ddos":            CategoryDoS,
	"dos":             CategoryDoS,
	"state-sponsored": CategoryStateSponsored,
	"state sponsored": CategoryStateSponsored,
	"nation-state":    CategoryStateSponsored,
	"supply chain":    CategorySupplyChain,
	"breach":          CategoryDataBreach,
	"insider":         CategoryInsiderThreat,
}

// ParseCategory 将自由文本映射到封闭分类，未知值返回 (Other, false)
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c, true
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, true
	}
	return CategoryOther, false
}

// UnmarshalJSON 在反序列化边界把任意字符串收敛到封闭分类
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	if s == "" {
		*c = ""
		return nil
	}
	*c, _ = ParseCategory(s)
	return nil
}

// Article 单篇新闻文章
type Article struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"published_date,omitempty"` // ISO-8601
	Source        string   `json:"source"`
	URL           string   `json:"url,omitempty"`
	Category      Category `json:"category,omitempty"`
	IsCyberEvent  *bool    `json:"is_cyber_event,omitempty"`
}

// CategoryOrDefault 未分类时视为 Other
func (a Article) CategoryOrDefault() Category {
	if a.Category == "" {
		return CategoryOther
	}
	return a.Category
}

// CyberEvent 是否为具体网络安全事件，未设置视为 false
func (a Article) CyberEvent() bool {
	return a.IsCyberEvent != nil && *a.IsCyberEvent
}

// MonthlyBucket 按月聚合的文章，缓存与统计的基本单位
type MonthlyBucket struct {
	Month          string           `json:"month"` // YYYY-MM
	Articles       []Article        `json:"articles"`
	Count          int              `json:"count"`
	CategoryCounts map[Category]int `json:"category_counts"`
}

// NewMonthlyBucket 根据文章列表构造月度桶，计数由文章推导
func NewMonthlyBucket(month string, articles []Article) MonthlyBucket {
	counts := make(map[Category]int)
	for _, a := range articles {
		counts[a.CategoryOrDefault()]++
	}
	return MonthlyBucket{
		Month:          month,
		Articles:       articles,
		Count:          len(articles),
		CategoryCounts: counts,
	}
}

// CategoryOrder 分类按在文章中首次出现的顺序排列
func (b MonthlyBucket) CategoryOrder() []Category {
	seen := make(map[Category]bool)
	var order []Category
	for _, a := range b.Articles {
		c := a.CategoryOrDefault()
		if !seen[c] {
			seen[c] = true
			order = append(order, c)
		}
	}
	return order
}

// Validate 校验 count == len(articles) == sum(category counts)
func (b MonthlyBucket) Validate() error {
	if b.Count != len(b.Articles) {
		return fmt.Errorf("%w: bucket %s count %d != %d articles", ErrInvalid, b.Month, b.Count, len(b.Articles))
	}
	sum := 0
	for _, n := range b.CategoryCounts {
		sum += n
	}
	if sum != b.Count {
		return fmt.Errorf("%w: bucket %s category counts sum %d != count %d", ErrInvalid, b.Month, sum, b.Count)
	}
	return nil
}

const (
	MinScore = 1
	MaxScore = 10
)

// EmergingRisk 单条新兴风险
type EmergingRisk struct {
	Title           string `json:"risk_title"`
	Description     string `json:"description"`
	ImpactScore     int    `json:"impact_score"`
	LikelihoodScore int    `json:"likelihood_score"`
}

// NewEmergingRisk 构造并校验风险条目
func NewEmergingRisk(title, description string, impact, likelihood int) (EmergingRisk, error) {
	r := EmergingRisk{Title: title, Description: description, ImpactScore: impact, LikelihoodScore: likelihood}
	if err := r.Validate(); err != nil {
		return EmergingRisk{}, err
	}
	return r, nil
}

// Validate 评分为闭区间 [1,10]，越界即失败，不做截断
func (r EmergingRisk) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: risk title is empty", ErrInvalid)
	}
	if r.ImpactScore < MinScore || r.ImpactScore > MaxScore {
		return fmt.Errorf("%w: impact_score %d out of range [%d,%d]", ErrInvalid, r.ImpactScore, MinScore, MaxScore)
	}
	if r.LikelihoodScore < MinScore || r.LikelihoodScore > MaxScore {
		return fmt.Errorf("%w: likelihood_score %d out of range [%d,%d]", ErrInvalid, r.LikelihoodScore, MinScore, MaxScore)
	}
	return nil
}

const (
	MinRisks = 3
	MaxRisks = 5
)

// CyberRiskAnalysis 风险识别阶段产物
type CyberRiskAnalysis struct {
	EmergingRisks []EmergingRisk `json:"emerging_risks"`
	BoardSummary  string         `json:"board_summary"`
}

// Validate 要求 3-5 条合法风险与非空董事会摘要
func (a *CyberRiskAnalysis) Validate() error {
	if n := len(a.EmergingRisks); n < MinRisks || n > MaxRisks {
		return fmt.Errorf("%w: expected %d-%d emerging risks, got %d", ErrInvalid, MinRisks, MaxRisks, n)
	}
	for i, r := range a.EmergingRisks {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("risk %d: %w", i+1, err)
		}
	}
	if strings.TrimSpace(a.BoardSummary) == "" {
		return fmt.Errorf("%w: board summary is empty", ErrInvalid)
	}
	return nil
}

// ActionPoint 董事会行动项，priority 1 为最高
type ActionPoint struct {
	Priority       int    `json:"priority"`
	Description    string `json:"description"`
	SuggestedOwner string `json:"suggested_owner"`
}

// ActionPointCount 行动计划固定产出的条目数
const ActionPointCount = 3

// BoardActionPlan 行动计划阶段产物
type BoardActionPlan struct {
	ActionPoints []ActionPoint `json:"action_points"`
}

// Validate 要求恰好 3 条描述非空的行动项
func (p *BoardActionPlan) Validate() error {
	if len(p.ActionPoints) != ActionPointCount {
		return fmt.Errorf("%w: expected %d action points, got %d", ErrInvalid, ActionPointCount, len(p.ActionPoints))
	}
	for i, ap := range p.ActionPoints {
		if strings.TrimSpace(ap.Description) == "" {
			return fmt.Errorf("%w: action point %d has empty description", ErrInvalid, i+1)
		}
	}
	return nil
}

// Sorted 返回按优先级升序排列的副本；存储中的顺序不作保证
func (p BoardActionPlan) Sorted() []ActionPoint {
	out := make([]ActionPoint, len(p.ActionPoints))
	copy(out, p.ActionPoints)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// ProjectPlan 针对单个行动项的项目计划
type ProjectPlan struct {
	Title          string   `json:"title"`
	Objective      string   `json:"objective"`
	Stakeholders   []string `json:"stakeholders"`
	TimelinePhases []string `json:"timeline_phases"`
	KPIs           []string `json:"kpis"`
	Risks          []string `json:"risks"`
}

// Validate 标题与目标不可为空
func (p *ProjectPlan) Validate() error {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Objective) == "" {
		return fmt.Errorf("%w: project plan requires title and objective", ErrInvalid)
	}
	return nil
}

// 趋势标签
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
	VolatileNone          = "none"
)

// EventCategory 某月某分类的统计
type EventCategory struct {
	Category         Category `json:"category"`
	Count            int      `json:"count"`
	Trend            string   `json:"trend"`
	PercentageChange float64  `json:"percentage_change"`
}

// MonthlyTrend 单月趋势
type MonthlyTrend struct {
	Month       string          `json:"month"`
	TotalEvents int             `json:"total_events"`
	Categories  []EventCategory `json:"categories"`
	TopThreat   string          `json:"top_threat"`
	KeyInsight  string          `json:"key_insight"`
}

// TimeSeriesAnalysis 时间序列分析产物
type TimeSeriesAnalysis struct {
	MonthlyTrends        []MonthlyTrend `json:"monthly_trends"`
	OverallTrend         string         `json:"overall_trend"`
	MostVolatileCategory string         `json:"most_volatile_category"`
	EmergingPatterns     []string       `json:"emerging_patterns"`
	TimeSeriesSummary    string         `json:"time_series_summary"`
}

// CategorySuggestion 对 Other 类文章的新分类建议
type CategorySuggestion struct {
	Name          string   `json:"suggested_category_name"`
	Rationale     string   `json:"rationale"`
	ArticleTitles []string `json:"article_titles"`
}

// CategorySuggestions LLM 返回的建议列表
type CategorySuggestions struct {
	Suggestions []CategorySuggestion `json:"suggestions"`
}

// RunRecord 一次完整运行的归档内容
type RunRecord struct {
	RunID        string
	CreatedAt    time.Time
	ArticleCount int
	EventCount   int
	Analysis     *CyberRiskAnalysis
	Plan         *BoardActionPlan
}
