// Package timeseries 把已分类文章按月聚合并计算趋势，全部确定性计算，不调用 LLM。
package timeseries

import (
	"fmt"
	"math"
	"sort"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/scrape"
)

const (
	increaseRatio  = 1.10
	decreaseRatio  = 0.90
	patternRise    = 1.2
	patternFall    = 0.8
	dominanceShare = 0.4
	recentMonths   = 3
)

// Buckets 以 YYYY-MM 为键的月度桶
type Buckets map[string]model.MonthlyBucket

// Months 按时间正序返回月份
func (b Buckets) Months() []string {
	months := make([]string, 0, len(b))
	for m := range b {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// Sorted 按时间正序返回月度桶
func (b Buckets) Sorted() []model.MonthlyBucket {
	out := make([]model.MonthlyBucket, 0, len(b))
	for _, m := range b.Months() {
		out = append(out, b[m])
	}
	return out
}

// Aggregate 按发布月份分桶；日期缺失或无法解析的文章被排除并记录
func Aggregate(articles []model.Article) Buckets {
	grouped := make(map[string][]model.Article)
	skipped := 0
	for _, a := range articles {
		t, ok := scrape.ParseDate(a.PublishedDate)
		if !ok {
			skipped++
			logger.Log.Debugf("日期无法解析，跳过: %q %s", a.PublishedDate, a.Title)
			continue
		}
		month := t.Format("2006-01")
		grouped[month] = append(grouped[month], a)
	}
	if skipped > 0 {
		logger.Log.Warnf("%d 篇文章因发布日期缺失或无法解析被排除在时间序列之外", skipped)
	}

	buckets := make(Buckets, len(grouped))
	for month, list := range grouped {
		buckets[month] = model.NewMonthlyBucket(month, list)
	}
	return buckets
}

// Summarize 根据月度桶计算时间序列分析
func Summarize(buckets Buckets) *model.TimeSeriesAnalysis {
	sorted := buckets.Sorted()
	totals := make([]int, len(sorted))
	for i, b := range sorted {
		totals[i] = b.Count
	}
	order, sums := categoryTotals(sorted)

	return &model.TimeSeriesAnalysis{
		MonthlyTrends:        monthlyTrends(sorted),
		OverallTrend:         OverallTrend(totals),
		MostVolatileCategory: MostVolatile(sorted),
		EmergingPatterns:     emergingPatterns(totals, order, sums),
		TimeSeriesSummary:    summary(totals, order, sums),
	}
}

func monthlyTrends(sorted []model.MonthlyBucket) []model.MonthlyTrend {
	trends := make([]model.MonthlyTrend, 0, len(sorted))
	for i, b := range sorted {
		var prev map[model.Category]int
		if i > 0 {
			prev = sorted[i-1].CategoryCounts
		}

		categories := []model.EventCategory{}
		top, topCount := "None", 0
		for _, c := range b.CategoryOrder() {
			count := b.CategoryCounts[c]
			trend, change := categoryTrend(count, prev, c)
			categories = append(categories, model.EventCategory{
				Category:         c,
				Count:            count,
				Trend:            trend,
				PercentageChange: change,
			})
			if count > topCount {
				top, topCount = string(c), count
			}
		}

		insight := fmt.Sprintf("Found %d cybersecurity articles in %s", b.Count, b.Month)
		if topCount > 0 {
			insight += fmt.Sprintf(", with %s being the most prominent threat (%d articles)", top, topCount)
		}
		trends = append(trends, model.MonthlyTrend{
			Month:       b.Month,
			TotalEvents: b.Count,
			Categories:  categories,
			TopThreat:   top,
			KeyInsight:  insight,
		})
	}
	return trends
}

// categoryTrend 与上一个有数据的月份比较；上月为 0 时百分比记为 0
func categoryTrend(count int, prev map[model.Category]int, c model.Category) (string, float64) {
	if prev == nil {
		return model.TrendStable, 0
	}
	p := prev[c]
	var change float64
	if p > 0 {
		change = math.Round(float64(count-p)/float64(p)*1000) / 10
	}
	switch {
	case count > p:
		return model.TrendIncreasing, change
	case count < p:
		return model.TrendDecreasing, change
	default:
		return model.TrendStable, change
	}
}

// OverallTrend 比较前后两半的月度总量，阈值 ±10%
func OverallTrend(totals []int) string {
	if len(totals) < 2 {
		return model.TrendInsufficientData
	}
	half := len(totals) / 2
	first, second := sum(totals[:half]), sum(totals[half:])
	switch {
	case float64(second) > float64(first)*increaseRatio:
		return model.TrendIncreasing
	case float64(second) < float64(first)*decreaseRatio:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// MostVolatile 各分类月度数量的总体方差最大者，缺失月份按 0 计；并列取先出现的分类
func MostVolatile(sorted []model.MonthlyBucket) string {
	if len(sorted) < 2 {
		return model.TrendInsufficientData
	}
	order, _ := categoryTotals(sorted)
	if len(order) == 0 {
		return model.VolatileNone
	}

	best, bestVariance := "", -1.0
	for _, c := range order {
		counts := make([]float64, len(sorted))
		for i, b := range sorted {
			counts[i] = float64(b.CategoryCounts[c])
		}
		if v := Variance(counts); v > bestVariance {
			best, bestVariance = string(c), v
		}
	}
	return best
}

// Variance 总体方差
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return v / float64(len(xs))
}

func emergingPatterns(totals []int, order []model.Category, sums map[model.Category]int) []string {
	if len(totals) < 2 {
		return []string{"Insufficient data for pattern analysis"}
	}

	var patterns []string
	if len(totals) >= recentMonths {
		recent := float64(sum(totals[len(totals)-recentMonths:])) / recentMonths
		earlier := float64(totals[0])
		if rest := totals[:len(totals)-recentMonths]; len(rest) > 0 {
			earlier = float64(sum(rest)) / float64(len(rest))
		}
		switch {
		case recent > earlier*patternRise:
			patterns = append(patterns, "Recent increase in cyber threat activity")
		case recent < earlier*patternFall:
			patterns = append(patterns, "Recent decrease in cyber threat activity")
		}
	}

	if top, count, total := dominant(order, sums); total > 0 && float64(count) > float64(total)*dominanceShare {
		patterns = append(patterns, fmt.Sprintf("%s is the dominant threat category", top))
	}

	if len(patterns) == 0 {
		return []string{"No clear patterns identified in available data"}
	}
	return patterns
}

func summary(totals []int, order []model.Category, sums map[model.Category]int) string {
	if len(totals) == 0 {
		return "No data available for analysis."
	}
	total := sum(totals)
	s := fmt.Sprintf("Analysis of %d cybersecurity articles across %d months. ", total, len(totals))
	if top, count, _ := dominant(order, sums); count > 0 {
		s += fmt.Sprintf("The most common threat type was %s with %d articles. ", top, count)
	}
	s += fmt.Sprintf("Average of %.1f articles per month.", float64(total)/float64(len(totals)))
	return s
}

// categoryTotals 返回分类的首次出现顺序与全期合计
func categoryTotals(sorted []model.MonthlyBucket) ([]model.Category, map[model.Category]int) {
	var order []model.Category
	sums := make(map[model.Category]int)
	for _, b := range sorted {
		for _, c := range b.CategoryOrder() {
			if _, ok := sums[c]; !ok {
				order = append(order, c)
			}
			sums[c] += b.CategoryCounts[c]
		}
	}
	return order, sums
}

func dominant(order []model.Category, sums map[model.Category]int) (model.Category, int, int) {
	var top model.Category
	topCount, total := 0, 0
	for _, c := range order {
		total += sums[c]
		if sums[c] > topCount {
			top, topCount = c, sums[c]
		}
	}
	return top, topCount, total
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}
