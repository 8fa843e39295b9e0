package timeseries

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

func article(month string, day int, c model.Category) model.Article {
	return model.Article{
		Title:         fmt.Sprintf("%s-%d-%s", month, day, c),
		PublishedDate: fmt.Sprintf("%s-%02dT10:00:00Z", month, day),
		Category:      c,
	}
}

func repeat(month string, c model.Category, n int) []model.Article {
	var out []model.Article
	for i := 0; i < n; i++ {
		out = append(out, article(month, i+1, c))
	}
	return out
}

// 三个月分别为 {Ransomware:3, Other:2}, {Phishing:8}, {Ransomware:2}
func scenario() []model.Article {
	var list []model.Article
	list = append(list, repeat("2025-10", model.CategoryRansomware, 3)...)
	list = append(list, repeat("2025-10", model.CategoryOther, 2)...)
	list = append(list, repeat("2025-11", model.CategoryPhishing, 8)...)
	list = append(list, repeat("2025-12", model.CategoryRansomware, 2)...)
	return list
}

func TestAggregate(t *testing.T) {
	list := scenario()
	list = append(list,
		model.Article{Title: "no date"},
		model.Article{Title: "bad date", PublishedDate: "sometime"},
		model.Article{Title: "unclassified", PublishedDate: "2025-12-20"},
	)

	buckets := Aggregate(list)
	assert.Equal(t, []string{"2025-10", "2025-11", "2025-12"}, buckets.Months())

	for _, b := range buckets {
		require.NoError(t, b.Validate())
	}
	assert.Equal(t, 5, buckets["2025-10"].Count)
	assert.Equal(t, 3, buckets["2025-12"].Count)
	assert.Equal(t, 1, buckets["2025-12"].CategoryCounts[model.CategoryOther])
}

func TestSummarize_Scenario(t *testing.T) {
	a := Summarize(Aggregate(scenario()))

	assert.Equal(t, "Phishing", a.MostVolatileCategory)
	assert.Equal(t, model.TrendIncreasing, a.OverallTrend)
	assert.Equal(t, []string{"Phishing is the dominant threat category"}, a.EmergingPatterns)
	assert.Equal(t,
		"Analysis of 15 cybersecurity articles across 3 months. The most common threat type was Phishing with 8 articles. Average of 5.0 articles per month.",
		a.TimeSeriesSummary)

	require.Len(t, a.MonthlyTrends, 3)
	oct := a.MonthlyTrends[0]
	assert.Equal(t, "2025-10", oct.Month)
	assert.Equal(t, 5, oct.TotalEvents)
	assert.Equal(t, "Ransomware", oct.TopThreat)
	assert.Equal(t, "Found 5 cybersecurity articles in 2025-10, with Ransomware being the most prominent threat (3 articles)", oct.KeyInsight)
	assert.Equal(t, []model.EventCategory{
		{Category: model.CategoryRansomware, Count: 3, Trend: model.TrendStable},
		{Category: model.CategoryOther, Count: 2, Trend: model.TrendStable},
	}, oct.Categories)
}

func TestVariance_Scenario(t *testing.T) {
	ransomware := Variance([]float64{3, 0, 2})
	phishing := Variance([]float64{0, 8, 0})
	other := Variance([]float64{2, 0, 0})

	assert.InDelta(t, 42.0/27.0, ransomware, 1e-9)
	assert.InDelta(t, 384.0/27.0, phishing, 1e-9)
	assert.InDelta(t, 24.0/27.0, other, 1e-9)
	assert.Greater(t, phishing, ransomware)
	assert.Greater(t, phishing, other)
}

func TestOverallTrend(t *testing.T) {
	tests := map[string]struct {
		totals []int
		want   string
	}{
		"increasing":   {[]int{10, 10, 10, 15, 15, 15}, model.TrendIncreasing},
		"decreasing":   {[]int{15, 15, 15, 10, 10, 10}, model.TrendDecreasing},
		"stable":       {[]int{10, 11, 9, 10}, model.TrendStable},
		"single month": {[]int{10}, model.TrendInsufficientData},
		"empty":        {nil, model.TrendInsufficientData},
		"odd length":   {[]int{10, 5, 6}, model.TrendStable},
		// 后半多一个月，按总量比较为上升，按均值比较则持平
		"odd length sums": {[]int{10, 10, 12}, model.TrendIncreasing},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, OverallTrend(tc.totals))
		})
	}
}

func TestMostVolatile_Edges(t *testing.T) {
	one := Aggregate(repeat("2025-10", model.CategoryMalware, 2)).Sorted()
	assert.Equal(t, model.TrendInsufficientData, MostVolatile(one))

	empty := []model.MonthlyBucket{model.NewMonthlyBucket("2025-10", nil), model.NewMonthlyBucket("2025-11", nil)}
	assert.Equal(t, model.VolatileNone, MostVolatile(empty))

	// 方差相同时取先出现的分类
	var list []model.Article
	list = append(list, repeat("2025-10", model.CategoryMalware, 1)...)
	list = append(list, repeat("2025-10", model.CategoryPhishing, 1)...)
	list = append(list, repeat("2025-11", model.CategoryDoS, 1)...)
	assert.Equal(t, "Malware", MostVolatile(Aggregate(list).Sorted()))
}

func TestMonthlyTrends_PercentChangeAndTies(t *testing.T) {
	var list []model.Article
	list = append(list, repeat("2025-01", model.CategoryRansomware, 4)...)
	list = append(list, repeat("2025-02", model.CategoryRansomware, 5)...)
	list = append(list, repeat("2025-03", model.CategoryRansomware, 2)...)
	list = append(list,
		article("2025-04", 1, model.CategoryPhishing),
		article("2025-04", 2, model.CategoryRansomware),
		article("2025-04", 3, model.CategoryRansomware),
		article("2025-04", 4, model.CategoryPhishing),
	)

	trends := Summarize(Aggregate(list)).MonthlyTrends
	require.Len(t, trends, 4)

	assert.Equal(t, model.TrendIncreasing, trends[1].Categories[0].Trend)
	assert.Equal(t, 25.0, trends[1].Categories[0].PercentageChange)
	assert.Equal(t, model.TrendDecreasing, trends[2].Categories[0].Trend)
	assert.Equal(t, -60.0, trends[2].Categories[0].PercentageChange)

	// 并列时取首次出现的分类；上月为 0 时百分比记 0
	assert.Equal(t, "Phishing", trends[3].TopThreat)
	assert.Equal(t, model.CategoryPhishing, trends[3].Categories[0].Category)
	assert.Equal(t, model.TrendIncreasing, trends[3].Categories[0].Trend)
	assert.Zero(t, trends[3].Categories[0].PercentageChange)
}

func TestEmergingPatterns(t *testing.T) {
	order := []model.Category{model.CategoryRansomware, model.CategoryPhishing, model.CategoryMalware}
	even := map[model.Category]int{model.CategoryRansomware: 10, model.CategoryPhishing: 10, model.CategoryMalware: 10}

	assert.Equal(t, []string{"Insufficient data for pattern analysis"}, emergingPatterns([]int{5}, order, even))
	assert.Equal(t, []string{"No clear patterns identified in available data"}, emergingPatterns([]int{10, 10, 10, 10}, order, even))
	assert.Equal(t, []string{"Recent increase in cyber threat activity"}, emergingPatterns([]int{5, 5, 10, 10, 10}, order, even))
	assert.Equal(t, []string{"Recent decrease in cyber threat activity"}, emergingPatterns([]int{20, 10, 10, 10}, order, even))

	skewed := map[model.Category]int{model.CategoryRansomware: 5, model.CategoryPhishing: 3, model.CategoryMalware: 2}
	assert.Equal(t, []string{"Ransomware is the dominant threat category"}, emergingPatterns([]int{5, 5}, order, skewed))
}

func TestSummarize_Empty(t *testing.T) {
	a := Summarize(Buckets{})
	assert.Empty(t, a.MonthlyTrends)
	assert.Equal(t, model.TrendInsufficientData, a.OverallTrend)
	assert.Equal(t, model.TrendInsufficientData, a.MostVolatileCategory)
	assert.Equal(t, "No data available for analysis.", a.TimeSeriesSummary)
}

func TestChart(t *testing.T) {
	chart := Chart(Summarize(Aggregate(scenario())))
	assert.Equal(t, []string{"2025-10", "2025-11", "2025-12"}, chart.Labels)
	assert.Equal(t, []int{5, 8, 2}, chart.Total.Data)
	require.Len(t, chart.Series, 3)
	assert.Equal(t, Series{Label: "Ransomware", Data: []int{3, 0, 2}}, chart.Series[0])
	assert.Equal(t, Series{Label: "Other", Data: []int{2, 0, 0}}, chart.Series[1])
	assert.Equal(t, Series{Label: "Phishing", Data: []int{0, 8, 0}}, chart.Series[2])

	assert.Empty(t, Chart(nil).Labels)
}
