package timeseries

import "github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"

// Series 一条折线
type Series struct {
	Label string `json:"label"`
	Data  []int  `json:"data"`
}

// ChartData 仪表盘折线图数据：总量一条，每个分类一条，缺失月份补 0
type ChartData struct {
	Labels []string `json:"labels"`
	Total  Series   `json:"total"`
	Series []Series `json:"series"`
}

// Chart 由时间序列分析生成图表数据
func Chart(a *model.TimeSeriesAnalysis) ChartData {
	chart := ChartData{Total: Series{Label: "Total Articles"}}
	if a == nil {
		return chart
	}

	var order []model.Category
	seen := make(map[model.Category]bool)
	for _, t := range a.MonthlyTrends {
		for _, c := range t.Categories {
			if !seen[c.Category] {
				seen[c.Category] = true
				order = append(order, c.Category)
			}
		}
	}

	index := make(map[model.Category]int, len(order))
	for i, c := range order {
		index[c] = i
		chart.Series = append(chart.Series, Series{Label: string(c), Data: make([]int, 0, len(a.MonthlyTrends))})
	}

	for _, t := range a.MonthlyTrends {
		chart.Labels = append(chart.Labels, t.Month)
		chart.Total.Data = append(chart.Total.Data, t.TotalEvents)
		counts := make([]int, len(order))
		for _, c := range t.Categories {
			counts[index[c.Category]] = c.Count
		}
		for i := range chart.Series {
			chart.Series[i].Data = append(chart.Series[i].Data, counts[i])
		}
	}
	return chart
}
