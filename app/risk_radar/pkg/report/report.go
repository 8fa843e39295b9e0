// Package report 读取 manifest 中登记的各阶段产物并渲染静态仪表盘。
// 任一产物缺失或无法解析时对应区块显示为空，不影响其余部分。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/artifact"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/timeseries"
)

// HeatPoint 风险热力图上的一个点
type HeatPoint struct {
	Title string `json:"title"`
	X     int    `json:"x"` // impact
	Y     int    `json:"y"` // likelihood
	Value int    `json:"value"`
}

// Level 按综合分值划分的严重程度
func (p HeatPoint) Level() string {
	switch {
	case p.Value >= 50:
		return "high"
	case p.Value >= 25:
		return "medium"
	default:
		return "low"
	}
}

// Heatmap 将风险映射为 {impact, likelihood, impact*likelihood}
func Heatmap(a *model.CyberRiskAnalysis) []HeatPoint {
	if a == nil {
		return nil
	}
	points := make([]HeatPoint, 0, len(a.EmergingRisks))
	for _, r := range a.EmergingRisks {
		points = append(points, HeatPoint{
			Title: r.Title,
			X:     r.ImpactScore,
			Y:     r.LikelihoodScore,
			Value: r.ImpactScore * r.LikelihoodScore,
		})
	}
	return points
}

// Dashboard 渲染所需的全部数据
type Dashboard struct {
	GeneratedAt  time.Time
	RunID        string
	Analysis     *model.CyberRiskAnalysis
	Heatmap      []HeatPoint
	TimeSeries   *model.TimeSeriesAnalysis
	Chart        timeseries.ChartData
	Commentary   string
	ActionPoints []model.ActionPoint
	ProjectPlans []model.ProjectPlan
}

// ChartJSON 图表数据以 JSON 形式嵌入页面脚本
func (d *Dashboard) ChartJSON() template.JS {
	data, err := json.Marshal(d.Chart)
	if err != nil {
		return "{}"
	}
	return template.JS(data)
}

// Assembler 仪表盘汇总器
type Assembler struct {
	store *artifact.Store
	now   func() time.Time
}

// NewAssembler 创建汇总器
func NewAssembler(store *artifact.Store) *Assembler {
	return &Assembler{store: store, now: time.Now}
}

// WithClock 替换时钟，测试用
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Load 按 manifest 读取所有产物
func (a *Assembler) Load() *Dashboard {
	d := &Dashboard{GeneratedAt: a.now()}
	if m, err := a.store.Load(); err == nil {
		d.RunID = m.RunID
	}

	var analysis model.CyberRiskAnalysis
	if a.load(artifact.StageRiskAnalysis, &analysis) {
		d.Analysis = &analysis
		d.Heatmap = Heatmap(&analysis)
	}

	var ts model.TimeSeriesAnalysis
	if a.load(artifact.StageTimeSeries, &ts) {
		d.TimeSeries = &ts
		d.Chart = timeseries.Chart(&ts)
	}

	if path, ok := a.store.Latest(artifact.StageCommentary); ok {
		if data, err := os.ReadFile(path); err == nil {
			d.Commentary = string(data)
		} else {
			logger.Log.Warnf("无法读取时间序列解读 %s: %v", path, err)
		}
	}

	var plan model.BoardActionPlan
	if a.load(artifact.StageActionPlan, &plan) {
		d.ActionPoints = plan.Sorted()
	}

	for _, path := range a.store.LatestProjectPlans() {
		var pp model.ProjectPlan
		if err := artifact.ReadJSON(path, &pp); err != nil {
			logger.Log.Warnf("跳过无法读取的项目计划 %s: %v", path, err)
			continue
		}
		d.ProjectPlans = append(d.ProjectPlans, pp)
	}
	return d
}

func (a *Assembler) load(stage artifact.Stage, v any) bool {
	path, ok := a.store.Latest(stage)
	if !ok {
		logger.Log.Infof("未找到 %s 产物，对应区块留空", stage)
		return false
	}
	if err := artifact.ReadJSON(path, v); err != nil {
		logger.Log.Warnf("无法读取 %s 产物，对应区块留空: %v", stage, err)
		return false
	}
	return true
}

// Render 渲染仪表盘 HTML
func Render(w io.Writer, d *Dashboard) error {
	return dashboardTpl.Execute(w, d)
}

// Build 汇总、渲染并保存仪表盘，返回文件路径
func (a *Assembler) Build() (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, a.Load()); err != nil {
		return "", fmt.Errorf("render dashboard: %w", err)
	}
	return a.store.WriteHTML(artifact.StageDashboard, buf.Bytes())
}
