package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/textnorm"
)

// LLM 分析阶段需要的两种调用
type LLM interface {
	GenerateJSON(ctx context.Context, name, system, user string, out any) error
	GenerateText(ctx context.Context, name, system, user string) (string, error)
}

// Analyzer 风险分析各阶段的 LLM 调用，输出文本统一转为 ASCII
type Analyzer struct {
	llm LLM
}

// New 创建分析器
func New(llm LLM) *Analyzer {
	return &Analyzer{llm: llm}
}

const riskPrompt = `You are a senior cyber risk analyst at a major insurance firm.
Analyze the news articles provided and identify novel and emerging cyber risks: new attack vectors,
exploitation of new technologies such as AI, significant shifts in ransomware tactics, or threats
moving into new sectors or regions. Use published_date to spot trends that are new or accelerating,
and correlate information across articles to find the underlying themes.

Return between 3 and 5 emerging risks. Each has a title, a detailed description and integer scores
from 1 to 10 for impact and likelihood. Also write a concise, non-technical summary for the Board of Directors.

Do not name specific companies or individuals. Describe the nature of the risk itself.

Respond with JSON only, no markdown:
{"emerging_risks": [{"risk_title": "...", "description": "...", "impact_score": 8, "likelihood_score": 6}],
 "board_summary": "..."}`

// AnalyzeRisks 对过滤后的文章做一次风险识别
func (a *Analyzer) AnalyzeRisks(ctx context.Context, articles []model.Article) (*model.CyberRiskAnalysis, error) {
	payload, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal articles: %w", err)
	}

	var out model.CyberRiskAnalysis
	if err := a.llm.GenerateJSON(ctx, "risk analysis", riskPrompt, "Here are the news articles to analyze:\n"+string(payload), &out); err != nil {
		return nil, err
	}

	for i := range out.EmergingRisks {
		r := &out.EmergingRisks[i]
		r.Title = textnorm.ToASCII(r.Title)
		r.Description = textnorm.ToASCII(r.Description)
	}
	out.BoardSummary = textnorm.ToASCII(out.BoardSummary)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	logger.Log.Infof("识别出 %d 条新兴风险", len(out.EmergingRisks))
	return &out, nil
}

const actionPrompt = `You are a strategic advisor to the Board of Directors. Based on the cyber risk analysis provided,
formulate exactly 3 high-level, prioritized and actionable recommendations. Each action point is a single,
complete sentence with an integer priority (1 is highest) and a suggested owner role.
Focus on strategic initiatives, not low-level technical tasks.

Respond with JSON only, no markdown:
{"action_points": [{"priority": 1, "description": "...", "suggested_owner": "..."}]}`

// PlanActions 基于风险分析生成 3 条董事会行动项
func (a *Analyzer) PlanActions(ctx context.Context, analysis *model.CyberRiskAnalysis) (*model.BoardActionPlan, error) {
	payload, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}

	var out model.BoardActionPlan
	if err := a.llm.GenerateJSON(ctx, "action plan", actionPrompt, "Here is the risk analysis:\n"+string(payload), &out); err != nil {
		return nil, err
	}
	for i := range out.ActionPoints {
		ap := &out.ActionPoints[i]
		ap.Description = textnorm.ToASCII(ap.Description)
		ap.SuggestedOwner = textnorm.ToASCII(ap.SuggestedOwner)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

const projectPrompt = `You are a senior project manager. Expand the strategic action point provided into a structured,
high-level project plan. Fill every field with plausible, concise and relevant information; the plan is
a starting point for internal discussion.

Respond with JSON only, no markdown:
{"title": "...", "objective": "...", "stakeholders": ["..."], "timeline_phases": ["..."], "kpis": ["..."], "risks": ["..."]}`

// PlanProject 为单条行动项生成项目计划
func (a *Analyzer) PlanProject(ctx context.Context, ap model.ActionPoint) (*model.ProjectPlan, error) {
	payload, err := json.MarshalIndent(ap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal action point: %w", err)
	}

	var out model.ProjectPlan
	name := fmt.Sprintf("project plan (priority %d)", ap.Priority)
	if err := a.llm.GenerateJSON(ctx, name, projectPrompt, "Generate a project plan for this action point:\n"+string(payload), &out); err != nil {
		return nil, err
	}
	out.Title = textnorm.ToASCII(out.Title)
	out.Objective = textnorm.ToASCII(out.Objective)
	out.Stakeholders = textnorm.CleanAll(out.Stakeholders)
	out.TimelinePhases = textnorm.CleanAll(out.TimelinePhases)
	out.KPIs = textnorm.CleanAll(out.KPIs)
	out.Risks = textnorm.CleanAll(out.Risks)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

const commentaryPrompt = `You are a cybersecurity expert commenting on a time series analysis of cyber threat news.
Write a commentary with these sections:
1. Executive Summary: high-level overview of the trend across the period
2. Key Findings: the most significant discoveries
3. Threat Evolution: how threats changed over the period
4. Seasonal Patterns: any cyclical behavior
5. Strategic Implications: what this means for organizations
6. Recommendations: suggested actions based on the trends

The data counts real news articles (at most %d per month); draw insights from this data and do not
assume a larger dataset. Use a professional, analytical tone suitable for a board presentation.`

// Commentary 对时间序列分析生成纯文本解读
func (a *Analyzer) Commentary(ctx context.Context, ts *model.TimeSeriesAnalysis, perMonth int) (string, error) {
	payload, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal time series: %w", err)
	}
	text, err := a.llm.GenerateText(ctx, "time series commentary", fmt.Sprintf(commentaryPrompt, perMonth),
		"Generate detailed commentary for this time series analysis:\n"+string(payload))
	if err != nil {
		return "", err
	}
	return textnorm.ToASCIILines(text), nil
}

const suggestPrompt = `You are a cybersecurity taxonomy expert. The articles below were all classified as "Other".
Group them and propose concise new categories that would cover them. For each suggestion give the
category name, a short rationale and the titles of the input articles that belong to it.

Respond with JSON only, no markdown:
{"suggestions": [{"suggested_category_name": "...", "rationale": "...", "article_titles": ["..."]}]}`

type titleDescription struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SuggestCategories 为 Other 类文章建议新分类
func (a *Analyzer) SuggestCategories(ctx context.Context, articles []model.Article) (*model.CategorySuggestions, error) {
	items := make([]titleDescription, len(articles))
	for i, art := range articles {
		items[i] = titleDescription{Title: art.Title, Description: art.Description}
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal articles: %w", err)
	}

	var out model.CategorySuggestions
	if err := a.llm.GenerateJSON(ctx, "category suggestions", suggestPrompt, "Articles:\n"+string(payload), &out); err != nil {
		return nil, err
	}
	for i := range out.Suggestions {
		s := &out.Suggestions[i]
		s.Name = textnorm.ToASCII(s.Name)
		s.Rationale = textnorm.ToASCII(s.Rationale)
		s.ArticleTitles = textnorm.CleanAll(s.ArticleTitles)
	}
	return &out, nil
}
