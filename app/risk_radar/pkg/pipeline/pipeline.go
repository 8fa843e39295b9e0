package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/artifact"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/collector"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/timeseries"
)

// ErrNoEvents 过滤后没有任何具体安全事件可供分析
var ErrNoEvents = errors.New("no articles flagged as cyber events")

// 阶段名，出现在错误信息与日志中
const (
	StageCollect      = "collect"
	StageClassify     = "classify"
	StageTimeSeries   = "time series"
	StageRiskAnalysis = "risk analysis"
	StageActionPlan   = "action plan"
	StageProjectPlan  = "project plan"
	StageReport       = "report"
)

// StageError 终止运行的错误，总是带上阶段名
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// State 运行进度
type State string

const (
	StateStarted             State = "Started"
	StateCollectDone         State = "CollectDone"
	StateClassified          State = "Classified"
	StateRiskAnalyzed        State = "RiskAnalyzed"
	StateActionPlanned       State = "ActionPlanned"
	StateProjectPlansCreated State = "ProjectPlansCreated"
	StateAssembled           State = "Assembled"
)

// From 从哪个阶段开始运行，之前阶段的产物从 manifest 读取
type From string

const (
	FromCollect  From = "collect"
	FromActions  From = "actions"
	FromProjects From = "projects"
	FromReport   From = "report"
)

// ParseFrom 解析命令行参数
func ParseFrom(s string) (From, error) {
	switch f := From(s); f {
	case "", FromCollect:
		return FromCollect, nil
	case FromActions, FromProjects, FromReport:
		return f, nil
	default:
		return "", fmt.Errorf("unknown start stage %q (want collect, actions, projects or report)", s)
	}
}

// Collector 采集阶段
type Collector interface {
	Collect(ctx context.Context) (*collector.Result, error)
}

// Classifier 分类阶段，失败时自行回退，不返回错误
type Classifier interface {
	Classify(ctx context.Context, articles []model.Article) []model.Article
}

// Analyzer LLM 分析各阶段
type Analyzer interface {
	AnalyzeRisks(ctx context.Context, articles []model.Article) (*model.CyberRiskAnalysis, error)
	PlanActions(ctx context.Context, analysis *model.CyberRiskAnalysis) (*model.BoardActionPlan, error)
	PlanProject(ctx context.Context, ap model.ActionPoint) (*model.ProjectPlan, error)
	Commentary(ctx context.Context, ts *model.TimeSeriesAnalysis, perMonth int) (string, error)
}

// Reporter 汇总产物生成仪表盘，返回文件路径
type Reporter interface {
	Build() (string, error)
}

// Archiver 可选的运行归档
type Archiver interface {
	SaveRun(ctx context.Context, run *model.RunRecord) error
}

// Options 运行参数
type Options struct {
	From             From
	MaxArticles      int
	ArticlesPerMonth int
}

// Deps 流水线依赖，全部显式注入；Archiver 可为 nil
type Deps struct {
	Collector  Collector
	Classifier Classifier
	Analyzer   Analyzer
	Reporter   Reporter
	Archiver   Archiver
	Store      *artifact.Store
}

// Pipeline 严格串行的分析流水线，每个阶段落盘后才进入下一阶段
type Pipeline struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// New 创建流水线
func New(deps Deps, opts Options) *Pipeline {
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = 50
	}
	if opts.From == "" {
		opts.From = FromCollect
	}
	return &Pipeline{deps: deps, opts: opts, now: time.Now}
}

// Result 一次运行的结果，出错时 State 为最后完成的状态
type Result struct {
	RunID        string
	State        State
	Articles     int
	Events       int
	Analysis     *model.CyberRiskAnalysis
	Plan         *model.BoardActionPlan
	ProjectPlans []string
	Dashboard    string
}

// Run 执行一次流水线
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: p.deps.Store.BeginRun(), State: StateStarted}
	logger.Log.WithField("run_id", res.RunID).Infof("流水线开始，起始阶段: %s", p.opts.From)

	var err error
	switch p.opts.From {
	case FromCollect:
		err = p.runFromCollect(ctx, res)
	case FromActions:
		err = p.runFromActions(ctx, res)
	case FromProjects:
		err = p.runFromProjects(ctx, res)
	case FromReport:
		res.State = StateProjectPlansCreated
	default:
		err = fmt.Errorf("unknown start stage %q", p.opts.From)
	}
	if err != nil {
		return res, err
	}

	if err := p.archive(ctx, res); err != nil {
		logger.Log.Warnf("运行归档失败（不影响结果）: %v", err)
	}

	if err := p.assemble(res); err != nil {
		return res, err
	}
	logger.Log.WithField("run_id", res.RunID).Infof("流水线完成: %s", res.Dashboard)
	return res, nil
}

func (p *Pipeline) runFromCollect(ctx context.Context, res *Result) error {
	logger.Log.Infof("阶段 [%s] 开始", StageCollect)
	collected, err := p.deps.Collector.Collect(ctx)
	if err != nil {
		return p.fail(StageCollect, err)
	}
	if collected.AuditPath != "" {
		if err := p.deps.Store.Record(artifact.StageNews, collected.AuditPath); err != nil {
			logger.Log.Warnf("登记审计文件失败: %v", err)
		}
	}
	res.Articles = len(collected.Articles)
	res.State = StateCollectDone

	logger.Log.Infof("阶段 [%s] 开始: %d 篇文章", StageClassify, len(collected.Articles))
	classified := p.deps.Classifier.Classify(ctx, collected.Articles)
	if _, err := p.deps.Store.WriteJSON(artifact.StageClassified, classified); err != nil {
		return p.fail(StageClassify, err)
	}
	res.State = StateClassified

	// 时间序列基于全部已分类文章，不受事件过滤影响
	if err := p.timeSeries(ctx, classified); err != nil {
		return err
	}

	events := FilterEvents(classified, p.opts.MaxArticles)
	res.Events = len(events)
	logger.Log.Infof("筛选出 %d 篇具体安全事件（上限 %d）", len(events), p.opts.MaxArticles)
	if len(events) == 0 {
		return p.fail(StageRiskAnalysis, ErrNoEvents)
	}

	logger.Log.Infof("阶段 [%s] 开始", StageRiskAnalysis)
	analysis, err := p.deps.Analyzer.AnalyzeRisks(ctx, events)
	if err != nil {
		return p.fail(StageRiskAnalysis, err)
	}
	if _, err := p.deps.Store.WriteJSON(artifact.StageRiskAnalysis, analysis); err != nil {
		return p.fail(StageRiskAnalysis, err)
	}
	res.Analysis = analysis
	res.State = StateRiskAnalyzed

	return p.actionsAndProjects(ctx, res, analysis)
}

func (p *Pipeline) runFromActions(ctx context.Context, res *Result) error {
	var analysis model.CyberRiskAnalysis
	path, err := p.deps.Store.LoadLatest(artifact.StageRiskAnalysis, &analysis)
	if err != nil {
		return p.fail(StageActionPlan, fmt.Errorf("load risk analysis: %w", err))
	}
	logger.Log.Infof("使用已有的风险分析: %s", path)
	res.Analysis = &analysis
	res.State = StateRiskAnalyzed
	return p.actionsAndProjects(ctx, res, &analysis)
}

func (p *Pipeline) runFromProjects(ctx context.Context, res *Result) error {
	var plan model.BoardActionPlan
	path, err := p.deps.Store.LoadLatest(artifact.StageActionPlan, &plan)
	if err != nil {
		return p.fail(StageProjectPlan, fmt.Errorf("load action plan: %w", err))
	}
	logger.Log.Infof("使用已有的行动计划: %s", path)
	var analysis model.CyberRiskAnalysis
	if _, err := p.deps.Store.LoadLatest(artifact.StageRiskAnalysis, &analysis); err == nil {
		res.Analysis = &analysis
	}
	res.Plan = &plan
	res.State = StateActionPlanned
	return p.projects(ctx, res, &plan)
}

func (p *Pipeline) actionsAndProjects(ctx context.Context, res *Result, analysis *model.CyberRiskAnalysis) error {
	logger.Log.Infof("阶段 [%s] 开始", StageActionPlan)
	plan, err := p.deps.Analyzer.PlanActions(ctx, analysis)
	if err != nil {
		return p.fail(StageActionPlan, err)
	}
	if _, err := p.deps.Store.WriteJSON(artifact.StageActionPlan, plan); err != nil {
		return p.fail(StageActionPlan, err)
	}
	res.Plan = plan
	res.State = StateActionPlanned
	return p.projects(ctx, res, plan)
}

// projects 按优先级升序逐条生成项目计划，文件序号为排序后的位置
func (p *Pipeline) projects(ctx context.Context, res *Result, plan *model.BoardActionPlan) error {
	sorted := plan.Sorted()
	logger.Log.Infof("阶段 [%s] 开始: %d 条行动项", StageProjectPlan, len(sorted))
	for i, ap := range sorted {
		pp, err := p.deps.Analyzer.PlanProject(ctx, ap)
		if err != nil {
			return p.fail(StageProjectPlan, fmt.Errorf("action point %d (priority %d): %w", i+1, ap.Priority, err))
		}
		path, err := p.deps.Store.WriteProjectPlan(i+1, pp)
		if err != nil {
			return p.fail(StageProjectPlan, err)
		}
		res.ProjectPlans = append(res.ProjectPlans, path)
		logger.Log.Infof("已生成优先级 %d 的项目计划", ap.Priority)
	}
	res.State = StateProjectPlansCreated
	return nil
}

// timeSeries 计算并保存时间序列；解读生成失败只记录日志
func (p *Pipeline) timeSeries(ctx context.Context, classified []model.Article) error {
	logger.Log.Infof("阶段 [%s] 开始", StageTimeSeries)
	analysis := timeseries.Summarize(timeseries.Aggregate(classified))
	if _, err := p.deps.Store.WriteJSON(artifact.StageTimeSeries, analysis); err != nil {
		return p.fail(StageTimeSeries, err)
	}

	commentary, err := p.deps.Analyzer.Commentary(ctx, analysis, p.opts.ArticlesPerMonth)
	if err != nil {
		logger.Log.Warnf("时间序列解读生成失败，跳过该部分: %v", err)
		return nil
	}
	if _, err := p.deps.Store.WriteText(artifact.StageCommentary, commentary); err != nil {
		logger.Log.Warnf("保存时间序列解读失败: %v", err)
	}
	return nil
}

func (p *Pipeline) archive(ctx context.Context, res *Result) error {
	if p.deps.Archiver == nil || res.Analysis == nil || res.Plan == nil {
		return nil
	}
	return p.deps.Archiver.SaveRun(ctx, &model.RunRecord{
		RunID:        res.RunID,
		CreatedAt:    p.now(),
		ArticleCount: res.Articles,
		EventCount:   res.Events,
		Analysis:     res.Analysis,
		Plan:         res.Plan,
	})
}

func (p *Pipeline) assemble(res *Result) error {
	if p.deps.Reporter == nil {
		return nil
	}
	logger.Log.Infof("阶段 [%s] 开始", StageReport)
	path, err := p.deps.Reporter.Build()
	if err != nil {
		return p.fail(StageReport, err)
	}
	res.Dashboard = path
	res.State = StateAssembled
	return nil
}

func (p *Pipeline) fail(stage string, err error) error {
	logger.Log.Errorf("阶段 [%s] 失败，运行终止: %v", stage, err)
	return &StageError{Stage: stage, Err: err}
}

// FilterEvents 只保留标记为具体事件的文章，并按原顺序截取前 limit 篇
func FilterEvents(articles []model.Article, limit int) []model.Article {
	var out []model.Article
	for _, a := range articles {
		if !a.CyberEvent() {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
