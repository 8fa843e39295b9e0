package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/storage"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/analyzer"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/artifact"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/cache"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/classifier"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/collector"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/pipeline"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/report"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/scrape"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search/factory"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline",
	Long: `Run the pipeline end to end, or resume from a later stage using the
artifacts recorded in the output manifest.

Stages for --from:
  collect    full run (default)
  actions    reuse the latest risk analysis
  projects   reuse the latest board action plan
  report     only rebuild the dashboard`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("from", string(pipeline.FromCollect), "stage to start from (collect, actions, projects, report)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fromFlag, _ := cmd.Flags().GetString("from")
	from, err := pipeline.ParseFrom(fromFlag)
	if err != nil {
		return err
	}

	// 在任何网络访问之前校验凭据
	switch from {
	case pipeline.FromCollect:
		err = cfg.Validate()
	case pipeline.FromReport:
	default:
		err = cfg.ValidateLLM()
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger.Log.Info("启动风险雷达...")

	store := artifact.NewStore(cfg.Output.Dir)
	deps := pipeline.Deps{
		Store:    store,
		Reporter: report.NewAssembler(store),
	}

	if from != pipeline.FromReport {
		client, err := llm.NewOpenAI(ctx, cfg.LLM)
		if err != nil {
			return fmt.Errorf("无法初始化 LLM: %w", err)
		}
		deps.Classifier = classifier.New(client)
		deps.Analyzer = analyzer.New(client)
	}

	if from == pipeline.FromCollect {
		c, err := newCollector(cfg)
		if err != nil {
			return err
		}
		deps.Collector = c
	}

	if archive := openArchive(ctx, cfg.DB); archive != nil {
		defer archive.Close()
		deps.Archiver = archive
	}

	res, err := pipeline.New(deps, pipeline.Options{
		From:             from,
		MaxArticles:      cfg.Pipeline.MaxArticles,
		ArticlesPerMonth: cfg.Collector.ArticlesPerMonth,
	}).Run(ctx)
	if err != nil {
		logger.Log.WithField("state", res.State).Errorf("运行终止: %v", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished (%s)\n", res.RunID, res.State)
	if res.Articles > 0 {
		fmt.Fprintf(out, "Articles collected: %d, cyber events analysed: %d\n", res.Articles, res.Events)
	}
	fmt.Fprintf(out, "Dashboard: %s\n", res.Dashboard)
	return nil
}

func newCollector(cfg *config.Config) (*collector.Collector, error) {
	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, err
	}
	cutoff, err := cfg.Collector.CutoffDate()
	if err != nil {
		return nil, fmt.Errorf("invalid collector cutoff %q: %w", cfg.Collector.Cutoff, err)
	}
	return collector.New(
		searcher,
		scrape.NewClient(cfg.Collector.ScrapeTimeout),
		cache.NewStore(cfg.Cache.Dir),
		collector.Options{
			Terms:            cfg.Search.Terms,
			MonthsBack:       cfg.Collector.MonthsBack,
			ArticlesPerMonth: cfg.Collector.ArticlesPerMonth,
			PageSize:         cfg.Collector.PageSize,
			MaxPages:         cfg.Collector.MaxPages,
			Cutoff:           cutoff,
			RequestDelay:     cfg.Search.RequestDelay,
			RateLimitBackoff: cfg.Search.RateLimitBackoff,
			AuditDir:         cfg.Output.NewsDir,
		},
	), nil
}

// openArchive 配置了数据库时尝试连接，失败只记录日志
func openArchive(ctx context.Context, db config.DBConfig) *storage.Storage {
	if db.DSN == "" {
		logger.Log.Info("未配置数据库信息，跳过运行归档")
		return nil
	}
	s, err := storage.NewStorage(ctx, db.DSN)
	if err != nil {
		logger.Log.Errorf("无法连接数据库: %v. 将仅生成本地产物。", err)
		return nil
	}
	logger.Log.Info("已成功连接到数据库")
	return s
}
