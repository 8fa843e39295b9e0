package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Storage 运行归档库，保存每次运行的风险分析与董事会行动计划
type Storage struct {
	db *sql.DB
}

// NewStorage 连接数据库并初始化表结构
func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS risk_runs (
		id SERIAL PRIMARY KEY,
		run_id TEXT NOT NULL UNIQUE,
		article_count INTEGER,
		event_count INTEGER,
		board_summary TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS emerging_risks (
		id SERIAL PRIMARY KEY,
		risk_run_id INTEGER REFERENCES risk_runs(id),
		title TEXT,
		description TEXT,
		impact_score INTEGER,
		likelihood_score INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS action_points (
		id SERIAL PRIMARY KEY,
		risk_run_id INTEGER REFERENCES risk_runs(id),
		priority INTEGER,
		description TEXT,
		suggested_owner TEXT
	)`,
}

func (s *Storage) initSchema(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// SaveRun 在一个事务内写入运行记录、风险与行动项
func (s *Storage) SaveRun(ctx context.Context, run *model.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := insertRun(run).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run insert: %w", err)
	}
	var id int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("run %s already archived: %w", run.RunID, err)
		}
		return fmt.Errorf("failed to insert risk run: %w", err)
	}

	if b, ok := insertRisks(id, run.Analysis); ok {
		if err := exec(ctx, tx, b); err != nil {
			return fmt.Errorf("failed to insert emerging risks: %w", err)
		}
	}
	if b, ok := insertActions(id, run.Plan); ok {
		if err := exec(ctx, tx, b); err != nil {
			return fmt.Errorf("failed to insert action points: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Log.Infof("运行 %s 已归档到数据库", run.RunID)
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, b sq.InsertBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func insertRun(run *model.RunRecord) sq.InsertBuilder {
	summary := ""
	if run.Analysis != nil {
		summary = run.Analysis.BoardSummary
	}
	return psql.Insert("risk_runs").
		Columns("run_id", "article_count", "event_count", "board_summary", "created_at").
		Values(run.RunID, run.ArticleCount, run.EventCount, summary, run.CreatedAt).
		Suffix("RETURNING id")
}

func insertRisks(runID int, a *model.CyberRiskAnalysis) (sq.InsertBuilder, bool) {
	b := psql.Insert("emerging_risks").
		Columns("risk_run_id", "title", "description", "impact_score", "likelihood_score")
	if a == nil || len(a.EmergingRisks) == 0 {
		return b, false
	}
	for _, r := range a.EmergingRisks {
		b = b.Values(runID, r.Title, r.Description, r.ImpactScore, r.LikelihoodScore)
	}
	return b, true
}

func insertActions(runID int, p *model.BoardActionPlan) (sq.InsertBuilder, bool) {
	b := psql.Insert("action_points").
		Columns("risk_run_id", "priority", "description", "suggested_owner")
	if p == nil || len(p.ActionPoints) == 0 {
		return b, false
	}
	for _, ap := range p.Sorted() {
		b = b.Values(runID, ap.Priority, ap.Description, ap.SuggestedOwner)
	}
	return b, true
}
