// Package artifact 管理流水线各阶段落盘的产物，并用 manifest.json 记录每个阶段的最新文件。
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
)

// Stage 产物的逻辑类型，同时是文件名前缀
type Stage string

const (
	StageNews         Stage = "news"
	StageClassified   Stage = "classified_articles"
	StageRiskAnalysis Stage = "risk_analysis"
	StageTimeSeries   Stage = "time_series_analysis"
	StageCommentary   Stage = "time_series_commentary"
	StageActionPlan   Stage = "board_action_plan"
	StageProjectPlan  Stage = "project_plan"
	StageDashboard    Stage = "dashboard"
)

// ManifestFile manifest 文件名
const ManifestFile = "manifest.json"

// Manifest 阶段到最新产物路径的索引；项目计划按序号保存为列表
type Manifest struct {
	RunID        string           `json:"run_id"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Artifacts    map[Stage]string `json:"artifacts"`
	ProjectPlans []string         `json:"project_plans,omitempty"`
}

// Store 产物目录。单进程使用，不加锁
type Store struct {
	dir   string
	now   func() time.Time
	runID string
	stamp string
}

// NewStore 创建产物目录的访问器
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// WithClock 替换时钟，测试用
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir 产物目录
func (s *Store) Dir() string { return s.dir }

// BeginRun 开始新的一次运行：生成运行 id 与本次文件名使用的时间戳
func (s *Store) BeginRun() string {
	s.runID = uuid.NewString()
	s.stamp = s.now().Format("20060102_150405")
	return s.runID
}

// RunID 当前运行 id
func (s *Store) RunID() string { return s.runID }

func (s *Store) timestamp() string {
	if s.stamp == "" {
		s.BeginRun()
	}
	return s.stamp
}

// WriteJSON 写入阶段产物并更新 manifest
func (s *Store) WriteJSON(stage Stage, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", stage, err)
	}
	return s.write(stage, fmt.Sprintf("%s_%s.json", stage, s.timestamp()), data)
}

// WriteText 写入纯文本产物
func (s *Store) WriteText(stage Stage, text string) (string, error) {
	return s.write(stage, fmt.Sprintf("%s_%s.txt", stage, s.timestamp()), []byte(text))
}

// WriteHTML 写入 HTML 产物
func (s *Store) WriteHTML(stage Stage, html []byte) (string, error) {
	return s.write(stage, fmt.Sprintf("%s_%s.html", stage, s.timestamp()), html)
}

// WriteProjectPlan 写入第 n 个项目计划（从 1 开始），n == 1 时清空旧列表
func (s *Store) WriteProjectPlan(n int, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal project plan %d: %w", n, err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s_%d.json", StageProjectPlan, s.timestamp(), n))
	if err := s.writeFile(path, data); err != nil {
		return "", err
	}
	err = s.update(func(m *Manifest) {
		if n == 1 {
			m.ProjectPlans = nil
		}
		m.ProjectPlans = append(m.ProjectPlans, path)
	})
	return path, err
}

// Record 把外部生成的文件登记到 manifest，例如采集审计文件
func (s *Store) Record(stage Stage, path string) error {
	return s.update(func(m *Manifest) { m.Artifacts[stage] = path })
}

// Load 读取 manifest；不存在时返回空索引
func (s *Store) Load() (*Manifest, error) {
	m := &Manifest{Artifacts: map[Stage]string{}}
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Artifacts == nil {
		m.Artifacts = map[Stage]string{}
	}
	return m, nil
}

// Latest 返回某阶段最新产物路径
func (s *Store) Latest(stage Stage) (string, bool) {
	m, err := s.Load()
	if err != nil {
		logger.Log.Warnf("读取 manifest 失败: %v", err)
		return "", false
	}
	path, ok := m.Artifacts[stage]
	return path, ok && path != ""
}

// LatestProjectPlans 按序号返回最新一组项目计划
func (s *Store) LatestProjectPlans() []string {
	m, err := s.Load()
	if err != nil {
		logger.Log.Warnf("读取 manifest 失败: %v", err)
		return nil
	}
	return m.ProjectPlans
}

// ReadJSON 读取并解析产物文件
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadLatest 读取某阶段最新产物到 v
func (s *Store) LoadLatest(stage Stage, v any) (string, error) {
	path, ok := s.Latest(stage)
	if !ok {
		return "", fmt.Errorf("no %s artifact recorded in %s", stage, filepath.Join(s.dir, ManifestFile))
	}
	return path, ReadJSON(path, v)
}

func (s *Store) write(stage Stage, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := s.writeFile(path, data); err != nil {
		return "", err
	}
	if err := s.Record(stage, path); err != nil {
		return "", err
	}
	logger.Log.Infof("已保存 %s: %s", stage, path)
	return path, nil
}

func (s *Store) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) update(fn func(m *Manifest)) error {
	m, err := s.Load()
	if err != nil {
		return err
	}
	fn(m)
	if s.runID != "" {
		m.RunID = s.runID
	}
	m.UpdatedAt = s.now()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.writeFile(filepath.Join(s.dir, ManifestFile), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
