package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var now = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir()).WithClock(func() time.Time { return now })
}

func TestWriteJSON_RecordsLatest(t *testing.T) {
	s := newStore(t)
	runID := s.BeginRun()
	_, err := uuid.Parse(runID)
	require.NoError(t, err)

	analysis := &model.CyberRiskAnalysis{BoardSummary: "summary"}
	path, err := s.WriteJSON(StageRiskAnalysis, analysis)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "risk_analysis_20260203_040506.json"), path)

	latest, ok := s.Latest(StageRiskAnalysis)
	require.True(t, ok)
	assert.Equal(t, path, latest)

	var loaded model.CyberRiskAnalysis
	_, err = s.LoadLatest(StageRiskAnalysis, &loaded)
	require.NoError(t, err)
	assert.Equal(t, "summary", loaded.BoardSummary)

	m, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, runID, m.RunID)
	assert.True(t, m.UpdatedAt.Equal(now))
}

func TestLatest_IgnoresUnrecordedFiles(t *testing.T) {
	s := newStore(t)
	s.BeginRun()
	first, err := s.WriteJSON(StageActionPlan, model.BoardActionPlan{})
	require.NoError(t, err)

	// 目录里更新的同名前缀文件不会被当作最新产物
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "board_action_plan_29991231_000000.json"), []byte("{}"), 0o644))

	latest, ok := s.Latest(StageActionPlan)
	require.True(t, ok)
	assert.Equal(t, first, latest)

	_, ok = s.Latest(StageCommentary)
	assert.False(t, ok)
}

func TestWriteProjectPlan_ResetsListOnFirst(t *testing.T) {
	s := newStore(t)
	s.BeginRun()
	for n := 1; n <= 3; n++ {
		_, err := s.WriteProjectPlan(n, model.ProjectPlan{Title: "p", Objective: "o"})
		require.NoError(t, err)
	}
	plans := s.LatestProjectPlans()
	require.Len(t, plans, 3)
	assert.Equal(t, filepath.Join(s.Dir(), "project_plan_20260203_040506_1.json"), plans[0])
	assert.Equal(t, filepath.Join(s.Dir(), "project_plan_20260203_040506_3.json"), plans[2])

	later := NewStore(s.Dir()).WithClock(func() time.Time { return now.Add(time.Hour) })
	later.BeginRun()
	_, err := later.WriteProjectPlan(1, model.ProjectPlan{Title: "p", Objective: "o"})
	require.NoError(t, err)
	assert.Len(t, later.LatestProjectPlans(), 1)
}

func TestWriteTextAndRecord(t *testing.T) {
	s := newStore(t)
	path, err := s.WriteText(StageCommentary, "hello")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.NotEmpty(t, s.RunID())

	require.NoError(t, s.Record(StageNews, "/elsewhere/news/2026.json"))
	latest, ok := s.Latest(StageNews)
	require.True(t, ok)
	assert.Equal(t, "/elsewhere/news/2026.json", latest)
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	s := newStore(t)
	m, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, m.Artifacts)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ManifestFile), []byte("{"), 0o644))
	_, err = s.Load()
	assert.Error(t, err)
	_, ok := s.Latest(StageRiskAnalysis)
	assert.False(t, ok)

	_, err = s.LoadLatest(StageRiskAnalysis, &model.CyberRiskAnalysis{})
	assert.ErrorContains(t, err, "no risk_analysis artifact")
}
