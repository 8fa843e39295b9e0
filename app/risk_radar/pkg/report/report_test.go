package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/artifact"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	s := artifact.NewStore(t.TempDir()).WithClock(func() time.Time { return now })
	s.BeginRun()
	return s
}

func TestHeatmap(t *testing.T) {
	tests := []struct {
		name  string
		risk  model.EmergingRisk
		value int
		level string
	}{
		{"high", model.EmergingRisk{Title: "a", ImpactScore: 9, LikelihoodScore: 8}, 72, "high"},
		{"medium", model.EmergingRisk{Title: "b", ImpactScore: 5, LikelihoodScore: 5}, 25, "medium"},
		{"low", model.EmergingRisk{Title: "c", ImpactScore: 2, LikelihoodScore: 3}, 6, "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := Heatmap(&model.CyberRiskAnalysis{EmergingRisks: []model.EmergingRisk{tt.risk}})
			require.Len(t, points, 1)
			assert.Equal(t, tt.risk.Title, points[0].Title)
			assert.Equal(t, tt.risk.ImpactScore, points[0].X)
			assert.Equal(t, tt.risk.LikelihoodScore, points[0].Y)
			assert.Equal(t, tt.value, points[0].Value)
			assert.Equal(t, tt.level, points[0].Level())
		})
	}
	assert.Nil(t, Heatmap(nil))
}

func TestBuild_AllArtifacts(t *testing.T) {
	s := newStore(t)
	_, err := s.WriteJSON(artifact.StageRiskAnalysis, model.CyberRiskAnalysis{
		BoardSummary: "Ransomware dominates.",
		EmergingRisks: []model.EmergingRisk{
			{Title: "Supply chain compromise", Description: "d", ImpactScore: 8, LikelihoodScore: 7},
		},
	})
	require.NoError(t, err)
	_, err = s.WriteJSON(artifact.StageTimeSeries, model.TimeSeriesAnalysis{
		MonthlyTrends: []model.MonthlyTrend{
			{Month: "2026-01", TotalEvents: 3, TopThreat: "Phishing", Categories: []model.EventCategory{{Category: model.CategoryPhishing, Count: 3}}},
			{Month: "2026-02", TotalEvents: 5, TopThreat: "Ransomware", Categories: []model.EventCategory{{Category: model.CategoryRansomware, Count: 5}}},
		},
		OverallTrend:         model.TrendIncreasing,
		MostVolatileCategory: "Ransomware",
		TimeSeriesSummary:    "Activity grew.",
	})
	require.NoError(t, err)
	_, err = s.WriteText(artifact.StageCommentary, "Line one.\n\nLine two.")
	require.NoError(t, err)
	_, err = s.WriteJSON(artifact.StageActionPlan, model.BoardActionPlan{ActionPoints: []model.ActionPoint{
		{Priority: 3, Description: "third", SuggestedOwner: "CFO"},
		{Priority: 1, Description: "first", SuggestedOwner: "CISO"},
		{Priority: 2, Description: "second", SuggestedOwner: "CIO"},
	}})
	require.NoError(t, err)
	_, err = s.WriteProjectPlan(1, model.ProjectPlan{Title: "Harden suppliers", Objective: "o", Stakeholders: []string{"CISO", "Procurement"}})
	require.NoError(t, err)

	a := NewAssembler(s).WithClock(func() time.Time { return now })
	d := a.Load()
	require.NotNil(t, d.Analysis)
	require.NotNil(t, d.TimeSeries)
	assert.Equal(t, s.RunID(), d.RunID)
	require.Len(t, d.ActionPoints, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{d.ActionPoints[0].Priority, d.ActionPoints[1].Priority, d.ActionPoints[2].Priority})
	assert.Equal(t, []string{"2026-01", "2026-02"}, d.Chart.Labels)
	assert.Equal(t, []int{3, 5}, d.Chart.Total.Data)

	path, err := a.Build()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "dashboard_20260301_093000.html"), path)
	latest, ok := s.Latest(artifact.StageDashboard)
	require.True(t, ok)
	assert.Equal(t, path, latest)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "Supply chain compromise")
	assert.Contains(t, page, `class="level-high"`)
	assert.Contains(t, page, "Activity grew.")
	assert.Contains(t, page, "Line two.")
	assert.Contains(t, page, "Harden suppliers")
	assert.Contains(t, page, "CISO, Procurement")
	assert.Contains(t, page, `"labels":["2026-01","2026-02"]`)
	assert.Less(t, bytes.Index(html, []byte("first")), bytes.Index(html, []byte("second")))
	assert.Less(t, bytes.Index(html, []byte("second")), bytes.Index(html, []byte("third")))
}

func TestBuild_NoArtifacts(t *testing.T) {
	s := artifact.NewStore(t.TempDir()).WithClock(func() time.Time { return now })
	a := NewAssembler(s).WithClock(func() time.Time { return now })

	d := a.Load()
	assert.Nil(t, d.Analysis)
	assert.Nil(t, d.TimeSeries)
	assert.Empty(t, d.Commentary)
	assert.Empty(t, d.ActionPoints)
	assert.Empty(t, d.ProjectPlans)

	path, err := a.Build()
	require.NoError(t, err)
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "No data for this section.")
	assert.NotContains(t, string(html), "new Chart(")
}

func TestLoad_SkipsUnreadableArtifacts(t *testing.T) {
	s := newStore(t)
	broken := filepath.Join(s.Dir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o644))
	require.NoError(t, s.Record(artifact.StageRiskAnalysis, broken))
	require.NoError(t, s.Record(artifact.StageCommentary, filepath.Join(s.Dir(), "missing.txt")))
	_, err := s.WriteJSON(artifact.StageActionPlan, model.BoardActionPlan{ActionPoints: []model.ActionPoint{{Priority: 1, Description: "only"}}})
	require.NoError(t, err)

	d := NewAssembler(s).Load()
	assert.Nil(t, d.Analysis)
	assert.Empty(t, d.Commentary)
	require.Len(t, d.ActionPoints, 1)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d))
	assert.Contains(t, buf.String(), "only")
}

func TestRender_EscapesContent(t *testing.T) {
	d := &Dashboard{
		GeneratedAt: now,
		Analysis:    &model.CyberRiskAnalysis{BoardSummary: "<script>alert(1)</script>"},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}
