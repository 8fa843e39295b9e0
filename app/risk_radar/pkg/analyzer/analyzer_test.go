package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

type fakeLLM struct {
	json   map[string]string
	text   string
	err    error
	users  map[string]string
	system map[string]string
}

func newFake() *fakeLLM {
	return &fakeLLM{json: map[string]string{}, users: map[string]string{}, system: map[string]string{}}
}

func (f *fakeLLM) GenerateJSON(_ context.Context, name, system, user string, out any) error {
	f.users[name], f.system[name] = user, system
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.json[name]), out)
}

func (f *fakeLLM) GenerateText(_ context.Context, name, system, user string) (string, error) {
	f.users[name], f.system[name] = user, system
	return f.text, f.err
}

const threeRisks = `{"emerging_risks":[
	{"risk_title":"AI – driven phishing","description":"Deepfake “voice” lures…","impact_score":8,"likelihood_score":7},
	{"risk_title":"Supply chain","description":"d","impact_score":9,"likelihood_score":5},
	{"risk_title":"Cloud misconfig","description":"d","impact_score":6,"likelihood_score":8}
],"board_summary":"Risk is rising — act now."}`

func TestAnalyzeRisks(t *testing.T) {
	llm := newFake()
	llm.json["risk analysis"] = threeRisks

	out, err := New(llm).AnalyzeRisks(context.Background(), []model.Article{{Title: "Hospital ransomware", PublishedDate: "2026-01-02T00:00:00Z"}})
	require.NoError(t, err)
	require.Len(t, out.EmergingRisks, 3)
	assert.Equal(t, "AI - driven phishing", out.EmergingRisks[0].Title)
	assert.Equal(t, `Deepfake "voice" lures...`, out.EmergingRisks[0].Description)
	assert.Equal(t, "Risk is rising - act now.", out.BoardSummary)

	assert.Contains(t, llm.users["risk analysis"], "Hospital ransomware")
	assert.Contains(t, llm.system["risk analysis"], "Do not name specific companies or individuals")
}

func TestAnalyzeRisks_Invalid(t *testing.T) {
	tests := map[string]string{
		"too few risks":   `{"emerging_risks":[{"risk_title":"a","description":"d","impact_score":5,"likelihood_score":5}],"board_summary":"s"}`,
		"score too high":  `{"emerging_risks":[{"risk_title":"a","description":"d","impact_score":11,"likelihood_score":5},{"risk_title":"b","description":"d","impact_score":5,"likelihood_score":5},{"risk_title":"c","description":"d","impact_score":5,"likelihood_score":5}],"board_summary":"s"}`,
		"non ascii title": `{"emerging_risks":[{"risk_title":"勒索","description":"d","impact_score":5,"likelihood_score":5},{"risk_title":"b","description":"d","impact_score":5,"likelihood_score":5},{"risk_title":"c","description":"d","impact_score":5,"likelihood_score":5}],"board_summary":"s"}`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			llm := newFake()
			llm.json["risk analysis"] = reply
			_, err := New(llm).AnalyzeRisks(context.Background(), nil)
			assert.ErrorIs(t, err, model.ErrInvalid)
		})
	}

	llm := newFake()
	llm.err = errors.New("risk analysis failed after 3 attempts")
	_, err := New(llm).AnalyzeRisks(context.Background(), nil)
	assert.Error(t, err)
}

func TestPlanActions(t *testing.T) {
	llm := newFake()
	llm.json["action plan"] = `{"action_points":[
		{"priority":2,"description":"Fund – training.","suggested_owner":"CHRO"},
		{"priority":1,"description":"Adopt zero trust.","suggested_owner":"CISO"},
		{"priority":3,"description":"Review insurance.","suggested_owner":"CFO"}]}`

	plan, err := New(llm).PlanActions(context.Background(), &model.CyberRiskAnalysis{BoardSummary: "summary text"})
	require.NoError(t, err)
	assert.Equal(t, "Fund - training.", plan.ActionPoints[0].Description)
	assert.Contains(t, llm.users["action plan"], "summary text")

	llm.json["action plan"] = `{"action_points":[{"priority":1,"description":"Only one.","suggested_owner":"CISO"}]}`
	_, err = New(llm).PlanActions(context.Background(), &model.CyberRiskAnalysis{})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestPlanProject(t *testing.T) {
	llm := newFake()
	llm.json["project plan (priority 2)"] = `{"title":"Zero Trust™ rollout","objective":"Reduce lateral movement","stakeholders":["CISO","IT – Ops"],"timeline_phases":["Q1"],"kpis":["MFA 100%"],"risks":["Budget"]}`

	plan, err := New(llm).PlanProject(context.Background(), model.ActionPoint{Priority: 2, Description: "Adopt zero trust."})
	require.NoError(t, err)
	assert.Equal(t, "Zero Trust(TM) rollout", plan.Title)
	assert.Equal(t, []string{"CISO", "IT - Ops"}, plan.Stakeholders)
	assert.Contains(t, llm.users["project plan (priority 2)"], "Adopt zero trust.")

	llm.json["project plan (priority 2)"] = `{"title":"","objective":""}`
	_, err = New(llm).PlanProject(context.Background(), model.ActionPoint{Priority: 2})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestCommentary(t *testing.T) {
	llm := newFake()
	llm.text = "Executive Summary\n\nThreats rose – notably…"

	text, err := New(llm).Commentary(context.Background(), &model.TimeSeriesAnalysis{OverallTrend: "increasing"}, 10)
	require.NoError(t, err)
	assert.Equal(t, "Executive Summary\n\nThreats rose - notably...", text)
	assert.Contains(t, llm.system["time series commentary"], "at most 10 per month")
	assert.Contains(t, llm.users["time series commentary"], `"overall_trend": "increasing"`)
}

func TestSuggestCategories(t *testing.T) {
	llm := newFake()
	llm.json["category suggestions"] = `{"suggestions":[{"suggested_category_name":"Regulation","rationale":"Policy news","article_titles":["New GDPR fines"]}]}`

	out, err := New(llm).SuggestCategories(context.Background(), []model.Article{{Title: "New GDPR fines", Description: "EU regulators"}})
	require.NoError(t, err)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "Regulation", out.Suggestions[0].Name)
	assert.Contains(t, llm.users["category suggestions"], "EU regulators")
}
