package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// fakeLLM 把预置 JSON 解析进 out，并像真实客户端一样执行校验
type fakeLLM struct {
	reply  string
	err    error
	user   string
	system string
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _, system, user string, out any) error {
	f.system, f.user = system, user
	if f.err != nil {
		return f.err
	}
	if err := json.Unmarshal([]byte(f.reply), out); err != nil {
		return err
	}
	if v, ok := out.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

func articles() []model.Article {
	return []model.Article{
		{Title: "Same title", Description: "hospital ransomware"},
		{Title: "Same title", Description: "phishing awareness guide"},
		{Title: "Breach at retailer", Description: "records exposed"},
	}
}

func TestClassify_MapsByID(t *testing.T) {
	llm := &fakeLLM{reply: `{"classifications":[
		{"id":2,"category":"Data Breach","is_cyber_event":true},
		{"id":0,"category":"ransomware","is_cyber_event":true},
		{"id":1,"category":"Security Awareness","is_cyber_event":false},
		{"id":9,"category":"Malware","is_cyber_event":true}
	]}`}

	in := articles()
	out := New(llm).Classify(context.Background(), in)
	require.Len(t, out, 3)

	assert.Equal(t, model.CategoryRansomware, out[0].Category)
	assert.True(t, out[0].CyberEvent())
	// 未知分类在反序列化时收敛为 Other
	assert.Equal(t, model.CategoryOther, out[1].Category)
	assert.False(t, out[1].CyberEvent())
	require.NotNil(t, out[1].IsCyberEvent)
	assert.Equal(t, model.CategoryDataBreach, out[2].Category)

	// 入参不被修改
	assert.Empty(t, in[0].Category)
	assert.Nil(t, in[0].IsCyberEvent)

	assert.Contains(t, llm.system, "Denial of Service")
	assert.Contains(t, llm.user, `"id": 2`)
}

func TestClassify_FallbackOnFailure(t *testing.T) {
	tests := map[string]*fakeLLM{
		"provider error":   {err: errors.New("classify failed after 3 attempts: timeout")},
		"malformed output": {reply: `{"classifications": "nope"}`},
		"incomplete ids":   {reply: `{"classifications":[{"id":0,"category":"Malware","is_cyber_event":true}]}`},
	}

	for name, llm := range tests {
		t.Run(name, func(t *testing.T) {
			out := New(llm).Classify(context.Background(), articles())
			require.Len(t, out, 3)
			for _, a := range out {
				assert.Equal(t, model.CategoryOther, a.Category)
				require.NotNil(t, a.IsCyberEvent)
				assert.False(t, *a.IsCyberEvent)
			}
		})
	}
}

func TestClassify_Empty(t *testing.T) {
	llm := &fakeLLM{err: errors.New("should not be called")}
	assert.Empty(t, New(llm).Classify(context.Background(), nil))
	assert.Empty(t, llm.user)
}
