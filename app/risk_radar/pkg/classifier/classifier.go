package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// Generator 结构化输出的 LLM 调用
type Generator interface {
	GenerateJSON(ctx context.Context, name, system, user string, out any) error
}

// Classifier 批量给文章打分类与事件标记
type Classifier struct {
	llm Generator
}

// New 创建分类器
func New(llm Generator) *Classifier {
	return &Classifier{llm: llm}
}

type inputArticle struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Classification 单篇文章的分类结果，按请求内 id 对应
type Classification struct {
	ID           int            `json:"id"`
	Category     model.Category `json:"category"`
	IsCyberEvent bool           `json:"is_cyber_event"`
}

// Response 模型返回的整批结果
type Response struct {
	Classifications []Classification `json:"classifications"`

	expected int
}

// Validate 要求 [0, expected) 内每个 id 都有结果；越界 id 不算违规
func (r *Response) Validate() error {
	covered := make(map[int]bool, r.expected)
	for _, c := range r.Classifications {
		if c.ID >= 0 && c.ID < r.expected {
			covered[c.ID] = true
		}
	}
	if len(covered) != r.expected {
		return fmt.Errorf("%w: classified %d of %d articles", model.ErrInvalid, len(covered), r.expected)
	}
	return nil
}

func systemPrompt() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return `You are a cybersecurity news analyst. Classify every article in the input.

For each article return its "id" unchanged, a "category" chosen from exactly this list:
` + strings.Join(names, ", ") + `
and "is_cyber_event": true only if the article reports a specific, recent cybersecurity incident
affecting a named organization or entity. General news, educational content, policy discussion,
product announcements and opinion pieces are false.

Respond with JSON only, no markdown:
{"classifications": [{"id": 0, "category": "Ransomware", "is_cyber_event": true}]}`
}

// Classify 返回带分类的新列表；任何失败都整批回退为 Other/false，不向上抛错
func (c *Classifier) Classify(ctx context.Context, articles []model.Article) []model.Article {
	out := make([]model.Article, len(articles))
	copy(out, articles)
	if len(articles) == 0 {
		return out
	}

	inputs := make([]inputArticle, len(articles))
	for i, a := range articles {
		inputs[i] = inputArticle{ID: i, Title: a.Title, Description: a.Description}
	}
	payload, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		logger.Log.Errorf("分类请求序列化失败，整批回退: %v", err)
		return fallback(out)
	}

	resp := &Response{expected: len(articles)}
	if err := c.llm.GenerateJSON(ctx, "classify", systemPrompt(), "Articles to classify:\n"+string(payload), resp); err != nil {
		logger.Log.Errorf("文章分类失败，整批回退为 %s: %v", model.CategoryOther, err)
		return fallback(out)
	}

	for _, r := range resp.Classifications {
		if r.ID < 0 || r.ID >= len(out) {
			logger.Log.Warnf("忽略越界的分类 id: %d", r.ID)
			continue
		}
		category := r.Category
		if category == "" {
			category = model.CategoryOther
		}
		flag := r.IsCyberEvent
		out[r.ID].Category = category
		out[r.ID].IsCyberEvent = &flag
	}

	events := 0
	for _, a := range out {
		if a.CyberEvent() {
			events++
		}
	}
	logger.Log.Infof("分类完成: %d 篇文章，其中 %d 篇为具体安全事件", len(out), events)
	return out
}

func fallback(articles []model.Article) []model.Article {
	for i := range articles {
		f := false
		articles[i].Category = model.CategoryOther
		articles[i].IsCyberEvent = &f
	}
	return articles
}
