package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/cache"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

func TestOtherArticles(t *testing.T) {
	articles := []model.Article{
		{Title: "a", Category: model.CategoryPhishing},
		{Title: "b", Category: model.CategoryOther},
		{Title: "c"},
		{Title: "d", Category: model.CategoryOther},
	}
	others := otherArticles(articles)
	assert.Len(t, others, 2)
	assert.Equal(t, "b", others[0].Title)
	assert.Equal(t, "d", others[1].Title)
	assert.Empty(t, otherArticles(nil))
}

func TestPrintSuggestions(t *testing.T) {
	var buf bytes.Buffer
	printSuggestions(&buf, &model.CategorySuggestions{})
	assert.Equal(t, "No new categories suggested\n", buf.String())

	buf.Reset()
	printSuggestions(&buf, &model.CategorySuggestions{Suggestions: []model.CategorySuggestion{
		{Name: "Deepfake Fraud", Rationale: "voice cloning", ArticleTitles: []string{"x", "y"}},
	}})
	assert.Equal(t, "1. Deepfake Fraud\n   Rationale: voice cloning\n   Articles:\n     - x\n     - y\n", buf.String())
}

func TestPrintCacheInfo(t *testing.T) {
	var buf bytes.Buffer
	printCacheInfo(&buf, &cache.Report{Dir: "news_cache"})
	assert.Equal(t, "Cache directory news_cache does not exist\n", buf.String())

	cached := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	buf.Reset()
	printCacheInfo(&buf, &cache.Report{
		Exists:        true,
		Dir:           "news_cache",
		TotalArticles: 10,
		Oldest:        cached,
		Newest:        cached,
		Files: []cache.FileInfo{
			{File: "news_cache_2026-01.json", Month: "2026-01", CacheDate: cached, Articles: 10, AgeDays: 3},
			{File: "news_cache_2025-12.json", Err: "unexpected end of JSON input"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Files: 2, total articles: 10")
	assert.Contains(t, out, "2026-01   10 articles, cached 2026-02-01 (3 days old)")
	assert.Contains(t, out, "corrupted: unexpected end of JSON input")
}
