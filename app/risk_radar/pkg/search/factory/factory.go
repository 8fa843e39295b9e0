package factory

import (
	"fmt"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/googlecse"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/searxng"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" {
		// 默认回退逻辑：优先 google，其次 tavily
		switch {
		case cfg.Search.Google.APIKey != "" && cfg.Search.Google.CX != "":
			provider = config.ProviderGoogle
		case cfg.Search.Tavily.APIKey != "":
			provider = config.ProviderTavily
		default:
			return nil, fmt.Errorf("search provider not configured")
		}
	}

	switch provider {
	case config.ProviderGoogle:
		g := cfg.Search.Google
		if g.APIKey == "" || g.CX == "" {
			return nil, fmt.Errorf("google custom search api key or cx is missing")
		}
		return googlecse.NewClient(g.APIKey, g.CX), nil

	case config.ProviderTavily:
		apiKey := cfg.Search.Tavily.APIKey
		if apiKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(apiKey), nil

	case config.ProviderSearXNG:
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
