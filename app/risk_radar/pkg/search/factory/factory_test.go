package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/googlecse"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/searxng"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/tavily"
)

func TestNewSearcher(t *testing.T) {
	tests := map[string]struct {
		mutate  func(c *config.Config)
		want    any
		wantErr string
	}{
		"google explicit": {
			mutate: func(c *config.Config) { c.Search.Google = config.GoogleConfig{APIKey: "k", CX: "cx"} },
			want:   &googlecse.Client{},
		},
		"google missing cx": {
			mutate:  func(c *config.Config) { c.Search.Google.APIKey = "k" },
			wantErr: "cx is missing",
		},
		"fallback to tavily": {
			mutate: func(c *config.Config) {
				c.Search.Provider = ""
				c.Search.Tavily.APIKey = "tv"
			},
			want: &tavily.Client{},
		},
		"searxng": {
			mutate: func(c *config.Config) {
				c.Search.Provider = config.ProviderSearXNG
				c.Search.SearXNG.BaseURL = "http://localhost:8080"
			},
			want: &searxng.Client{},
		},
		"nothing configured": {
			mutate:  func(c *config.Config) { c.Search.Provider = "" },
			wantErr: "not configured",
		},
		"unknown": {
			mutate:  func(c *config.Config) { c.Search.Provider = "bing" },
			wantErr: "unknown search provider",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			s, err := NewSearcher(cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.want, s)
		})
	}
}
