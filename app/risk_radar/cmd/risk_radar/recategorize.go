package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/analyzer"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/artifact"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var recategorizeCmd = &cobra.Command{
	Use:   "recategorize",
	Short: "Suggest new categories for articles classified as Other",
	RunE:  runRecategorize,
}

func init() {
	rootCmd.AddCommand(recategorizeCmd)
}

func runRecategorize(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateLLM(); err != nil {
		return err
	}

	var articles []model.Article
	path, err := artifact.NewStore(cfg.Output.Dir).LoadLatest(artifact.StageClassified, &articles)
	if err != nil {
		return err
	}
	others := otherArticles(articles)
	logger.Log.Infof("从 %s 读取 %d 篇文章，其中 Other 类 %d 篇", path, len(articles), len(others))

	out := cmd.OutOrStdout()
	if len(others) == 0 {
		fmt.Fprintln(out, "No articles are categorised as Other")
		return nil
	}

	client, err := llm.NewOpenAI(cmd.Context(), cfg.LLM)
	if err != nil {
		return fmt.Errorf("无法初始化 LLM: %w", err)
	}
	suggestions, err := analyzer.New(client).SuggestCategories(cmd.Context(), others)
	if err != nil {
		return fmt.Errorf("category suggestions: %w", err)
	}
	printSuggestions(out, suggestions)
	return nil
}

func otherArticles(articles []model.Article) []model.Article {
	var others []model.Article
	for _, a := range articles {
		if a.Category == model.CategoryOther {
			others = append(others, a)
		}
	}
	return others
}

func printSuggestions(out io.Writer, s *model.CategorySuggestions) {
	if len(s.Suggestions) == 0 {
		fmt.Fprintln(out, "No new categories suggested")
		return
	}
	for i, sg := range s.Suggestions {
		fmt.Fprintf(out, "%d. %s\n", i+1, sg.Name)
		fmt.Fprintf(out, "   Rationale: %s\n", sg.Rationale)
		if len(sg.ArticleTitles) > 0 {
			fmt.Fprintf(out, "   Articles:\n     - %s\n", strings.Join(sg.ArticleTitles, "\n     - "))
		}
	}
}
