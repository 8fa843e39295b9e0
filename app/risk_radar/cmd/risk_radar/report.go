package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/artifact"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the dashboard from the latest recorded artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := report.NewAssembler(artifact.NewStore(cfg.Output.Dir)).Build()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
