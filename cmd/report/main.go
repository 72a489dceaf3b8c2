package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/PatchLens/go-stack-lens/lens"
)

func main() {
	log := lens.Logger()

	var reportJsonFile, reportChartsFile string
	root := &cobra.Command{
		Use:          "report",
		Short:        "Re-render the overview chart of a stacklens JSON report",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(reportJsonFile)
			if err != nil {
				return err
			}
			var metrics lens.BatchMetrics
			if err := json.Unmarshal(data, &metrics); err != nil {
				return err
			}

			charts, err := lens.RenderBatchChartsFromJson(metrics)
			if err != nil {
				return err
			} else if err = os.WriteFile(reportChartsFile, charts, 0644); err != nil {
				return err
			}
			log.Info().Str("path", reportChartsFile).Msg("report file wrote")
			return nil
		},
	}
	root.Flags().StringVar(&reportJsonFile, "json", "stackreport.json", "JSON report written by stacklens")
	root.Flags().StringVar(&reportChartsFile, "charts", "stackreport.png", "file to output the overview chart image")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg(lens.ErrorLogPrefix + "report")
		os.Exit(1)
	}
}
