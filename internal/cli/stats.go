package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/patchfactory/internal/analytics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics over recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		since, _ := cmd.Flags().GetString("since")

		summary, err := analytics.QuerySummary(database, since)
		if err != nil {
			return err
		}
		durations, err := analytics.QueryStageDurations(database, since)
		if err != nil {
			return err
		}
		failures, err := analytics.QueryStageFailures(database, since)
		if err != nil {
			return err
		}
		throughput, err := analytics.QueryThroughput(database, since)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			payload := map[string]any{
				"summary":         summary,
				"stage_durations": durations,
				"stage_failures":  failures,
				"throughput":      throughput,
			}
			data, _ := json.MarshalIndent(payload, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Runs: %d total, %d succeeded, %d failed, %d running (%.1f%% success)\n",
			summary.Total, summary.Succeeded, summary.Failed, summary.Running, summary.SuccessRate)

		if len(durations) > 0 {
			fmt.Fprintf(w, "\nStage durations (seconds):\n")
			fmt.Fprintf(w, "  %-12s %-6s %-8s %-8s %s\n", "STAGE", "N", "AVG", "P50", "P95")
			for _, sd := range durations {
				fmt.Fprintf(w, "  %-12s %-6d %-8.1f %-8.1f %.1f\n", sd.Stage, sd.Count, sd.Avg, sd.P50, sd.P95)
			}
		}

		if len(failures) > 0 {
			fmt.Fprintf(w, "\nFailures by stage:\n")
			for _, sf := range failures {
				fmt.Fprintf(w, "  %-12s %d (%.1f%%)", sf.Stage, sf.Count, sf.ShareOfFails)
				if sf.CommonReason != "" {
					reason := sf.CommonReason
					if len(reason) > 60 {
						reason = reason[:57] + "..."
					}
					fmt.Fprintf(w, "  %s", reason)
				}
				fmt.Fprintln(w)
			}
		}

		if len(throughput) > 0 {
			fmt.Fprintf(w, "\nThroughput by day:\n")
			for _, tp := range throughput {
				fmt.Fprintf(w, "  %s  started=%d succeeded=%d failed=%d\n", tp.Period, tp.Started, tp.Succeeded, tp.Failed)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("since", "", "Only include runs started on or after this date (YYYY-MM-DD)")
	statsCmd.Flags().String("format", "text", "Output format: text or json")
}
