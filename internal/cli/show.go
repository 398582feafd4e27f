package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/schema"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full record of a pipeline run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := pipeline.DefaultStore()
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}

		outcome, err := store.Get(args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			record := struct {
				*pipeline.Outcome
				Results    map[string]schema.Result   `json:"results"`
				Transcript []pipeline.TranscriptEntry `json:"transcript"`
			}{Outcome: outcome, Results: outcome.State.Results, Transcript: outcome.State.Transcript}
			data, _ := json.MarshalIndent(record, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		printOutcome(cmd.OutOrStdout(), outcome)

		transcript, _ := cmd.Flags().GetBool("transcript")
		if transcript {
			fmt.Fprintln(cmd.OutOrStdout())
			for _, e := range outcome.State.Transcript {
				content := e.Content
				if len(content) > 200 {
					content = content[:197] + "..."
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s/%s] %s\n", e.Stage, e.Role, content)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().String("format", "text", "Output format: text or json")
	showCmd.Flags().Bool("transcript", false, "Include the full stage transcript")
}
