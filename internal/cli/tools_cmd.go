package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/patchfactory/internal/tools"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and exercise the pipeline tools directly",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools available to pipeline stages",
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := tools.Specs(
			tools.ReadFile,
			tools.ProjectDirectory,
			tools.CheckDependency,
			tools.CreatePatch,
		)
		if err != nil {
			return err
		}
		for _, s := range specs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", s.Name, s.Description)
		}
		return nil
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool> [json-args]",
	Short: "Invoke a tool by name with JSON arguments",
	Long: `Invoke a tool against the configured codebase root exactly as a pipeline
stage would, and print the result payload. Useful for debugging tool behavior
without burning inference calls.

Example:
  patchfactory tools call read_file '{"file_path": "services/user.py"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rawArgs := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &rawArgs); err != nil {
				return fmt.Errorf("parse arguments: %w", err)
			}
		}

		facade := tools.NewFacade(cfg.CodebaseRoot, cfg.PatchDir)
		result := facade.Dispatch(args[0], rawArgs)
		fmt.Fprintln(cmd.OutOrStdout(), result.Content())
		if !result.Success {
			return fmt.Errorf("tool %s failed", args[0])
		}
		return nil
	},
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
}
