package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "patchfactory",
	Short: "patchfactory — an automated defect-repair pipeline",
	Long: `patchfactory takes a runtime error trace and drives it through a three-stage
LLM pipeline: root-cause analysis, fix planning, and patch generation.

All state is stored in ~/.patchfactory/ (SQLite for the run index and events,
JSON for full run artifacts). Generated patches are written as fixed_<name>
copies of the affected file, never applied in place.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}
