package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lucasnoah/patchfactory/internal/config"
	"github.com/lucasnoah/patchfactory/internal/db"
	"github.com/lucasnoah/patchfactory/internal/llm"
	"github.com/lucasnoah/patchfactory/internal/orchestrator"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/stage"
	"github.com/lucasnoah/patchfactory/internal/tools"
	"github.com/lucasnoah/patchfactory/internal/trace"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [trace-file]",
	Short: "Run the repair pipeline on an error trace",
	Long: `Run the full root-cause / fix-plan / patch pipeline on an error trace.

The trace is read from the given file, or from stdin when no file is given.
The generated patch is written to the configured patch directory as
fixed_<name>; the original file is never modified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readTrace(cmd, args)
		if err != nil {
			return err
		}

		report, err := trace.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse trace: %w", err)
		}

		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()
		orch.SetProgress(cmd.ErrOrStderr())

		outcome, err := orch.Run(cmd.Context(), report)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(outcome, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			printOutcome(cmd.OutOrStdout(), outcome)
		}

		if !outcome.Succeeded {
			return fmt.Errorf("pipeline failed at %s stage: %s", outcome.FailedStage, outcome.Reason)
		}
		return nil
	},
}

func readTrace(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read trace file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read trace from stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no trace provided: pass a file or pipe one on stdin")
	}
	return string(data), nil
}

func printOutcome(w io.Writer, o *pipeline.Outcome) {
	if o.Succeeded {
		fmt.Fprintf(w, "Run %s succeeded.\n", o.RunID)
	} else {
		fmt.Fprintf(w, "Run %s failed at %s stage: %s\n", o.RunID, o.FailedStage, o.Reason)
	}

	if o.State == nil {
		return
	}
	if rca, ok := o.State.Result(pipeline.StageRootCause); ok {
		fmt.Fprintf(w, "  root cause:  %s\n", rca.String("root_cause"))
		fmt.Fprintf(w, "  affected:    %s:%d\n", rca.String("affected_file"), rca.Int("affected_line"))
	}
	if fix, ok := o.State.Result(pipeline.StageFixPlan); ok {
		fmt.Fprintf(w, "  fix summary: %s\n", fix.String("fix_summary"))
	}
	if patch, ok := o.State.Result(pipeline.StagePatch); ok {
		fmt.Fprintf(w, "  patch file:  %s\n", patch.String("patch_file"))
	}
}

// newOrchestrator wires a fully configured orchestrator from the resolved
// config. The returned cleanup closes the database.
func newOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config error: %s\n", e)
		}
		return nil, nil, fmt.Errorf("config has %d validation error(s)", len(errs))
	}

	service, err := llm.NewClient(cfg.Inference)
	if err != nil {
		return nil, nil, err
	}

	store, err := pipeline.DefaultStore()
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}

	database, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	facade := tools.NewFacade(cfg.CodebaseRoot, cfg.PatchDir)
	runner := stage.NewRunner(service, facade)
	orch := orchestrator.New(runner, store, database, cfg.Stages)
	return orch, func() { database.Close() }, nil
}

func openDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("db path: %w", err)
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

func init() {
	runCmd.Flags().String("format", "text", "Output format: text or json")
}
