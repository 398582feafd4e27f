package cli

import (
	"fmt"

	"github.com/lucasnoah/patchfactory/internal/config"
	"github.com/lucasnoah/patchfactory/internal/llm"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	Long: `Start an HTTP API on localhost for submitting traces and browsing run
history. POST /api/runs accepts a trace and runs the full pipeline; the run
index and artifacts are shared with the CLI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				cmd.PrintErrf("config error: %s\n", e)
			}
			return fmt.Errorf("config has %d validation error(s)", len(errs))
		}

		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Web.Port = port
		}

		service, err := llm.NewClient(cfg.Inference)
		if err != nil {
			return err
		}

		store, err := pipeline.DefaultStore()
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		cmd.PrintErrf("listening on http://localhost:%d\n", cfg.Web.Port)
		return web.NewServer(cfg, service, store, database).Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
}
