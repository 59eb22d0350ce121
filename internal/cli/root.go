package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dshbd-cli/internal/format"
	"dshbd-cli/internal/logging"
	"dshbd-cli/internal/store"
)

type App struct {
	ConfigDir string
	Backend   string
	APIURL    string
	Format    string
	Pretty    bool
	Debounce  time.Duration
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "dshbd",
		Short:        "Kanban board CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  dshbd

  # Scriptable commands
  dshbd board show --sort priority:desc
  dshbd tasks create "Write release notes" --status to-do

  # Direct task lookup (shortcut for: dshbd tasks show 42)
  dshbd task-42
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		store.LoadEnv()
		if app.ConfigDir != "" {
			if err := os.Setenv("DSHBD_CONFIG_DIR", app.ConfigDir); err != nil {
				return err
			}
		}
		cfg, err := store.LoadConfig()
		if err != nil {
			return writeErr(cmd, err)
		}
		dir, err := store.ConfigDir()
		if err != nil {
			return writeErr(cmd, err)
		}
		logging.Init(logging.Options{Dir: dir, Level: cfg.LogLevel})
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("DSHBD_CONFIG_DIR", ""), "Directory holding config.json, the local database and logs (default ~/.dshbd)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", "", "Backend: local (sqlite) or remote (REST API); overrides config")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "Base URL of the REST API (remote backend)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DSHBD_FORMAT", "json"), "Output format (json|edn|yaml)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().DurationVar(&app.Debounce, "debounce", 0, "Quiet window for field edits (default from config, 300ms)")

	cmd.AddCommand(newBoardsCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newTagsCmd(app))
	cmd.AddCommand(newDoctorCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.Pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
