package cmd

import (
	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/tui/repl"
	"github.com/msto63/callexpr/pkg/core/logging"
)

var (
	replFormat string
	replRecord bool
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive parser",
	Long: `Start an interactive session. Every line is parsed and rendered.

Keys:
  Enter      parse the line
  Up/Down    input history
  Ctrl+L     clear the transcript
  Esc/Ctrl+C quit

Commands:
  :format <text|tree|json|yaml|tokens>
  :clear  :help  :quit`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func init() {
	replCmd.Flags().StringVarP(&replFormat, "format", "f", string(render.FormatTree), "initial output format")
	replCmd.Flags().BoolVar(&replRecord, "record", false, "record parses in the history store")
	rootCmd.AddCommand(replCmd)
}

func runREPL(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(replFormat)
	if err != nil {
		return err
	}
	history, err := openHistory(replRecord)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}
	// The session owns the terminal; only errors may reach stderr.
	saved := appLogger
	appLogger = appLogger.WithLevel(logging.LevelError)
	defer func() { appLogger = saved }()

	svc, err := newService(history)
	if err != nil {
		return err
	}
	return repl.Run(svc, repl.Options{Format: format, Color: !noColor})
}
