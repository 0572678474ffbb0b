package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/foundation/callexpr/parser"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	mdwlog "github.com/msto63/callexpr/foundation/core/log"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/config"
	"github.com/msto63/callexpr/pkg/core/logging"
)

// Exit codes
const (
	ExitOK         = 0
	ExitParseError = 1 // at least one expression was rejected
	ExitFailure    = 2 // usage, configuration or runtime failure
)

var (
	cfgFile string
	verbose bool
	noColor bool

	appConfig *config.Config
	appLogger *logging.Logger
	logFile   *os.File
)

// errReported marks a failure whose details were already written
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "callexpr",
	Short: "callexpr - call expression parser toolkit",
	Long: `callexpr parses call expressions such as

  Foo(1, "a,b", Bar(2, Baz()))

into command trees and serves the parser over gRPC, HTTP and WebSocket.

Commands:
  parse    - parse an expression and print its tree
  tokens   - print the token stream of an expression
  batch    - parse a file with one expression per line
  repl     - interactive parser
  serve    - run the gRPC and HTTP servers
  remote   - call a running server
  history  - inspect recorded parses`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	closeLogFile()
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errReported):
		return ExitParseError
	default:
		printError(err)
		return ExitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CALLEXPR_CONFIG or ./configs/callexpr.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
}

// setup loads the configuration and installs the logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		appConfig, err = config.Load(cfgFile)
	} else {
		appConfig, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	level := appConfig.General.LogLevel
	if verbose {
		level = "debug"
	}
	logCfg := logging.LoggerConfig{
		ServiceName: appConfig.General.Name,
		Level:       level,
		Format:      appConfig.General.LogFormat,
		Output:      os.Stderr,
	}
	closeLogFile()
	if path := appConfig.General.LogFile; path != "" {
		if logFile, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			return mdwerror.Wrap(err, "failed to open log file").
				WithCode(mdwerror.CodeConfigError).
				WithDetail("path", path)
		}
		logCfg.AdditionalOutputs = []io.Writer{logFile}
	}

	base := logging.NewLogger(logCfg)
	mdwlog.SetDefault(base)
	appLogger = logging.Wrap(base)
	return nil
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// openHistory opens the history store when record is set or the store is
// enabled in the configuration. It returns nil without history.
func openHistory(record bool) (*store.SQLiteStore, error) {
	if !record && !appConfig.Store.Enabled {
		return nil, nil
	}
	return store.NewSQLiteStore(store.SQLiteConfig{Path: appConfig.Store.Path})
}

// requireHistory opens the history store for the history commands
func requireHistory() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(store.SQLiteConfig{Path: appConfig.Store.Path})
}

// newService builds the parse service from the configuration
func newService(history *store.SQLiteStore) (*service.Service, error) {
	cfg := service.Config{
		Parser: parser.Options{
			MaxInputLength: appConfig.Parser.MaxInputLength,
			MaxDepth:       appConfig.Parser.MaxDepth,
		},
		Logger:       appLogger,
		MaxBatchSize: appConfig.Server.MaxBatchSize,
		CacheSize:    appConfig.Parser.CacheSize,
		CacheTTL:     appConfig.Parser.CacheTTL.Duration,
	}
	if history != nil {
		cfg.Recorder = history
	}
	return service.NewService(cfg)
}

func useColor() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
