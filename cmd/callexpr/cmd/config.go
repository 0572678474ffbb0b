package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/pkg/core/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if appConfig.Source != "" {
			fmt.Fprintf(out, "# loaded from %s\n", appConfig.Source)
		} else {
			fmt.Fprintln(out, "# built-in defaults")
		}
		return appConfig.WriteTOML(out)
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the locations searched for a config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "$%s\n", config.EnvConfigPath)
		for _, p := range config.DefaultPaths() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathsCmd)
	rootCmd.AddCommand(configCmd)
}
