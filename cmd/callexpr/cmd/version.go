package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/pkg/core/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionFormat != "" && versionFormat != "text" {
			return writeStructured(cmd.OutOrStdout(), versionFormat, info)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "callexpr v%s\n", info.Version)
		fmt.Fprintf(out, "  API:        %s\n", info.API)
		fmt.Fprintf(out, "  Parser:     %s\n", version.ComponentVersion("parser"))
		fmt.Fprintf(out, "  Server:     %s\n", version.ComponentVersion("server"))
		fmt.Fprintf(out, "  Gateway:    %s\n", version.ComponentVersion("gateway"))
		fmt.Fprintf(out, "  Git Commit: %s\n", info.Commit)
		fmt.Fprintf(out, "  Build Date: %s\n", info.BuildDate)
		fmt.Fprintf(out, "  Go Version: %s\n", info.GoVersion)
		fmt.Fprintf(out, "  OS/Arch:    %s\n", info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "output format: text, json, yaml")
	rootCmd.AddCommand(versionCmd)
}
