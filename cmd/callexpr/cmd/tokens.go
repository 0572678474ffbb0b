package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/internal/render"
)

var tokensFormat string

var tokensCmd = &cobra.Command{
	Use:   "tokens [expression]",
	Short: "Print the token stream of an expression",
	Long: `Tokenize a call expression without building a tree. Quoted strings are
shown with their surrounding quotes. Without an argument the expression is
read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokens,
}

func init() {
	tokensCmd.Flags().StringVarP(&tokensFormat, "format", "f", string(render.FormatTokens), "output format: tokens (table), text, json, yaml")
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(tokensFormat)
	if err != nil {
		return err
	}
	expr, err := expressionArg(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	svc, err := newService(nil)
	if err != nil {
		return err
	}

	renderer := render.New(format, useColor())
	tokens, err := svc.Tokenize(context.Background(), expr)
	if err != nil {
		if isParseError(err) {
			_ = renderer.Error(cmd.ErrOrStderr(), expr, err)
			return errReported
		}
		return err
	}
	return renderer.Tokens(cmd.OutOrStdout(), tokens)
}
