package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
)

var (
	parseFormat string
	parseRecord bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [expression]",
	Short: "Parse an expression and print its command tree",
	Long: `Parse a call expression. Without an argument the expression is read
from stdin. The exit status is 1 when the expression is rejected.

Examples:
  callexpr parse 'Foo(1, "a,b", Bar(2, Baz()))'
  echo 'Sum(1, 2)' | callexpr parse --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", string(render.FormatTree), "output format: "+formatList())
	parseCmd.Flags().BoolVar(&parseRecord, "record", false, "record the parse in the history store")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(parseFormat)
	if err != nil {
		return err
	}
	expr, err := expressionArg(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	history, err := openHistory(parseRecord)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}
	svc, err := newService(history)
	if err != nil {
		return err
	}

	ctx := service.WithSource(context.Background(), store.SourceCLI)
	renderer := render.New(format, useColor())

	res, err := svc.Parse(ctx, expr)
	if err != nil {
		if isParseError(err) {
			_ = renderer.Error(cmd.ErrOrStderr(), expr, err)
			return errReported
		}
		return err
	}
	return writeResult(ctx, svc, renderer, cmd.OutOrStdout(), res)
}

// writeResult renders a parse result; the tokens format re-tokenizes the
// expression since results only carry the token count
func writeResult(ctx context.Context, svc *service.Service, renderer *render.Renderer, w io.Writer, res *service.Result) error {
	var tokens []token.Token
	if renderer.Format() == render.FormatTokens {
		var err error
		if tokens, err = svc.Tokenize(ctx, res.Expression); err != nil {
			return err
		}
	}
	return renderer.Command(w, res.Command, tokens)
}

// expressionArg returns the single argument or, without one, stdin with the
// trailing line break removed
func expressionArg(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if f, ok := stdin.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", mdwerror.New("no expression given and stdin is a terminal").
				WithCode(mdwerror.CodeInvalidInput)
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", mdwerror.Wrap(err, "failed to read stdin").WithCode(mdwerror.CodeInvalidInput)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// isParseError reports whether err rejects the input rather than signalling
// an operational failure
func isParseError(err error) bool {
	code := mdwerror.GetCode(err)
	return code.Category() == "syntax" || code == mdwerror.CodeInputTooLong || code == mdwerror.CodeDepthExceeded
}

func formatList() string {
	names := make([]string, 0, len(render.Formats()))
	for _, f := range render.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
