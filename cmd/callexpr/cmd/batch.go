package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/internal/watch"
)

var (
	batchFormat string
	batchRecord bool
	batchWatch  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file|->",
	Short: "Parse a file with one expression per line",
	Long: `Parse every line of a file as a separate expression. Blank lines and
lines starting with # are skipped. Use - to read from stdin. Failing lines
are reported on stderr and do not stop the batch; the exit status is 1 when
any line failed. With --watch the file is parsed again on every save.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", string(render.FormatText), "output format: "+formatList())
	batchCmd.Flags().BoolVar(&batchRecord, "record", false, "record each parse in the history store")
	batchCmd.Flags().BoolVarP(&batchWatch, "watch", "w", false, "re-run whenever the file changes")
	rootCmd.AddCommand(batchCmd)
}

// batchLine is one expression together with its 1-based line number
type batchLine struct {
	Line int
	Expr string
}

// readExpressions collects the non-blank, non-comment lines of r. Lines
// are not length-limited here; the service rejects an overlong line on its
// own with INPUT_TOO_LONG.
func readExpressions(r io.Reader) ([]batchLine, error) {
	reader := bufio.NewReader(r)

	var lines []batchLine
	n := 0
	for {
		text, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, mdwerror.Wrap(err, fmt.Sprintf("failed to read line %d", n+1)).
				WithCode(mdwerror.CodeInvalidInput)
		}
		if text == "" && err == io.EOF {
			return lines, nil
		}

		n++
		text = strings.TrimRight(text, "\r\n")
		if trimmed := strings.TrimSpace(text); trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			lines = append(lines, batchLine{Line: n, Expr: text})
		}
		if err == io.EOF {
			return lines, nil
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(batchFormat)
	if err != nil {
		return err
	}
	if batchWatch && args[0] == "-" {
		return mdwerror.New("--watch needs a file, not stdin").WithCode(mdwerror.CodeInvalidInput)
	}

	history, err := openHistory(batchRecord)
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
	renderer := render.New(format, useColor())

	if !batchWatch {
		failed, err := runBatchOnce(cmd, args[0], svc, renderer)
		if err != nil {
			return err
		}
		if failed > 0 {
			return errReported
		}
		return nil
	}

	w, err := watch.New(args[0], watch.DefaultDebounce, appLogger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rerun := func() {
		if _, err := runBatchOnce(cmd, args[0], svc, renderer); err != nil {
			printError(err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", w.Path())
	}
	rerun()
	return w.Run(ctx, func() {
		fmt.Fprintf(cmd.OutOrStdout(), "\n=== %s ===\n", time.Now().Format("15:04:05"))
		rerun()
	})
}

// runBatchOnce parses every expression of the file at path and returns the
// number of failed lines
func runBatchOnce(cmd *cobra.Command, path string, svc *service.Service, renderer *render.Renderer) (int, error) {
	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return 0, mdwerror.Wrap(err, "failed to open batch file").WithCode(mdwerror.CodeNotFound)
		}
		defer f.Close()
		in = f
	}
	lines, err := readExpressions(in)
	if err != nil {
		return 0, err
	}

	ctx := service.WithSource(context.Background(), store.SourceCLI)
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	chunk := appConfig.Server.MaxBatchSize
	if chunk <= 0 {
		chunk = service.DefaultMaxBatchSize
	}
	failed := 0
	for start := 0; start < len(lines); start += chunk {
		end := start + chunk
		if end > len(lines) {
			end = len(lines)
		}
		exprs := make([]string, 0, end-start)
		for _, l := range lines[start:end] {
			exprs = append(exprs, l.Expr)
		}

		items, err := svc.ParseBatch(ctx, exprs)
		if err != nil {
			return failed, err
		}
		for _, item := range items {
			line := lines[start+item.Index].Line
			if item.Err != nil {
				failed++
				fmt.Fprintf(errOut, "line %d: ", line)
				_ = renderer.Error(errOut, item.Expression, item.Err)
				continue
			}
			if renderer.Format() == render.FormatText {
				fmt.Fprintf(out, "%d\t", line)
			} else {
				fmt.Fprintf(out, "--- line %d\n", line)
			}
			if err := writeResult(ctx, svc, renderer, out, item.Result); err != nil {
				return failed, err
			}
		}
	}

	appLogger.Debug("Batch finished", "expressions", len(lines), "failed", failed)
	fmt.Fprintf(errOut, "%d parsed, %d failed\n", len(lines)-failed, failed)
	return failed, nil
}
