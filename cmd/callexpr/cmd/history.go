package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/internal/tui/historyview"
)

var (
	historyFormat   string
	historyStatus   string
	historyCode     string
	historySource   string
	historyContains string
	historySince    time.Duration
	historyLimit    int
	historyOffset   int
	historyOlder    time.Duration

	historyInterval   time.Duration
	historyWatchLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded parses",
	Long: `Inspect the parse history written by "parse --record", "batch --record"
and "serve --history". The store location is store.path in the config.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded parses, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded parse (full ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the history",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

var historyWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of parses as they are recorded",
	Long: `Open a terminal view that refreshes from the history store while
"callexpr serve --history" or other recording commands are running.`,
	Args: cobra.NoArgs,
	RunE: runHistoryWatch,
}

func init() {
	historyCmd.PersistentFlags().StringVarP(&historyFormat, "format", "f", "table", "output format: table, json, yaml")

	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "only ok or failed parses")
	historyListCmd.Flags().StringVar(&historyCode, "code", "", "only failures with this error code")
	historyListCmd.Flags().StringVar(&historySource, "source", "", "only entries from this source (cli, grpc, http, websocket, repl)")
	historyListCmd.Flags().StringVar(&historyContains, "contains", "", "only expressions containing this text")
	historyListCmd.Flags().DurationVar(&historySince, "since", 0, "only entries newer than this, e.g. 2h")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "entries to skip")

	historyPruneCmd.Flags().DurationVar(&historyOlder, "older-than", 0, "age limit (default: store.retention_days)")

	historyWatchCmd.Flags().DurationVar(&historyInterval, "interval", 2*time.Second, "refresh interval")
	historyWatchCmd.Flags().IntVarP(&historyWatchLimit, "limit", "n", 500, "entries kept on screen")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyStatsCmd, historyPruneCmd, historyWatchCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	filter := store.Filter{
		Status:    historyStatus,
		ErrorCode: historyCode,
		Source:    store.Source(historySource),
		Contains:  historyContains,
		Limit:     historyLimit,
		Offset:    historyOffset,
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	entries, err := history.List(context.Background(), filter)
	if err != nil {
		return err
	}
	if historyFormat != "table" {
		return writeStructured(cmd.OutOrStdout(), historyFormat, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no entries")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), entryTable(entries))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	entry, err := history.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if historyFormat != "table" {
		return writeStructured(out, historyFormat, entry)
	}

	fmt.Fprintf(out, "ID:         %s\n", entry.ID)
	fmt.Fprintf(out, "Time:       %s\n", entry.Timestamp.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Source:     %s\n", entry.Source)
	if entry.RequestID != "" {
		fmt.Fprintf(out, "Request ID: %s\n", entry.RequestID)
	}
	fmt.Fprintf(out, "Duration:   %s\n", entry.Duration)
	fmt.Fprintf(out, "Expression: %s\n", entry.Expression)
	if !entry.OK {
		fmt.Fprintf(out, "Error:      [%s] %s\n", entry.ErrorCode, entry.ErrorMessage)
		return nil
	}
	fmt.Fprintf(out, "Canonical:  %s\n", entry.Canonical)
	fmt.Fprintf(out, "Depth:      %d\n", entry.Depth)
	fmt.Fprintf(out, "Commands:   %d\n", entry.Commands)
	if entry.TreeJSON == "" {
		return nil
	}
	var tree ast.Command
	if err := json.Unmarshal([]byte(entry.TreeJSON), &tree); err != nil {
		return mdwerror.Wrap(err, "stored tree is corrupt").
			WithCode(mdwerror.CodeDatabaseError).
			WithDetail("id", entry.ID)
	}
	fmt.Fprintln(out)
	return render.New(render.FormatTree, useColor()).Command(out, &tree, nil)
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	stats, err := history.Stats(context.Background())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if historyFormat != "table" {
		return writeStructured(out, historyFormat, stats)
	}

	fmt.Fprintf(out, "Total:        %d\n", stats.Total)
	fmt.Fprintf(out, "Succeeded:    %d\n", stats.Succeeded)
	fmt.Fprintf(out, "Failed:       %d\n", stats.Failed)
	fmt.Fprintf(out, "Avg duration: %s\n", stats.AvgDuration)
	fmt.Fprintf(out, "Max depth:    %d\n", stats.MaxDepth)
	if !stats.First.IsZero() {
		fmt.Fprintf(out, "Range:        %s .. %s\n",
			stats.First.Local().Format(time.RFC3339), stats.Last.Local().Format(time.RFC3339))
	}
	if len(stats.ByErrorCode) > 0 {
		fmt.Fprintln(out, "\nBy error code:")
		fmt.Fprintln(out, countTable("Code", stats.ByErrorCode))
	}
	if len(stats.BySource) > 0 {
		fmt.Fprintln(out, "\nBy source:")
		fmt.Fprintln(out, countTable("Source", stats.BySource))
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	age := historyOlder
	if age <= 0 {
		age = time.Duration(appConfig.Store.RetentionDays) * 24 * time.Hour
	}
	if age <= 0 {
		return mdwerror.New("no age limit: pass --older-than or set store.retention_days").
			WithCode(mdwerror.CodeInvalidInput)
	}

	history, err := requireHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	n, err := history.Prune(context.Background(), age)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries older than %s\n", n, age)
	return nil
}

func runHistoryWatch(cmd *cobra.Command, args []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	return historyview.Run(historyview.Config{
		Source:   history,
		Interval: historyInterval,
		Limit:    historyWatchLimit,
	})
}

// entryTable renders entries as a bordered table
func entryTable(entries []*store.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = e.ErrorCode
		}
		rows = append(rows, []string{
			shortID(e.ID),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Source),
			status,
			truncate(e.Expression, 48),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Time", "Source", "Status", "Expression").
		Rows(rows...).
		String()
}

func countTable(label string, counts map[string]int64) string {
	rows := make([][]string, 0, len(counts))
	for k, v := range counts {
		rows = append(rows, []string{k, strconv.FormatInt(v, 10)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(label, "Count").
		Rows(rows...).
		String()
}

func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return mdwerror.Newf("unknown output format %q (table, json, yaml)", format).
			WithCode(mdwerror.CodeInvalidInput)
	}
}

// shortID returns the first 8 characters, enough for "history show"
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
