package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/server"
	coreGrpc "github.com/msto63/callexpr/pkg/core/grpc"
)

var (
	remoteAddr    string
	remoteTimeout time.Duration
	remoteFormat  string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Call a running parse server over gRPC",
	Long: `Send expressions to a running "callexpr serve" instance.

Examples:
  callexpr remote parse 'Foo(1, Bar())'
  callexpr remote tokens --addr 10.0.0.5:9310 'Foo()'
  callexpr remote health`,
}

var remoteParseCmd = &cobra.Command{
	Use:   "parse [expression]",
	Short: "Parse an expression on the server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRemoteParse,
}

var remoteTokensCmd = &cobra.Command{
	Use:   "tokens [expression]",
	Short: "Tokenize an expression on the server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRemoteTokens,
}

var remoteHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the server health status",
	Args:  cobra.NoArgs,
	RunE:  runRemoteHealth,
}

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteAddr, "addr", "", "server address (default: server.host:server.grpc_port)")
	remoteCmd.PersistentFlags().DurationVar(&remoteTimeout, "timeout", 10*time.Second, "call timeout")
	remoteParseCmd.Flags().StringVarP(&remoteFormat, "format", "f", string(render.FormatTree), "output format: "+formatList())

	remoteCmd.AddCommand(remoteParseCmd, remoteTokensCmd, remoteHealthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func dialRemote() (*server.Client, context.Context, context.CancelFunc, error) {
	addr := remoteAddr
	if addr == "" {
		addr = appConfig.GRPCAddress()
	}
	cfg := coreGrpc.DefaultClientConfig(addr)
	cfg.Timeout = remoteTimeout
	cfg.Logger = appLogger

	client, err := server.Dial(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	return client, ctx, cancel, nil
}

func runRemoteParse(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(remoteFormat)
	if err != nil {
		return err
	}
	expr, err := expressionArg(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	client, ctx, cancel, err := dialRemote()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	renderer := render.New(format, useColor())
	reply, err := client.Parse(ctx, expr)
	if err != nil {
		if isParseError(err) {
			_ = renderer.Error(cmd.ErrOrStderr(), expr, err)
			return errReported
		}
		return err
	}
	appLogger.Debug("Remote parse", "request_id", reply.RequestID, "duration_us", reply.DurationUS)

	if format == render.FormatTokens {
		tokens, err := client.Tokenize(ctx, expr)
		if err != nil {
			return err
		}
		return renderer.Tokens(cmd.OutOrStdout(), tokens)
	}
	return renderer.Command(cmd.OutOrStdout(), reply.Command, nil)
}

func runRemoteTokens(cmd *cobra.Command, args []string) error {
	expr, err := expressionArg(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	client, ctx, cancel, err := dialRemote()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	renderer := render.New(render.FormatTokens, useColor())
	tokens, err := client.Tokenize(ctx, expr)
	if err != nil {
		if isParseError(err) {
			_ = renderer.Error(cmd.ErrOrStderr(), expr, err)
			return errReported
		}
		return err
	}
	return renderer.Tokens(cmd.OutOrStdout(), tokens)
}

func runRemoteHealth(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := dialRemote()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	status, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), status.String())
	return nil
}
