package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/gateway"
	"github.com/msto63/callexpr/internal/server"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/version"
)

var (
	serveHost     string
	serveGRPCPort int
	serveHTTPPort int
	serveNoGRPC   bool
	serveNoHTTP   bool
	serveHistory  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC parse service and the HTTP gateway",
	Long: `Start the parse servers. Both listeners share one parse service and one
health registry.

Listeners:
  gRPC  callexpr.v1.ParseService, grpc.health.v1.Health   (default :9310)
  HTTP  /api/v1/parse, /api/v1/tokenize, /api/v1/ws ...  (default :8310)

Examples:
  callexpr serve
  callexpr serve --no-http --grpc-port 9400
  callexpr serve --history`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC port (overrides server.grpc_port)")
	serveCmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "HTTP port (overrides server.http_port)")
	serveCmd.Flags().BoolVar(&serveNoGRPC, "no-grpc", false, "do not start the gRPC server")
	serveCmd.Flags().BoolVar(&serveNoHTTP, "no-http", false, "do not start the HTTP gateway")
	serveCmd.Flags().BoolVar(&serveHistory, "history", false, "record parses in the history store")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveNoGRPC && serveNoHTTP {
		return mdwerror.New("--no-grpc and --no-http leave nothing to serve").
			WithCode(mdwerror.CodeInvalidInput)
	}
	if serveHost != "" {
		appConfig.Server.Host = serveHost
	}
	if serveGRPCPort != 0 {
		appConfig.Server.GRPCPort = serveGRPCPort
	}
	if serveHTTPPort != 0 {
		appConfig.Server.HTTPPort = serveHTTPPort
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	history, err := openHistory(serveHistory)
	if err != nil {
		return err
	}
	var historyStore store.Store
	var ping func(ctx context.Context) error
	if history != nil {
		defer history.Close()
		historyStore = history
		ping = history.Ping
		pruneHistory(history)
	}

	svc, err := newService(history)
	if err != nil {
		return err
	}
	registry := server.NewHealthRegistry(svc, ping)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, version.Get().String())

	var grpcSrv *server.Server
	var grpcLis net.Listener
	if !serveNoGRPC {
		grpcCfg := server.DefaultConfig()
		grpcCfg.Reflection = appConfig.Server.Reflection
		grpcCfg.Service = svc
		grpcCfg.Health = registry
		grpcCfg.Logger = appLogger.With("component", "grpc")
		if grpcSrv, err = server.New(grpcCfg); err != nil {
			return err
		}
		if grpcLis, err = listen(appConfig.GRPCAddress()); err != nil {
			return err
		}
		fmt.Fprintf(out, "  gRPC  %s\n", grpcLis.Addr())
	}

	var httpSrv *gateway.Server
	var httpLis net.Listener
	if !serveNoHTTP {
		httpCfg := gateway.DefaultConfig()
		httpCfg.Host = appConfig.Server.Host
		httpCfg.HTTPPort = appConfig.Server.HTTPPort
		httpCfg.ReadTimeout = appConfig.Server.ReadTimeout.Duration
		httpCfg.WriteTimeout = appConfig.Server.WriteTimeout.Duration
		httpCfg.Service = svc
		httpCfg.History = historyStore
		httpCfg.Health = registry
		httpCfg.Logger = appLogger.With("component", "gateway")
		if httpSrv, err = gateway.New(httpCfg); err != nil {
			if grpcLis != nil {
				grpcLis.Close()
			}
			return err
		}
		if httpLis, err = listen(appConfig.HTTPAddress()); err != nil {
			if grpcLis != nil {
				grpcLis.Close()
			}
			return err
		}
		fmt.Fprintf(out, "  HTTP  %s\n", httpLis.Addr())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, ctx := errgroup.WithContext(context.Background())
	if grpcSrv != nil {
		g.Go(func() error { return grpcSrv.Serve(grpcLis) })
	}
	if httpSrv != nil {
		g.Go(func() error { return httpSrv.Serve(httpLis) })
	}
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			appLogger.Info("Shutting down", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout.Duration)
		defer cancel()
		if httpSrv != nil {
			if err := httpSrv.Stop(shutdownCtx); err != nil {
				appLogger.Warn("HTTP shutdown incomplete", "error", err)
			}
		}
		if grpcSrv != nil {
			grpcSrv.Stop(shutdownCtx)
		}
		return nil
	})

	err = g.Wait()
	counters := svc.Counters()
	appLogger.Info("Stopped", "parsed", counters.Parsed, "failed", counters.Failed)
	return err
}

func listen(addr string) (net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to listen on "+addr).
			WithCode(mdwerror.CodeServiceUnavailable).
			WithOperation("serve")
	}
	return lis, nil
}

// pruneHistory drops entries older than the configured retention
func pruneHistory(history store.Store) {
	days := appConfig.Store.RetentionDays
	if days <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := history.Prune(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		appLogger.Warn("History prune failed", "error", err)
		return
	}
	if n > 0 {
		appLogger.Info("Pruned history", "removed", n, "retention_days", days)
	}
}
