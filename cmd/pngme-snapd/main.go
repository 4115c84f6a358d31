// Command pngme-snapd serves a localfs snapshot store over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"xdao.co/pngme/snapshot"
	"xdao.co/pngme/snapshot/grpcstore"
	"xdao.co/pngme/snapshot/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

type usageError struct{ error }

func run(args []string, errOut io.Writer) int {
	var (
		listen  string
		dir     string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           "pngme-snapd",
		Short:         "Serve a snapshot store over gRPC.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageError{fmt.Errorf("unexpected arguments %q", args)}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				return usageError{errors.New("--dir is required")}
			}
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := localfs.New(dir)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			defer lis.Close()

			s := newServer(store, log)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				log.Info("shutting down")
				s.GracefulStop()
			}()

			log.Info("listening", zap.String("addr", lis.Addr().String()), zap.String("dir", store.Root()))
			return s.Serve(lis)
		},
	}
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7788", "Listen address.")
	cmd.Flags().StringVar(&dir, "dir", "", "Snapshot directory (required).")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every call.")

	if err := cmd.Execute(); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(errOut, "%v\n\n%s", err, cmd.UsageString())
			return 2
		}
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	return cfg.Build()
}

func newServer(store snapshot.Store, log *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(logCalls(log)))
	grpcstore.RegisterSnapshotsServer(s, &grpcstore.Server{Store: store})
	return s
}

// logCalls logs failed calls at Warn and the rest at Debug.
func logCalls(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		}
		if err != nil {
			log.Warn("call failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("call", fields...)
		}
		return resp, err
	}
}
