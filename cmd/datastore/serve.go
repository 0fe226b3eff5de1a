package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/rpc"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storage root over Connect with Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			obs, err := opts.observer(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			metrics := prometheus.NewRegistry()
			metrics.MustRegister(collectors.NewGoCollector())

			registry, err := datastore.NewRegistry(cfg,
				datastore.WithObserver(obs),
				datastore.WithMetrics(metrics),
			)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s\n", cfg.StorageDir, ln.Addr())

			return serve(cmd.Context(), ln, newServeMux(registry, metrics), registry)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8089", "listen address")
	return cmd
}

func newServeMux(registry *datastore.Registry, metrics *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	path, handler := rpc.NewHandler(rpc.NewServer(registry))
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	return mux
}

// serve runs until ctx ends, then shuts the server down and drains the
// registry.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, registry *datastore.Registry) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		serveErr = err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	if err := registry.Close(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}
