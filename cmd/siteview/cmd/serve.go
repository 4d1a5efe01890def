// ABOUTME: serve command: runs the site server, and the metrics listener when configured.
// ABOUTME: SIGINT and SIGTERM trigger a graceful shutdown of both listeners.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389-research/siteview/config"
	"github.com/2389-research/siteview/metrics"
	"github.com/2389-research/siteview/web"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	f := &siteFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the site server",
		Long: `Start serving the view directory.

TLS is enabled when fullchain.pem and privkey.pem exist in the SSL directory.
Metrics are served on --metrics-addr at /metrics when it is set.

Examples:
  siteview serve                       # ./view on :11400
  siteview serve --view /srv/www/view  # custom view directory
  PORT=8080 siteview serve             # port from the environment`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}
	f.register(cmd)
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	var rec *metrics.Recorder
	if cfg.MetricsAddr != "" {
		rec = metrics.New()
	}

	serverCfg := web.ServerConfig{
		Addr:    cfg.Addr,
		ViewDir: cfg.ViewDir,
		Timeouts: web.Timeouts{
			ReadHeader: cfg.Timeouts.ReadHeader,
			Read:       cfg.Timeouts.Read,
			Write:      cfg.Timeouts.Write,
			Idle:       cfg.Timeouts.Idle,
			Shutdown:   cfg.Timeouts.Shutdown,
		},
		Metrics: rec,
	}
	if cert, key, ok := cfg.CertFiles(); ok {
		serverCfg.CertFile = cert
		serverCfg.KeyFile = key
	}

	srv, err := web.NewServer(serverCfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	stderr := cmd.ErrOrStderr()
	pages := srv.Site().Pages()
	fmt.Fprintf(stderr, "view %s (index: %s, error: %s)\n", srv.Site().AssetRoot(), pages.Index.Source, pages.Error.Source)

	if rec != nil {
		metricsSrv, addr, err := startMetrics(ctx, cfg.MetricsAddr, rec, cfg.Timeouts.Shutdown)
		if err != nil {
			return err
		}
		defer metricsSrv.Close()
		fmt.Fprintf(stderr, "metrics on http://%s/metrics\n", addr)
	}

	scheme := "http"
	if srv.TLS() {
		scheme = "https"
	}
	fmt.Fprintf(stderr, "listening on %s (%s)\n", srv.Addr(), scheme)

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stderr, "shut down")
	return nil
}

// startMetrics serves the Prometheus handler on its own listener so the site
// surface stays exactly the four routes. The listener is bound before it
// returns, so a bad address fails the command instead of only being logged.
func startMetrics(ctx context.Context, addr string, rec *metrics.Recorder, grace time.Duration) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("metrics listener on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server err=%v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown err=%v", err)
		}
	}()

	return srv, ln.Addr().String(), nil
}
