package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxcal/internal/logging"
	"github.com/teemow/inboxcal/internal/server"
)

// DefaultWatchInterval is the pause between polls in watch mode.
const DefaultWatchInterval = 5 * time.Minute

func newWatchCmd() *cobra.Command {
	opts := &agentOptions{}
	var (
		interval       time.Duration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the unread inbox on an interval",
		Long: `Run the agent as a long-lived process that scans the unread inbox on a
fixed interval. Liveness, readiness and Prometheus metrics endpoints are
served on a dedicated port for deployment behind an orchestrator.

Watch mode marks handled messages as read unless --mark-read=false is given,
otherwise every poll would re-process the same messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setupAgent(ctx, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.provider.Shutdown(context.Background())
			}()

			logger := logging.WithAccount(slog.Default(), opts.account)

			health := server.NewHealthChecker()
			if metricsEnabled && a.provider.HasPrometheusExporter() {
				metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
					Addr:                    metricsAddr,
					HealthChecker:           health,
					InstrumentationProvider: a.provider,
				})
				if err != nil {
					return err
				}
				go func() {
					if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", logging.Err(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
					defer cancel()
					_ = metricsServer.Shutdown(shutdownCtx)
				}()
			}

			health.SetReady(true)
			defer health.SetReady(false)

			logger.Info("watching inbox", slog.Duration("interval", interval))

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				if _, err := a.pipeline.ProcessBatch(ctx, a.mailbox, opts.maxResults); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					logger.Error("poll failed", logging.Err(err))
				}

				select {
				case <-ctx.Done():
					logger.Info("shutting down")
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	opts.bindFlags(cmd)
	// Re-processing already handled mail every interval is never what a
	// long-running watcher wants.
	opts.markRead = true
	cmd.Flags().Lookup("mark-read").DefValue = "true"
	cmd.Flags().DurationVar(&interval, "interval", DefaultWatchInterval, "Time between polls")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics and health probes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics and health endpoints")

	return cmd
}
