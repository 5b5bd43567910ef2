package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/PuniCore/Puni/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var runMetricsAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load plugins and serve console events",
	Long: `Run a full load cycle, start scheduled tasks and the hot reload watcher,
then read chat lines from stdin and dispatch each one as a friend message
from the configured console user. Replies are printed to stdout.

Set --metrics-addr (or metrics.addr) to expose Prometheus metrics at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve /metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	s := settings()
	if cmd.Flags().Changed("metrics-addr") {
		s.MetricsAddr = runMetricsAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := newHost(s, true)
	if err != nil {
		return err
	}

	rep, err := h.manager.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading plugins: %w", err)
	}
	rep.Print(cmd.ErrOrStderr())

	h.runner.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := h.runner.Stop(stopCtx); err != nil {
			logger.Warn("stopping task runner", zap.Error(err))
		}
	}()

	if s.Watch {
		w, err := watch.New(h.manager, watch.Options{
			Debounce: s.WatchDebounce,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer w.Stop()
	}

	if s.MetricsAddr != "" {
		srv := serveMetrics(s.MetricsAddr, h)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	console := adapter.NewConsole(s.ConsoleSelfID, s.ConsoleUserID, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	logger.Info("console ready", zap.String("user", s.ConsoleUserID))

	err = console.Run(ctx, func(ctx context.Context, msg adapter.ConsoleMessage) error {
		if !h.manager.Dispatch(ctx, h.consoleEvent(console, msg)) {
			logger.Debug("no capability handled message", zap.String("text", msg.Text))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveMetrics starts the /metrics endpoint in the background.
func serveMetrics(addr string, h *host) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
