package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/wsguard"
	"github.com/loykin/wsguard/internal/logger"
	"github.com/spf13/cobra"
)

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	serveFlags := &ServeFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createReconcileCommand(globalFlags),
		createStatusCommand(globalFlags),
		createServeCommand(globalFlags, serveFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "wsguard",
		Short: "Keep exactly one weather-station collector running",
		Long: "wsguard reconciles the number of running collector instances to one:\n" +
			"it launches the collector when none is running and removes the\n" +
			"lowest-pid duplicate when more than one is. Run it from cron, or use\n" +
			"'wsguard serve' for an on-demand HTTP surface.",
		SilenceUsage: true,
		// Invoked with no arguments, the watchdog reconciles once.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config (defaults apply when omitted)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "info", "operational log level (debug|info|warn|error)")
	return root
}

func createReconcileCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), flags)
		},
	}
}

func runReconcile(ctx context.Context, flags *GlobalFlags) error {
	log := logger.New(os.Stderr, flags.LogLevel)
	w, err := newWatchdog(flags)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if ctx == nil {
		ctx = context.Background()
	}
	res, err := w.Reconcile(ctx)
	if err != nil {
		if errors.Is(err, wsguard.ErrLocked) {
			// The overlapping invocation owns the run; nothing to do.
			log.Info("reconcile skipped", "reason", "lock held by another invocation")
			return nil
		}
		return err
	}
	switch res.Outcome {
	case wsguard.OutcomeSteady:
		log.Debug("collector healthy", "count", res.Count)
	case wsguard.OutcomeRestarted:
		log.Info("collector restarted", "pid", res.PID)
	case wsguard.OutcomeDuplicate:
		log.Warn("duplicate collector removed", "pid", res.PID, "count", res.Count)
	}
	return nil
}

func createStatusCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show matching collector instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWatchdog(flags)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			pids, err := w.Pids(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("instances: %d\n", len(pids))
			for _, pid := range pids {
				if start := w.StartUnix(pid); start > 0 {
					fmt.Printf("  pid %d  up since %s\n", pid, time.Unix(start, 0).Format(time.RFC3339))
				} else {
					fmt.Printf("  pid %d\n", pid)
				}
			}
			return nil
		},
	}
}

func createServeCommand(flags *GlobalFlags, serveFlags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP inspection surface",
		Long: "Serves GET /status, POST /reconcile and GET /metrics. Reconciliation\n" +
			"still only happens on demand; scheduling stays with cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(os.Stderr, flags.LogLevel)
			slog.SetDefault(log)

			cfg, err := wsguard.LoadConfig(flags.ConfigPath)
			if err != nil {
				return err
			}
			if serveFlags.Listen != "" {
				cfg.Listen = serveFlags.Listen
			}
			w, err := wsguard.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			srv := w.Serve(cfg.Listen, serveFlags.BasePath)
			log.Info("listening", "addr", cfg.Listen)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&serveFlags.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&serveFlags.BasePath, "base-path", "", "base path for HTTP routes")
	return cmd
}

func newWatchdog(flags *GlobalFlags) (*wsguard.Watchdog, error) {
	cfg, err := wsguard.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	return wsguard.New(cfg)
}
