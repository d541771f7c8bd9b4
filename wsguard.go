// Package wsguard keeps exactly one weather-station collector running.
// Each Reconcile observes the OS process table and applies at most one
// corrective action: launch when none is running, remove the lowest-pid
// duplicate when more than one is.
package wsguard

import (
	"context"
	"io"
	"net/http"

	"github.com/loykin/wsguard/internal/actionlog"
	"github.com/loykin/wsguard/internal/config"
	"github.com/loykin/wsguard/internal/history"
	"github.com/loykin/wsguard/internal/history/factory"
	"github.com/loykin/wsguard/internal/launcher"
	"github.com/loykin/wsguard/internal/metrics"
	"github.com/loykin/wsguard/internal/pstable"
	"github.com/loykin/wsguard/internal/server"
	"github.com/loykin/wsguard/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Result = supervisor.Result

type Outcome = supervisor.Outcome

const (
	OutcomeSteady    = supervisor.OutcomeSteady
	OutcomeRestarted = supervisor.OutcomeRestarted
	OutcomeDuplicate = supervisor.OutcomeDuplicate
)

var ErrLocked = supervisor.ErrLocked

// LoadConfig reads the TOML config at path; empty path yields defaults.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Watchdog is a thin facade over the internal supervisor wiring.
type Watchdog struct {
	sup     *supervisor.Supervisor
	table   pstable.Table
	closers []io.Closer
}

// New assembles a Watchdog from configuration: process matcher,
// detached launcher, action log, optional audit sink, and the
// reconcile lock.
func New(cfg Config) (*Watchdog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	_ = metrics.Register(prometheus.DefaultRegisterer)

	table := pstable.Matcher{Pattern: cfg.Match}
	launch := launcher.ExecLauncher{Spec: launcher.Spec{
		Command:  cfg.Command,
		WorkDir:  cfg.WorkDir,
		Env:      cfg.Env,
		EnvFiles: cfg.EnvFiles,
		LogDir:   cfg.LogDir,
	}}
	alog := actionlog.Config{
		Path:       cfg.ActionLog.Path,
		MaxSizeMB:  cfg.ActionLog.MaxSizeMB,
		MaxBackups: cfg.ActionLog.MaxBackups,
		MaxAgeDays: cfg.ActionLog.MaxAgeDays,
		Compress:   cfg.ActionLog.Compress,
	}.Open()

	w := &Watchdog{table: table, closers: []io.Closer{alog}}

	var sinks []history.Sink
	if cfg.HistoryDSN != "" {
		sink, err := factory.NewSinkFromDSN(cfg.HistoryDSN)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		sinks = append(sinks, sink)
		if c, ok := sink.(io.Closer); ok {
			w.closers = append(w.closers, c)
		}
	}

	w.sup = supervisor.New(supervisor.Config{
		Table:    table,
		Launcher: launch,
		Log:      alog,
		Sinks:    sinks,
		LockPath: cfg.LockPath,
	})
	return w, nil
}

// Reconcile runs one watchdog pass.
func (w *Watchdog) Reconcile(ctx context.Context) (Result, error) {
	return w.sup.Reconcile(ctx)
}

// Pids returns the currently matching collector pids, ascending.
func (w *Watchdog) Pids(ctx context.Context) ([]int, error) {
	return w.table.Pids(ctx)
}

// StartUnix reports a pid's start time in Unix seconds (0 if unknown).
func (w *Watchdog) StartUnix(pid int) int64 { return pstable.StartUnix(pid) }

// Serve starts the resident HTTP surface on addr.
func (w *Watchdog) Serve(addr, basePath string) *http.Server {
	return server.NewServer(addr, basePath, w.sup, w.table)
}

// Handler returns the HTTP surface for mounting into an existing server.
func (w *Watchdog) Handler(basePath string) http.Handler {
	return server.NewRouter(w.sup, w.table, basePath).Handler()
}

// Close releases the action log and any audit sinks.
func (w *Watchdog) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
