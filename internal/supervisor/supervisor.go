package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/wsguard/internal/actionlog"
	"github.com/loykin/wsguard/internal/history"
	"github.com/loykin/wsguard/internal/launcher"
	"github.com/loykin/wsguard/internal/lockfile"
	"github.com/loykin/wsguard/internal/metrics"
	"github.com/loykin/wsguard/internal/pstable"
)

// ErrLocked is returned when a concurrent reconcile holds the lock.
// The losing invocation performs no side effects.
var ErrLocked = errors.New("supervisor: another reconcile is in progress")

// Outcome classifies a completed reconcile run.
type Outcome string

const (
	OutcomeSteady    Outcome = "steady"
	OutcomeRestarted Outcome = "restarted"
	OutcomeDuplicate Outcome = "duplicate_removed"
)

// Result reports what one reconcile run observed and did.
type Result struct {
	Count   int     `json:"count"`   // instances observed before acting
	Outcome Outcome `json:"outcome"`
	PID     int     `json:"pid"`     // launched or signaled pid, 0 when steady
}

// Config wires the supervisor's collaborators. Table and Launcher are
// required; the rest degrade to no-ops when unset.
type Config struct {
	Table    pstable.Table
	Launcher launcher.Launcher
	Log      *actionlog.Log
	Sinks    []history.Sink
	LockPath string          // when set, Reconcile is guarded by a flock
	Kill     func(int) error // termination signal; defaults to SIGTERM
}

// Supervisor reconciles the number of running collector instances to
// exactly one. It is a single-step classifier: all state lives in the
// OS process table.
type Supervisor struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Supervisor {
	if cfg.Kill == nil {
		cfg.Kill = killProcess
	}
	return &Supervisor{cfg: cfg, now: time.Now}
}

// Reconcile observes the instance count and applies at most one
// corrective action:
//
//	count == 0: append the restart record, launch one detached instance
//	count == 1: nothing
//	count  > 1: append the duplicate record, SIGTERM the lowest pid
//
// With more than two instances, repeated invocations converge by one
// kill per run. An enumeration failure aborts the run without a launch;
// the periodic trigger is the retry mechanism.
func (s *Supervisor) Reconcile(ctx context.Context) (Result, error) {
	if s.cfg.LockPath != "" {
		lock, err := lockfile.Acquire(s.cfg.LockPath)
		if err != nil {
			if errors.Is(err, lockfile.ErrHeld) {
				return Result{}, ErrLocked
			}
			return Result{}, err
		}
		defer func() { _ = lock.Release() }()
	}

	started := s.now()
	res, err := s.reconcile(ctx)
	metrics.ObserveDuration(s.now().Sub(started).Seconds())
	if err != nil {
		metrics.IncRun("error")
	} else {
		metrics.IncRun(string(res.Outcome))
	}
	return res, err
}

func (s *Supervisor) reconcile(ctx context.Context) (Result, error) {
	pids, err := s.cfg.Table.Pids(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("enumerate processes: %w", err)
	}
	count := len(pids)
	metrics.SetObservedInstances(count)

	switch {
	case count == 0:
		s.log(func(l *actionlog.Log) error { return l.Restarted() })
		pid, err := s.cfg.Launcher.Launch()
		if err != nil {
			return Result{Count: count}, fmt.Errorf("launch collector: %w", err)
		}
		metrics.IncLaunch()
		s.record(ctx, history.ActionRestart, pid, count)
		return Result{Count: count, Outcome: OutcomeRestarted, PID: pid}, nil

	case count == 1:
		return Result{Count: count, Outcome: OutcomeSteady}, nil

	default:
		// pids are ascending; the lowest pid is the deterministic victim.
		victim := pids[0]
		s.log(func(l *actionlog.Log) error { return l.RemovedDuplicate() })
		if err := s.cfg.Kill(victim); err != nil {
			// Best effort: the diagnostic goes to the action log verbatim
			// and the run still counts as completed.
			s.log(func(l *actionlog.Log) error { return l.Raw(err.Error()) })
		}
		metrics.IncDuplicateKilled()
		s.record(ctx, history.ActionDuplicate, victim, count)
		return Result{Count: count, Outcome: OutcomeDuplicate, PID: victim}, nil
	}
}

// log appends to the action log best-effort: an unwritable log file
// must never stop the corrective action itself.
func (s *Supervisor) log(fn func(*actionlog.Log) error) {
	if s.cfg.Log == nil {
		return
	}
	if err := fn(s.cfg.Log); err != nil {
		slog.Warn("action log append failed", "error", err)
	}
}

// record ships the event to audit sinks; sink failures never fail the run.
func (s *Supervisor) record(ctx context.Context, a history.Action, pid, count int) {
	e := history.Event{Action: a, PID: pid, Count: count, OccurredAt: s.now()}
	for _, sink := range s.cfg.Sinks {
		_ = sink.Send(ctx, e)
	}
}
