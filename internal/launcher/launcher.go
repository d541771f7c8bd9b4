package launcher

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loykin/wsguard/internal/env"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Spec describes how to start one collector instance. The started
// process is detached from the invoking session: the watchdog exits
// while the collector keeps running.
type Spec struct {
	Command  string   // command to start the collector (shell-aware)
	WorkDir  string   // fixed project root
	Env      []string // extra env (K=V), applied after EnvFiles
	EnvFiles []string // activation files loaded into the environment
	LogDir   string   // directory for the collector's stdout/stderr files
}

// Launcher starts detached collector instances.
// Implementations must not block on the child's lifetime.
type Launcher interface {
	// Launch starts one instance and returns its pid.
	Launch() (int, error)
}

// ExecLauncher launches via os/exec with a composed activation
// environment. Child stdout/stderr go to rotating files when LogDir is
// set; they are captured, not monitored.
type ExecLauncher struct {
	Spec Spec
}

func (l ExecLauncher) Launch() (int, error) {
	spec := l.Spec
	if strings.TrimSpace(spec.Command) == "" {
		return 0, errors.New("launcher: empty command")
	}

	e := env.New()
	for _, p := range spec.EnvFiles {
		if err := e.LoadFile(p); err != nil {
			return 0, err
		}
	}
	merged := e.Merge(spec.Env)

	cmd := BuildCommand(spec.Command)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	cmd.Env = merged
	configureSysProcAttr(cmd)

	if spec.LogDir != "" {
		if err := os.MkdirAll(spec.LogDir, 0o750); err != nil {
			return 0, err
		}
		cmd.Stdout = &lj.Logger{Filename: filepath.Join(spec.LogDir, "weatherstation.stdout.log")}
		cmd.Stderr = &lj.Logger{Filename: filepath.Join(spec.LogDir, "weatherstation.stderr.log")}
	} else {
		null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return 0, err
		}
		cmd.Stdout = null
		cmd.Stderr = null
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// The child is its own session leader and outlives us. The Wait only
	// reaps: without it a resident server accumulates zombies for every
	// collector that exits.
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

// BuildCommand constructs an *exec.Cmd for cmdStr. It avoids invoking
// a shell when not necessary and respects an explicit shell invocation
// already present in the command string (e.g. "sh -c 'echo hi'"),
// avoiding double-wrapping with another shell.
func BuildCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return getTrueCommand()
	}
	if afterC, ok := parseExplicitShell(cmdStr); ok {
		return getShellCommand(afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return getShellCommand(cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or
// "/bin/sh -c <ARG>" at the beginning of cmdStr and returns the
// argument after -c with one layer of quoting stripped.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
