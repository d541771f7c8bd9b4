package launcher

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestBuildCommand(t *testing.T) {
	requireUnix(t)
	// empty -> /bin/true
	c := BuildCommand("")
	if !strings.Contains(c.String(), "/bin/true") {
		t.Fatalf("expected /bin/true, got %q", c.String())
	}
	// simple no metachar -> direct exec
	c = BuildCommand("python3 -m haweatherstation")
	if len(c.Args) == 0 || c.Args[0] != "python3" {
		t.Fatalf("expected direct exec, got %#v", c.Args)
	}
	// with shell meta -> sh -c
	c = BuildCommand("echo hi | cat")
	if len(c.Args) < 2 || c.Args[0] != "/bin/sh" || c.Args[1] != "-c" {
		t.Fatalf("expected /bin/sh -c, got %#v", c.Args)
	}
	// explicit shell not double-wrapped
	c = BuildCommand("sh -c 'echo hi > /dev/null'")
	if c.Args[0] != "/bin/sh" || c.Args[1] != "-c" || c.Args[2] != "echo hi > /dev/null" {
		t.Fatalf("explicit shell mishandled: %#v", c.Args)
	}
}

func TestLaunchEmptyCommand(t *testing.T) {
	if _, err := (ExecLauncher{}).Launch(); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestLaunchMissingEnvFile(t *testing.T) {
	l := ExecLauncher{Spec: Spec{
		Command:  "true",
		EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env")},
	}}
	if _, err := l.Launch(); err == nil {
		t.Fatal("expected error for missing activation file")
	}
}

func TestLaunchDetached(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	l := ExecLauncher{Spec: Spec{
		Command: "sh -c 'echo $STATION_ROOT > " + marker + "'",
		WorkDir: dir,
		Env:     []string{"STATION_ROOT=" + dir},
	}}
	pid, err := l.Launch()
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("expected positive pid, got %d", pid)
	}
	// The child is detached; poll for its side effect instead of waiting.
	deadline := time.Now().Add(3 * time.Second)
	for {
		b, err := os.ReadFile(marker)
		if err == nil {
			if got := strings.TrimSpace(string(b)); got != dir {
				t.Fatalf("env not applied, got %q want %q", got, dir)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("marker file never appeared")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLaunchReapsExitedChild(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}
	l := ExecLauncher{Spec: Spec{Command: "sh -c 'exit 0'"}}
	pid, err := l.Launch()
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	// The child exits immediately; once reaped its /proc entry is gone.
	// A lingering Z state means the launcher left a zombie behind.
	statPath := filepath.Join("/proc", strconv.Itoa(pid), "stat")
	deadline := time.Now().Add(3 * time.Second)
	for {
		b, err := os.ReadFile(statPath)
		if err != nil {
			return // entry gone, child was reaped
		}
		if time.Now().After(deadline) {
			t.Fatalf("child %d still present after exit: %q", pid, string(b))
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestLaunchWritesChildLogs(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	l := ExecLauncher{Spec: Spec{
		Command: "sh -c 'echo collector-online'",
		LogDir:  logDir,
	}}
	pid, err := l.Launch()
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	// the child is detached; wait for output to land
	deadline := time.Now().Add(3 * time.Second)
	out := filepath.Join(logDir, "weatherstation.stdout.log")
	for {
		b, err := os.ReadFile(out)
		if err == nil && strings.Contains(string(b), "collector-online") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stdout log missing for pid %d", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
	// best effort: make sure the short-lived child is gone
	_ = syscall.Kill(pid, syscall.SIGKILL)
}
