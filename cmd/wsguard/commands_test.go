package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestBuildRootSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{"reconcile": false, "status": false, "serve": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("missing subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("missing --config flag")
	}
	if root.PersistentFlags().Lookup("log-level") == nil {
		t.Fatal("missing --log-level flag")
	}
}

func writeTestConfig(t *testing.T, match, command string) string {
	t.Helper()
	dir := t.TempDir()
	content := "match = \"" + match + "\"\n" +
		"command = \"" + command + "\"\n" +
		"workdir = \"" + dir + "\"\n" +
		"lock_path = \"" + filepath.Join(dir, "l.lock") + "\"\n" +
		"[action_log]\npath = \"" + filepath.Join(dir, "watchdog.log") + "\"\n"
	p := filepath.Join(dir, "wsguard.toml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunReconcileWithConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
	cfgPath := writeTestConfig(t, "__wsguard_cmd_test__", "true")
	flags := &GlobalFlags{ConfigPath: cfgPath, LogLevel: "error"}
	if err := runReconcile(context.Background(), flags); err != nil {
		t.Fatalf("runReconcile: %v", err)
	}
	// a restart record must have been appended
	b, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "watchdog.log"))
	if err != nil {
		t.Fatalf("read action log: %v", err)
	}
	if !strings.HasPrefix(string(b), "Restarting weatherstation process:") {
		t.Fatalf("unexpected log: %q", string(b))
	}
}

func TestStatusCommandRuns(t *testing.T) {
	cfgPath := writeTestConfig(t, "__wsguard_status_test__", "true")
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"status", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestReconcileBadConfigPath(t *testing.T) {
	root := buildRoot()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"reconcile", "--config", filepath.Join(t.TempDir(), "nope.toml")})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing config")
	}
}
