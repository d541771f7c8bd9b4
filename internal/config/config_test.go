package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "wsguard.toml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match != DefaultMatch || cfg.Command != DefaultCommand {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ActionLog.Path != DefaultLogPath {
		t.Fatalf("unexpected default log path: %q", cfg.ActionLog.Path)
	}
	// collector stdout/stderr are captured by default, not discarded
	if cfg.LogDir != DefaultLogDir {
		t.Fatalf("unexpected default log dir: %q", cfg.LogDir)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
match = "rtl_433"
command = "sh -c 'rtl_433 -F json'"
workdir = "/srv/station"
env = ["STATION_ID=7"]
env_files = ["/srv/station/activate.env"]
lock_path = "/run/wsguard.lock"
history_dsn = "sqlite:///var/lib/wsguard/audit.db"
log_dir = "/var/log/station"

[action_log]
path = "/var/log/station/watchdog.log"
max_backups = 5
compress = true
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match != "rtl_433" {
		t.Fatalf("match = %q", cfg.Match)
	}
	if cfg.WorkDir != "/srv/station" {
		t.Fatalf("workdir = %q", cfg.WorkDir)
	}
	if len(cfg.Env) != 1 || cfg.Env[0] != "STATION_ID=7" {
		t.Fatalf("env = %v", cfg.Env)
	}
	if cfg.ActionLog.Path != "/var/log/station/watchdog.log" || cfg.ActionLog.MaxBackups != 5 || !cfg.ActionLog.Compress {
		t.Fatalf("action_log = %+v", cfg.ActionLog)
	}
	if cfg.HistoryDSN != "sqlite:///var/lib/wsguard/audit.db" {
		t.Fatalf("history_dsn = %q", cfg.HistoryDSN)
	}
	// untouched keys keep defaults
	if cfg.Listen != DefaultListen {
		t.Fatalf("listen = %q", cfg.Listen)
	}
}

func TestLoadRejectsEmptyMatch(t *testing.T) {
	p := writeConfig(t, `
match = ""
command = "true"
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	cfg.Command = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty command")
	}
	cfg = Default()
	cfg.ActionLog.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty action log path")
	}
}
