package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Defaults match the standard station-host deployment; every one of
// them can be overridden in the TOML file.
const (
	DefaultMatch     = "haweatherstation"
	DefaultCommand   = "python3 -m haweatherstation"
	DefaultWorkDir   = "/home/pi/haweatherstation"
	DefaultLogDir    = "/home/pi/log"
	DefaultLogPath   = "/home/pi/log/watchdog.log"
	DefaultLockPath  = "/tmp/wsguard.lock"
	DefaultListen    = "127.0.0.1:9814"
	DefaultHistoryDB = ""
)

// ActionLogConfig configures the append-only action log file.
type ActionLogConfig struct {
	Path       string `toml:"path" mapstructure:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// Config is the top-level TOML structure.
type Config struct {
	Match      string          `toml:"match" mapstructure:"match"`             // process-table match pattern
	Command    string          `toml:"command" mapstructure:"command"`         // collector start command
	WorkDir    string          `toml:"workdir" mapstructure:"workdir"`         // fixed project root
	Env        []string        `toml:"env" mapstructure:"env"`                 // extra K=V entries
	EnvFiles   []string        `toml:"env_files" mapstructure:"env_files"`     // activation files
	LockPath   string          `toml:"lock_path" mapstructure:"lock_path"`     // reconcile mutual exclusion
	Listen     string          `toml:"listen" mapstructure:"listen"`           // serve mode address
	HistoryDSN string          `toml:"history_dsn" mapstructure:"history_dsn"` // audit sink, empty disables
	LogDir     string          `toml:"log_dir" mapstructure:"log_dir"`         // collector stdout/stderr directory
	ActionLog  ActionLogConfig `toml:"action_log" mapstructure:"action_log"`
}

// Default returns the configuration for the standard deployment.
func Default() Config {
	return Config{
		Match:    DefaultMatch,
		Command:  DefaultCommand,
		WorkDir:  DefaultWorkDir,
		LockPath: DefaultLockPath,
		Listen:   DefaultListen,
		LogDir:   DefaultLogDir,
		ActionLog: ActionLogConfig{
			Path: DefaultLogPath,
		},
	}
}

// Load reads a TOML config file and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Match == "" {
		return errors.New("config: match pattern must not be empty")
	}
	if c.Command == "" {
		return errors.New("config: command must not be empty")
	}
	if c.ActionLog.Path == "" {
		return errors.New("config: action_log.path must not be empty")
	}
	return nil
}
