package local

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names for local executor configuration.
const (
	envWorkspaceRoot  = "RUNBOX_LOCAL_WORKSPACE_ROOT"
	envMaxConcurrent  = "RUNBOX_LOCAL_MAX_CONCURRENT"
	envMaxOutputBytes = "RUNBOX_LOCAL_MAX_OUTPUT_BYTES"
	envKillGrace      = "RUNBOX_LOCAL_KILL_GRACE"
)

// Defaults applied by LoadConfig.
const (
	DefaultMaxConcurrent  = 8
	DefaultMaxOutputBytes = 1 << 20
	DefaultKillGrace      = 500 * time.Millisecond
)

// Config holds configuration for the local process backend.
type Config struct {
	// WorkspaceRoot is the parent directory for per-execution workspaces.
	// Empty means the system temporary directory.
	WorkspaceRoot string

	// MaxConcurrent bounds the number of executions running at once.
	MaxConcurrent int

	// MaxOutputBytes caps captured stdout and stderr per phase.
	MaxOutputBytes int

	// KillGrace is how long to wait for output pipes to drain after a
	// process is killed or exits.
	KillGrace time.Duration
}

// LoadConfig reads local executor configuration from environment variables,
// applying defaults for values not set.
func LoadConfig() Config {
	cfg := Config{
		MaxConcurrent:  DefaultMaxConcurrent,
		MaxOutputBytes: DefaultMaxOutputBytes,
		KillGrace:      DefaultKillGrace,
	}

	if v := os.Getenv(envWorkspaceRoot); v != "" {
		cfg.WorkspaceRoot = v
	}
	if v := os.Getenv(envMaxConcurrent); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv(envMaxOutputBytes); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxOutputBytes = n
		}
	}
	if v := os.Getenv(envKillGrace); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.KillGrace = d
		}
	}

	return cfg
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if c.KillGrace <= 0 {
		c.KillGrace = DefaultKillGrace
	}
	return c
}
