package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultListenAddr     = ":8080"
	defaultDBPath         = "runbox.db"
	defaultRateLimitRPS   = 5.0
	defaultRateLimitBurst = 10

	envListenAddr       = "RUNBOX_LISTEN_ADDR"
	envDBPath           = "RUNBOX_DB_PATH"
	envLogLevel         = "RUNBOX_LOG_LEVEL"
	envForceRemote      = "RUNBOX_FORCE_REMOTE"
	envAutoFallback     = "RUNBOX_AUTO_FALLBACK"
	envRateLimitRPS     = "RUNBOX_RATE_LIMIT_RPS"
	envRateLimitBurst   = "RUNBOX_RATE_LIMIT_BURST"
	envNoLocalToolchain = "RUNBOX_NO_LOCAL_TOOLCHAINS"
)

// hostSignals are environment variables set by hosts that ship no compilers
// or interpreters. Any of them being non-empty forces remote execution.
var hostSignals = []string{"VERCEL", "AWS_LAMBDA_FUNCTION_NAME", envNoLocalToolchain}

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// ForceRemote skips local execution entirely. ForceRemoteReason names
	// the variable that turned it on.
	ForceRemote       bool
	ForceRemoteReason string

	// AutoFallback retries on the remote provider when a local toolchain
	// is missing.
	AutoFallback bool

	// RateLimitRPS and RateLimitBurst bound execution requests per client.
	// A non-positive RPS disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DBPath:         defaultDBPath,
		LogLevel:       slog.LevelInfo,
		AutoFallback:   true,
		RateLimitRPS:   defaultRateLimitRPS,
		RateLimitBurst: defaultRateLimitBurst,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	cfg.AutoFallback = parseBool(os.Getenv(envAutoFallback), cfg.AutoFallback)
	if parseBool(os.Getenv(envForceRemote), false) {
		cfg.ForceRemote = true
		cfg.ForceRemoteReason = envForceRemote
	} else if name, ok := detectHostSignal(); ok {
		cfg.ForceRemote = true
		cfg.ForceRemoteReason = name
	}

	if v := os.Getenv(envRateLimitRPS); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = n
		}
	}
	if v := os.Getenv(envRateLimitBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		}
	}

	return cfg
}

func detectHostSignal() (string, bool) {
	for _, name := range hostSignals {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		// An explicit false on our own variable does not count.
		if name == envNoLocalToolchain && !parseBool(v, true) {
			continue
		}
		return name, true
	}
	return "", false
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return b
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
