package backend

import "context"

// Backend is the interface that every execution backend implements.
type Backend interface {
	// Execute runs one submission and returns its normalized result. Failures
	// are reported as *ExecError values wrapping one of the sentinel kinds.
	Execute(ctx context.Context, spec Spec) (Result, error)

	// Capabilities reports what the backend can run.
	Capabilities() Capabilities

	// Cleanup releases any resources still associated with the given execution.
	// It must not be called while Execute for the same execution is in flight;
	// callers use it after a panicked Execute and at shutdown.
	Cleanup(ctx context.Context, executionID string) error
}

// Spec describes one submission handed to a backend.
type Spec struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`

	// LogWriter is an optional callback invoked once per output line as the
	// program produces it.
	LogWriter func(line string) `json:"-"`
}

// Result holds the normalized output produced by a backend.
type Result struct {
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Provider   string `json:"provider"`
}

// Capabilities describes what a backend supports.
type Capabilities struct {
	Name           string   `json:"name"`
	Provider       string   `json:"provider"`
	Languages      []string `json:"languages"`
	MaxConcurrency int      `json:"max_concurrency"`
}
