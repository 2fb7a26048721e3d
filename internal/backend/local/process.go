package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// errToolchainNotFound marks a spawn that failed because the binary is absent.
var errToolchainNotFound = errors.New("executable not found")

const truncatedMarker = "\n[output truncated]"

// processSpec describes one child process invocation.
type processSpec struct {
	name    string
	args    []string
	dir     string
	stdin   string
	timeout time.Duration

	// onLine receives each complete output line from either stream.
	onLine    func(line string)
	maxOutput int
	killGrace time.Duration
}

// processResult is the outcome of a process that was started.
type processResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	duration time.Duration
}

// runProcess spawns the process described by ps, feeds it stdin, and waits for
// it to exit or for ps.timeout to elapse. On expiry the process is killed and
// the result is marked timedOut. The child runs in its own process group, and
// the whole group is killed on expiry and again after the child exits so no
// descendant outlives the call. Kill failures are logged and never returned.
// A missing executable is reported as errToolchainNotFound.
func runProcess(ctx context.Context, logger *slog.Logger, ps processSpec) (processResult, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	cmd := exec.CommandContext(phaseCtx, ps.name, ps.args...)
	cmd.Dir = ps.dir
	cmd.Stdin = strings.NewReader(ps.stdin)
	cmd.WaitDelay = ps.killGrace
	startOwnGroup(cmd)
	reap := func() {
		if err := killGroup(cmd); err != nil {
			killFailures.Inc()
			logger.Warn("failed to kill process group", "command", ps.name, "pid", cmd.Process.Pid, "error", err)
		}
	}
	cmd.Cancel = func() error {
		reap()
		return nil
	}

	var lineMu sync.Mutex
	onLine := ps.onLine
	if onLine != nil {
		onLine = func(line string) {
			lineMu.Lock()
			defer lineMu.Unlock()
			ps.onLine(line)
		}
	}
	stdout := newCaptureWriter(ps.maxOutput, onLine, logger)
	stderr := newCaptureWriter(ps.maxOutput, onLine, logger)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return processResult{}, fmt.Errorf("%w: %s: %w", errToolchainNotFound, ps.name, err)
		}
		return processResult{}, fmt.Errorf("start %s: %w", ps.name, err)
	}

	waitErr := cmd.Wait()
	// Descendants that outlived the child still belong to its group.
	reap()
	stdout.flush()
	stderr.flush()

	res := processResult{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		duration: time.Since(start),
	}

	if phaseCtx.Err() != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("%s: %w", ps.name, ctx.Err())
		}
		res.timedOut = true
		res.exitCode = -1
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.Is(waitErr, exec.ErrWaitDelay):
	case errors.As(waitErr, &exitErr):
		res.exitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("wait %s: %w", ps.name, waitErr)
	}
	return res, nil
}

// captureWriter accumulates one output stream up to a byte limit and emits
// complete lines to an optional callback as they arrive.
type captureWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	pending   []byte
	limit     int
	truncated bool
	onLine    func(line string)
	logger    *slog.Logger
}

func newCaptureWriter(limit int, onLine func(string), logger *slog.Logger) *captureWriter {
	return &captureWriter{limit: limit, onLine: onLine, logger: logger}
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch remaining := w.limit - w.buf.Len(); {
	case w.limit <= 0 || len(p) <= remaining:
		w.buf.Write(p)
	case remaining > 0:
		w.buf.Write(p[:remaining])
		w.truncated = true
	default:
		w.truncated = true
	}

	if w.onLine == nil {
		return len(p), nil
	}
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emit(string(w.pending[:i]))
		w.pending = w.pending[i+1:]
	}
	if w.limit > 0 && len(w.pending) > w.limit {
		w.emit(string(w.pending))
		w.pending = nil
	}
	return len(p), nil
}

// flush emits a trailing line that had no newline.
func (w *captureWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onLine != nil && len(w.pending) > 0 {
		w.emit(string(w.pending))
		w.pending = nil
	}
}

// emit calls onLine, containing panics so a faulty callback cannot take the
// copying goroutine down with it.
func (w *captureWriter) emit(line string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("output line callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	w.onLine(strings.TrimSuffix(line, "\r"))
}

func (w *captureWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.truncated {
		return w.buf.String() + truncatedMarker
	}
	return w.buf.String()
}
