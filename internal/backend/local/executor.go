package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/language"
	"github.com/seantiz/runbox/internal/model"
)

const (
	workspacePrefix = "runbox-"
	artifactName    = "main"
)

// workspace is the ephemeral directory owned by one execution.
type workspace struct {
	key    string
	dir    string
	source string
}

// Executor runs one submission against a language profile.
type Executor struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	workspaces map[string]string
}

// NewExecutor creates an executor. A non-empty WorkspaceRoot is created if
// it does not exist.
func NewExecutor(cfg Config, logger *slog.Logger) (*Executor, error) {
	cfg = cfg.withDefaults()
	if cfg.WorkspaceRoot != "" {
		if err := os.MkdirAll(cfg.WorkspaceRoot, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace root: %w", err)
		}
	}
	return &Executor{
		cfg:        cfg,
		logger:     logger,
		workspaces: make(map[string]string),
	}, nil
}

// Run compiles (when the profile has a compile step) and runs spec.Code in a
// fresh workspace. The workspace is removed before Run returns.
//
// A non-zero exit of the program is not a failure: the result carries stderr
// (or the exit status) in Error. Failures are *backend.ExecError values of
// kind ErrMissingToolchain, ErrCompile or ErrTimeout.
func (e *Executor) Run(ctx context.Context, spec backend.Spec, profile language.Profile) (res backend.Result, err error) {
	ws, err := e.createWorkspace(spec, profile)
	if err != nil {
		return backend.Result{}, err
	}
	defer e.removeWorkspace(ws.key, ws.dir)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("local execution panicked", "execution_id", spec.ID, "panic", fmt.Sprint(r))
			res, err = backend.Result{}, fmt.Errorf("local execution aborted: %v", r)
		}
	}()

	paths := language.Paths{
		Dir:      ws.dir,
		Source:   ws.source,
		Artifact: filepath.Join(ws.dir, artifactName),
	}
	lang := string(profile.ID)

	var compileOut string
	if name, args, ok := profile.CompileInvocation(paths); ok {
		timeout := profile.Compile.Timeout
		if timeout <= 0 {
			timeout = language.DefaultCompileTimeout
		}
		e.logger.Debug("compiling", "execution_id", spec.ID, "language", lang, "command", name)

		pr, err := runProcess(ctx, e.logger, processSpec{
			name:      name,
			args:      args,
			dir:       ws.dir,
			timeout:   timeout,
			maxOutput: e.cfg.MaxOutputBytes,
			killGrace: e.cfg.KillGrace,
		})
		phaseDuration.WithLabelValues(lang, string(backend.PhaseCompile)).Observe(pr.duration.Seconds())
		if err != nil {
			return backend.Result{}, spawnError(err, name, backend.PhaseCompile)
		}
		if pr.timedOut {
			return backend.Result{}, backend.NewError(backend.ErrTimeout, backend.PhaseCompile,
				fmt.Sprintf("Compilation timed out after %s", timeout), nil)
		}
		if pr.exitCode != 0 {
			return backend.Result{}, backend.NewError(backend.ErrCompile, backend.PhaseCompile,
				"Compilation failed: "+compileMessage(pr), nil)
		}
		compileOut = pr.stdout
	}

	name, args := profile.RunInvocation(paths)
	timeout := profile.RunTimeout
	if timeout <= 0 {
		timeout = language.DefaultRunTimeout
	}
	e.logger.Debug("running", "execution_id", spec.ID, "language", lang, "command", name)

	pr, err := runProcess(ctx, e.logger, processSpec{
		name:      name,
		args:      args,
		dir:       ws.dir,
		stdin:     spec.Stdin,
		timeout:   timeout,
		onLine:    spec.LogWriter,
		maxOutput: e.cfg.MaxOutputBytes,
		killGrace: e.cfg.KillGrace,
	})
	phaseDuration.WithLabelValues(lang, string(backend.PhaseRun)).Observe(pr.duration.Seconds())
	if err != nil {
		return backend.Result{}, spawnError(err, name, backend.PhaseRun)
	}
	if pr.timedOut {
		return backend.Result{}, backend.NewError(backend.ErrTimeout, backend.PhaseRun,
			fmt.Sprintf("Execution timed out after %s", timeout), nil)
	}

	runErr := strings.TrimSpace(pr.stderr)
	if runErr == "" && pr.exitCode != 0 {
		runErr = fmt.Sprintf("Process exited with code %d", pr.exitCode)
	}

	return backend.Result{
		Output:     backend.ComposeOutput(compileOut, pr.stdout),
		Error:      runErr,
		DurationMS: pr.duration.Milliseconds(),
		Provider:   model.ProviderLocal,
	}, nil
}

func compileMessage(pr processResult) string {
	if msg := strings.TrimSpace(pr.stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(pr.stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("compiler exited with code %d", pr.exitCode)
}

func spawnError(err error, name string, phase backend.Phase) error {
	if errors.Is(err, errToolchainNotFound) {
		return backend.NewError(backend.ErrMissingToolchain, phase,
			fmt.Sprintf("Local toolchain not available: %s not found", name), err)
	}
	return fmt.Errorf("%s phase: %w", phase, err)
}

func (e *Executor) createWorkspace(spec backend.Spec, profile language.Profile) (workspace, error) {
	id := spec.ID
	if id == "" {
		id = model.NewID()
	}
	dir, err := os.MkdirTemp(e.cfg.WorkspaceRoot, workspacePrefix+id+"-")
	if err != nil {
		return workspace{}, fmt.Errorf("create workspace: %w", err)
	}

	e.mu.Lock()
	e.workspaces[id] = dir
	e.mu.Unlock()
	activeWorkspaces.Inc()

	ws := workspace{key: id, dir: dir, source: filepath.Join(dir, profile.SourceFile())}
	if err := os.WriteFile(ws.source, []byte(spec.Code), 0o644); err != nil {
		e.removeWorkspace(id, dir)
		return workspace{}, fmt.Errorf("write source: %w", err)
	}
	return ws, nil
}

// removeWorkspace deletes dir. Failures are logged and counted only.
func (e *Executor) removeWorkspace(id, dir string) {
	e.mu.Lock()
	if e.workspaces[id] == dir {
		delete(e.workspaces, id)
	}
	e.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		cleanupFailures.Inc()
		e.logger.Error("failed to remove workspace", "execution_id", id, "dir", dir, "error", err)
		return
	}
	activeWorkspaces.Dec()
}

// Active returns the number of workspaces currently on disk.
func (e *Executor) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.workspaces)
}

// Remove deletes the workspace of the given execution if it still exists.
func (e *Executor) Remove(id string) {
	e.mu.Lock()
	dir, ok := e.workspaces[id]
	e.mu.Unlock()
	if ok {
		e.removeWorkspace(id, dir)
	}
}

// RemoveAll deletes every tracked workspace.
func (e *Executor) RemoveAll() {
	e.mu.Lock()
	dirs := make(map[string]string, len(e.workspaces))
	for id, dir := range e.workspaces {
		dirs[id] = dir
	}
	e.mu.Unlock()

	for id, dir := range dirs {
		e.removeWorkspace(id, dir)
	}
}
