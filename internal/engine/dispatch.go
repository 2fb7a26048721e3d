package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/language"
	"github.com/seantiz/runbox/internal/model"
)

// Dispatch states, logged under the "state" attribute.
const (
	stateDispatching   = "dispatching"
	stateLocalRunning  = "local_running"
	stateRemoteRunning = "remote_running"
	stateDone          = "done"
	stateFailed        = "failed"
)

// Policy controls where submissions are allowed to run.
type Policy struct {
	// ForceRemote sends every executable submission to the remote backend.
	ForceRemote bool
	// AutoFallback retries on the remote backend when the local toolchain
	// is missing.
	AutoFallback bool
}

// Execute runs one submission and returns its normalized result. It never
// fails: every error, including a panic inside a backend, is reported as an
// unsuccessful result. logWriter may be nil.
func (e *Engine) Execute(ctx context.Context, req model.ExecutionRequest, logWriter func(string)) model.ExecutionResult {
	return e.dispatch(ctx, model.NewID(), req, logWriter)
}

func (e *Engine) dispatch(ctx context.Context, id string, req model.ExecutionRequest, logWriter func(string)) (res model.ExecutionResult) {
	start := time.Now()
	logger := e.logger.With("execution_id", id, "language", req.Language)
	logger.Debug("execution state", "state", stateDispatching)

	provider := model.ProviderNone
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during execution", "panic", r, "stack", string(debug.Stack()))
			res = e.finish(logger, start, provider, backend.Result{},
				fmt.Errorf("internal error: %v", r))
		}
	}()

	if e.languages.IsMarkup(req.Language) {
		canon, _ := e.languages.Parse(req.Language)
		dispatchTotal.WithLabelValues(model.ProviderNone, "ok").Inc()
		logger.Info("execution state", "state", stateDone, "provider", model.ProviderNone)
		return model.ExecutionResult{
			Success:  true,
			Output:   fmt.Sprintf("%s accepted (markup is rendered, not executed)", canon),
			Provider: model.ProviderNone,
		}
	}

	spec := backend.Spec{
		ID:        id,
		Language:  language.Normalize(req.Language),
		Code:      req.Code,
		Stdin:     req.Input,
		LogWriter: logWriter,
	}

	if e.policy.ForceRemote || !e.registry.Has(backend.NameLocal) {
		provider = model.ProviderRemote
		logger.Debug("execution state", "state", stateRemoteRunning, "forced", e.policy.ForceRemote)
		out, err := e.run(ctx, backend.NameRemote, spec)
		return e.finish(logger, start, provider, out, err)
	}

	if _, known := e.languages.Parse(req.Language); !known {
		if !e.registry.Has(backend.NameRemote) {
			return e.finish(logger, start, provider, backend.Result{}, unsupportedLanguage(req.Language, nil))
		}
		provider = model.ProviderRemote
		logger.Debug("execution state", "state", stateRemoteRunning, "reason", "unknown_language")
		out, err := e.run(ctx, backend.NameRemote, spec)
		if errors.Is(err, backend.ErrUnsupportedRemoteLanguage) {
			err = unsupportedLanguage(req.Language, err)
		}
		return e.finish(logger, start, provider, out, err)
	}

	provider = model.ProviderLocal
	logger.Debug("execution state", "state", stateLocalRunning)
	out, err := e.run(ctx, backend.NameLocal, spec)
	if err == nil || !errors.Is(err, backend.ErrMissingToolchain) ||
		!e.policy.AutoFallback || !e.registry.Has(backend.NameRemote) {
		return e.finish(logger, start, provider, out, err)
	}

	provider = model.ProviderRemote
	logger.Info("local toolchain missing, falling back to remote",
		"state", stateRemoteRunning,
		"error", err,
	)
	out, rerr := e.run(ctx, backend.NameRemote, spec)
	if rerr != nil {
		fallbacksTotal.WithLabelValues("failed").Inc()
		combined := backend.NewError(backend.ErrMissingToolchain, backend.PhaseExecute,
			fmt.Sprintf("%s. Remote fallback failed: %s", backend.Message(err), backend.Message(rerr)),
			errors.Join(err, rerr))
		return e.finish(logger, start, provider, backend.Result{}, combined)
	}
	fallbacksTotal.WithLabelValues("ok").Inc()
	return e.finish(logger, start, provider, out, nil)
}

// run hands spec to the backend registered under name. If the backend
// panics, its leftovers for spec.ID are released before the panic continues
// to the dispatcher.
func (e *Engine) run(ctx context.Context, name string, spec backend.Spec) (backend.Result, error) {
	b, err := e.registry.Get(name)
	if err != nil {
		return backend.Result{}, fmt.Errorf("resolve backend: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if cerr := b.Cleanup(context.WithoutCancel(ctx), spec.ID); cerr != nil {
				e.logger.Warn("cleanup after panic failed", "execution_id", spec.ID, "backend", name, "error", cerr)
			}
			panic(r)
		}
	}()
	return b.Execute(ctx, spec)
}

// finish converts a backend outcome into the caller-facing result.
func (e *Engine) finish(logger *slog.Logger, start time.Time, provider string, out backend.Result, err error) model.ExecutionResult {
	if err != nil {
		kind := backend.KindLabel(err)
		dispatchTotal.WithLabelValues(provider, kind).Inc()
		logger.Info("execution state",
			"state", stateFailed,
			"provider", provider,
			"kind", kind,
			"error", err,
		)
		return model.ExecutionResult{
			Success:         false,
			Error:           backend.Message(err),
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			Provider:        provider,
		}
	}

	if out.Provider != "" {
		provider = out.Provider
	}
	dispatchTotal.WithLabelValues(provider, "ok").Inc()
	logger.Info("execution state",
		"state", stateDone,
		"provider", provider,
		"duration_ms", out.DurationMS,
	)
	return model.ExecutionResult{
		Success:         true,
		Output:          out.Output,
		Error:           out.Error,
		ExecutionTimeMS: out.DurationMS,
		Provider:        provider,
	}
}

func unsupportedLanguage(id string, cause error) error {
	return backend.NewError(backend.ErrUnsupportedLanguage, backend.PhaseResolve,
		fmt.Sprintf("Unsupported language: %s", id), cause)
}
