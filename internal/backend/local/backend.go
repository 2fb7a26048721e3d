package local

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/language"
	"github.com/seantiz/runbox/internal/model"
)

// Compile-time interface satisfaction check.
var _ backend.Backend = (*Backend)(nil)

// Backend runs submissions as host processes. It resolves the language
// profile, bounds concurrency, and delegates to an Executor.
type Backend struct {
	cfg       Config
	languages *language.Registry
	executor  *Executor
	sem       *semaphore.Weighted
	logger    *slog.Logger
	lookPath  func(string) (string, error)
}

// New creates a local backend.
func New(cfg Config, languages *language.Registry, logger *slog.Logger) (*Backend, error) {
	cfg = cfg.withDefaults()
	ex, err := NewExecutor(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Backend{
		cfg:       cfg,
		languages: languages,
		executor:  ex,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:    logger,
		lookPath:  exec.LookPath,
	}, nil
}

// Execute looks up the language profile and runs the submission once a
// concurrency slot is free.
func (b *Backend) Execute(ctx context.Context, spec backend.Spec) (backend.Result, error) {
	profile, err := b.languages.Lookup(spec.Language)
	if err != nil || profile.MarkupOnly {
		executionsTotal.WithLabelValues("unknown", "unsupported_language").Inc()
		return backend.Result{}, backend.NewError(backend.ErrUnsupportedLanguage, backend.PhaseResolve,
			fmt.Sprintf("Unsupported language: %s", spec.Language), err)
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return backend.Result{}, fmt.Errorf("wait for execution slot: %w", err)
	}
	defer b.sem.Release(1)

	res, err := b.executor.Run(ctx, spec, profile)
	executionsTotal.WithLabelValues(string(profile.ID), backend.KindLabel(err)).Inc()
	if err != nil {
		b.logger.Info("local execution failed",
			"execution_id", spec.ID,
			"language", profile.ID,
			"kind", backend.KindLabel(err),
			"error", err,
		)
		return backend.Result{}, err
	}
	return res, nil
}

// Capabilities reports the executable languages and the concurrency bound.
func (b *Backend) Capabilities() backend.Capabilities {
	var langs []string
	for _, p := range b.languages.List() {
		if !p.MarkupOnly {
			langs = append(langs, string(p.ID))
		}
	}
	return backend.Capabilities{
		Name:           backend.NameLocal,
		Provider:       model.ProviderLocal,
		Languages:      langs,
		MaxConcurrency: b.cfg.MaxConcurrent,
	}
}

// Cleanup removes the workspace of the given execution if one is left. The
// engine calls it only after Execute has returned or panicked, so the
// workspace is never in use.
func (b *Backend) Cleanup(_ context.Context, executionID string) error {
	b.executor.Remove(executionID)
	return nil
}

// Shutdown removes every workspace still on disk.
func (b *Backend) Shutdown(_ context.Context) {
	if n := b.executor.Active(); n > 0 {
		b.logger.Warn("removing leftover workspaces", "count", n)
	}
	b.executor.RemoveAll()
}

// Toolchains reports, per executable language, whether every binary its
// profile needs is found on PATH.
func (b *Backend) Toolchains() map[string]bool {
	out := make(map[string]bool)
	for _, p := range b.languages.List() {
		if p.MarkupOnly {
			continue
		}
		ok := true
		for _, bin := range p.Binaries() {
			if _, err := b.lookPath(bin); err != nil {
				ok = false
				break
			}
		}
		out[string(p.ID)] = ok
	}
	return out
}
