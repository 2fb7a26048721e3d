package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/model"
)

// Compile-time interface satisfaction check.
var _ backend.Backend = (*Backend)(nil)

// Backend executes submissions on the remote provider.
type Backend struct {
	client  *Client
	catalog *Catalog
	logger  *slog.Logger
}

// New creates a remote backend for the provider at cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) *Backend {
	cfg = cfg.withDefaults()
	client := NewClient(cfg)
	return &Backend{
		client:  client,
		catalog: NewCatalog(client.Runtimes, WithTTL(cfg.CatalogTTL), WithLogger(logger)),
		logger:  logger,
	}
}

// Catalog returns the backend's runtime catalog.
func (b *Backend) Catalog() *Catalog {
	return b.catalog
}

// Execute resolves spec.Language against the runtime catalog and runs the
// submission on the provider.
func (b *Backend) Execute(ctx context.Context, spec backend.Spec) (backend.Result, error) {
	rt, err := b.catalog.Resolve(ctx, spec.Language)
	if err != nil {
		executionsTotal.WithLabelValues(backend.KindLabel(err)).Inc()
		return backend.Result{}, err
	}

	res, err := b.Run(ctx, spec, rt)
	executionsTotal.WithLabelValues(backend.KindLabel(err)).Inc()
	return res, err
}

// Run submits spec to the provider using the given runtime and normalizes the
// response.
func (b *Backend) Run(ctx context.Context, spec backend.Spec, rt Runtime) (backend.Result, error) {
	b.logger.Debug("submitting remote execution",
		"execution_id", spec.ID,
		"language", rt.Language,
		"version", rt.Version,
	)

	start := time.Now()
	resp, err := b.client.Execute(ctx, newExecuteRequest(rt, spec.Code, spec.Stdin))
	elapsed := time.Since(start)
	if err != nil {
		return backend.Result{}, executeError(err)
	}

	if resp.Run == nil && resp.Message != "" {
		return backend.Result{}, backend.NewError(backend.ErrRemoteExecutionFailed, backend.PhaseExecute,
			"Remote execution failed: "+resp.Message, nil)
	}

	var compileOut, runOut, runErr string
	if c := resp.Compile; c != nil {
		compileOut = c.Output
		// A failed build with no run stage is reported softly.
		if resp.Run == nil && c.Code != nil && *c.Code != 0 {
			msg := strings.TrimSpace(c.Stderr)
			if msg == "" {
				msg = strings.TrimSpace(c.Output)
			}
			runErr = "Compilation failed: " + msg
		}
	}
	if r := resp.Run; r != nil {
		runOut = r.Output
		runErr = strings.TrimSpace(r.Stderr)
		if runErr == "" && r.Code != nil && *r.Code != 0 {
			runErr = fmt.Sprintf("Process exited with code %d", *r.Code)
		}
	}

	if spec.LogWriter != nil {
		for line := range strings.Lines(runOut) {
			spec.LogWriter(strings.TrimRight(line, "\r\n"))
		}
	}

	return backend.Result{
		Output:     backend.ComposeOutput(compileOut, runOut),
		Error:      runErr,
		DurationMS: elapsed.Milliseconds(),
		Provider:   model.ProviderRemote,
	}, nil
}

func executeError(err error) error {
	var perr *Error
	switch {
	case errors.As(err, &perr):
		msg := fmt.Sprintf("Remote execution failed with status %d", perr.Code)
		if perr.Message != "" {
			msg += ": " + perr.Message
		}
		return backend.NewError(backend.ErrRemoteExecutionFailed, backend.PhaseExecute, msg, err)
	case errors.Is(err, errMalformedResponse):
		return backend.NewError(backend.ErrRemoteExecutionFailed, backend.PhaseExecute,
			"Remote execution failed: provider returned an unreadable response", err)
	default:
		return backend.NewError(backend.ErrRemoteUnavailable, backend.PhaseExecute,
			fmt.Sprintf("Remote execution provider unavailable: %v", err), err)
	}
}

// Capabilities reports the languages in the cached catalog without fetching.
func (b *Backend) Capabilities() backend.Capabilities {
	rts := b.catalog.Cached()
	langs := make([]string, 0, len(rts))
	seen := make(map[string]bool, len(rts))
	for _, rt := range rts {
		if !seen[rt.Language] {
			seen[rt.Language] = true
			langs = append(langs, rt.Language)
		}
	}
	return backend.Capabilities{
		Name:      backend.NameRemote,
		Provider:  model.ProviderRemote,
		Languages: langs,
	}
}

// Cleanup is a no-op; the provider owns its execution resources.
func (b *Backend) Cleanup(_ context.Context, _ string) error {
	return nil
}
