package backend_test

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/language"
)

// mockBackend is a minimal Backend implementation used to verify the interface
// is implementable and the domain types are usable.
type mockBackend struct {
	executeFn func(ctx context.Context, spec backend.Spec) (backend.Result, error)
}

func (m *mockBackend) Execute(ctx context.Context, spec backend.Spec) (backend.Result, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, spec)
	}
	return backend.Result{Output: "ok", Provider: "mock"}, nil
}

func (m *mockBackend) Capabilities() backend.Capabilities {
	return backend.Capabilities{Name: "mock", MaxConcurrency: 4}
}

func (m *mockBackend) Cleanup(_ context.Context, _ string) error {
	return nil
}

// Compile-time check that mockBackend satisfies the Backend interface.
var _ backend.Backend = (*mockBackend)(nil)

func TestMockBackendExecute(t *testing.T) {
	var got backend.Spec
	m := &mockBackend{executeFn: func(_ context.Context, spec backend.Spec) (backend.Result, error) {
		got = spec
		return backend.Result{Output: "hi"}, nil
	}}

	res, err := m.Execute(context.Background(), backend.Spec{ID: "x", Language: "python", Code: "print('hi')"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "hi" {
		t.Errorf("Output = %q, want %q", res.Output, "hi")
	}
	if got.Language != "python" {
		t.Errorf("spec.Language = %q, want python", got.Language)
	}
}

func TestExecErrorMatchesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("start python3: %w", exec.ErrNotFound)
	err := backend.NewError(backend.ErrMissingToolchain, backend.PhaseRun, "python3 is not installed", cause)

	if !errors.Is(err, backend.ErrMissingToolchain) {
		t.Error("errors.Is(err, ErrMissingToolchain) = false")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Error("errors.Is(err, exec.ErrNotFound) = false")
	}
	if errors.Is(err, backend.ErrCompile) {
		t.Error("errors.Is(err, ErrCompile) = true")
	}
	if err.Error() != "python3 is not installed" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := fmt.Errorf("local: %w", err)
	var execErr *backend.ExecError
	if !errors.As(wrapped, &execErr) {
		t.Fatal("errors.As did not find *ExecError")
	}
	if execErr.Phase != backend.PhaseRun {
		t.Errorf("Phase = %q, want run", execErr.Phase)
	}
	if backend.Message(wrapped) != "python3 is not installed" {
		t.Errorf("Message() = %q", backend.Message(wrapped))
	}
}

func TestUnsupportedLanguageSharesRegistrySentinel(t *testing.T) {
	_, err := language.DefaultRegistry().Lookup("cobol")
	if !errors.Is(err, backend.ErrUnsupportedLanguage) {
		t.Errorf("registry error %v does not match ErrUnsupportedLanguage", err)
	}
}

func TestKindLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{backend.NewError(backend.ErrCompile, backend.PhaseCompile, "x", nil), "compile_error"},
		{backend.NewError(backend.ErrTimeout, backend.PhaseRun, "x", nil), "timeout"},
		{backend.NewError(backend.ErrMissingToolchain, backend.PhaseRun, "x", nil), "missing_toolchain"},
		{backend.NewError(backend.ErrUnsupportedRemoteLanguage, backend.PhaseResolve, "x", nil), "unsupported_remote_language"},
		{backend.NewError(backend.ErrUnsupportedLanguage, backend.PhaseResolve, "x", nil), "unsupported_language"},
		{backend.NewError(backend.ErrRemoteUnavailable, backend.PhaseCatalog, "x", nil), "remote_unavailable"},
		{backend.NewError(backend.ErrRemoteExecutionFailed, backend.PhaseExecute, "x", nil), "remote_execution_failed"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := backend.KindLabel(tt.err); got != tt.want {
			t.Errorf("KindLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
