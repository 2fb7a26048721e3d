package backend

import (
	"errors"

	"github.com/seantiz/runbox/internal/language"
)

// Failure kinds. Every error returned by a backend wraps exactly one of them.
var (
	ErrUnsupportedLanguage       = language.ErrUnsupported
	ErrMissingToolchain          = errors.New("missing toolchain")
	ErrCompile                   = errors.New("compilation failed")
	ErrTimeout                   = errors.New("execution timed out")
	ErrRemoteUnavailable         = errors.New("remote provider unavailable")
	ErrRemoteExecutionFailed     = errors.New("remote execution failed")
	ErrUnsupportedRemoteLanguage = errors.New("language not supported by remote provider")
)

// Phase names the step of an execution a failure happened in.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhaseCompile Phase = "compile"
	PhaseRun     Phase = "run"
	PhaseCatalog Phase = "catalog"
	PhaseExecute Phase = "execute"
)

// ExecError is a typed execution failure. Message is the caller-facing text.
type ExecError struct {
	Kind    error
	Phase   Phase
	Message string
	Err     error
}

// NewError builds an ExecError of the given kind.
func NewError(kind error, phase Phase, message string, cause error) *ExecError {
	return &ExecError{Kind: kind, Phase: phase, Message: message, Err: cause}
}

func (e *ExecError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *ExecError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

var kindLabels = []struct {
	kind  error
	label string
}{
	{ErrMissingToolchain, "missing_toolchain"},
	{ErrCompile, "compile_error"},
	{ErrTimeout, "timeout"},
	{ErrUnsupportedRemoteLanguage, "unsupported_remote_language"},
	{ErrUnsupportedLanguage, "unsupported_language"},
	{ErrRemoteUnavailable, "remote_unavailable"},
	{ErrRemoteExecutionFailed, "remote_execution_failed"},
}

// KindLabel returns a stable short name for err's failure kind, suitable for
// metric labels. Unknown errors map to "internal".
func KindLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kindLabels {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "internal"
}

// Message returns the caller-facing text of err.
func Message(err error) string {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Message
	}
	return err.Error()
}
