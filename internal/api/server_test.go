package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/backend/remote"
	"github.com/seantiz/runbox/internal/engine"
	"github.com/seantiz/runbox/internal/language"
	"github.com/seantiz/runbox/internal/model"
	"github.com/seantiz/runbox/internal/store"
)

// echoBackend returns the submitted code as output and emits it as one line.
type echoBackend struct{}

func (echoBackend) Execute(_ context.Context, spec backend.Spec) (backend.Result, error) {
	if spec.Code == "fail" {
		return backend.Result{}, backend.NewError(backend.ErrCompile, backend.PhaseCompile, "Compilation failed: fail", nil)
	}
	if spec.LogWriter != nil {
		spec.LogWriter(spec.Code)
	}
	return backend.Result{Output: spec.Code, DurationMS: 3, Provider: model.ProviderLocal}, nil
}

func (echoBackend) Capabilities() backend.Capabilities {
	return backend.Capabilities{Name: backend.NameLocal, Provider: model.ProviderLocal, Languages: []string{"python"}}
}

func (echoBackend) Cleanup(context.Context, string) error { return nil }

type fixedToolchains map[string]bool

func (f fixedToolchains) Toolchains() map[string]bool { return f }

type fixedRuntimes struct {
	rts []remote.Runtime
	err error
}

func (f fixedRuntimes) Runtimes(context.Context) ([]remote.Runtime, error) { return f.rts, f.err }

func newTestServer(t *testing.T, opts ...func(*Deps)) *Server {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := backend.NewRegistry()
	reg.Register(backend.NameLocal, echoBackend{})
	langs := language.DefaultRegistry()
	eng := engine.NewEngine(s, reg, langs, engine.Policy{AutoFallback: true}, logger)
	t.Cleanup(eng.Wait)

	deps := Deps{
		Store:     s,
		Backends:  reg,
		Engine:    eng,
		Languages: langs,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewServer(":0", deps, logger)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPanicRecovery(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/panic")
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/test", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /test: %v", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}
