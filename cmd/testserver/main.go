// testserver starts a runbox API server for end-to-end tests. Local
// execution uses the host shell for bash and a deliberately missing
// interpreter for python, so python submissions always fall back to an
// in-process fake of the remote provider.
//
// Usage: go run ./cmd/testserver
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/seantiz/runbox/internal/api"
	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/backend/local"
	"github.com/seantiz/runbox/internal/backend/remote"
	"github.com/seantiz/runbox/internal/config"
	"github.com/seantiz/runbox/internal/engine"
	"github.com/seantiz/runbox/internal/language"
	"github.com/seantiz/runbox/internal/store"
)

// fakeProvider serves the two provider endpoints the remote backend uses.
// Execution echoes the submitted source prefixed with "remote: ".
func fakeProvider() http.Handler {
	runtimes := []remote.Runtime{
		{Language: "python", Version: "3.11.0", Aliases: []string{"py", "python3"}},
		{Language: "bash", Version: "5.2.0", Aliases: []string{"sh"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /runtimes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(runtimes)
	})
	mux.HandleFunc("POST /execute", func(w http.ResponseWriter, r *http.Request) {
		var req remote.ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Files) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "bad request"})
			return
		}
		code := 0
		out := "remote: " + strings.TrimSpace(req.Files[0].Content) + "\n"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(remote.ExecuteResponse{
			Language: req.Language,
			Version:  req.Version,
			Run:      &remote.Stage{Stdout: out, Output: out, Code: &code},
		})
	})
	return mux
}

// localProfiles runs bash through sh and points python at a binary that
// does not exist.
func localProfiles() *language.Registry {
	return language.NewRegistry(
		language.Profile{ID: language.Bash, RunCommand: "sh", Extension: ".sh", RunTimeout: 5 * time.Second},
		language.Profile{ID: language.Python, RunCommand: "runbox-testserver-no-python", Extension: ".py"},
	)
}

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	provider := httptest.NewServer(fakeProvider())
	defer provider.Close()

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	lb, err := local.New(local.Config{WorkspaceRoot: os.TempDir()}, localProfiles(), logger)
	if err != nil {
		log.Fatalf("failed to create local backend: %v", err)
	}
	rb := remote.New(remote.Config{BaseURL: provider.URL}, logger)

	reg := backend.NewRegistry()
	reg.Register(backend.NameLocal, lb)
	reg.Register(backend.NameRemote, rb)

	languages := language.DefaultRegistry()
	eng := engine.NewEngine(db, reg, languages, engine.Policy{
		ForceRemote:  cfg.ForceRemote,
		AutoFallback: cfg.AutoFallback,
	}, logger)

	srv := api.NewServer(cfg.ListenAddr, api.Deps{
		Store:      db,
		Backends:   reg,
		Engine:     eng,
		Languages:  languages,
		Toolchains: lb,
		Runtimes:   rb.Catalog(),
		RateLimit:  api.RateLimit{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
	}, logger)

	logger.Info("testserver: starting", "addr", cfg.ListenAddr, "provider", provider.URL)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	eng.Wait()
}
