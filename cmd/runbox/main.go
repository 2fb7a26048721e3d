package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
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

const drainTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("runbox: %v", err)
	}
}

func run() error {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	localCfg := local.LoadConfig()
	remoteCfg := remote.LoadConfig()

	logger.Info("runbox: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"force_remote", cfg.ForceRemote,
		"force_remote_reason", cfg.ForceRemoteReason,
		"auto_fallback", cfg.AutoFallback,
		"remote_base_url", remoteCfg.BaseURL,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	languages := language.DefaultRegistry()

	lb, err := local.New(localCfg, languages, logger)
	if err != nil {
		return fmt.Errorf("create local backend: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		lb.Shutdown(ctx)
	}()

	rb := remote.New(remoteCfg, logger)

	reg := backend.NewRegistry()
	reg.Register(backend.NameLocal, lb)
	reg.Register(backend.NameRemote, rb)

	missing := make([]string, 0)
	for id, ok := range lb.Toolchains() {
		if !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	if len(missing) > 0 {
		logger.Info("local toolchains not found", "languages", missing)
	}

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

	err = srv.Run()
	eng.Wait()
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
