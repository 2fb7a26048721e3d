package api

import (
	"context"
	"net/http"

	"github.com/seantiz/runbox/internal/backend/remote"
)

// ToolchainReporter reports which languages have a local toolchain on PATH.
type ToolchainReporter interface {
	Toolchains() map[string]bool
}

// RuntimeLister lists the runtimes offered by the remote provider.
type RuntimeLister interface {
	Runtimes(ctx context.Context) ([]remote.Runtime, error)
}

type languageInfo struct {
	ID             string `json:"id"`
	Compiled       bool   `json:"compiled"`
	MarkupOnly     bool   `json:"markup_only"`
	Extension      string `json:"extension"`
	LocalAvailable bool   `json:"local_available"`
}

type runtimesResponse struct {
	Runtimes []remote.Runtime `json:"runtimes"`
}

func (s *Server) handleListLanguages(w http.ResponseWriter, _ *http.Request) {
	var available map[string]bool
	if s.toolchains != nil {
		available = s.toolchains.Toolchains()
	}

	profiles := s.languages.List()
	infos := make([]languageInfo, len(profiles))
	for i, p := range profiles {
		infos[i] = languageInfo{
			ID:             string(p.ID),
			Compiled:       p.Compile != nil,
			MarkupOnly:     p.MarkupOnly,
			Extension:      p.Extension,
			LocalAvailable: available[string(p.ID)],
		}
	}

	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleListRuntimes(w http.ResponseWriter, r *http.Request) {
	if s.runtimes == nil {
		s.writeError(w, http.StatusNotFound, "remote provider not configured")
		return
	}

	rts, err := s.runtimes.Runtimes(r.Context())
	if err != nil {
		s.logger.Warn("list remote runtimes", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "remote provider unavailable")
		return
	}
	if rts == nil {
		rts = []remote.Runtime{}
	}

	s.writeJSON(w, http.StatusOK, runtimesResponse{Runtimes: rts})
}
