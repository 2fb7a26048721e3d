package api

import (
	"net/http"
)

type healthResponse struct {
	Status       string `json:"status"`
	ForceRemote  bool   `json:"force_remote"`
	AutoFallback bool   `json:"auto_fallback"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	policy := s.engine.Policy()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		ForceRemote:  policy.ForceRemote,
		AutoFallback: policy.AutoFallback,
	})
}
