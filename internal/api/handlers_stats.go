package api

import (
	"net/http"
)

func (s *Server) handleMutationStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.Len(),
		"stats":    s.stats.Snapshot(),
	})
}
