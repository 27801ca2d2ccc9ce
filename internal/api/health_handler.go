package api

import (
	"net/http"
	"time"

	"github.com/kindlight/protection-core/internal/pkg/httputil"
)

// handleHealth reports process liveness and allowlist freshness. No
// subject-related state appears here; the endpoint is unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	}
	if s.allowlist != nil {
		resp["allowlist_entries"] = s.allowlist.Size()
		resp["allowlist_stale"] = s.allowlist.Stale()
		if loaded := s.allowlist.LoadedAt(); !loaded.IsZero() {
			resp["allowlist_age_seconds"] = int(time.Since(loaded).Seconds())
		}
	}
	httputil.OK(w, resp)
}
