package api

import (
	"net/http"
	"time"

	"github.com/kindlight/protection-core/internal/pkg/httputil"
)

type gateDecisionRequest struct {
	SubjectID string     `json:"subject_id"`
	URL       string     `json:"url"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type gateDecisionResponse struct {
	Suppress bool `json:"suppress"`
}

// handleGateDecision answers the capture pipeline's per-observation
// question. The response carries the boolean and nothing else.
func (s *Server) handleGateDecision(w http.ResponseWriter, r *http.Request) {
	var req gateDecisionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.SubjectID == "" {
		httputil.BadRequest(w, "subject_id is required")
		return
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	suppress := s.decider.ShouldSuppress(r.Context(), req.SubjectID, req.URL, at)
	httputil.OK(w, gateDecisionResponse{Suppress: suppress})
}
