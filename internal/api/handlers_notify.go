package api

import (
	"net/http"

	"github.com/kindlight/protection-core/internal/pkg/httputil"
)

type notifyRecipientsRequest struct {
	SubjectID  string   `json:"subject_id"`
	Candidates []string `json:"candidates"`
}

type notifyRecipientsResponse struct {
	Recipients []string `json:"recipients"`
}

// handleNotifyRecipients filters a dispatch candidate list for a subject.
// The dispatch service calls this before sending anything subject-related;
// the response never says why a recipient was removed.
func (s *Server) handleNotifyRecipients(w http.ResponseWriter, r *http.Request) {
	var req notifyRecipientsRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.SubjectID == "" {
		httputil.BadRequest(w, "subject_id is required")
		return
	}

	kept := s.recipients.Recipients(r.Context(), req.SubjectID, req.Candidates)
	if kept == nil {
		kept = []string{}
	}
	httputil.OK(w, notifyRecipientsResponse{Recipients: kept})
}
