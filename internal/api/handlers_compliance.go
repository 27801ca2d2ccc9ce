package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/httputil"
	"github.com/kindlight/protection-core/internal/sealed"
)

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := sealed.QueryFilter{
		Shard:   q.Get("shard"),
		Action:  domain.AuditAction(q.Get("action")),
		ActorID: q.Get("actor"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.BadRequest(w, "from must be RFC3339")
			return
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.BadRequest(w, "to must be RFC3339")
			return
		}
		f.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "limit must be an integer")
			return
		}
		f.Limit = n
	}

	entries, err := s.audit.Query(r.Context(), complianceFrom(r), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	shard := chi.URLParam(r, "shard")

	verified, err := s.audit.VerifyChain(r.Context(), complianceFrom(r), shard)
	switch {
	case errors.Is(err, sealed.ErrShardEmpty):
		httputil.NotFound(w, "shard has no entries")
	case errors.Is(err, sealed.ErrIntegrity):
		httputil.JSON(w, http.StatusConflict, map[string]interface{}{
			"intact":           false,
			"verified_entries": verified,
			"error":            err.Error(),
		})
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]interface{}{
			"intact":           true,
			"verified_entries": verified,
		})
	}
}

func (s *Server) handleAuditArchive(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "archive export is not configured")
		return
	}

	key, err := s.archiver.Export(r.Context(), complianceFrom(r), chi.URLParam(r, "shard"))
	if err != nil {
		if errors.Is(err, sealed.ErrIntegrity) {
			httputil.Conflict(w, "shard failed verification, not archived")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"key": key})
}
