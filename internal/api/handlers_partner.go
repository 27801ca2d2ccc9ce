package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kindlight/protection-core/internal/blackout"
	"github.com/kindlight/protection-core/internal/pkg/httputil"
)

type partnerSignalRequest struct {
	SubjectID string `json:"subject_id"`
	SignalID  string `json:"signal_id"`
}

type extendRequest struct {
	Hours  int    `json:"hours"`
	Reason string `json:"reason"`
}

// partnerCtx bounds partner operations; on timeout the blackout keeps
// its prior state.
func (s *Server) partnerCtx(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := s.cfg.PartnerTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

// handlePartnerSignal registers a distress signal. The blackout opens as
// part of registration; there is no signal without one.
func (s *Server) handlePartnerSignal(w http.ResponseWriter, r *http.Request) {
	var req partnerSignalRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.SubjectID == "" || req.SignalID == "" {
		httputil.BadRequest(w, "subject_id and signal_id are required")
		return
	}

	ctx, cancel := s.partnerCtx(r)
	defer cancel()

	b, err := s.blackouts.Open(ctx, req.SubjectID, req.SignalID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, b)
}

func (s *Server) handleGetBlackout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.partnerCtx(r)
	defer cancel()

	b, err := s.blackouts.Get(ctx, partnerFrom(r), chi.URLParam(r, "signalID"))
	if err != nil {
		s.blackoutError(w, err)
		return
	}
	httputil.OK(w, b)
}

func (s *Server) handleExtendBlackout(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	ctx, cancel := s.partnerCtx(r)
	defer cancel()

	b, err := s.blackouts.Extend(ctx, partnerFrom(r), chi.URLParam(r, "signalID"), req.Hours, req.Reason)
	if err != nil {
		s.blackoutError(w, err)
		return
	}
	httputil.OK(w, b)
}

func (s *Server) handleReleaseBlackout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.partnerCtx(r)
	defer cancel()

	b, err := s.blackouts.Release(ctx, partnerFrom(r), chi.URLParam(r, "signalID"))
	if err != nil {
		s.blackoutError(w, err)
		return
	}
	httputil.OK(w, b)
}

func (s *Server) blackoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blackout.ErrNotFound):
		httputil.NotFound(w, "blackout not found")
	case errors.Is(err, blackout.ErrInvalidExtension):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, blackout.ErrNotActive):
		httputil.Conflict(w, "blackout is not active")
	case errors.Is(err, blackout.ErrConflict), errors.Is(err, blackout.ErrLockUnavailable):
		httputil.Conflict(w, "concurrent transition in progress, retry")
	default:
		httputil.InternalError(w, err)
	}
}
