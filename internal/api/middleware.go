package api

import (
	"context"
	"net/http"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/httputil"
)

type ctxKey int

const (
	ctxKeyGate ctxKey = iota
	ctxKeyPartner
	ctxKeyCompliance
)

// requireGate admits only capture-gate service tokens.
func (s *Server) requireGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			s.reject(w, r, auth.AudienceGate)
			return
		}
		p, err := s.gateAuth.Verify(token)
		if err != nil {
			s.reject(w, r, auth.AudienceGate)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyGate, p)))
	})
}

// requirePartner admits only external-partner tokens.
func (s *Server) requirePartner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			s.reject(w, r, auth.AudiencePartner)
			return
		}
		p, err := s.partnerAuth.Verify(token)
		if err != nil {
			s.reject(w, r, auth.AudiencePartner)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPartner, p)))
	})
}

// requireCompliance admits only compliance tokens.
func (s *Server) requireCompliance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			s.reject(w, r, auth.AudienceCompliance)
			return
		}
		p, err := s.complianceAuth.Verify(token)
		if err != nil {
			s.reject(w, r, auth.AudienceCompliance)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyCompliance, p)))
	})
}

// reject answers 403 and records the attempt in the sealed log. The
// response never says which check failed.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, audience string) {
	if s.alarms != nil {
		_ = s.alarms.RecordDegraded(r.Context(), domain.AuditAuthRejected, map[string]string{
			"path":     r.URL.Path,
			"audience": audience,
		})
	}
	httputil.Forbidden(w, "forbidden")
}

func partnerFrom(r *http.Request) auth.PartnerPrincipal {
	p, _ := r.Context().Value(ctxKeyPartner).(auth.PartnerPrincipal)
	return p
}

func complianceFrom(r *http.Request) auth.CompliancePrincipal {
	p, _ := r.Context().Value(ctxKeyCompliance).(auth.CompliancePrincipal)
	return p
}
