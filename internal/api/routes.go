package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the router. Three auth surfaces, no shared middleware
// between them: a token for one class cannot reach another class's
// routes.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireGate)
			r.Post("/gate/decision", s.handleGateDecision)
			r.Post("/notify/recipients", s.handleNotifyRecipients)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requirePartner)
			r.Post("/partner/signals", s.handlePartnerSignal)
			r.Get("/partner/blackouts/{signalID}", s.handleGetBlackout)
			r.Post("/partner/blackouts/{signalID}/extend", s.handleExtendBlackout)
			r.Post("/partner/blackouts/{signalID}/release", s.handleReleaseBlackout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireCompliance)
			r.Get("/compliance/audit", s.handleAuditQuery)
			r.Get("/compliance/audit/{shard}/verify", s.handleAuditVerify)
			r.Post("/compliance/audit/{shard}/archive", s.handleAuditArchive)
		})
	})

	return r
}
