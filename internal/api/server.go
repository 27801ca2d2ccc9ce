// Package api exposes the protection core over HTTP: the gate decision
// endpoint the capture pipeline calls, the partner surface for signals
// and blackout management, and the compliance surface for sealed audit
// reads. Each surface authenticates against its own key; there is no
// shared session layer.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/logger"
	"github.com/kindlight/protection-core/internal/sealed"
)

// Decider is the suppression decision surface the gate endpoint fronts.
type Decider interface {
	ShouldSuppress(ctx context.Context, subjectID, rawURL string, at time.Time) bool
}

// BlackoutService is the partner-facing slice of the blackout service.
type BlackoutService interface {
	Open(ctx context.Context, subjectID, signalID string) (*domain.SignalBlackout, error)
	Get(ctx context.Context, p auth.PartnerPrincipal, signalID string) (*domain.SignalBlackout, error)
	Extend(ctx context.Context, p auth.PartnerPrincipal, signalID string, hours int, reason string) (*domain.SignalBlackout, error)
	Release(ctx context.Context, p auth.PartnerPrincipal, signalID string) (*domain.SignalBlackout, error)
}

// AuditReader is the compliance-facing slice of the sealed log.
type AuditReader interface {
	Query(ctx context.Context, p auth.CompliancePrincipal, f sealed.QueryFilter) ([]domain.SealedAuditEntry, error)
	VerifyChain(ctx context.Context, p auth.CompliancePrincipal, shard string) (int64, error)
}

// ShardArchiver exports an audit shard for legal retention.
type ShardArchiver interface {
	Export(ctx context.Context, p auth.CompliancePrincipal, shard string) (string, error)
}

// AllowlistStatus is the health surface of the matcher and its feed.
type AllowlistStatus interface {
	Size() int
	LoadedAt() time.Time
	Stale() bool
}

// RecipientFilter strips blocked recipients from a notification dispatch
// candidate list.
type RecipientFilter interface {
	Recipients(ctx context.Context, subjectID string, candidates []string) []string
}

// Alarmer records auth rejections in the sealed log.
type Alarmer interface {
	RecordDegraded(ctx context.Context, action domain.AuditAction, metadata map[string]string) error
}

// Server bundles the handlers and their dependencies.
type Server struct {
	decider    Decider
	blackouts  BlackoutService
	recipients RecipientFilter
	audit      AuditReader
	archiver   ShardArchiver
	allowlist  AllowlistStatus
	alarms     Alarmer

	gateAuth       *auth.GateVerifier
	partnerAuth    *auth.PartnerVerifier
	complianceAuth *auth.ComplianceVerifier

	cfg       config.ServerConfig
	startedAt time.Time
}

// NewServer creates the API server. archiver may be nil when S3 export
// is disabled.
func NewServer(
	decider Decider,
	blackouts BlackoutService,
	recipients RecipientFilter,
	audit AuditReader,
	archiver ShardArchiver,
	allowlistStatus AllowlistStatus,
	alarms Alarmer,
	gateAuth *auth.GateVerifier,
	partnerAuth *auth.PartnerVerifier,
	complianceAuth *auth.ComplianceVerifier,
	cfg config.ServerConfig,
) *Server {
	return &Server{
		decider:        decider,
		blackouts:      blackouts,
		recipients:     recipients,
		audit:          audit,
		archiver:       archiver,
		allowlist:      allowlistStatus,
		alarms:         alarms,
		gateAuth:       gateAuth,
		partnerAuth:    partnerAuth,
		complianceAuth: complianceAuth,
		cfg:            cfg,
		startedAt:      time.Now(),
	}
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}
