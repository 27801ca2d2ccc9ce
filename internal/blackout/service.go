package blackout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/distlock"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// sweepActor is the actor recorded for transitions the expiry sweep makes.
const sweepActor = "system.blackout-sweeper"

// LockTTL bounds how long a crashed transition can hold a signal lock.
const LockTTL = 30 * time.Second

// Auditor records blackout transitions in the sealed audit log.
type Auditor interface {
	Record(ctx context.Context, action domain.AuditAction, actorID, subjectRef string, metadata map[string]string) error
}

// BackfillQueue receives intervals that need synthetic history after a
// blackout reaches a terminal state.
type BackfillQueue interface {
	Enqueue(ctx context.Context, subjectID string, start, end time.Time) error
}

// LockFactory builds the per-signal lock that serializes transitions.
type LockFactory func(signalID string) distlock.DistLock

type activeEntry struct {
	active    bool
	expiresAt time.Time
}

// Service owns the blackout state machine. All writes go to the sealed
// store; ActiveForSubject is the only read the suppression path uses and
// it is cached with a short TTL so repeated gate decisions for the same
// subject do not hit the database.
type Service struct {
	repo     Repository
	audit    Auditor
	backfill BackfillQueue
	lockFor  LockFactory
	cfg      config.BlackoutConfig
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]activeEntry
}

// NewService creates the blackout service. backfill may be nil in tools
// that never sweep.
func NewService(repo Repository, audit Auditor, backfill BackfillQueue, lockFor LockFactory, cfg config.BlackoutConfig) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		backfill: backfill,
		lockFor:  lockFor,
		cfg:      cfg,
		now:      time.Now,
		cache:    make(map[string]activeEntry),
	}
}

// Open creates the blackout for a new distress signal with the default
// 48h window. It is idempotent per signal: if a blackout already exists
// the existing one is returned unchanged, so signal-ingest retries never
// shorten or restart a window.
func (s *Service) Open(ctx context.Context, subjectID, signalID string) (*domain.SignalBlackout, error) {
	if existing, err := s.repo.GetBySignal(ctx, signalID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("checking existing blackout: %w", err)
	}

	now := s.now().UTC()
	b := &domain.SignalBlackout{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		SignalID:  signalID,
		StartedAt: now,
		ExpiresAt: now.Add(domain.DefaultBlackoutDuration),
		Status:    domain.BlackoutActive,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		// Lost a race with a concurrent open for the same signal.
		if existing, getErr := s.repo.GetBySignal(ctx, signalID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("creating blackout: %w", err)
	}

	s.invalidate(subjectID)
	if err := s.audit.Record(ctx, domain.AuditBlackoutOpened, "system.signal-ingest", subjectID, map[string]string{
		"signal_id":  signalID,
		"expires_at": b.ExpiresAt.Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("recording blackout open: %w", err)
	}

	logger.Info("blackout opened", "subject", subjectID, "signal", signalID)
	return b, nil
}

// Get returns a signal's blackout for a partner principal.
func (s *Service) Get(ctx context.Context, _ auth.PartnerPrincipal, signalID string) (*domain.SignalBlackout, error) {
	return s.repo.GetBySignal(ctx, signalID)
}

// Extend lengthens an active blackout by a fixed increment. Requiring a
// PartnerPrincipal makes the operation unreachable from gate or
// compliance credentials. Extension after natural expiry is rejected even
// if the sweep has not yet marked the row expired.
func (s *Service) Extend(ctx context.Context, p auth.PartnerPrincipal, signalID string, hours int, reason string) (*domain.SignalBlackout, error) {
	if !domain.ValidExtensionHours(hours) {
		return nil, ErrInvalidExtension
	}

	lock := s.lockFor(signalID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring signal lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockUnavailable
	}
	defer lock.Release(ctx)

	b, err := s.repo.GetBySignal(ctx, signalID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if b.Status != domain.BlackoutActive || !now.Before(b.ExpiresAt) {
		return nil, ErrNotActive
	}

	ext := domain.BlackoutExtension{
		ExtendedBy:      p.ID(),
		ExtendedAt:      now,
		AdditionalHours: hours,
		Reason:          reason,
	}
	newExpiry := b.ExpiresAt.Add(time.Duration(hours) * time.Hour)
	if err := s.repo.AppendExtension(ctx, signalID, ext, newExpiry); err != nil {
		return nil, err
	}

	b.Extensions = append(b.Extensions, ext)
	b.ExpiresAt = newExpiry
	s.invalidate(b.SubjectID)

	if err := s.audit.Record(ctx, domain.AuditBlackoutExtended, p.ID(), b.SubjectID, map[string]string{
		"signal_id":  signalID,
		"hours":      strconv.Itoa(hours),
		"expires_at": newExpiry.Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("recording blackout extension: %w", err)
	}

	logger.Info("blackout extended", "subject", b.SubjectID, "signal", signalID, "hours", hours)
	return b, nil
}

// Release ends an active blackout early, typically when a safety plan
// completes. Releasing a blackout already in a terminal state is a no-op,
// so partner retries are safe.
func (s *Service) Release(ctx context.Context, p auth.PartnerPrincipal, signalID string) (*domain.SignalBlackout, error) {
	lock := s.lockFor(signalID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring signal lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockUnavailable
	}
	defer lock.Release(ctx)

	b, err := s.repo.GetBySignal(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BlackoutActive {
		return b, nil
	}

	if err := s.repo.TransitionStatus(ctx, signalID, domain.BlackoutActive, domain.BlackoutReleased); err != nil {
		return nil, err
	}
	b.Status = domain.BlackoutReleased
	s.invalidate(b.SubjectID)

	if err := s.audit.Record(ctx, domain.AuditBlackoutReleased, p.ID(), b.SubjectID, map[string]string{
		"signal_id": signalID,
	}); err != nil {
		return nil, fmt.Errorf("recording blackout release: %w", err)
	}

	if s.backfill != nil {
		if err := s.backfill.Enqueue(ctx, b.SubjectID, b.StartedAt, s.now().UTC()); err != nil {
			logger.Error("enqueueing backfill after release", "signal", signalID, "error", err)
		}
	}

	logger.Info("blackout released", "subject", b.SubjectID, "signal", signalID)
	return b, nil
}

// Sweep transitions naturally expired blackouts to expired and enqueues
// synthetic backfill for the covered interval. It processes at most limit
// rows per call and returns how many it transitioned. A blackout another
// instance is concurrently transitioning is skipped, not an error.
func (s *Service) Sweep(ctx context.Context, limit int) (int, error) {
	expired, err := s.repo.ListExpiredActive(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("listing expired blackouts: %w", err)
	}

	swept := 0
	for _, b := range expired {
		if err := s.expire(ctx, b); err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrLockUnavailable) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *Service) expire(ctx context.Context, b domain.SignalBlackout) error {
	lock := s.lockFor(b.SignalID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring signal lock: %w", err)
	}
	if !acquired {
		return ErrLockUnavailable
	}
	defer lock.Release(ctx)

	if err := s.repo.TransitionStatus(ctx, b.SignalID, domain.BlackoutActive, domain.BlackoutExpired); err != nil {
		return err
	}
	s.invalidate(b.SubjectID)

	if err := s.audit.Record(ctx, domain.AuditBlackoutExpired, sweepActor, b.SubjectID, map[string]string{
		"signal_id": b.SignalID,
	}); err != nil {
		return fmt.Errorf("recording blackout expiry: %w", err)
	}

	if s.backfill != nil {
		if err := s.backfill.Enqueue(ctx, b.SubjectID, b.StartedAt, b.ExpiresAt); err != nil {
			logger.Error("enqueueing backfill after expiry", "signal", b.SignalID, "error", err)
		}
	}

	logger.Info("blackout expired", "subject", b.SubjectID, "signal", b.SignalID)
	return nil
}

// ActiveForSubject reports whether any active blackout covers the subject
// right now. Results are cached for cfg.CacheTTL; transitions made by
// this instance invalidate the entry immediately, transitions made
// elsewhere converge within the TTL.
func (s *Service) ActiveForSubject(ctx context.Context, subjectID string) (bool, error) {
	now := s.now()

	s.mu.RLock()
	e, ok := s.cache[subjectID]
	s.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.active, nil
	}

	active, err := s.repo.ActiveForSubject(ctx, subjectID, now.UTC())
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.cache[subjectID] = activeEntry{active: active, expiresAt: now.Add(s.cfg.CacheTTL())}
	s.mu.Unlock()
	return active, nil
}

func (s *Service) invalidate(subjectID string) {
	s.mu.Lock()
	delete(s.cache, subjectID)
	s.mu.Unlock()
}
