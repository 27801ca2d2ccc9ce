package blackout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/distlock"
)

type memRepo struct {
	blackouts map[string]*domain.SignalBlackout
	activeErr error
	reads     int
}

func newMemRepo() *memRepo {
	return &memRepo{blackouts: make(map[string]*domain.SignalBlackout)}
}

func (r *memRepo) Create(_ context.Context, b *domain.SignalBlackout) error {
	if _, ok := r.blackouts[b.SignalID]; ok {
		return ErrConflict
	}
	cp := *b
	r.blackouts[b.SignalID] = &cp
	return nil
}

func (r *memRepo) GetBySignal(_ context.Context, signalID string) (*domain.SignalBlackout, error) {
	b, ok := r.blackouts[signalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) TransitionStatus(_ context.Context, signalID string, from, to domain.BlackoutStatus) error {
	b, ok := r.blackouts[signalID]
	if !ok {
		return ErrNotFound
	}
	if b.Status != from {
		return ErrConflict
	}
	b.Status = to
	return nil
}

func (r *memRepo) AppendExtension(_ context.Context, signalID string, ext domain.BlackoutExtension, newExpiresAt time.Time) error {
	b, ok := r.blackouts[signalID]
	if !ok {
		return ErrNotFound
	}
	if b.Status != domain.BlackoutActive {
		return ErrConflict
	}
	b.Extensions = append(b.Extensions, ext)
	b.ExpiresAt = newExpiresAt
	return nil
}

func (r *memRepo) ListExpiredActive(_ context.Context, now time.Time, limit int) ([]domain.SignalBlackout, error) {
	var out []domain.SignalBlackout
	for _, b := range r.blackouts {
		if b.Status == domain.BlackoutActive && !now.Before(b.ExpiresAt) {
			out = append(out, *b)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memRepo) ActiveForSubject(_ context.Context, subjectID string, at time.Time) (bool, error) {
	r.reads++
	if r.activeErr != nil {
		return false, r.activeErr
	}
	for _, b := range r.blackouts {
		if b.SubjectID == subjectID && b.Covers(at) {
			return true, nil
		}
	}
	return false, nil
}

type recordedAudit struct {
	action     domain.AuditAction
	actorID    string
	subjectRef string
	metadata   map[string]string
}

type memAudit struct {
	records []recordedAudit
}

func (a *memAudit) Record(_ context.Context, action domain.AuditAction, actorID, subjectRef string, metadata map[string]string) error {
	a.records = append(a.records, recordedAudit{action, actorID, subjectRef, metadata})
	return nil
}

type memQueue struct {
	jobs []struct {
		subjectID  string
		start, end time.Time
	}
}

func (q *memQueue) Enqueue(_ context.Context, subjectID string, start, end time.Time) error {
	q.jobs = append(q.jobs, struct {
		subjectID  string
		start, end time.Time
	}{subjectID, start, end})
	return nil
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func testService(repo Repository, audit Auditor, queue BackfillQueue) *Service {
	return NewService(repo, audit, queue, func(string) distlock.DistLock { return noopLock{} },
		config.BlackoutConfig{SweepIntervalMinutes: 5, CacheTTLSeconds: 30})
}

func partnerPrincipal(t *testing.T, id string) auth.PartnerPrincipal {
	t.Helper()
	tok, err := auth.MintToken("test-key", "test-issuer", auth.AudiencePartner, id, time.Minute)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	p, err := auth.NewPartnerVerifier("test-key", "test-issuer").Verify(tok)
	if err != nil {
		t.Fatalf("verifying token: %v", err)
	}
	return p
}

func TestOpen_DefaultWindow(t *testing.T) {
	repo := newMemRepo()
	audit := &memAudit{}
	s := testService(repo, audit, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	b, err := s.Open(context.Background(), "child-42", "sig-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Status != domain.BlackoutActive {
		t.Errorf("status = %s, want active", b.Status)
	}
	if want := now.Add(48 * time.Hour); !b.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %s, want %s", b.ExpiresAt, want)
	}
	if len(audit.records) != 1 || audit.records[0].action != domain.AuditBlackoutOpened {
		t.Errorf("audit records = %+v, want one blackout.opened", audit.records)
	}
}

func TestOpen_IdempotentPerSignal(t *testing.T) {
	repo := newMemRepo()
	audit := &memAudit{}
	s := testService(repo, audit, nil)
	ctx := context.Background()

	first, err := s.Open(ctx, "child-42", "sig-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := s.Open(ctx, "child-42", "sig-1")
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if first.ID != second.ID || !first.ExpiresAt.Equal(second.ExpiresAt) {
		t.Errorf("retry changed the blackout: %+v vs %+v", first, second)
	}
	if len(audit.records) != 1 {
		t.Errorf("retry should not re-audit, got %d records", len(audit.records))
	}
}

func TestExtend_RejectsInvalidHours(t *testing.T) {
	s := testService(newMemRepo(), &memAudit{}, nil)
	_, err := s.Extend(context.Background(), partnerPrincipal(t, "partner-9"), "sig-1", 36, "ongoing safety plan")
	if !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("err = %v, want ErrInvalidExtension", err)
	}
}

func TestExtend_AppendsAndRecomputesExpiry(t *testing.T) {
	repo := newMemRepo()
	audit := &memAudit{}
	s := testService(repo, audit, nil)
	ctx := context.Background()

	b, _ := s.Open(ctx, "child-42", "sig-1")
	p := partnerPrincipal(t, "partner-9")

	got, err := s.Extend(ctx, p, "sig-1", 24, "ongoing safety plan")
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if want := b.ExpiresAt.Add(24 * time.Hour); !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %s, want %s", got.ExpiresAt, want)
	}
	if len(got.Extensions) != 1 || got.Extensions[0].ExtendedBy != "partner-9" {
		t.Errorf("extensions = %+v", got.Extensions)
	}

	last := audit.records[len(audit.records)-1]
	if last.action != domain.AuditBlackoutExtended || last.actorID != "partner-9" {
		t.Errorf("audit = %+v, want blackout.extended by partner-9", last)
	}
}

func TestExtend_AfterNaturalExpiryRejected(t *testing.T) {
	repo := newMemRepo()
	s := testService(repo, &memAudit{}, nil)
	ctx := context.Background()

	opened := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return opened }
	s.Open(ctx, "child-42", "sig-1")

	// Past expiry but before the sweep has marked the row.
	s.now = func() time.Time { return opened.Add(49 * time.Hour) }
	_, err := s.Extend(ctx, partnerPrincipal(t, "partner-9"), "sig-1", 24, "late")
	if !errors.Is(err, ErrNotActive) {
		t.Errorf("err = %v, want ErrNotActive", err)
	}
}

func TestRelease_TerminalIsNoop(t *testing.T) {
	repo := newMemRepo()
	audit := &memAudit{}
	queue := &memQueue{}
	s := testService(repo, audit, queue)
	ctx := context.Background()
	p := partnerPrincipal(t, "partner-9")

	s.Open(ctx, "child-42", "sig-1")

	first, err := s.Release(ctx, p, "sig-1")
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if first.Status != domain.BlackoutReleased {
		t.Errorf("status = %s, want released", first.Status)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("backfill jobs = %d, want 1", len(queue.jobs))
	}

	audits, jobs := len(audit.records), len(queue.jobs)
	second, err := s.Release(ctx, p, "sig-1")
	if err != nil {
		t.Fatalf("double Release: %v", err)
	}
	if second.Status != domain.BlackoutReleased {
		t.Errorf("status after double release = %s", second.Status)
	}
	if len(audit.records) != audits || len(queue.jobs) != jobs {
		t.Error("double release produced new audit records or backfill jobs")
	}
}

func TestSweep_ExpiresAndEnqueuesBackfill(t *testing.T) {
	repo := newMemRepo()
	audit := &memAudit{}
	queue := &memQueue{}
	s := testService(repo, audit, queue)
	ctx := context.Background()

	opened := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return opened }
	s.Open(ctx, "child-42", "sig-1")

	s.now = func() time.Time { return opened.Add(49 * time.Hour) }
	swept, err := s.Sweep(ctx, 100)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	b, _ := repo.GetBySignal(ctx, "sig-1")
	if b.Status != domain.BlackoutExpired {
		t.Errorf("status = %s, want expired", b.Status)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("backfill jobs = %d, want 1", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.subjectID != "child-42" || !job.start.Equal(opened) || !job.end.Equal(b.ExpiresAt) {
		t.Errorf("backfill job = %+v", job)
	}

	last := audit.records[len(audit.records)-1]
	if last.action != domain.AuditBlackoutExpired || last.actorID != sweepActor {
		t.Errorf("audit = %+v, want blackout.expired by sweeper", last)
	}
}

func TestSweep_SkipsLockedSignals(t *testing.T) {
	repo := newMemRepo()
	s := NewService(repo, &memAudit{}, &memQueue{}, func(string) distlock.DistLock { return heldLock{} },
		config.BlackoutConfig{CacheTTLSeconds: 30})
	ctx := context.Background()

	opened := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return opened }
	s.Open(ctx, "child-42", "sig-1")

	s.now = func() time.Time { return opened.Add(49 * time.Hour) }
	swept, err := s.Sweep(ctx, 100)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if swept != 0 {
		t.Errorf("swept = %d, want 0 while lock is held elsewhere", swept)
	}

	b, _ := repo.GetBySignal(ctx, "sig-1")
	if b.Status != domain.BlackoutActive {
		t.Errorf("status = %s, want still active", b.Status)
	}
}

func TestActiveForSubject_CachesWithinTTL(t *testing.T) {
	repo := newMemRepo()
	s := testService(repo, &memAudit{}, nil)
	ctx := context.Background()

	s.Open(ctx, "child-42", "sig-1")
	repo.reads = 0

	active, err := s.ActiveForSubject(ctx, "child-42")
	if err != nil {
		t.Fatalf("ActiveForSubject: %v", err)
	}
	if !active {
		t.Error("expected active blackout")
	}
	s.ActiveForSubject(ctx, "child-42")
	s.ActiveForSubject(ctx, "child-42")
	if repo.reads != 1 {
		t.Errorf("repo reads = %d, want 1 (cached)", repo.reads)
	}
}

func TestActiveForSubject_TransitionInvalidatesCache(t *testing.T) {
	repo := newMemRepo()
	s := testService(repo, &memAudit{}, &memQueue{})
	ctx := context.Background()
	p := partnerPrincipal(t, "partner-9")

	s.Open(ctx, "child-42", "sig-1")
	active, _ := s.ActiveForSubject(ctx, "child-42")
	if !active {
		t.Fatal("expected active blackout")
	}

	if _, err := s.Release(ctx, p, "sig-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	active, err := s.ActiveForSubject(ctx, "child-42")
	if err != nil {
		t.Fatalf("ActiveForSubject: %v", err)
	}
	if active {
		t.Error("release should be visible immediately, not after TTL")
	}
}
