package backfill

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// fillNamespace is the UUIDv5 namespace for fill and entry IDs.
var fillNamespace = uuid.MustParse("7c9e2f1a-44d0-4b6e-9d3a-8f5b1c2e6a90")

// backfillActor is recorded on the sealed audit entry for committed runs.
const backfillActor = "system.backfill"

// Timeline is the family-store surface the engine writes through. It is
// the same table the capture pipeline uses; nothing distinguishes the
// rows this package inserts.
type Timeline interface {
	// History returns the subject's entries in [from, to), oldest first.
	History(ctx context.Context, subjectID string, from, to time.Time) ([]domain.ActivityEntry, error)

	// InsertEntries persists entries in a single transaction. Rows whose
	// ID already exists are skipped, which is what makes retried fills
	// safe.
	InsertEntries(ctx context.Context, entries []domain.ActivityEntry) error
}

// FillStore is the sealed-store record of synthetic fills.
type FillStore interface {
	Get(ctx context.Context, id string) (*domain.SyntheticFill, error)
	CreatePending(ctx context.Context, f *domain.SyntheticFill) error
	MarkCommitted(ctx context.Context, id string, entryIDs []string) error
}

// Auditor records committed fills in the sealed audit log.
type Auditor interface {
	Record(ctx context.Context, action domain.AuditAction, actorID, subjectRef string, metadata map[string]string) error
}

// Engine produces synthetic activity for suppressed intervals.
type Engine struct {
	timeline Timeline
	fills    FillStore
	audit    Auditor
	cfg      config.BackfillConfig
	now      func() time.Time
}

// NewEngine creates the backfill engine.
func NewEngine(timeline Timeline, fills FillStore, audit Auditor, cfg config.BackfillConfig) *Engine {
	return &Engine{
		timeline: timeline,
		fills:    fills,
		audit:    audit,
		cfg:      cfg,
		now:      time.Now,
	}
}

// FillGap synthesizes activity for [start, end). The run commits in two
// phases: a pending fill record in the sealed store, then the timeline
// entries in one family-store transaction, then the committed mark. A
// crash between phases leaves a pending record a retry completes; every
// ID involved is derived from the subject and interval, so the retry
// writes the same rows.
func (e *Engine) FillGap(ctx context.Context, subjectID string, start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}
	start, end = start.UTC(), end.UTC()

	fillID := deriveFillID(subjectID, start, end)

	resuming := false
	switch existing, err := e.fills.Get(ctx, fillID.String()); {
	case err == nil:
		if existing.Status == domain.FillCommitted {
			return nil
		}
		resuming = true
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("checking existing fill: %w", err)
	}

	prof, err := e.profileFor(ctx, subjectID, start)
	if err != nil {
		return err
	}

	entries := prof.generate(seededRNG(fillID), subjectID, start, end)
	entryIDs := make([]string, len(entries))
	for i := range entries {
		entries[i].ID = uuid.NewSHA1(fillID, []byte("entry-"+strconv.Itoa(i))).String()
		entryIDs[i] = entries[i].ID
	}

	if !resuming {
		fill := &domain.SyntheticFill{
			ID:        fillID.String(),
			SubjectID: subjectID,
			Start:     start,
			End:       end,
			Status:    domain.FillPending,
			CreatedAt: e.now().UTC(),
		}
		if err := e.fills.CreatePending(ctx, fill); err != nil {
			return fmt.Errorf("creating pending fill: %w", err)
		}
	}

	if err := e.timeline.InsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("inserting timeline entries: %w", err)
	}

	if err := e.fills.MarkCommitted(ctx, fillID.String(), entryIDs); err != nil {
		return fmt.Errorf("marking fill committed: %w", err)
	}

	if err := e.audit.Record(ctx, domain.AuditBackfillCommitted, backfillActor, subjectID, map[string]string{
		"fill_id": fillID.String(),
		"start":   start.Format(time.RFC3339),
		"end":     end.Format(time.RFC3339),
		"entries": strconv.Itoa(len(entries)),
	}); err != nil {
		return fmt.Errorf("recording backfill commit: %w", err)
	}

	logger.Info("gap backfilled", "subject", subjectID, "entries", len(entries))
	return nil
}

// profileFor models the subject's usual activity, widening the sampling
// window once before falling back to the population baseline.
func (e *Engine) profileFor(ctx context.Context, subjectID string, before time.Time) (*profile, error) {
	days := e.cfg.HistoryWindowDays
	history, err := e.timeline.History(ctx, subjectID, before.AddDate(0, 0, -days), before)
	if err != nil {
		return nil, fmt.Errorf("sampling history: %w", err)
	}
	if p := buildProfile(history, days, e.cfg.MinHistoryEntries); p != nil {
		return p, nil
	}

	days = e.cfg.WidenedWindowDays
	history, err = e.timeline.History(ctx, subjectID, before.AddDate(0, 0, -days), before)
	if err != nil {
		return nil, fmt.Errorf("sampling widened history: %w", err)
	}
	if p := buildProfile(history, days, e.cfg.MinHistoryEntries); p != nil {
		return p, nil
	}

	logger.Debug("thin history, using population baseline", "subject", subjectID)
	return populationProfile(), nil
}

func deriveFillID(subjectID string, start, end time.Time) uuid.UUID {
	return uuid.NewSHA1(fillNamespace,
		[]byte(subjectID+"|"+start.UTC().Format(time.RFC3339)+"|"+end.UTC().Format(time.RFC3339)))
}

func seededRNG(id uuid.UUID) *rand.Rand {
	sum := sha256.Sum256(id[:])
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sum[0:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))
}
