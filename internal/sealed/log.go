package sealed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/domain"
)

// systemShard collects entries with no subject, such as allowlist alarms
// and rejected authentication attempts.
const systemShard = "system"

// systemActor is recorded for degraded-protection alarms raised by the
// process itself rather than a principal.
const systemActor = "system.protection-core"

// appendRetries bounds how often an append retries after losing a
// sequence race to a writer on another instance.
const appendRetries = 3

// Log is the append service over the sealed audit repository. It owns
// hash-chain construction; repositories only persist what they are given.
type Log struct {
	repo Repository
	now  func() time.Time

	mu     sync.Mutex
	shards map[string]*sync.Mutex
}

// NewLog creates the audit log service.
func NewLog(repo Repository) *Log {
	return &Log{
		repo:   repo,
		now:    time.Now,
		shards: make(map[string]*sync.Mutex),
	}
}

// Record appends one entry. The shard is the subject reference, so each
// subject's history forms its own chain; subject-less events share the
// system shard. Sequence races with other instances are retried; the
// unique (shard, seq) constraint guarantees at most one winner per slot.
func (l *Log) Record(ctx context.Context, action domain.AuditAction, actorID, subjectRef string, metadata map[string]string) error {
	shard := subjectRef
	if shard == "" {
		shard = systemShard
	}

	lock := l.shardLock(shard)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		last, err := l.repo.Last(ctx, shard)
		if err != nil {
			return fmt.Errorf("reading chain head for shard: %w", err)
		}

		var seq int64 = 1
		prevHash := ""
		if last != nil {
			seq = last.Seq + 1
			prevHash = last.IntegrityHash
		}

		e := &domain.SealedAuditEntry{
			ID:         uuid.NewString(),
			Shard:      shard,
			Seq:        seq,
			Action:     action,
			ActorID:    actorID,
			Timestamp:  l.now().UTC(),
			SubjectRef: subjectRef,
			Metadata:   metadata,
		}
		e.IntegrityHash = chainHash(prevHash, e)

		if err := l.repo.Insert(ctx, e); err != nil {
			if err == ErrSeqConflict {
				lastErr = err
				continue
			}
			return fmt.Errorf("inserting audit entry: %w", err)
		}
		return nil
	}
	return fmt.Errorf("appending audit entry after %d attempts: %w", appendRetries, lastErr)
}

// RecordDegraded satisfies the alarm sink used by the allowlist feed and
// other self-monitoring paths.
func (l *Log) RecordDegraded(ctx context.Context, action domain.AuditAction, metadata map[string]string) error {
	return l.Record(ctx, action, systemActor, "", metadata)
}

// Query reads audit entries. The CompliancePrincipal parameter makes the
// read path unreachable from gate and partner credentials.
func (l *Log) Query(ctx context.Context, _ auth.CompliancePrincipal, f QueryFilter) ([]domain.SealedAuditEntry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 1000
	}
	return l.repo.Query(ctx, f)
}

// VerifyChain replays a shard's chain from the first entry and recomputes
// every hash. It returns the number of verified entries; ErrIntegrity
// identifies the first entry whose stored hash does not match.
func (l *Log) VerifyChain(ctx context.Context, _ auth.CompliancePrincipal, shard string) (int64, error) {
	const pageSize = 500

	var verified int64
	prevHash := ""
	nextSeq := int64(1)

	for {
		page, err := l.repo.ListShard(ctx, shard, nextSeq, pageSize)
		if err != nil {
			return verified, fmt.Errorf("listing shard: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			e := page[i]
			if e.Seq != nextSeq {
				return verified, fmt.Errorf("%w: shard %s seq %d missing", ErrIntegrity, shard, nextSeq)
			}
			if chainHash(prevHash, &e) != e.IntegrityHash {
				return verified, fmt.Errorf("%w: shard %s seq %d", ErrIntegrity, shard, e.Seq)
			}
			prevHash = e.IntegrityHash
			nextSeq++
			verified++
		}
		if len(page) < pageSize {
			break
		}
	}

	if verified == 0 {
		return 0, ErrShardEmpty
	}
	return verified, nil
}

func (l *Log) shardLock(shard string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.shards[shard]
	if !ok {
		m = &sync.Mutex{}
		l.shards[shard] = m
	}
	return m
}

// chainPayload is the canonical serialization an entry is hashed over.
// Field order is fixed by the struct; map keys are sorted by the JSON
// encoder, so equal entries always hash equal.
type chainPayload struct {
	ID         string             `json:"id"`
	Shard      string             `json:"shard"`
	Seq        int64              `json:"seq"`
	Action     domain.AuditAction `json:"action"`
	ActorID    string             `json:"actor_id"`
	Timestamp  string             `json:"timestamp"`
	SubjectRef string             `json:"subject_ref"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
}

func chainHash(prevHash string, e *domain.SealedAuditEntry) string {
	payload, _ := json.Marshal(chainPayload{
		ID:         e.ID,
		Shard:      e.Shard,
		Seq:        e.Seq,
		Action:     e.Action,
		ActorID:    e.ActorID,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		SubjectRef: e.SubjectRef,
		Metadata:   e.Metadata,
	})

	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
