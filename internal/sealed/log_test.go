package sealed

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/domain"
)

type memRepo struct {
	entries   map[string][]domain.SealedAuditEntry
	conflicts int
}

func newMemRepo() *memRepo {
	return &memRepo{entries: make(map[string][]domain.SealedAuditEntry)}
}

func (r *memRepo) Insert(_ context.Context, e *domain.SealedAuditEntry) error {
	if r.conflicts > 0 {
		r.conflicts--
		return ErrSeqConflict
	}
	for _, existing := range r.entries[e.Shard] {
		if existing.Seq == e.Seq {
			return ErrSeqConflict
		}
	}
	r.entries[e.Shard] = append(r.entries[e.Shard], *e)
	sort.Slice(r.entries[e.Shard], func(i, j int) bool {
		return r.entries[e.Shard][i].Seq < r.entries[e.Shard][j].Seq
	})
	return nil
}

func (r *memRepo) Last(_ context.Context, shard string) (*domain.SealedAuditEntry, error) {
	es := r.entries[shard]
	if len(es) == 0 {
		return nil, nil
	}
	cp := es[len(es)-1]
	return &cp, nil
}

func (r *memRepo) ListShard(_ context.Context, shard string, fromSeq int64, limit int) ([]domain.SealedAuditEntry, error) {
	var out []domain.SealedAuditEntry
	for _, e := range r.entries[shard] {
		if e.Seq >= fromSeq {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memRepo) Query(_ context.Context, f QueryFilter) ([]domain.SealedAuditEntry, error) {
	var out []domain.SealedAuditEntry
	for shard, es := range r.entries {
		if f.Shard != "" && shard != f.Shard {
			continue
		}
		for _, e := range es {
			if f.Action != "" && e.Action != f.Action {
				continue
			}
			out = append(out, e)
			if len(out) == f.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func compliancePrincipal(t *testing.T) auth.CompliancePrincipal {
	t.Helper()
	tok, err := auth.MintToken("test-key", "test-issuer", auth.AudienceCompliance, "auditor-1", time.Minute)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	p, err := auth.NewComplianceVerifier("test-key", "test-issuer").Verify(tok)
	if err != nil {
		t.Fatalf("verifying token: %v", err)
	}
	return p
}

func TestRecord_ChainsEntries(t *testing.T) {
	repo := newMemRepo()
	log := NewLog(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := log.Record(ctx, domain.AuditBlackoutOpened, "system.signal-ingest", "child-42", map[string]string{"signal_id": "sig-1"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	es := repo.entries["child-42"]
	if len(es) != 3 {
		t.Fatalf("entries = %d, want 3", len(es))
	}

	prev := ""
	for i, e := range es {
		if e.Seq != int64(i+1) {
			t.Errorf("entry %d: seq = %d", i, e.Seq)
		}
		if got := chainHash(prev, &e); got != e.IntegrityHash {
			t.Errorf("entry %d: stored hash does not chain from predecessor", i)
		}
		prev = e.IntegrityHash
	}
}

func TestRecord_RetriesSeqConflict(t *testing.T) {
	repo := newMemRepo()
	repo.conflicts = 2
	log := NewLog(repo)

	if err := log.Record(context.Background(), domain.AuditBlackoutOpened, "actor", "child-42", nil); err != nil {
		t.Fatalf("Record should survive %d conflicts: %v", 2, err)
	}
	if len(repo.entries["child-42"]) != 1 {
		t.Errorf("entries = %d, want 1", len(repo.entries["child-42"]))
	}
}

func TestRecordDegraded_UsesSystemShard(t *testing.T) {
	repo := newMemRepo()
	log := NewLog(repo)

	if err := log.RecordDegraded(context.Background(), domain.AuditAllowlistStale, map[string]string{"age": "26h"}); err != nil {
		t.Fatalf("RecordDegraded: %v", err)
	}

	es := repo.entries[systemShard]
	if len(es) != 1 {
		t.Fatalf("system shard entries = %d, want 1", len(es))
	}
	if es[0].ActorID != systemActor || es[0].SubjectRef != "" {
		t.Errorf("entry = %+v", es[0])
	}
}

func TestVerifyChain_Intact(t *testing.T) {
	repo := newMemRepo()
	log := NewLog(repo)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		log.Record(ctx, domain.AuditBlackoutExtended, "partner-9", "child-42", map[string]string{"hours": "24"})
	}

	n, err := log.VerifyChain(ctx, compliancePrincipal(t), "child-42")
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if n != 10 {
		t.Errorf("verified = %d, want 10", n)
	}
}

func TestVerifyChain_DetectsTamperedEntry(t *testing.T) {
	repo := newMemRepo()
	log := NewLog(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		log.Record(ctx, domain.AuditBlackoutExtended, "partner-9", "child-42", map[string]string{"hours": "24"})
	}

	// A single changed byte in a committed entry breaks verification.
	repo.entries["child-42"][2].ActorID = "partner-x"

	n, err := log.VerifyChain(ctx, compliancePrincipal(t), "child-42")
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if n != 2 {
		t.Errorf("verified = %d entries before the break, want 2", n)
	}
}

func TestVerifyChain_DetectsDeletedEntry(t *testing.T) {
	repo := newMemRepo()
	log := NewLog(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		log.Record(ctx, domain.AuditBlackoutExtended, "partner-9", "child-42", nil)
	}

	es := repo.entries["child-42"]
	repo.entries["child-42"] = append(es[:2:2], es[3:]...)

	if _, err := log.VerifyChain(ctx, compliancePrincipal(t), "child-42"); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity for missing seq", err)
	}
}

func TestVerifyChain_EmptyShard(t *testing.T) {
	log := NewLog(newMemRepo())
	if _, err := log.VerifyChain(context.Background(), compliancePrincipal(t), "nobody"); !errors.Is(err, ErrShardEmpty) {
		t.Errorf("err = %v, want ErrShardEmpty", err)
	}
}

func TestQuery_AppliesFilter(t *testing.T) {
	repo := newMemRepo()
	log := NewLog(repo)
	ctx := context.Background()

	log.Record(ctx, domain.AuditBlackoutOpened, "system.signal-ingest", "child-42", nil)
	log.Record(ctx, domain.AuditBlackoutReleased, "partner-9", "child-42", nil)
	log.Record(ctx, domain.AuditBlackoutOpened, "system.signal-ingest", "child-77", nil)

	got, err := log.Query(ctx, compliancePrincipal(t), QueryFilter{Shard: "child-42", Action: domain.AuditBlackoutOpened, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].SubjectRef != "child-42" {
		t.Errorf("got %+v, want one blackout.opened for child-42", got)
	}
}
