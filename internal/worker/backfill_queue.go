package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	backfillQueueKey = "backfill:queue"
	backfillDeadKey  = "backfill:dead"
)

// backfillJob is one suppressed interval awaiting synthesis.
type backfillJob struct {
	SubjectID string    `json:"subject_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attempts  int       `json:"attempts"`
}

// BackfillQueue is a Redis list the blackout service pushes intervals
// onto when a blackout reaches a terminal state. Redis lives inside the
// sealed boundary for this purpose; queue payloads carry subject IDs.
type BackfillQueue struct {
	rdb *redis.Client
}

// NewBackfillQueue creates the queue over a Redis client.
func NewBackfillQueue(rdb *redis.Client) *BackfillQueue {
	return &BackfillQueue{rdb: rdb}
}

// Enqueue pushes one interval for backfill.
func (q *BackfillQueue) Enqueue(ctx context.Context, subjectID string, start, end time.Time) error {
	return q.push(ctx, backfillQueueKey, backfillJob{SubjectID: subjectID, Start: start, End: end})
}

func (q *BackfillQueue) push(ctx context.Context, key string, job backfillJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal backfill job: %w", err)
	}
	if err := q.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("push backfill job: %w", err)
	}
	return nil
}

// pop blocks up to timeout for the next job. Returns nil on timeout.
func (q *BackfillQueue) pop(ctx context.Context, timeout time.Duration) (*backfillJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, backfillQueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop backfill job: %w", err)
	}

	var job backfillJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal backfill job: %w", err)
	}
	return &job, nil
}
