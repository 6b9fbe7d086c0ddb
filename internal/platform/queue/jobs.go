package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobQueue is a FIFO of job IDs on a Redis list: LPUSH in, BRPOP out.
type JobQueue struct {
	rdb  *redis.Client
	name string
}

func NewJobQueue(rdb *redis.Client, name string) *JobQueue {
	return &JobQueue{rdb: rdb, name: name}
}

func (q *JobQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.rdb.LPush(ctx, q.name, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Requeue puts jobID back at the consuming end so it is retried next.
func (q *JobQueue) Requeue(ctx context.Context, jobID string) error {
	if err := q.rdb.RPush(ctx, q.name, jobID).Err(); err != nil {
		return fmt.Errorf("requeue job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue blocks for up to timeout. It returns "" with a nil error when the wait expires.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	// res is [queueName, value]
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}
