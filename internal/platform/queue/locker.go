package queue

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire takes key with SET NX PX. When ok is false the lock is held elsewhere.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), ok bool, err error) {
	value := uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil || !ok {
		return nil, ok, err
	}
	return func(ctx context.Context) {
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, value).Int64()
		if err != nil {
			log.Printf("ERROR: Failed to release lock %s: %v", key, err)
		} else if deleted != 1 {
			log.Printf("WARN: Did not release lock %s; it expired or was taken by another holder.", key)
		}
	}, true, nil
}
