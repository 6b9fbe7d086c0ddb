// Package local provides in-process stand-ins for the Redis-backed adapters.
// They are used when REDIS_ADDR is empty and by tests.
package local

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

// JobQueue is an unbounded FIFO of job IDs.
type JobQueue struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
}

func NewJobQueue() *JobQueue {
	return &JobQueue{notify: make(chan struct{}, 1)}
}

func (q *JobQueue) Enqueue(_ context.Context, jobID string) error {
	q.mu.Lock()
	q.items = append(q.items, jobID)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Requeue puts jobID at the front so it is retried next.
func (q *JobQueue) Requeue(_ context.Context, jobID string) error {
	q.mu.Lock()
	q.items = append([]string{jobID}, q.items...)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *JobQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue waits up to timeout for a job and returns "" when none arrives.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return id, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", nil
		case <-q.notify:
		}
	}
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type lockEntry struct {
	owner   uint64
	expires time.Time
}

type Locker struct {
	mu    sync.Mutex
	seq   uint64
	locks map[string]lockEntry
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]lockEntry)}
}

func (l *Locker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if e, held := l.locks[key]; held && now.Before(e.expires) {
		return nil, false, nil
	}
	l.seq++
	owner := l.seq
	l.locks[key] = lockEntry{owner: owner, expires: now.Add(ttl)}
	return func(context.Context) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.locks[key]; ok && e.owner == owner {
			delete(l.locks, key)
		}
	}, true, nil
}

// EventBus delivers events to subscribers of the same channel in this process.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.SessionEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string]map[chan model.SessionEvent]struct{})}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (b *EventBus) Publish(_ context.Context, channel string, ev model.SessionEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan model.SessionEvent, func(), error) {
	ch := make(chan model.SessionEvent, 16)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan model.SessionEvent]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[channel], ch)
			if len(b.subs[channel]) == 0 {
				delete(b.subs, channel)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

type entry struct {
	value   []byte
	expires time.Time
}

// KV is an expiring map used for reset tokens and JSON caching.
type KV struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewKV() *KV {
	return &KV{items: make(map[string]entry), now: time.Now}
}

func (kv *KV) get(key string) ([]byte, bool) {
	e, ok := kv.items[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !kv.now().Before(e.expires) {
		delete(kv.items, key)
		return nil, false
	}
	return e.value, true
}

func (kv *KV) set(key string, value []byte, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = kv.now().Add(ttl)
	}
	kv.items[key] = entry{value: value, expires: exp}
}

func (kv *KV) Save(_ context.Context, digest, userID string, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.set("token:"+digest, []byte(userID), ttl)
	return nil
}

func (kv *KV) Take(_ context.Context, digest string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.get("token:" + digest)
	if !ok {
		return "", common.ErrNotFound
	}
	delete(kv.items, "token:"+digest)
	return string(v), nil
}

func (kv *KV) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	kv.mu.Lock()
	v, ok := kv.get("cache:" + key)
	kv.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (kv *KV) Set(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.set("cache:"+key, raw, ttl)
	return nil
}

func (kv *KV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.items, "cache:"+key)
	return nil
}
