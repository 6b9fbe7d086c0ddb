package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"iquizu/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// EventBus fans session events out over Redis pub/sub.
type EventBus struct {
	rdb *redis.Client
}

func NewEventBus(rdb *redis.Client) *EventBus {
	return &EventBus{rdb: rdb}
}

func (b *EventBus) Publish(ctx context.Context, channel string, ev model.SessionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers events until ctx is cancelled or cancel is called.
func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan model.SessionEvent, func(), error) {
	ps := b.rdb.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no event published after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	out := make(chan model.SessionEvent, 16)
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("WARN: dropping malformed event on %s: %v", channel, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, func() { ps.Close() }, nil
}
