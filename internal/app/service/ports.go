package service

import (
	"context"
	"io"
	"time"

	"iquizu/internal/domain/model"
	"iquizu/internal/platform/mailer"
)

// JobQueue accepts recommendation job IDs for the background worker.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// EventBus carries live-session events between the API and its listeners.
type EventBus interface {
	Publish(ctx context.Context, channel string, ev model.SessionEvent) error
	Subscribe(ctx context.Context, channel string) (<-chan model.SessionEvent, func(), error)
}

// TokenStore binds password reset token digests to users until they expire.
type TokenStore interface {
	Save(ctx context.Context, digest, userID string, ttl time.Duration) error
	Take(ctx context.Context, digest string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// FileStore keeps uploaded files and returns a URL for them.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
}

// SessionChannel is the pub/sub channel of one quiz session.
func SessionChannel(quizID, classID string) string {
	return "quiz-session:" + quizID + ":" + classID
}
