package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"iquizu/internal/domain/model"
	"iquizu/internal/domain/recommend"
	"iquizu/internal/domain/repository"
)

const (
	lockKeyPrefix = "recommendation-lock:"
	dequeueWait   = 5 * time.Second
	maxAttempts   = 3
)

// Queue is the work list the worker drains.
type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
	Requeue(ctx context.Context, jobID string) error
}

// Locker guards a submission against concurrent processing.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error)
}

// RecommendationWorker turns graded submissions into study recommendations.
type RecommendationWorker struct {
	queue          Queue
	locker         Locker
	jobRepo        repository.RecommendationJobRepository
	submissionRepo repository.SubmissionRepository
	gen            recommend.Generator
	lockTTL        time.Duration
	backoff        time.Duration
}

func NewRecommendationWorker(queue Queue, locker Locker, jobRepo repository.RecommendationJobRepository, subRepo repository.SubmissionRepository, gen recommend.Generator, lockTTL time.Duration) *RecommendationWorker {
	return &RecommendationWorker{
		queue:          queue,
		locker:         locker,
		jobRepo:        jobRepo,
		submissionRepo: subRepo,
		gen:            gen,
		lockTTL:        lockTTL,
		backoff:        5 * time.Second,
	}
}

func (w *RecommendationWorker) Start(ctx context.Context) {
	log.Println("Recommendation worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Recommendation worker stopping...")
			return
		default:
		}

		jobID, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("ERROR: Failed to dequeue recommendation job: %v", err)
			sleep(ctx, w.backoff)
			continue
		}
		if jobID == "" {
			continue
		}
		log.Printf("Worker picked up job ID: %s", jobID)
		w.ProcessJob(ctx, jobID)
	}
}

// ProcessJob runs one job under the submission lock. Busy submissions are requeued.
func (w *RecommendationWorker) ProcessJob(ctx context.Context, jobID string) {
	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		log.Printf("ERROR: Failed to fetch job %s: %v", jobID, err)
		return
	}

	release, ok, err := w.locker.Acquire(ctx, lockKeyPrefix+job.SubmissionID, w.lockTTL)
	if err != nil {
		log.Printf("ERROR: Failed to attempt lock acquisition for job %s: %v", jobID, err)
		w.requeue(ctx, jobID)
		return
	}
	if !ok {
		log.Printf("INFO: Submission %s is busy, re-queueing job %s", job.SubmissionID, jobID)
		w.requeue(ctx, jobID)
		return
	}
	defer release(ctx)

	w.handle(ctx, job)
}

func (w *RecommendationWorker) requeue(ctx context.Context, jobID string) {
	if err := w.queue.Requeue(ctx, jobID); err != nil {
		log.Printf("ERROR: Failed to re-queue job %s: %v", jobID, err)
	}
}

func (w *RecommendationWorker) fail(ctx context.Context, job *model.RecommendationJob, msg string) {
	log.Printf("ERROR: %s (Job ID: %s)", msg, job.ID)
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusFailed, &msg); err != nil {
		log.Printf("ERROR: Failed to mark job %s failed: %v", job.ID, err)
	}
	if err := w.submissionRepo.UpdateRecommendations(ctx, nil, job.SubmissionID, []string{}, model.RecommendationFailed); err != nil {
		log.Printf("ERROR: Failed to mark recommendations failed for %s: %v", job.SubmissionID, err)
	}
}

func (w *RecommendationWorker) handle(ctx context.Context, job *model.RecommendationJob) {
	if job.Status == model.JobStatusCompleted {
		log.Printf("INFO: Job %s already completed, skipping", job.ID)
		return
	}
	if job.Attempts >= maxAttempts {
		w.fail(ctx, job, fmt.Sprintf("gave up after %d attempts", job.Attempts))
		return
	}
	if err := w.jobRepo.IncrementJobAttempts(ctx, nil, job.ID); err != nil {
		log.Printf("ERROR: Failed to increment attempts for job %s: %v", job.ID, err)
	}
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusProcessing, nil); err != nil {
		log.Printf("ERROR: Failed to update job %s status to Processing: %v", job.ID, err)
	}

	sub, err := w.submissionRepo.FindByID(ctx, job.SubmissionID)
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("Failed to fetch submission %s: %v", job.SubmissionID, err))
		return
	}

	recs, generated, err := recommend.Recommend(ctx, w.gen, recommend.Analysis{
		QuizTitle:       sub.QuizTitle,
		Subject:         sub.Subject,
		ScorePercentage: sub.RawScorePercentage,
		Answers:         sub.Answers,
	})
	if err != nil {
		log.Printf("WARN: Recommendation generator failed for submission %s, using fallback: %v", sub.ID, err)
	}
	if recs == nil {
		recs = []string{}
	}

	if err := w.submissionRepo.UpdateRecommendations(ctx, nil, sub.ID, recs, model.RecommendationReady); err != nil {
		w.fail(ctx, job, fmt.Sprintf("Failed to store recommendations for %s: %v", sub.ID, err))
		return
	}
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusCompleted, nil); err != nil {
		log.Printf("ERROR: Failed to update job %s status to Completed: %v", job.ID, err)
	}
	log.Printf("INFO: Job %s completed with %d recommendations (generated: %t)", job.ID, len(recs), generated)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
