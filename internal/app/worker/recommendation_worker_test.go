package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository/memory"
	"iquizu/internal/platform/local"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	return g.text, g.err
}

type fixture struct {
	queue  *local.JobQueue
	locker *local.Locker
	store  *memory.Store
	worker *RecommendationWorker
}

func newFixture(t *testing.T, gen stubGenerator) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{queue: local.NewJobQueue(), locker: local.NewLocker(), store: store}
	f.worker = NewRecommendationWorker(f.queue, f.locker,
		memory.NewRecommendationJobRepository(store),
		memory.NewSubmissionRepository(store),
		gen, time.Minute)
	return f
}

func (f *fixture) seed(t *testing.T) (*model.QuizSubmission, *model.RecommendationJob) {
	t.Helper()
	ctx := context.Background()
	sub := &model.QuizSubmission{
		ID:                   "sub-1",
		AssignmentID:         "asg-1",
		StudentID:            "stu-1",
		QuizTitle:            "Cells",
		Subject:              "Biology",
		RawScorePercentage:   50,
		RecommendationStatus: model.RecommendationPending,
		Answers: []model.AnswerRecord{
			{Question: "Powerhouse of the cell?", CorrectAnswer: "Mitochondria", StudentAnswer: "Nucleus"},
			{Question: "Plants make food by?", CorrectAnswer: "Photosynthesis", StudentAnswer: "Photosynthesis", IsCorrect: true},
		},
	}
	_, err := memory.NewSubmissionRepository(f.store).Upsert(ctx, nil, sub)
	require.NoError(t, err)
	job := &model.RecommendationJob{ID: "job-1", SubmissionID: sub.ID, Status: model.JobStatusQueued}
	require.NoError(t, memory.NewRecommendationJobRepository(f.store).CreateJob(ctx, nil, job))
	return sub, job
}

func (f *fixture) results(t *testing.T) (*model.QuizSubmission, *model.RecommendationJob) {
	t.Helper()
	ctx := context.Background()
	sub, err := memory.NewSubmissionRepository(f.store).FindByID(ctx, "sub-1")
	require.NoError(t, err)
	job, err := memory.NewRecommendationJobRepository(f.store).GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	return sub, job
}

func TestProcessJobUsesGeneratedRecommendations(t *testing.T) {
	f := newFixture(t, stubGenerator{text: "Intro\n1. Review the role of mitochondria in respiration\n2. Short\n- Practice labelling organelles on a diagram"})
	f.seed(t)

	f.worker.ProcessJob(context.Background(), "job-1")

	sub, job := f.results(t)
	assert.Equal(t, model.RecommendationReady, sub.RecommendationStatus)
	assert.Equal(t, []string{
		"Review the role of mitochondria in respiration",
		"Practice labelling organelles on a diagram",
	}, sub.Recommendations)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Attempts)
}

func TestProcessJobFallsBackWhenGeneratorFails(t *testing.T) {
	f := newFixture(t, stubGenerator{err: errors.New("quota exceeded")})
	f.seed(t)

	f.worker.ProcessJob(context.Background(), "job-1")

	sub, job := f.results(t)
	assert.Equal(t, model.RecommendationReady, sub.RecommendationStatus)
	require.NotEmpty(t, sub.Recommendations)
	assert.Contains(t, sub.Recommendations[0], "Mitochondria")
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestProcessJobRequeuesWhenSubmissionIsLocked(t *testing.T) {
	f := newFixture(t, stubGenerator{})
	f.seed(t)
	ctx := context.Background()

	release, ok, err := f.locker.Acquire(ctx, lockKeyPrefix+"sub-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release(ctx)

	f.worker.ProcessJob(ctx, "job-1")

	assert.Equal(t, 1, f.queue.Len())
	_, job := f.results(t)
	assert.Equal(t, model.JobStatusQueued, job.Status)
}

func TestProcessJobGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, stubGenerator{})
	f.seed(t)
	ctx := context.Background()
	jobs := memory.NewRecommendationJobRepository(f.store)
	for i := 0; i < maxAttempts; i++ {
		require.NoError(t, jobs.IncrementJobAttempts(ctx, nil, "job-1"))
	}

	f.worker.ProcessJob(ctx, "job-1")

	sub, job := f.results(t)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.LastError)
	assert.Equal(t, model.RecommendationFailed, sub.RecommendationStatus)
}

func TestStartDrainsQueueUntilCancelled(t *testing.T) {
	f := newFixture(t, stubGenerator{text: "1. Review the role of mitochondria in respiration"})
	f.seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.queue.Enqueue(ctx, "job-1"))

	done := make(chan struct{})
	go func() {
		f.worker.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, job := f.results(t)
		return job.Status == model.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
