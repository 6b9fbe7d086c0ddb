package memory

import (
	"context"
	"database/sql"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
)

type recommendationJobRepository struct {
	s *Store
}

func NewRecommendationJobRepository(s *Store) repository.RecommendationJobRepository {
	return &recommendationJobRepository{s: s}
}

func (r *recommendationJobRepository) CreateJob(_ context.Context, _ *sql.Tx, job *model.RecommendationJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	cp := *job
	r.s.jobs[job.ID] = &cp
	return nil
}

func (r *recommendationJobRepository) GetJobByID(_ context.Context, id string) (*model.RecommendationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *recommendationJobRepository) UpdateJobStatus(_ context.Context, _ *sql.Tx, jobID string, status string, lastError *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[jobID]
	if !ok {
		return common.ErrNotFound
	}
	job.Status = status
	job.LastError = lastError
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *recommendationJobRepository) IncrementJobAttempts(_ context.Context, _ *sql.Tx, jobID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[jobID]
	if !ok {
		return common.ErrNotFound
	}
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	return nil
}
