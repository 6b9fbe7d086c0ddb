package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
)

type RecommendationJobRepository interface {
	CreateJob(ctx context.Context, tx *sql.Tx, job *model.RecommendationJob) error
	GetJobByID(ctx context.Context, id string) (*model.RecommendationJob, error)
	UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error
	IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error
}

type pgRecommendationJobRepository struct {
	db *sql.DB
}

func NewPgRecommendationJobRepository(db *sql.DB) RecommendationJobRepository {
	return &pgRecommendationJobRepository{db: db}
}

func (r *pgRecommendationJobRepository) CreateJob(ctx context.Context, tx *sql.Tx, job *model.RecommendationJob) error {
	query := `INSERT INTO recommendation_jobs (id, submission_id, status, attempts)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, job.ID, job.SubmissionID, job.Status, job.Attempts).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgRecommendationJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *pgRecommendationJobRepository) GetJobByID(ctx context.Context, id string) (*model.RecommendationJob, error) {
	query := `SELECT id, submission_id, status, attempts, last_error, created_at, updated_at
	          FROM recommendation_jobs WHERE id = $1`
	job := &model.RecommendationJob{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.SubmissionID, &job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRecommendationJobRepository.GetJobByID: %w", err)
	}
	return job, nil
}

func (r *pgRecommendationJobRepository) UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error {
	query := `UPDATE recommendation_jobs SET status = $1, last_error = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, status, lastError, jobID); err != nil {
		return fmt.Errorf("pgRecommendationJobRepository.UpdateJobStatus: %w", err)
	}
	return nil
}

func (r *pgRecommendationJobRepository) IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error {
	query := `UPDATE recommendation_jobs SET attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, jobID); err != nil {
		return fmt.Errorf("pgRecommendationJobRepository.IncrementJobAttempts: %w", err)
	}
	return nil
}
