package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
)

type submissionRepository struct {
	s *Store
}

func NewSubmissionRepository(s *Store) repository.SubmissionRepository {
	return &submissionRepository{s: s}
}

func (r *submissionRepository) Upsert(_ context.Context, _ *sql.Tx, sub *model.QuizSubmission) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.submissions {
		if existing.StudentID == sub.StudentID && existing.AssignmentID == sub.AssignmentID {
			sub.ID = existing.ID
			sub.SubmittedAt = existing.SubmittedAt
			r.s.submissions[sub.ID] = cloneSubmission(sub)
			return false, nil
		}
	}
	r.s.submissions[sub.ID] = cloneSubmission(sub)
	return true, nil
}

func (r *submissionRepository) FindByID(_ context.Context, id string) (*model.QuizSubmission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneSubmission(sub), nil
}

func (r *submissionRepository) FindByAssignment(_ context.Context, studentID, assignmentID string) (*model.QuizSubmission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sub := range r.s.submissions {
		if sub.StudentID == studentID && sub.AssignmentID == assignmentID {
			return cloneSubmission(sub), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *submissionRepository) List(_ context.Context, f model.SubmissionFilter) ([]*model.QuizSubmission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.QuizSubmission
	for _, sub := range r.s.submissions {
		if (f.StudentID != "" && sub.StudentID != f.StudentID) ||
			(f.QuizID != "" && sub.QuizID != f.QuizID) ||
			(f.ClassID != "" && sub.ClassID != f.ClassID) ||
			(f.Since != nil && sub.SubmittedAt.Before(*f.Since)) {
			continue
		}
		out = append(out, cloneSubmission(sub))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *submissionRepository) UpdateRecommendations(_ context.Context, _ *sql.Tx, id string, recs []string, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return common.ErrNotFound
	}
	sub.Recommendations = cloneStrings(recs)
	sub.RecommendationStatus = status
	sub.UpdatedAt = time.Now().UTC()
	return nil
}
