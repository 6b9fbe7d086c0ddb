package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
)

type assignmentRepository struct {
	s *Store
}

func NewAssignmentRepository(s *Store) repository.AssignmentRepository {
	return &assignmentRepository{s: s}
}

func (r *assignmentRepository) Create(_ context.Context, _ *sql.Tx, a *model.AssignedQuiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.assignments {
		if existing.QuizID == a.QuizID && existing.ClassID == a.ClassID && existing.StudentID == a.StudentID {
			return fmt.Errorf("quiz already assigned to student %s: %w", a.StudentID, common.ErrConflict)
		}
	}
	r.s.assignments[a.ID] = cloneAssignment(a)
	return nil
}

func (r *assignmentRepository) Update(_ context.Context, _ *sql.Tx, a *model.AssignedQuiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assignments[a.ID]; !ok {
		return common.ErrNotFound
	}
	r.s.assignments[a.ID] = cloneAssignment(a)
	return nil
}

func (r *assignmentRepository) FindByID(_ context.Context, _ *sql.Tx, id string) (*model.AssignedQuiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneAssignment(a), nil
}

func (r *assignmentRepository) List(_ context.Context, _ *sql.Tx, f model.AssignmentFilter) ([]*model.AssignedQuiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.AssignedQuiz
	for _, a := range r.s.assignments {
		if (f.QuizID != "" && a.QuizID != f.QuizID) ||
			(f.ClassID != "" && a.ClassID != f.ClassID) ||
			(f.StudentID != "" && a.StudentID != f.StudentID) ||
			(f.QuizCode != "" && a.QuizCode != f.QuizCode) ||
			(f.QuizMode != "" && a.QuizMode != f.QuizMode) {
			continue
		}
		out = append(out, cloneAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out, nil
}
