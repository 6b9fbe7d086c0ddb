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

type quizRepository struct {
	s *Store
}

func NewQuizRepository(s *Store) repository.QuizRepository {
	return &quizRepository{s: s}
}

func (r *quizRepository) Create(_ context.Context, _ *sql.Tx, q *model.Quiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quizzes[q.ID]; ok {
		return fmt.Errorf("quiz already exists: %w", common.ErrConflict)
	}
	r.s.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (r *quizRepository) Update(_ context.Context, _ *sql.Tx, q *model.Quiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quizzes[q.ID]; !ok {
		return common.ErrNotFound
	}
	r.s.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (r *quizRepository) Delete(_ context.Context, _ *sql.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.quizzes, id)
	for aid, a := range r.s.assignments {
		if a.QuizID == id {
			delete(r.s.assignments, aid)
		}
	}
	return nil
}

func (r *quizRepository) FindByID(_ context.Context, id string) (*model.Quiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.quizzes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneQuiz(q), nil
}

func (r *quizRepository) ListByTeacher(_ context.Context, teacherID string) ([]*model.Quiz, error) {
	return r.list(func(q *model.Quiz) bool {
		return q.TeacherID == teacherID && q.Status != model.QuizStatusArchived
	}), nil
}

func (r *quizRepository) ListAll(_ context.Context) ([]*model.Quiz, error) {
	return r.list(func(*model.Quiz) bool { return true }), nil
}

func (r *quizRepository) list(match func(*model.Quiz) bool) []*model.Quiz {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Quiz
	for _, q := range r.s.quizzes {
		if match(q) {
			out = append(out, cloneQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}
