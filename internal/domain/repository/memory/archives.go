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

type archiveRepository struct {
	s *Store
}

func NewArchiveRepository(s *Store) repository.ArchiveRepository {
	return &archiveRepository{s: s}
}

func (r *archiveRepository) SaveClass(_ context.Context, _ *sql.Tx, a *model.ArchivedClass) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.archClasses[a.ID]; ok {
		return fmt.Errorf("already archived: %w", common.ErrConflict)
	}
	cp := *a
	r.s.archClasses[a.ID] = &cp
	return nil
}

func (r *archiveRepository) FindClass(_ context.Context, id string) (*model.ArchivedClass, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.archClasses[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *archiveRepository) ListClasses(_ context.Context, teacherID string) ([]*model.ArchivedClass, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.ArchivedClass
	for _, a := range r.s.archClasses {
		if a.TeacherID == teacherID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

func (r *archiveRepository) DeleteClass(_ context.Context, _ *sql.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.archClasses[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.archClasses, id)
	return nil
}

func (r *archiveRepository) SaveQuiz(_ context.Context, _ *sql.Tx, a *model.ArchivedQuiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.archQuizzes[a.ID]; ok {
		return fmt.Errorf("already archived: %w", common.ErrConflict)
	}
	cp := *a
	cp.Quiz = *cloneQuiz(&a.Quiz)
	r.s.archQuizzes[a.ID] = &cp
	return nil
}

func (r *archiveRepository) FindQuiz(_ context.Context, id string) (*model.ArchivedQuiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.archQuizzes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	cp.Quiz = *cloneQuiz(&a.Quiz)
	return &cp, nil
}

func (r *archiveRepository) ListQuizzes(_ context.Context, teacherID string) ([]*model.ArchivedQuiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.ArchivedQuiz
	for _, a := range r.s.archQuizzes {
		if a.TeacherID == teacherID {
			cp := *a
			cp.Quiz = *cloneQuiz(&a.Quiz)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

func (r *archiveRepository) DeleteQuiz(_ context.Context, _ *sql.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.archQuizzes[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.archQuizzes, id)
	return nil
}
