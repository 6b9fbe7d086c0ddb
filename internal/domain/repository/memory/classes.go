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

type classRepository struct {
	s *Store
}

func NewClassRepository(s *Store) repository.ClassRepository {
	return &classRepository{s: s}
}

func (r *classRepository) Create(_ context.Context, _ *sql.Tx, c *model.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.classes[c.ID]; ok {
		return fmt.Errorf("class %s already exists: %w", c.ID, common.ErrConflict)
	}
	cp := *c
	r.s.classes[c.ID] = &cp
	return nil
}

func (r *classRepository) Update(_ context.Context, _ *sql.Tx, c *model.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.classes[c.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *c
	r.s.classes[c.ID] = &cp
	return nil
}

func (r *classRepository) SetSourceFileURL(_ context.Context, id, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classes[id]
	if !ok {
		return common.ErrNotFound
	}
	c.SourceFileURL = url
	return nil
}

// Delete cascades to memberships and assignments like the SQL schema does.
func (r *classRepository) Delete(_ context.Context, _ *sql.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.classes, id)
	delete(r.s.members, id)
	for aid, a := range r.s.assignments {
		if a.ClassID == id {
			delete(r.s.assignments, aid)
		}
	}
	return nil
}

func (r *classRepository) FindByID(_ context.Context, id string) (*model.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.classes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *classRepository) ListByTeacher(_ context.Context, teacherID, status string) ([]*model.Class, error) {
	return r.list(func(c *model.Class) bool {
		return c.TeacherID == teacherID && (status == "" || c.Status == status)
	}), nil
}

func (r *classRepository) ListAll(_ context.Context) ([]*model.Class, error) {
	return r.list(func(*model.Class) bool { return true }), nil
}

func (r *classRepository) list(match func(*model.Class) bool) []*model.Class {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Class
	for _, c := range r.s.classes {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func (r *classRepository) CountByTeacher(_ context.Context, _ *sql.Tx, teacherID string) (int, error) {
	return len(r.list(func(c *model.Class) bool { return c.TeacherID == teacherID })), nil
}
