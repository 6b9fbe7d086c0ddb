package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
)

type userRepository struct {
	s *Store
}

func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) emailTaken(email, exceptID string) bool {
	if email == "" {
		return false
	}
	for _, u := range r.s.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// withClasses returns a copy with class memberships filled in. Caller holds the lock.
func (r *userRepository) withClasses(u *model.User) *model.User {
	c := cloneUser(u)
	c.ClassIDs = nil
	for classID, ids := range r.s.members {
		if _, ok := ids[u.ID]; ok {
			c.ClassIDs = append(c.ClassIDs, classID)
		}
	}
	sort.Strings(c.ClassIDs)
	return c
}

func (r *userRepository) Create(_ context.Context, _ *sql.Tx, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return fmt.Errorf("user %s already exists: %w", u.ID, common.ErrConflict)
	}
	if r.emailTaken(u.Email, "") {
		return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = cloneUser(u)
	for _, classID := range u.ClassIDs {
		r.addMember(u.ID, classID)
	}
	return nil
}

func (r *userRepository) Update(_ context.Context, _ *sql.Tx, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; !ok {
		return common.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
	}
	u.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *userRepository) Delete(_ context.Context, _ *sql.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.users, id)
	for _, ids := range r.s.members {
		delete(ids, id)
	}
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.withClasses(u), nil
}

func (r *userRepository) FindByEmail(_ context.Context, _ *sql.Tx, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if email == "" {
		return nil, common.ErrNotFound
	}
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return r.withClasses(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *userRepository) List(_ context.Context, f model.UserFilter) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*model.User
	for _, u := range r.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		out = append(out, r.withClasses(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (r *userRepository) ListByClass(_ context.Context, classID string) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.User
	for id := range r.s.members[classID] {
		if u, ok := r.s.users[id]; ok {
			out = append(out, r.withClasses(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *userRepository) AddToClass(_ context.Context, _ *sql.Tx, userID, classID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.addMember(userID, classID)
	return nil
}

func (r *userRepository) addMember(userID, classID string) {
	if r.s.members[classID] == nil {
		r.s.members[classID] = make(map[string]struct{})
	}
	r.s.members[classID][userID] = struct{}{}
}

// LockForUpdate is a no-op: WithTx already serialises writers.
func (r *userRepository) LockForUpdate(_ context.Context, _ *sql.Tx, id string) error {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrNotFound
	}
	return nil
}
