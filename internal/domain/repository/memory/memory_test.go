package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryEmailIsCaseInsensitiveUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewStore())

	require.NoError(t, repo.Create(ctx, nil, &model.User{ID: "u1", Email: "ana@school.edu", Name: "Ana", Role: model.RoleStudent}))
	err := repo.Create(ctx, nil, &model.User{ID: "u2", Email: "ANA@school.edu"})
	assert.True(t, errors.Is(err, common.ErrConflict))

	// Roster students without email never collide.
	require.NoError(t, repo.Create(ctx, nil, &model.User{ID: "u3", Name: "Ben"}))
	require.NoError(t, repo.Create(ctx, nil, &model.User{ID: "u4", Name: "Cai"}))

	got, err := repo.FindByEmail(ctx, nil, "Ana@School.edu")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = repo.FindByEmail(ctx, nil, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserRepositoryClassMembership(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewUserRepository(store)

	require.NoError(t, repo.Create(ctx, nil, &model.User{ID: "u1", Name: "Ana", ClassIDs: []string{"c1"}}))
	require.NoError(t, repo.AddToClass(ctx, nil, "u1", "c2"))
	require.NoError(t, repo.AddToClass(ctx, nil, "u1", "c2"))

	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, u.ClassIDs)

	members, err := repo.ListByClass(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, members, 1)

	// Mutating the returned copy leaves the store untouched.
	u.Name = "changed"
	again, _ := repo.FindByID(ctx, "u1")
	assert.Equal(t, "Ana", again.Name)
}

func TestUserRepositoryListSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewStore())
	require.NoError(t, repo.Create(ctx, nil, &model.User{ID: "1", Name: "Maria Clara", Email: "mc@x.edu", Role: model.RoleStudent}))
	require.NoError(t, repo.Create(ctx, nil, &model.User{ID: "2", Name: "Jose", Email: "jrizal@x.edu", Role: model.RoleTeacher}))

	list, err := repo.List(ctx, model.UserFilter{Role: model.RoleTeacher, Search: "RIZAL"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].ID)

	list, err = repo.List(ctx, model.UserFilter{Search: "clara"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSubmissionUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(NewStore())
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := repo.Upsert(ctx, nil, &model.QuizSubmission{ID: "s1", StudentID: "u", AssignmentID: "a", SubmittedAt: first, Base50ScorePercentage: 60})
	require.NoError(t, err)
	assert.True(t, created)

	again := &model.QuizSubmission{ID: "s2", StudentID: "u", AssignmentID: "a", SubmittedAt: first.Add(time.Hour), Base50ScorePercentage: 90}
	created, err = repo.Upsert(ctx, nil, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s1", again.ID)
	assert.Equal(t, first, again.SubmittedAt)

	got, err := repo.FindByAssignment(ctx, "u", "a")
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.Base50ScorePercentage)
}

func TestWithTxSerialises(t *testing.T) {
	store := NewStore()
	var calls int
	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		assert.Nil(t, tx)
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	assert.ErrorIs(t, store.WithTx(context.Background(), func(*sql.Tx) error { return boom }), boom)
}
