package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportClass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	_, err := env.auth.Signup(ctx, SignupRequest{Name: "Ben Santos", Email: "ben@school.edu", Password: "secret123"})
	require.NoError(t, err)

	csv := "Student No.,Name,Email Address\n" +
		"2021-001,Ana Reyes,ana@school.edu\n" +
		"2021-002,Ben Santos,BEN@school.edu\n" +
		"2021-001,Ana Reyes,ana@school.edu\n" +
		"2021-003,Cara Lim,\n" +
		"2021-004,Ms. Cruz,teacher@school.edu\n" +
		",Missing Number,x@school.edu\n"

	res := env.importClass(t, teacher.ID, "  Grade 7 - Rizal ", csv)

	assert.Equal(t, 2, res.NewStudents)
	assert.Equal(t, 2, res.AddedToExisting)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.ErrorMessages, 1)
	assert.Contains(t, res.ErrorMessages[0], "teacher account")
	assert.Equal(t, "Grade 7 - Rizal", res.Class.Name)
	assert.Equal(t, "grade-7-rizal", res.Class.Slug)
	assert.Equal(t, 4, res.Class.StudentCount)
	assert.Equal(t, model.ClassStatusActive, res.Class.Status)

	detail, err := env.classes.GetClass(ctx, teacher.ID, res.Class.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Students, 3)

	other := env.teacher(t, "other@school.edu")
	_, err = env.classes.GetClass(ctx, other.ID, res.Class.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestImportClassRejectsBadFiles(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "teacher@school.edu")

	tests := []struct {
		name string
		req  ImportClassRequest
	}{
		{"unsupported extension", ImportClassRequest{Name: "A", FileName: "roster.pdf", Data: []byte(rosterCSV)}},
		{"missing columns", ImportClassRequest{Name: "A", FileName: "roster.csv", Data: []byte("Name,Email\nAna,ana@x.edu\n")}},
		{"blank name", ImportClassRequest{Name: " ", FileName: "roster.csv", Data: []byte(rosterCSV)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.classes.ImportClass(context.Background(), teacher.ID, tt.req)
			require.Error(t, err)
			assert.Equal(t, 400, common.HTTPStatusFromError(err))
		})
	}
}

func TestClassLimitCountsArchivedClasses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")

	first := env.importClass(t, teacher.ID, "One", rosterCSV)
	env.importClass(t, teacher.ID, "Two", rosterCSV)
	env.importClass(t, teacher.ID, "Three", rosterCSV)
	_, err := env.classes.ArchiveClass(ctx, teacher.ID, first.Class.ID)
	require.NoError(t, err)

	_, err = env.classes.ImportClass(ctx, teacher.ID, ImportClassRequest{Name: "Four", FileName: "r.csv", Data: []byte(rosterCSV)})
	assert.ErrorIs(t, err, common.ErrClassLimitReached)

	require.NoError(t, env.classes.DeleteArchivedClass(ctx, teacher.ID, first.Class.ID))
	_, err = env.classes.ImportClass(ctx, teacher.ID, ImportClassRequest{Name: "Four", FileName: "r.csv", Data: []byte(rosterCSV)})
	assert.NoError(t, err)
}

type recordingFiles struct {
	mu   sync.Mutex
	keys []string
}

func (f *recordingFiles) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://files.test/" + key, nil
}

func TestImportClassStoresOriginalOnlyOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	files := &recordingFiles{}
	classes := NewClassService(env.store, env.users, env.classRepo, memory.NewArchiveRepository(env.store), files, 1)
	teacher := env.teacher(t, "teacher@school.edu")

	res, err := classes.ImportClass(ctx, teacher.ID, ImportClassRequest{Name: "One", FileName: "roster.csv", Data: []byte(rosterCSV)})
	require.NoError(t, err)
	require.Len(t, files.keys, 1)
	assert.Equal(t, "classlists/"+teacher.ID+"/"+res.Class.ID+"/roster.csv", files.keys[0])
	stored, err := env.classRepo.FindByID(ctx, res.Class.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/"+files.keys[0], stored.SourceFileURL)
	assert.Equal(t, stored.SourceFileURL, res.Class.SourceFileURL)

	_, err = classes.ImportClass(ctx, teacher.ID, ImportClassRequest{Name: "Two", FileName: "roster.csv", Data: []byte(rosterCSV)})
	assert.ErrorIs(t, err, common.ErrClassLimitReached)
	assert.Len(t, files.keys, 1, "a rejected import uploads nothing")
}

func TestArchiveAndRestoreClass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	res := env.importClass(t, teacher.ID, "Grade 7", rosterCSV)

	archived, err := env.classes.ArchiveClass(ctx, teacher.ID, res.Class.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Class.ID, archived.OriginalID)
	assert.Equal(t, "teacher@school.edu", archived.ArchivedBy)

	_, err = env.classes.ArchiveClass(ctx, teacher.ID, res.Class.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	active, err := env.classes.ListClasses(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
	list, err := env.classes.ListArchivedClasses(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	restored, err := env.classes.RestoreClass(ctx, teacher.ID, archived.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClassStatusActive, restored.Status)
	list, err = env.classes.ListArchivedClasses(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteArchivedClassCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	res := env.importClass(t, teacher.ID, "Grade 7", rosterCSV)
	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{})
	_, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: res.Class.ID, Mode: model.QuizModeAsynchronous})
	require.NoError(t, err)

	archived, err := env.classes.ArchiveClass(ctx, teacher.ID, res.Class.ID)
	require.NoError(t, err)
	require.NoError(t, env.classes.DeleteArchivedClass(ctx, teacher.ID, archived.ID))

	_, err = env.classRepo.FindByID(ctx, res.Class.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	left, err := env.assignRepo.List(ctx, nil, model.AssignmentFilter{ClassID: res.Class.ID})
	require.NoError(t, err)
	assert.Empty(t, left)
	ana := env.studentByEmail(t, "ana@school.edu")
	assert.Empty(t, ana.ClassIDs)
}
