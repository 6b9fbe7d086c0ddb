package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"iquizu/internal/app/export"
	"iquizu/internal/common"
	"iquizu/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type liveFixture struct {
	env     *testEnv
	teacher *model.User
	class   *model.Class
	quiz    *model.Quiz
	ana     *model.User
	code    string
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	env := newTestEnv(t)
	teacher := env.teacher(t, "teacher@school.edu")
	class := env.importClass(t, teacher.ID, "Grade 7", rosterCSV).Class
	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{PassingScore: 75})
	res, err := env.quizzes.AssignQuiz(context.Background(), teacher.ID, quiz.ID, AssignRequest{ClassID: class.ID, Mode: model.QuizModeSynchronous})
	require.NoError(t, err)
	return &liveFixture{
		env:     env,
		teacher: teacher,
		class:   class,
		quiz:    quiz,
		ana:     env.studentByEmail(t, "ana@school.edu"),
		code:    res.QuizCode,
	}
}

func TestSessionTransitions(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()
	s := f.env.sessions

	_, err := s.EndSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	assert.ErrorIs(t, err, common.ErrConflict, "cannot end before starting")

	state, err := s.StartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, state.Status)
	assert.NotNil(t, state.StartedAt)

	_, err = s.StartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	state, err = s.EndSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnded, state.Status)
	assert.NotNil(t, state.EndedAt)

	state, err = s.RestartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionNotStarted, state.Status)
	assert.Equal(t, f.code, state.QuizCode)

	other := f.env.teacher(t, "other@school.edu")
	_, err = s.StartSession(ctx, other.ID, f.quiz.ID, f.class.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestRestartClearsResults(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()
	_, err := f.env.sessions.StartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	a := f.env.assignment(t, f.quiz.ID, f.class.ID, f.ana.ID)
	_, err = f.env.submissions.Submit(ctx, f.ana.ID, a.ID, SubmitRequest{Answers: []string{"Mitochondria", "True", "cell", "False"}})
	require.NoError(t, err)

	_, err = f.env.sessions.RestartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)

	a = f.env.assignment(t, f.quiz.ID, f.class.ID, f.ana.ID)
	assert.Equal(t, model.AssignmentStatusNotStarted, a.Status)
	assert.False(t, a.Completed)
	assert.Nil(t, a.Score)
	assert.Zero(t, a.Attempts)
}

func TestJoin(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()
	s := f.env.sessions

	res, err := s.Join(ctx, f.ana.ID, "  "+strings.ToLower(f.code)+" ")
	require.NoError(t, err)
	assert.Equal(t, f.quiz.ID, res.Assignment.QuizID)
	assert.Equal(t, model.SessionNotStarted, res.Session.Status)

	_, err = s.Join(ctx, f.ana.ID, "ZZZZZZ")
	assert.ErrorIs(t, err, common.ErrNotFound)

	outsider, err := f.env.auth.Signup(ctx, SignupRequest{Name: "Zed", Email: "zed@school.edu", Password: "secret123"})
	require.NoError(t, err)
	_, err = s.Join(ctx, outsider.User.ID, f.code)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.StartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	_, err = s.EndSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	_, err = s.Join(ctx, f.ana.ID, f.code)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestSubscribeReceivesSessionEvents(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, stop, err := f.env.sessions.Subscribe(ctx, f.ana.ID, model.RoleStudent, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	defer stop()

	_, err = f.env.sessions.StartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, model.SessionEventStarted, ev.Type)
		assert.Equal(t, model.SessionActive, ev.Session.Status)
	case <-time.After(time.Second):
		t.Fatal("no session event received")
	}

	outsider, err := f.env.auth.Signup(ctx, SignupRequest{Name: "Zed", Email: "zed@school.edu", Password: "secret123"})
	require.NoError(t, err)
	_, _, err = f.env.sessions.Subscribe(ctx, outsider.User.ID, model.RoleStudent, f.quiz.ID, f.class.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestPanelAndExport(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()
	_, err := f.env.sessions.StartSession(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	a := f.env.assignment(t, f.quiz.ID, f.class.ID, f.ana.ID)
	_, err = f.env.submissions.Submit(ctx, f.ana.ID, a.ID, SubmitRequest{Answers: []string{"Mitochondria", "True", "cell", "True"}})
	require.NoError(t, err)

	panel, err := f.env.sessions.Panel(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, panel.Counts.Total)
	assert.Equal(t, 1, panel.Counts.Completed)
	assert.Equal(t, 1, panel.Counts.NotStarted)
	assert.Equal(t, 1, panel.Counts.Passed, "87.5 on the base-50 scale passes at 75")
	assert.Equal(t, 75, panel.PassingScore)
	require.Len(t, panel.Students, 2)
	assert.Equal(t, "Ana Reyes", panel.Students[0].Name)

	name, data, err := f.env.sessions.Export(ctx, f.teacher.ID, f.quiz.ID, f.class.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "cells-grade-7-results-"))
	assert.True(t, strings.HasSuffix(name, ".xlsx"))

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(export.ResultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
