package service

import (
	"context"
	"errors"
	"testing"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "teacher@school.edu")

	tests := []struct {
		name     string
		question model.Question
		field    string
	}{
		{"one choice", model.Question{Type: model.QuestionMultipleChoice, Question: "Q?", Choices: []model.Choice{{Text: "A", IsCorrect: true}}}, "questions[0]"},
		{"no correct choice", model.Question{Type: model.QuestionMultipleChoice, Question: "Q?", Choices: []model.Choice{{Text: "A"}, {Text: "B"}}}, "questions[0]"},
		{"correct answer without flagged choice", model.Question{Type: model.QuestionMultipleChoice, Question: "Q?", CorrectAnswer: "A",
			Choices: []model.Choice{{Text: "A"}, {Text: "B"}}}, "questions[0]"},
		{"bad true false", model.Question{Type: model.QuestionTrueFalse, Question: "Q?", CorrectAnswer: "maybe"}, "questions[0]"},
		{"blank identification", model.Question{Type: model.QuestionIdentification, Question: "Q?", CorrectAnswer: " "}, "questions[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.quizzes.CreateQuiz(context.Background(), teacher.ID, QuizInput{Title: "T", Questions: []model.Question{tt.question}})
			var vErr *common.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Contains(t, vErr.Fields, tt.field)
		})
	}
}

func TestCreateQuizDefaults(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "teacher@school.edu")

	quiz, err := env.quizzes.CreateQuiz(context.Background(), teacher.ID, sampleQuiz())

	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusDraft, quiz.Status)
	assert.Equal(t, model.QuizModeDraft, quiz.Mode)
	assert.Equal(t, model.DefaultPassingScore, quiz.Settings.PassingScore)
	assert.Equal(t, model.DefaultMaxAttempts, quiz.Settings.MaxAttempts)
	for _, q := range quiz.Questions {
		assert.NotEmpty(t, q.ID)
	}
}

func TestPublishQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	other := env.teacher(t, "other@school.edu")

	empty, err := env.quizzes.CreateQuiz(ctx, teacher.ID, QuizInput{Title: "Empty"})
	require.NoError(t, err)
	_, err = env.quizzes.PublishQuiz(ctx, teacher.ID, empty.ID)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	quiz, err := env.quizzes.CreateQuiz(ctx, teacher.ID, sampleQuiz())
	require.NoError(t, err)
	_, err = env.quizzes.PublishQuiz(ctx, other.ID, quiz.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	published, err := env.quizzes.PublishQuiz(ctx, teacher.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusPublished, published.Status)
	assert.Equal(t, model.QuizModePublished, published.Mode)
}

func TestAssignQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	class := env.importClass(t, teacher.ID, "Grade 7", rosterCSV).Class

	draft, err := env.quizzes.CreateQuiz(ctx, teacher.ID, sampleQuiz())
	require.NoError(t, err)
	_, err = env.quizzes.AssignQuiz(ctx, teacher.ID, draft.ID, AssignRequest{ClassID: class.ID, Mode: model.QuizModeAsynchronous})
	assert.ErrorIs(t, err, common.ErrConflict)

	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{MaxAttempts: 2})
	ana := env.studentByEmail(t, "ana@school.edu")

	res, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: class.ID, Mode: model.QuizModeSynchronous, StudentIDs: []string{ana.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)
	assert.Len(t, res.QuizCode, 6)

	res2, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: class.ID, Mode: model.QuizModeSynchronous})
	require.NoError(t, err)
	assert.Equal(t, 1, res2.Assigned)
	assert.Equal(t, 1, res2.Skipped)
	assert.Equal(t, res.QuizCode, res2.QuizCode, "a class keeps one join code")

	a := env.assignment(t, quiz.ID, class.ID, ana.ID)
	assert.Equal(t, model.AssignmentStatusNotStarted, a.Status)
	assert.Equal(t, model.SessionNotStarted, a.SessionStatus)
	assert.Equal(t, 2, a.MaxAttempts)
	assert.Equal(t, "Grade 7", a.ClassName)

	groups, err := env.quizzes.ListAssignedClasses(ctx, teacher.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Students)
	assert.Equal(t, res.QuizCode, groups[0].QuizCode)
}

func TestNewQuizCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := NewQuizCode()
		require.Len(t, code, quizCodeLength)
		for _, c := range code {
			assert.Contains(t, quizCodeAlphabet, string(c))
		}
	}
}

func TestAssignQuizRedrawsTakenCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	first := env.importClass(t, teacher.ID, "Grade 7", rosterCSV).Class
	second := env.importClass(t, teacher.ID, "Grade 8", rosterCSV).Class
	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{})

	codes := []string{"ABC123", "ABC123", "XYZ789"}
	env.quizzes.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	res, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: first.ID, Mode: model.QuizModeSynchronous})
	require.NoError(t, err)
	assert.Equal(t, "ABC123", res.QuizCode)

	res, err = env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: second.ID, Mode: model.QuizModeSynchronous})
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", res.QuizCode)
	assert.Empty(t, codes)
}

func TestAssignQuizGivesUpWhenNoCodeIsFree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	first := env.importClass(t, teacher.ID, "Grade 7", rosterCSV).Class
	second := env.importClass(t, teacher.ID, "Grade 8", rosterCSV).Class
	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{})
	env.quizzes.newCode = func() string { return "SAME01" }

	_, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: first.ID, Mode: model.QuizModeSynchronous})
	require.NoError(t, err)
	_, err = env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: second.ID, Mode: model.QuizModeSynchronous})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestAssignQuizRejectsForeignOrArchivedClass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	other := env.teacher(t, "other@school.edu")
	mine := env.importClass(t, teacher.ID, "Mine", rosterCSV).Class
	theirs := env.importClass(t, other.ID, "Theirs", rosterCSV).Class
	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{})

	_, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: theirs.ID, Mode: model.QuizModeAsynchronous})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.classes.ArchiveClass(ctx, teacher.ID, mine.ID)
	require.NoError(t, err)
	_, err = env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: mine.ID, Mode: model.QuizModeAsynchronous})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: mine.ID, Mode: "live"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestArchiveRestoreDeleteQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.teacher(t, "teacher@school.edu")
	class := env.importClass(t, teacher.ID, "Grade 7", rosterCSV).Class
	quiz := env.publishedQuiz(t, teacher.ID, model.QuizSettings{})
	_, err := env.quizzes.AssignQuiz(ctx, teacher.ID, quiz.ID, AssignRequest{ClassID: class.ID, Mode: model.QuizModeAsynchronous})
	require.NoError(t, err)

	archived, err := env.quizzes.ArchiveQuiz(ctx, teacher.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, archived.OriginalID)
	list, err := env.quizzes.ListQuizzes(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = env.quizzes.UpdateQuiz(ctx, teacher.ID, quiz.ID, sampleQuiz())
	assert.ErrorIs(t, err, common.ErrConflict)

	restored, err := env.quizzes.RestoreQuiz(ctx, teacher.ID, archived.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusPublished, restored.Status)

	archived, err = env.quizzes.ArchiveQuiz(ctx, teacher.ID, quiz.ID)
	require.NoError(t, err)
	require.NoError(t, env.quizzes.DeleteArchivedQuiz(ctx, teacher.ID, archived.ID))

	_, err = env.quizRepo.FindByID(ctx, quiz.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	left, err := env.assignRepo.List(ctx, nil, model.AssignmentFilter{QuizID: quiz.ID})
	require.NoError(t, err)
	assert.Empty(t, left)
	archives, err := env.quizzes.ListArchivedQuizzes(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, archives)
}
