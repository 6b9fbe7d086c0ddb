package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"iquizu/internal/common/security"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
	"iquizu/internal/domain/repository/memory"
	"iquizu/internal/platform/local"
	"iquizu/internal/platform/mailer"
	"iquizu/internal/platform/storage"

	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	store       *memory.Store
	users       repository.UserRepository
	classRepo   repository.ClassRepository
	quizRepo    repository.QuizRepository
	assignRepo  repository.AssignmentRepository
	subRepo     repository.SubmissionRepository
	jobRepo     repository.RecommendationJobRepository
	queue       *local.JobQueue
	bus         *local.EventBus
	kv          *local.KV
	mail        *recordingMailer
	auth        *AuthService
	accounts    *AccountService
	classes     *ClassService
	quizzes     *QuizService
	sessions    *SessionService
	submissions *SubmissionService
	analytics   *AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	security.Setup([]byte("test-secret"), time.Hour)

	store := memory.NewStore()
	e := &testEnv{
		store:      store,
		users:      memory.NewUserRepository(store),
		classRepo:  memory.NewClassRepository(store),
		quizRepo:   memory.NewQuizRepository(store),
		assignRepo: memory.NewAssignmentRepository(store),
		subRepo:    memory.NewSubmissionRepository(store),
		jobRepo:    memory.NewRecommendationJobRepository(store),
		queue:      local.NewJobQueue(),
		bus:        local.NewEventBus(),
		kv:         local.NewKV(),
		mail:       &recordingMailer{},
	}
	archives := memory.NewArchiveRepository(store)

	e.auth = NewAuthService(e.users, store, e.kv, e.mail, time.Hour, "http://app.test")
	e.accounts = NewAccountService(e.users, e.auth)
	e.classes = NewClassService(store, e.users, e.classRepo, archives, storage.Discard{}, 3)
	e.quizzes = NewQuizService(store, e.quizRepo, e.classRepo, e.users, e.assignRepo, archives)
	e.sessions = NewSessionService(store, e.quizRepo, e.classRepo, e.assignRepo, e.bus)
	e.submissions = NewSubmissionService(store, e.quizRepo, e.users, e.assignRepo, e.subRepo, e.jobRepo, e.queue, e.bus)
	e.analytics = NewAnalyticsService(e.users, e.classRepo, e.quizRepo, e.assignRepo, e.subRepo, e.kv, time.Minute)
	return e
}

func (e *testEnv) teacher(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := e.accounts.CreateTeacher(context.Background(), CreateTeacherRequest{Name: "Ms. Cruz", Email: email, Password: "secret123"})
	require.NoError(t, err)
	return u
}

const rosterCSV = "Student No.,Name,Email Address\n" +
	"2021-001,Ana Reyes,ana@school.edu\n" +
	"2021-002,Ben Santos,ben@school.edu\n"

func (e *testEnv) importClass(t *testing.T, teacherID, name, csv string) *model.ImportResult {
	t.Helper()
	res, err := e.classes.ImportClass(context.Background(), teacherID, ImportClassRequest{
		Name: name, Subject: "Science", FileName: "roster.csv", Data: []byte(csv),
	})
	require.NoError(t, err)
	return res
}

func sampleQuiz() QuizInput {
	return QuizInput{
		Title: "Cells",
		Questions: []model.Question{
			{Type: model.QuestionMultipleChoice, Question: "Powerhouse of the cell?", Choices: []model.Choice{
				{Text: "Nucleus"}, {Text: "Mitochondria", IsCorrect: true},
			}},
			{Type: model.QuestionTrueFalse, Question: "Plants photosynthesise.", CorrectAnswer: "True"},
			{Type: model.QuestionIdentification, Question: "Basic unit of life?", CorrectAnswer: "Cell"},
			{Type: model.QuestionTrueFalse, Question: "Bacteria have nuclei.", CorrectAnswer: "False"},
		},
	}
}

func (e *testEnv) publishedQuiz(t *testing.T, teacherID string, settings model.QuizSettings) *model.Quiz {
	t.Helper()
	ctx := context.Background()
	in := sampleQuiz()
	in.Settings = settings
	q, err := e.quizzes.CreateQuiz(ctx, teacherID, in)
	require.NoError(t, err)
	q, err = e.quizzes.PublishQuiz(ctx, teacherID, q.ID)
	require.NoError(t, err)
	return q
}

func (e *testEnv) studentByEmail(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := e.users.FindByEmail(context.Background(), nil, email)
	require.NoError(t, err)
	return u
}

func (e *testEnv) assignment(t *testing.T, quizID, classID, studentID string) *model.AssignedQuiz {
	t.Helper()
	list, err := e.assignRepo.List(context.Background(), nil, model.AssignmentFilter{QuizID: quizID, ClassID: classID, StudentID: studentID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func tokenFromLink(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0)
	rest := body[i+len("token="):]
	if j := strings.IndexAny(rest, "\n\" "); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
