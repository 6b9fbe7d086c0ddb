package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"

	"github.com/google/uuid"
)

const (
	quizCodeLength   = 6
	quizCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	quizCodeAttempts = 10
)

type QuizService struct {
	txm            repository.TxManager
	quizRepo       repository.QuizRepository
	classRepo      repository.ClassRepository
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	archiveRepo    repository.ArchiveRepository
	now            func() time.Time
	newCode        func() string
}

func NewQuizService(
	txm repository.TxManager,
	quizRepo repository.QuizRepository,
	classRepo repository.ClassRepository,
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	archiveRepo repository.ArchiveRepository,
) *QuizService {
	return &QuizService{
		txm:            txm,
		quizRepo:       quizRepo,
		classRepo:      classRepo,
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		archiveRepo:    archiveRepo,
		now:            func() time.Time { return time.Now().UTC() },
		newCode:        NewQuizCode,
	}
}

type QuizInput struct {
	Title     string             `json:"title" validate:"notblank"`
	Questions []model.Question   `json:"questions" validate:"dive"`
	Settings  model.QuizSettings `json:"settings"`
}

type AssignRequest struct {
	ClassID      string     `json:"class_id" validate:"required"`
	Mode         string     `json:"quiz_mode" validate:"required,oneof=synchronous asynchronous"`
	DueDate      *time.Time `json:"due_date"`
	Instructions string     `json:"instructions"`
	StudentIDs   []string   `json:"student_ids"`
}

type AssignResult struct {
	Assigned int    `json:"assigned"`
	Skipped  int    `json:"skipped"`
	QuizCode string `json:"quiz_code,omitempty"`
}

// validateQuestions checks what struct tags cannot express per question type.
func validateQuestions(questions []model.Question) error {
	fields := make(map[string]string)
	for i, q := range questions {
		key := fmt.Sprintf("questions[%d]", i)
		switch q.Type {
		case model.QuestionMultipleChoice:
			if len(q.Choices) < 2 {
				fields[key] = "multiple choice questions need at least two choices"
				continue
			}
			hasCorrect := false
			for _, c := range q.Choices {
				hasCorrect = hasCorrect || c.IsCorrect
			}
			if !hasCorrect {
				fields[key] = "mark one choice as correct"
			}
		case model.QuestionTrueFalse:
			if a := strings.ToLower(strings.TrimSpace(q.CorrectAnswer)); a != "true" && a != "false" {
				fields[key] = "correct_answer must be True or False"
			}
		case model.QuestionIdentification:
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				fields[key] = "correct_answer must not be blank"
			}
		}
	}
	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}
	return nil
}

func (in QuizInput) validate() error {
	if err := common.ValidateStruct(in); err != nil {
		return err
	}
	if in.Settings.PassingScore < 0 || in.Settings.PassingScore > 100 {
		return &common.ValidationError{Fields: map[string]string{"settings.passing_score": "passing_score must be between 0 and 100"}}
	}
	if in.Settings.MaxAttempts < 0 {
		return &common.ValidationError{Fields: map[string]string{"settings.max_attempts": "max_attempts must not be negative"}}
	}
	return validateQuestions(in.Questions)
}

func (in QuizInput) apply(q *model.Quiz) {
	q.Title = common.CleanString(in.Title)
	q.Questions = make([]model.Question, len(in.Questions))
	for i, question := range in.Questions {
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		q.Questions[i] = question
	}
	q.Settings = in.Settings
	if q.Settings.PassingScore == 0 {
		q.Settings.PassingScore = model.DefaultPassingScore
	}
	if q.Settings.MaxAttempts == 0 {
		q.Settings.MaxAttempts = model.DefaultMaxAttempts
	}
}

func (s *QuizService) CreateQuiz(ctx context.Context, teacherID string, in QuizInput) (*model.Quiz, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	quiz := &model.Quiz{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Status:    model.QuizStatusDraft,
		Mode:      model.QuizModeDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(quiz)
	if err := s.quizRepo.Create(ctx, nil, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, teacherID, quizID string) (*model.Quiz, error) {
	quiz, err := s.quizRepo.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.TeacherID != teacherID {
		return nil, fmt.Errorf("quiz belongs to another teacher: %w", common.ErrForbidden)
	}
	return quiz, nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, teacherID, quizID string, in QuizInput) (*model.Quiz, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status == model.QuizStatusArchived {
		return nil, fmt.Errorf("restore the quiz before editing it: %w", common.ErrConflict)
	}
	in.apply(quiz)
	quiz.UpdatedAt = s.now()
	if err := s.quizRepo.Update(ctx, nil, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) PublishQuiz(ctx context.Context, teacherID, quizID string) (*model.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status == model.QuizStatusArchived {
		return nil, fmt.Errorf("restore the quiz before publishing it: %w", common.ErrConflict)
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("a quiz needs at least one question: %w", common.ErrBadRequest)
	}
	quiz.Status = model.QuizStatusPublished
	quiz.Mode = model.QuizModePublished
	quiz.UpdatedAt = s.now()
	if err := s.quizRepo.Update(ctx, nil, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) ListQuizzes(ctx context.Context, teacherID string) ([]*model.Quiz, error) {
	return s.quizRepo.ListByTeacher(ctx, teacherID)
}

func (s *QuizService) GetQuiz(ctx context.Context, teacherID, quizID string) (*model.Quiz, error) {
	return s.ownedQuiz(ctx, teacherID, quizID)
}

// NewQuizCode returns a six character upper-case alphanumeric join code.
func NewQuizCode() string {
	code := make([]byte, 0, quizCodeLength)
	b := make([]byte, 1)
	for len(code) < quizCodeLength {
		rand.Read(b)
		// 252 is the largest multiple of 36 that fits a byte.
		if b[0] >= 252 {
			continue
		}
		code = append(code, quizCodeAlphabet[int(b[0])%len(quizCodeAlphabet)])
	}
	return string(code)
}

// uniqueQuizCode draws codes until one is not held by any assignment.
func (s *QuizService) uniqueQuizCode(ctx context.Context, tx *sql.Tx) (string, error) {
	for i := 0; i < quizCodeAttempts; i++ {
		code := s.newCode()
		taken, err := s.assignmentRepo.List(ctx, tx, model.AssignmentFilter{QuizCode: code})
		if err != nil {
			return "", err
		}
		if len(taken) == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a free quiz code: %w", common.ErrConflict)
}

// AssignQuiz hands the quiz to every student of the class, or to StudentIDs
// when given. Students who already have it are skipped. Synchronous
// assignments of one class share a quiz code and start with the session not started.
func (s *QuizService) AssignQuiz(ctx context.Context, teacherID, quizID string, req AssignRequest) (*AssignResult, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizStatusPublished && quiz.Status != model.QuizStatusActive {
		return nil, fmt.Errorf("publish the quiz before assigning it: %w", common.ErrConflict)
	}
	class, err := s.classRepo.FindByID(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != teacherID {
		return nil, fmt.Errorf("class belongs to another teacher: %w", common.ErrForbidden)
	}
	if class.Status != model.ClassStatusActive {
		return nil, fmt.Errorf("class is archived: %w", common.ErrConflict)
	}

	students, err := s.userRepo.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, err
	}
	if len(req.StudentIDs) > 0 {
		wanted := make(map[string]bool, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			wanted[id] = true
		}
		filtered := students[:0]
		for _, st := range students {
			if wanted[st.ID] {
				filtered = append(filtered, st)
			}
		}
		students = filtered
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("no students to assign: %w", common.ErrBadRequest)
	}

	result := &AssignResult{}
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.assignmentRepo.List(ctx, tx, model.AssignmentFilter{QuizID: quiz.ID, ClassID: class.ID})
		if err != nil {
			return err
		}
		has := make(map[string]bool, len(existing))
		session := model.SessionState{Status: model.SessionNotStarted}
		for _, a := range existing {
			has[a.StudentID] = true
			if a.QuizMode == model.QuizModeSynchronous && a.QuizCode != "" {
				session = model.SessionState{Status: a.SessionStatus, StartedAt: a.SessionStartedAt, EndedAt: a.SessionEndedAt, QuizCode: a.QuizCode}
			}
		}
		if req.Mode == model.QuizModeSynchronous && session.QuizCode == "" {
			if session.QuizCode, err = s.uniqueQuizCode(ctx, tx); err != nil {
				return err
			}
		}

		now := s.now()
		for _, st := range students {
			if has[st.ID] {
				result.Skipped++
				continue
			}
			a := &model.AssignedQuiz{
				ID:           uuid.NewString(),
				QuizID:       quiz.ID,
				ClassID:      class.ID,
				StudentID:    st.ID,
				StudentName:  st.Name,
				StudentNo:    st.StudentNo,
				QuizTitle:    quiz.Title,
				ClassName:    class.Name,
				Subject:      class.Subject,
				TeacherID:    teacherID,
				QuizMode:     req.Mode,
				DueDate:      req.DueDate,
				Instructions: common.CleanString(req.Instructions),
				MaxAttempts:  quiz.MaxAttempts(),
				Status:       model.AssignmentStatusPending,
				AssignedAt:   now,
			}
			if req.Mode == model.QuizModeSynchronous {
				a.Status = model.AssignmentStatusNotStarted
				a.QuizCode = session.QuizCode
				a.SessionStatus = session.Status
				a.SessionStartedAt = session.StartedAt
				a.SessionEndedAt = session.EndedAt
			}
			if err := s.assignmentRepo.Create(ctx, tx, a); err != nil {
				return err
			}
			result.Assigned++
		}
		if req.Mode == model.QuizModeSynchronous {
			result.QuizCode = session.QuizCode
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignedClass summarises one class a quiz was handed to.
type AssignedClass struct {
	ClassID       string `json:"class_id"`
	ClassName     string `json:"class_name"`
	QuizMode      string `json:"quiz_mode"`
	QuizCode      string `json:"quiz_code,omitempty"`
	SessionStatus string `json:"session_status,omitempty"`
	Students      int    `json:"students"`
	Completed     int    `json:"completed"`
}

func (s *QuizService) ListAssignedClasses(ctx context.Context, teacherID, quizID string) ([]AssignedClass, error) {
	if _, err := s.ownedQuiz(ctx, teacherID, quizID); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.List(ctx, nil, model.AssignmentFilter{QuizID: quizID})
	if err != nil {
		return nil, err
	}
	var out []AssignedClass
	index := make(map[string]int)
	for _, a := range assignments {
		key := a.ClassID + "|" + a.QuizMode
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, AssignedClass{ClassID: a.ClassID, ClassName: a.ClassName, QuizMode: a.QuizMode})
		}
		g := &out[i]
		g.Students++
		if a.IsDone() {
			g.Completed++
		}
		if a.QuizCode != "" {
			g.QuizCode = a.QuizCode
			g.SessionStatus = a.SessionStatus
		}
	}
	return out, nil
}

func (s *QuizService) ArchiveQuiz(ctx context.Context, teacherID, quizID string) (*model.ArchivedQuiz, error) {
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status == model.QuizStatusArchived {
		return nil, fmt.Errorf("quiz is already archived: %w", common.ErrConflict)
	}
	teacher, err := s.userRepo.FindByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	quiz.Status = model.QuizStatusArchived
	quiz.UpdatedAt = s.now()
	archived := &model.ArchivedQuiz{
		Quiz:       *quiz,
		OriginalID: quiz.ID,
		ArchivedAt: s.now(),
		ArchivedBy: teacher.Email,
	}
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.quizRepo.Update(ctx, tx, quiz); err != nil {
			return err
		}
		return s.archiveRepo.SaveQuiz(ctx, tx, archived)
	})
	if err != nil {
		return nil, err
	}
	return archived, nil
}

func (s *QuizService) ListArchivedQuizzes(ctx context.Context, teacherID string) ([]*model.ArchivedQuiz, error) {
	return s.archiveRepo.ListQuizzes(ctx, teacherID)
}

func (s *QuizService) ownedArchive(ctx context.Context, teacherID, id string) (*model.ArchivedQuiz, error) {
	archived, err := s.archiveRepo.FindQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if archived.TeacherID != teacherID {
		return nil, fmt.Errorf("quiz belongs to another teacher: %w", common.ErrForbidden)
	}
	return archived, nil
}

// RestoreQuiz brings an archived quiz back as published.
func (s *QuizService) RestoreQuiz(ctx context.Context, teacherID, id string) (*model.Quiz, error) {
	archived, err := s.ownedArchive(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	var quiz *model.Quiz
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		quiz, err = s.quizRepo.FindByID(ctx, archived.OriginalID)
		if errors.Is(err, common.ErrNotFound) {
			restored := archived.Quiz
			quiz = &restored
			quiz.Status = model.QuizStatusPublished
			quiz.Mode = model.QuizModePublished
			quiz.UpdatedAt = s.now()
			if err := s.quizRepo.Create(ctx, tx, quiz); err != nil {
				return err
			}
			return s.archiveRepo.DeleteQuiz(ctx, tx, id)
		}
		if err != nil {
			return err
		}
		quiz.Status = model.QuizStatusPublished
		quiz.Mode = model.QuizModePublished
		quiz.UpdatedAt = s.now()
		if err := s.quizRepo.Update(ctx, tx, quiz); err != nil {
			return err
		}
		return s.archiveRepo.DeleteQuiz(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// DeleteArchivedQuiz removes the quiz and its assignments for good.
func (s *QuizService) DeleteArchivedQuiz(ctx context.Context, teacherID, id string) error {
	archived, err := s.ownedArchive(ctx, teacherID, id)
	if err != nil {
		return err
	}
	return s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.archiveRepo.DeleteQuiz(ctx, tx, id); err != nil {
			return err
		}
		return s.quizRepo.Delete(ctx, tx, archived.OriginalID)
	})
}
