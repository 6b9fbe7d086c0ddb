package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"iquizu/internal/app/export"
	"iquizu/internal/common"
	"iquizu/internal/domain/grading"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
)

// SessionService runs live (synchronous) quizzes. The session state of a
// quiz in a class is stored on every synchronous assignment of that pair.
type SessionService struct {
	txm            repository.TxManager
	quizRepo       repository.QuizRepository
	classRepo      repository.ClassRepository
	assignmentRepo repository.AssignmentRepository
	bus            EventBus
	now            func() time.Time
}

func NewSessionService(
	txm repository.TxManager,
	quizRepo repository.QuizRepository,
	classRepo repository.ClassRepository,
	assignmentRepo repository.AssignmentRepository,
	bus EventBus,
) *SessionService {
	return &SessionService{
		txm:            txm,
		quizRepo:       quizRepo,
		classRepo:      classRepo,
		assignmentRepo: assignmentRepo,
		bus:            bus,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type transition struct {
	event string
	from  []string // empty: any state
	apply func(a *model.AssignedQuiz, now time.Time)
}

var (
	startTransition = transition{
		event: model.SessionEventStarted,
		from:  []string{model.SessionNotStarted},
		apply: func(a *model.AssignedQuiz, now time.Time) {
			a.SessionStatus = model.SessionActive
			a.SessionStartedAt = &now
			a.SessionEndedAt = nil
		},
	}
	endTransition = transition{
		event: model.SessionEventEnded,
		from:  []string{model.SessionActive},
		apply: func(a *model.AssignedQuiz, now time.Time) {
			a.SessionStatus = model.SessionEnded
			a.SessionEndedAt = &now
		},
	}
	restartTransition = transition{
		event: model.SessionEventRestarted,
		apply: func(a *model.AssignedQuiz, _ time.Time) {
			a.SessionStatus = model.SessionNotStarted
			a.SessionStartedAt = nil
			a.SessionEndedAt = nil
			a.ResetResults()
		},
	}
)

func sessionStatus(a *model.AssignedQuiz) string {
	if a.SessionStatus == "" {
		return model.SessionNotStarted
	}
	return a.SessionStatus
}

func sessionOf(a *model.AssignedQuiz) model.SessionState {
	return model.SessionState{
		Status:    sessionStatus(a),
		StartedAt: a.SessionStartedAt,
		EndedAt:   a.SessionEndedAt,
		QuizCode:  a.QuizCode,
	}
}

func (s *SessionService) StartSession(ctx context.Context, teacherID, quizID, classID string) (*model.SessionState, error) {
	return s.transition(ctx, teacherID, quizID, classID, startTransition)
}

func (s *SessionService) EndSession(ctx context.Context, teacherID, quizID, classID string) (*model.SessionState, error) {
	return s.transition(ctx, teacherID, quizID, classID, endTransition)
}

// RestartSession returns the session to not started and wipes every student's results.
func (s *SessionService) RestartSession(ctx context.Context, teacherID, quizID, classID string) (*model.SessionState, error) {
	return s.transition(ctx, teacherID, quizID, classID, restartTransition)
}

func (s *SessionService) transition(ctx context.Context, teacherID, quizID, classID string, t transition) (*model.SessionState, error) {
	if _, err := s.ownedQuiz(ctx, teacherID, quizID); err != nil {
		return nil, err
	}

	var state model.SessionState
	err := s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		assignments, err := s.syncAssignments(ctx, tx, quizID, classID)
		if err != nil {
			return err
		}
		current := sessionStatus(assignments[0])
		if len(t.from) > 0 && !contains(t.from, current) {
			return fmt.Errorf("cannot %s a session that is %s: %w", verb(t.event), strings.ReplaceAll(current, "_", " "), common.ErrConflict)
		}
		now := s.now()
		for _, a := range assignments {
			t.apply(a, now)
			if err := s.assignmentRepo.Update(ctx, tx, a); err != nil {
				return err
			}
		}
		state = sessionOf(assignments[0])
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.SessionEvent{Type: t.event, QuizID: quizID, ClassID: classID, Session: state, At: s.now()})
	log.Printf("INFO: session %s/%s is now %s", quizID, classID, state.Status)
	return &state, nil
}

func verb(event string) string {
	switch event {
	case model.SessionEventStarted:
		return "start"
	case model.SessionEventEnded:
		return "end"
	}
	return "restart"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *SessionService) publish(ctx context.Context, ev model.SessionEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, SessionChannel(ev.QuizID, ev.ClassID), ev); err != nil {
		log.Printf("WARN: failed to publish %s for %s/%s: %v", ev.Type, ev.QuizID, ev.ClassID, err)
	}
}

func (s *SessionService) ownedQuiz(ctx context.Context, teacherID, quizID string) (*model.Quiz, error) {
	quiz, err := s.quizRepo.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.TeacherID != teacherID {
		return nil, fmt.Errorf("only the quiz owner can control its session: %w", common.ErrForbidden)
	}
	return quiz, nil
}

func (s *SessionService) syncAssignments(ctx context.Context, tx *sql.Tx, quizID, classID string) ([]*model.AssignedQuiz, error) {
	assignments, err := s.assignmentRepo.List(ctx, tx, model.AssignmentFilter{
		QuizID:   quizID,
		ClassID:  classID,
		QuizMode: model.QuizModeSynchronous,
	})
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("quiz is not assigned to this class as a live quiz: %w", common.ErrNotFound)
	}
	return assignments, nil
}

// Panel is the teacher's live view of a session.
func (s *SessionService) Panel(ctx context.Context, teacherID, quizID, classID string) (*model.SessionPanel, error) {
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	class, err := s.classRepo.FindByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.syncAssignments(ctx, nil, quizID, classID)
	if err != nil {
		return nil, err
	}
	return BuildPanel(quiz, class, assignments), nil
}

// BuildPanel assembles the panel from a session's assignments.
func BuildPanel(quiz *model.Quiz, class *model.Class, assignments []*model.AssignedQuiz) *model.SessionPanel {
	panel := &model.SessionPanel{
		Quiz:           quiz,
		Class:          class,
		PassingScore:   quiz.PassingScore(),
		TotalQuestions: len(quiz.Questions),
		Students:       make([]model.SessionStudent, 0, len(assignments)),
	}
	if len(assignments) > 0 {
		panel.Session = sessionOf(assignments[0])
	}
	for _, a := range assignments {
		panel.Students = append(panel.Students, model.SessionStudent{
			AssignmentID:          a.ID,
			StudentID:             a.StudentID,
			Name:                  a.StudentName,
			StudentNo:             a.StudentNo,
			Status:                a.Status,
			Completed:             a.Completed,
			Score:                 a.Score,
			RawScorePercentage:    a.RawScorePercentage,
			Base50ScorePercentage: a.Base50ScorePercentage,
			Attempts:              a.Attempts,
			StartedAt:             a.StartedAt,
			SubmittedAt:           a.SubmittedAt,
		})

		c := &panel.Counts
		c.Total++
		switch {
		case a.IsDone():
			c.Completed++
		case a.Status == model.AssignmentStatusInProgress:
			c.InProgress++
		case a.IsNotStarted():
			c.NotStarted++
		}
		if a.Base50ScorePercentage != nil {
			if grading.Passed(*a.Base50ScorePercentage, panel.PassingScore) {
				c.Passed++
			} else {
				c.Failed++
			}
		}
	}
	sort.SliceStable(panel.Students, func(i, j int) bool {
		return strings.ToLower(panel.Students[i].Name) < strings.ToLower(panel.Students[j].Name)
	})
	return panel
}

type JoinResult struct {
	Assignment *model.AssignedQuiz `json:"assignment"`
	Session    model.SessionState  `json:"session"`
}

// Join finds the caller's live assignment for a quiz code.
func (s *SessionService) Join(ctx context.Context, studentID, code string) (*JoinResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("quiz code is required: %w", common.ErrBadRequest)
	}
	assignments, err := s.assignmentRepo.List(ctx, nil, model.AssignmentFilter{
		StudentID: studentID,
		QuizCode:  code,
		QuizMode:  model.QuizModeSynchronous,
	})
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("invalid quiz code or this quiz is not assigned to you: %w", common.ErrNotFound)
	}
	a := assignments[0]
	if sessionStatus(a) == model.SessionEnded {
		return nil, fmt.Errorf("this quiz session has ended: %w", common.ErrForbidden)
	}
	return &JoinResult{Assignment: a, Session: sessionOf(a)}, nil
}

// Subscribe streams session events to the quiz owner or to a student assigned to it.
func (s *SessionService) Subscribe(ctx context.Context, userID, role, quizID, classID string) (<-chan model.SessionEvent, func(), error) {
	switch role {
	case model.RoleTeacher:
		if _, err := s.ownedQuiz(ctx, userID, quizID); err != nil {
			return nil, nil, err
		}
	case model.RoleStudent:
		mine, err := s.assignmentRepo.List(ctx, nil, model.AssignmentFilter{QuizID: quizID, ClassID: classID, StudentID: userID})
		if err != nil {
			return nil, nil, err
		}
		if len(mine) == 0 {
			return nil, nil, fmt.Errorf("quiz is not assigned to you: %w", common.ErrForbidden)
		}
	default:
		return nil, nil, common.ErrForbidden
	}
	if s.bus == nil {
		return nil, nil, fmt.Errorf("live events are not available: %w", common.ErrServiceUnavailable)
	}
	return s.bus.Subscribe(ctx, SessionChannel(quizID, classID))
}

// Export renders the session results workbook and returns its file name and bytes.
func (s *SessionService) Export(ctx context.Context, teacherID, quizID, classID string) (string, []byte, error) {
	panel, err := s.Panel(ctx, teacherID, quizID, classID)
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, panel, now); err != nil {
		return "", nil, fmt.Errorf("failed to build results workbook: %w", err)
	}
	return export.FileName(panel.Quiz.Title, panel.Class.Name, now), buf.Bytes(), nil
}
