package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/analytics"
	"iquizu/internal/domain/grading"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"

	"github.com/google/uuid"
)

// SubmissionService covers the student side: taking quizzes and reviewing results.
type SubmissionService struct {
	txm            repository.TxManager
	quizRepo       repository.QuizRepository
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	jobRepo        repository.RecommendationJobRepository
	queue          JobQueue
	bus            EventBus
	now            func() time.Time
}

func NewSubmissionService(
	txm repository.TxManager,
	quizRepo repository.QuizRepository,
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	submissionRepo repository.SubmissionRepository,
	jobRepo repository.RecommendationJobRepository,
	queue JobQueue,
	bus EventBus,
) *SubmissionService {
	return &SubmissionService{
		txm:            txm,
		quizRepo:       quizRepo,
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		jobRepo:        jobRepo,
		queue:          queue,
		bus:            bus,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type SubmitRequest struct {
	Answers []string `json:"answers"`
}

// Task is an assignment as shown in the student's task list.
type Task struct {
	*model.AssignedQuiz
	DueStatus string `json:"due_status"`
}

type TaskList struct {
	Asynchronous []Task `json:"asynchronous"`
	Synchronous  []Task `json:"synchronous"`
}

// Attempt is what a student needs to answer a quiz. Answer keys are stripped.
type Attempt struct {
	Assignment *model.AssignedQuiz `json:"assignment"`
	Quiz       *model.Quiz         `json:"quiz"`
}

type Performance struct {
	Summary     analytics.StudentSummary `json:"summary"`
	Submissions []*model.QuizSubmission  `json:"submissions"`
}

func (s *SubmissionService) ListTasks(ctx context.Context, studentID string) (*TaskList, error) {
	assignments, err := s.assignmentRepo.List(ctx, nil, model.AssignmentFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	var async, sync []*model.AssignedQuiz
	for _, a := range assignments {
		if a.QuizMode == model.QuizModeSynchronous {
			sync = append(sync, a)
		} else {
			async = append(async, a)
		}
	}
	analytics.SortTaskList(async)

	now := s.now()
	out := &TaskList{Asynchronous: []Task{}, Synchronous: []Task{}}
	for _, a := range async {
		out.Asynchronous = append(out.Asynchronous, Task{AssignedQuiz: a, DueStatus: analytics.DueStatus(a, now)})
	}
	for _, a := range sync {
		out.Synchronous = append(out.Synchronous, Task{AssignedQuiz: a, DueStatus: analytics.DueStatus(a, now)})
	}
	return out, nil
}

func (s *SubmissionService) ownAssignment(ctx context.Context, tx *sql.Tx, studentID, assignmentID string) (*model.AssignedQuiz, error) {
	a, err := s.assignmentRepo.FindByID(ctx, tx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.StudentID != studentID {
		return nil, fmt.Errorf("assignment belongs to another student: %w", common.ErrForbidden)
	}
	return a, nil
}

// checkTakeable enforces the live session and attempt limit.
func checkTakeable(a *model.AssignedQuiz) error {
	if a.QuizMode == model.QuizModeSynchronous && sessionStatus(a) != model.SessionActive {
		return fmt.Errorf("the live quiz session is not active: %w", common.ErrForbidden)
	}
	if a.Status == model.AssignmentStatusExpired {
		return fmt.Errorf("this assignment has expired: %w", common.ErrForbidden)
	}
	limit := a.MaxAttempts
	if limit <= 0 {
		limit = model.DefaultMaxAttempts
	}
	if a.Attempts >= limit {
		return fmt.Errorf("no attempts left for this quiz: %w", common.ErrConflict)
	}
	return nil
}

func stripAnswers(q *model.Quiz) *model.Quiz {
	out := *q
	out.Questions = make([]model.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		question.Explanation = ""
		choices := make([]model.Choice, len(question.Choices))
		for j, c := range question.Choices {
			choices[j] = model.Choice{Text: c.Text}
		}
		question.Choices = choices
		out.Questions[i] = question
	}
	return &out
}

// StartAttempt marks the assignment in progress and returns the quiz without its answer key.
func (s *SubmissionService) StartAttempt(ctx context.Context, studentID, assignmentID string) (*Attempt, error) {
	var a *model.AssignedQuiz
	err := s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = s.ownAssignment(ctx, tx, studentID, assignmentID)
		if err != nil {
			return err
		}
		if err := checkTakeable(a); err != nil {
			return err
		}
		if a.Status == model.AssignmentStatusInProgress {
			return nil
		}
		now := s.now()
		a.Status = model.AssignmentStatusInProgress
		a.StartedAt = &now
		return s.assignmentRepo.Update(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.FindByID(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	s.progress(ctx, a)
	return &Attempt{Assignment: a, Quiz: stripAnswers(quiz)}, nil
}

// Submit grades the answers, records the submission and queues recommendations.
// Resubmitting updates the same submission.
func (s *SubmissionService) Submit(ctx context.Context, studentID, assignmentID string, req SubmitRequest) (*model.QuizSubmission, error) {
	student, err := s.userRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var (
		sub *model.QuizSubmission
		job *model.RecommendationJob
		a   *model.AssignedQuiz
	)
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = s.ownAssignment(ctx, tx, studentID, assignmentID)
		if err != nil {
			return err
		}
		if err := checkTakeable(a); err != nil {
			return err
		}
		quiz, err := s.quizRepo.FindByID(ctx, a.QuizID)
		if err != nil {
			return err
		}
		teacher, err := s.userRepo.FindByID(ctx, quiz.TeacherID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}

		result := grading.Grade(quiz.Questions, req.Answers)
		now := s.now()
		base50 := result.Base50ScorePercentage
		sub = &model.QuizSubmission{
			ID:                    uuid.NewString(),
			AssignmentID:          a.ID,
			QuizID:                a.QuizID,
			ClassID:               a.ClassID,
			StudentID:             studentID,
			StudentEmail:          student.Email,
			StudentName:           student.DisplayName(),
			QuizTitle:             quiz.Title,
			ClassName:             a.ClassName,
			Subject:               a.Subject,
			QuizMode:              a.QuizMode,
			CorrectPoints:         result.CorrectPoints,
			TotalPoints:           result.TotalPoints,
			RawScorePercentage:    result.RawScorePercentage,
			Base50ScorePercentage: base50,
			Score:                 &base50,
			Remark:                grading.Remark(base50),
			ScoreLevel:            grading.Level(base50),
			Answers:               result.Answers,
			Recommendations:       []string{},
			RecommendationStatus:  model.RecommendationPending,
			SubmittedAt:           now,
			UpdatedAt:             now,
		}
		if teacher != nil {
			sub.TeacherEmail = teacher.Email
			sub.TeacherName = teacher.DisplayName()
		}
		if _, err := s.submissionRepo.Upsert(ctx, tx, sub); err != nil {
			return err
		}

		correct := float64(result.CorrectPoints)
		raw := result.RawScorePercentage
		a.Status = model.AssignmentStatusSubmitted
		a.Completed = true
		a.Score = &correct
		a.RawScorePercentage = &raw
		a.Base50ScorePercentage = &base50
		a.Attempts++
		a.SubmittedAt = &now
		if a.StartedAt == nil {
			a.StartedAt = &now
		}
		a.Answers = req.Answers
		if err := s.assignmentRepo.Update(ctx, tx, a); err != nil {
			return err
		}

		job = &model.RecommendationJob{
			ID:           uuid.NewString(),
			SubmissionID: sub.ID,
			Status:       model.JobStatusQueued,
		}
		return s.jobRepo.CreateJob(ctx, tx, job)
	})
	if err != nil {
		return nil, err
	}

	// The job row is committed; a failed push leaves it queued for a later sweep.
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, job.ID); err != nil {
			log.Printf("ERROR: failed to enqueue recommendation job %s: %v", job.ID, err)
		}
	}
	s.progress(ctx, a)
	log.Printf("INFO: submission %s recorded for assignment %s", sub.ID, a.ID)
	return sub, nil
}

// progress tells a live session's listeners that a student moved on.
func (s *SubmissionService) progress(ctx context.Context, a *model.AssignedQuiz) {
	if s.bus == nil || a.QuizMode != model.QuizModeSynchronous {
		return
	}
	ev := model.SessionEvent{
		Type:      model.SessionEventProgress,
		QuizID:    a.QuizID,
		ClassID:   a.ClassID,
		Session:   sessionOf(a),
		StudentID: a.StudentID,
		Status:    a.Status,
		At:        s.now(),
	}
	if err := s.bus.Publish(ctx, SessionChannel(a.QuizID, a.ClassID), ev); err != nil {
		log.Printf("WARN: failed to publish progress for %s: %v", a.ID, err)
	}
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, studentID string) ([]*model.QuizSubmission, error) {
	return s.submissionRepo.List(ctx, model.SubmissionFilter{StudentID: studentID})
}

// GetSubmission is visible to its student, the quiz's teacher and admins.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, role, id string) (*model.QuizSubmission, error) {
	sub, err := s.submissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case model.RoleAdmin:
		return sub, nil
	case model.RoleStudent:
		if sub.StudentID == userID {
			return sub, nil
		}
	case model.RoleTeacher:
		quiz, err := s.quizRepo.FindByID(ctx, sub.QuizID)
		if err == nil && quiz.TeacherID == userID {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("submission is not yours: %w", common.ErrForbidden)
}

func (s *SubmissionService) Performance(ctx context.Context, studentID string) (*Performance, error) {
	subs, err := s.submissionRepo.List(ctx, model.SubmissionFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []*model.QuizSubmission{}
	}
	return &Performance{Summary: analytics.SummarizeStudent(subs), Submissions: subs}, nil
}
