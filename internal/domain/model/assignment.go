package model

import "time"

const (
	QuizModeSynchronous  = "synchronous"
	QuizModeAsynchronous = "asynchronous"

	AssignmentStatusPending    = "pending"
	AssignmentStatusNotStarted = "not_started"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusSubmitted  = "submitted"
	AssignmentStatusCompleted  = "completed"
	AssignmentStatusExpired    = "expired"
)

// AssignedQuiz is one student's copy of a quiz handed out to a class.
type AssignedQuiz struct {
	ID                    string     `json:"id"`
	QuizID                string     `json:"quiz_id"`
	ClassID               string     `json:"class_id"`
	StudentID             string     `json:"student_id"`
	StudentName           string     `json:"student_name"`
	StudentNo             string     `json:"student_no"`
	QuizTitle             string     `json:"quiz_title"`
	ClassName             string     `json:"class_name"`
	Subject               string     `json:"subject"`
	TeacherID             string     `json:"teacher_id"`
	QuizMode              string     `json:"quiz_mode"`
	DueDate               *time.Time `json:"due_date,omitempty"`
	Instructions          string     `json:"instructions,omitempty"`
	MaxAttempts           int        `json:"max_attempts"`
	QuizCode              string     `json:"quiz_code,omitempty"`
	SessionStatus         string     `json:"session_status,omitempty"`
	SessionStartedAt      *time.Time `json:"session_started_at,omitempty"`
	SessionEndedAt        *time.Time `json:"session_ended_at,omitempty"`
	Status                string     `json:"status"`
	Completed             bool       `json:"completed"`
	Score                 *float64   `json:"score,omitempty"`
	RawScorePercentage    *float64   `json:"raw_score_percentage,omitempty"`
	Base50ScorePercentage *float64   `json:"base50_score_percentage,omitempty"`
	Attempts              int        `json:"attempts"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	SubmittedAt           *time.Time `json:"submitted_at,omitempty"`
	Answers               []string   `json:"answers,omitempty"`
	AssignedAt            time.Time  `json:"assigned_at"`
}

// IsNotStarted treats "pending" the same as "not_started".
func (a *AssignedQuiz) IsNotStarted() bool {
	return a.Status == AssignmentStatusNotStarted || a.Status == AssignmentStatusPending || a.Status == ""
}

// IsDone reports whether the student has turned the quiz in.
func (a *AssignedQuiz) IsDone() bool {
	return a.Completed || a.Status == AssignmentStatusSubmitted || a.Status == AssignmentStatusCompleted
}

// ResetResults clears everything a student produced for this assignment.
func (a *AssignedQuiz) ResetResults() {
	a.Status = AssignmentStatusNotStarted
	a.Completed = false
	a.Score = nil
	a.RawScorePercentage = nil
	a.Base50ScorePercentage = nil
	a.Attempts = 0
	a.StartedAt = nil
	a.SubmittedAt = nil
	a.Answers = nil
}

type AssignmentFilter struct {
	QuizID    string
	ClassID   string
	StudentID string
	QuizCode  string
	QuizMode  string
}
