package model

import "time"

const (
	SessionNotStarted = "not_started"
	SessionActive     = "active"
	SessionEnded      = "ended"

	SessionEventStarted   = "session.started"
	SessionEventEnded     = "session.ended"
	SessionEventRestarted = "session.restarted"
	SessionEventProgress  = "student.progress"
)

type SessionState struct {
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	QuizCode  string     `json:"quiz_code,omitempty"`
}

// SessionEvent is broadcast to listeners of a live quiz.
type SessionEvent struct {
	Type      string       `json:"type"`
	QuizID    string       `json:"quiz_id"`
	ClassID   string       `json:"class_id"`
	Session   SessionState `json:"session"`
	StudentID string       `json:"student_id,omitempty"`
	Status    string       `json:"status,omitempty"`
	At        time.Time    `json:"at"`
}

type SessionStudent struct {
	AssignmentID          string     `json:"assignment_id"`
	StudentID             string     `json:"student_id"`
	Name                  string     `json:"name"`
	StudentNo             string     `json:"student_no"`
	Status                string     `json:"status"`
	Completed             bool       `json:"completed"`
	Score                 *float64   `json:"score,omitempty"`
	RawScorePercentage    *float64   `json:"raw_score_percentage,omitempty"`
	Base50ScorePercentage *float64   `json:"base50_score_percentage,omitempty"`
	Attempts              int        `json:"attempts"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	SubmittedAt           *time.Time `json:"submitted_at,omitempty"`
}

type SessionCounts struct {
	Total      int `json:"total"`
	NotStarted int `json:"not_started"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
}

// SessionPanel is what a teacher sees while running a live quiz.
type SessionPanel struct {
	Quiz           *Quiz            `json:"quiz"`
	Class          *Class           `json:"class"`
	Session        SessionState     `json:"session"`
	Students       []SessionStudent `json:"students"`
	Counts         SessionCounts    `json:"counts"`
	PassingScore   int              `json:"passing_score"`
	TotalQuestions int              `json:"total_questions"`
}
