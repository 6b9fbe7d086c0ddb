package model

import "time"

const (
	RecommendationPending = "pending"
	RecommendationReady   = "ready"
	RecommendationFailed  = "failed"
)

type AnswerRecord struct {
	QuestionID    string `json:"question_id"`
	Question      string `json:"question"`
	Type          string `json:"type"`
	CorrectAnswer string `json:"correct_answer"`
	StudentAnswer string `json:"student_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// QuizSubmission holds one student's graded result for one assignment.
type QuizSubmission struct {
	ID                    string         `json:"id"`
	AssignmentID          string         `json:"assignment_id"`
	QuizID                string         `json:"quiz_id"`
	ClassID               string         `json:"class_id"`
	StudentID             string         `json:"student_id"`
	StudentEmail          string         `json:"student_email"`
	StudentName           string         `json:"student_name"`
	QuizTitle             string         `json:"quiz_title"`
	ClassName             string         `json:"class_name"`
	Subject               string         `json:"subject"`
	TeacherEmail          string         `json:"teacher_email"`
	TeacherName           string         `json:"teacher_name"`
	QuizMode              string         `json:"quiz_mode"`
	CorrectPoints         int            `json:"correct_points"`
	TotalPoints           int            `json:"total_points"`
	RawScorePercentage    float64        `json:"raw_score_percentage"`
	Base50ScorePercentage float64        `json:"base50_score_percentage"`
	Score                 *float64       `json:"score,omitempty"`
	Remark                string         `json:"remark"`
	ScoreLevel            string         `json:"score_level"`
	Answers               []AnswerRecord `json:"questions_and_answers"`
	Recommendations       []string       `json:"recommendations"`
	RecommendationStatus  string         `json:"recommendation_status"`
	SubmittedAt           time.Time      `json:"submitted_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

type SubmissionFilter struct {
	StudentID string
	QuizID    string
	ClassID   string
	Since     *time.Time
}
