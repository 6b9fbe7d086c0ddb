package model

import "time"

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionIdentification = "identification"

	QuizStatusDraft     = "draft"
	QuizStatusPublished = "published"
	QuizStatusActive    = "active"
	QuizStatusArchived  = "archived"

	QuizModeDraft     = "Draft"
	QuizModePublished = "Published"

	DefaultPassingScore = 60
	DefaultMaxAttempts  = 1
)

type Choice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID            string   `json:"id"`
	Type          string   `json:"type" validate:"oneof=multiple_choice true_false identification"`
	Question      string   `json:"question" validate:"notblank"`
	Choices       []Choice `json:"choices,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

type QuizSettings struct {
	PassingScore int `json:"passing_score"`
	MaxAttempts  int `json:"max_attempts"`
}

type Quiz struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	TeacherID string       `json:"teacher_id"`
	Questions []Question   `json:"questions"`
	Settings  QuizSettings `json:"settings"`
	Status    string       `json:"status"`
	Mode      string       `json:"mode"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PassingScore returns the configured passing grade, defaulting to 60.
func (q *Quiz) PassingScore() int {
	if q.Settings.PassingScore <= 0 {
		return DefaultPassingScore
	}
	return q.Settings.PassingScore
}

func (q *Quiz) MaxAttempts() int {
	if q.Settings.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return q.Settings.MaxAttempts
}
