// Package grading scores quiz answers and derives grade labels.
package grading

import (
	"math"
	"strings"

	"iquizu/internal/domain/model"
)

const notAnswered = "Not answered"

// Result is the outcome of grading one attempt.
type Result struct {
	Answers               []model.AnswerRecord
	CorrectPoints         int
	TotalPoints           int
	RawScorePercentage    float64
	Base50ScorePercentage float64
}

// CheckAnswer reports whether answer is correct for q. Blank answers are never
// correct, and neither is any answer to a multiple choice question without a
// choice flagged correct.
func CheckAnswer(q model.Question, answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	switch q.Type {
	case model.QuestionMultipleChoice:
		for _, c := range q.Choices {
			if c.IsCorrect {
				return answer == c.Text
			}
		}
		return false
	case model.QuestionTrueFalse:
		return strings.EqualFold(answer, q.CorrectAnswer)
	case model.QuestionIdentification:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	default:
		return false
	}
}

// CorrectAnswer returns the text shown to students as the right answer.
func CorrectAnswer(q model.Question) string {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c.Text
		}
	}
	if q.CorrectAnswer != "" {
		return q.CorrectAnswer
	}
	return "N/A"
}

// Grade scores answers positionally against questions.
func Grade(questions []model.Question, answers []string) Result {
	res := Result{
		Answers:     make([]model.AnswerRecord, 0, len(questions)),
		TotalPoints: len(questions),
	}
	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = answers[i]
		}
		ok := CheckAnswer(q, given)
		if ok {
			res.CorrectPoints++
		}
		shown := given
		if strings.TrimSpace(shown) == "" {
			shown = notAnswered
		}
		res.Answers = append(res.Answers, model.AnswerRecord{
			QuestionID:    q.ID,
			Question:      q.Question,
			Type:          q.Type,
			CorrectAnswer: CorrectAnswer(q),
			StudentAnswer: shown,
			IsCorrect:     ok,
			Explanation:   q.Explanation,
		})
	}
	if res.TotalPoints > 0 {
		res.RawScorePercentage = Round(float64(res.CorrectPoints)/float64(res.TotalPoints)*100, 2)
	}
	res.Base50ScorePercentage = Base50(res.RawScorePercentage)
	return res
}

// Base50 maps a raw percentage onto the 50-100 transmuted scale.
func Base50(raw float64) float64 {
	return Round(50+raw/2, 2)
}

func Passed(base50 float64, passingScore int) bool {
	return base50 >= float64(passingScore)
}

func Remark(base50 float64) string {
	switch {
	case base50 >= 90:
		return "Excellent!"
	case base50 >= 85:
		return "Very Good!"
	case base50 >= 80:
		return "Good!"
	case base50 >= 75:
		return "Passed"
	default:
		return "Needs Improvement"
	}
}

func Level(base50 float64) string {
	switch {
	case base50 >= 90:
		return "Master"
	case base50 >= 80:
		return "Expert"
	case base50 >= 70:
		return "Proficient"
	case base50 >= 60:
		return "Developing"
	default:
		return "Beginner"
	}
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
