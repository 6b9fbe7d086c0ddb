// Package recommend builds study recommendations from a graded attempt.
package recommend

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"iquizu/internal/domain/model"
)

const (
	maxRecommendations = 10
	maxStudyItems      = 4
	maxMasteryItems    = 2
	minLineLength      = 15
)

var listItem = regexp.MustCompile(`^(\d+\.|[-•])\s+(.+)`)

// Analysis is the input shared by the prompt and the fallback.
type Analysis struct {
	QuizTitle       string
	Subject         string
	ScorePercentage float64
	Answers         []model.AnswerRecord
}

func (a Analysis) correct() int {
	n := 0
	for _, ans := range a.Answers {
		if ans.IsCorrect {
			n++
		}
	}
	return n
}

// Generator produces raw model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recommend asks gen for recommendations and falls back to rule-based ones
// when gen is nil, fails, or returns nothing usable. The bool reports whether
// the generator's output was used.
func Recommend(ctx context.Context, gen Generator, a Analysis) ([]string, bool, error) {
	if gen == nil {
		return Fallback(a), false, nil
	}
	text, err := gen.Generate(ctx, BuildPrompt(a))
	if err != nil {
		return Fallback(a), false, err
	}
	recs := Parse(text)
	if len(recs) == 0 {
		return Fallback(a), false, nil
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs, true, nil
}

func BuildPrompt(a Analysis) string {
	subject := a.Subject
	if subject == "" {
		subject = "General"
	}

	var b strings.Builder
	b.WriteString("You are an educational AI assistant. Analyze this quiz performance and provide SPECIFIC, actionable study recommendations.\n\n")
	fmt.Fprintf(&b, "Quiz: %s\nSubject: %s\n", a.QuizTitle, subject)
	fmt.Fprintf(&b, "Score: %g%% (%d/%d correct)\n\n", a.ScorePercentage, a.correct(), len(a.Answers))
	b.WriteString("STUDENT'S QUIZ PERFORMANCE:\n")
	for i, q := range a.Answers {
		if i > 0 {
			b.WriteString("\n")
		}
		result := "INCORRECT"
		if q.IsCorrect {
			result = "CORRECT"
		}
		fmt.Fprintf(&b, "Question %d: %q\nCorrect Answer: %q\nStudent's Answer: %q\nResult: %s\n",
			i+1, q.Question, q.CorrectAnswer, q.StudentAnswer, result)
	}
	b.WriteString(`
TASK: Generate 5-8 SPECIFIC study recommendations based on the questions above.

REQUIREMENTS:
1. Each recommendation must reference actual topics/concepts from the quiz
2. Focus on topics the student got WRONG
3. Also include 1-2 recommendations to reinforce topics they got RIGHT
4. Make recommendations actionable and specific
5. Include study methods (e.g., "memorize", "practice", "understand the process of", etc.)

Format: Provide ONLY a numbered list with no extra text. Each line should be exactly:
1. [Specific recommendation about actual content from the quiz]
2. [Next recommendation]

Now generate recommendations for this student:`)
	return b.String()
}

// Parse keeps numbered or bulleted lines with a meaningful body.
func Parse(text string) []string {
	var recs []string
	for _, line := range strings.Split(text, "\n") {
		m := listItem.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		body := strings.TrimSpace(m[2])
		if utf8.RuneCountInString(body) > minLineLength {
			recs = append(recs, body)
		}
	}
	return recs
}

// Fallback derives recommendations from the wrong and right answers alone.
func Fallback(a Analysis) []string {
	var recs []string
	var wrong, right []model.AnswerRecord
	for _, q := range a.Answers {
		if q.IsCorrect {
			right = append(right, q)
		} else {
			wrong = append(wrong, q)
		}
	}

	for i, q := range wrong {
		if i == maxStudyItems {
			break
		}
		recs = append(recs, fmt.Sprintf("Study %q - understand why this is the correct answer to: %q", q.CorrectAnswer, q.Question))
	}
	for i, q := range right {
		if i == maxMasteryItems {
			break
		}
		if q.CorrectAnswer != "" {
			recs = append(recs, fmt.Sprintf("Continue mastering %q - you answered this correctly, deepen your understanding", q.CorrectAnswer))
		}
	}
	if len(wrong) > 3 {
		recs = append(recs,
			"Review all topics covered in this quiz systematically",
			"Create a summary sheet of key concepts and definitions",
			"Practice similar questions to reinforce your learning",
		)
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
