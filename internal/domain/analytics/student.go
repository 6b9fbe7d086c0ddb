package analytics

import (
	"sort"
	"time"

	"iquizu/internal/domain/model"
)

const (
	DueCompleted = "completed"
	DueOverdue   = "overdue"
	DueSoon      = "due_soon"
	DuePending   = "pending"

	dueSoonDays = 3
)

type ModeStats struct {
	Completed int `json:"completed"`
	AvgScore  int `json:"avg_score"`
}

// StudentSummary is a student's own performance page.
type StudentSummary struct {
	TotalQuizzes    int       `json:"total_quizzes"`
	Asynchronous    ModeStats `json:"asynchronous"`
	Synchronous     ModeStats `json:"synchronous"`
	OverallAvgScore int       `json:"overall_avg_score"`
}

func SummarizeStudent(subs []*model.QuizSubmission) StudentSummary {
	var (
		sum                   StudentSummary
		asyncTotal, syncTotal float64
		total                 float64
	)
	for _, s := range subs {
		total += s.Base50ScorePercentage
		switch s.QuizMode {
		case model.QuizModeAsynchronous:
			sum.Asynchronous.Completed++
			asyncTotal += s.Base50ScorePercentage
		case model.QuizModeSynchronous:
			sum.Synchronous.Completed++
			syncTotal += s.Base50ScorePercentage
		}
	}
	sum.TotalQuizzes = len(subs)
	if sum.Asynchronous.Completed > 0 {
		sum.Asynchronous.AvgScore = roundInt(asyncTotal / float64(sum.Asynchronous.Completed))
	}
	if sum.Synchronous.Completed > 0 {
		sum.Synchronous.AvgScore = roundInt(syncTotal / float64(sum.Synchronous.Completed))
	}
	if len(subs) > 0 {
		sum.OverallAvgScore = roundInt(total / float64(len(subs)))
	}
	return sum
}

// DueStatus labels an assignment for the student's task list.
func DueStatus(a *model.AssignedQuiz, now time.Time) string {
	if a.IsDone() {
		return DueCompleted
	}
	if a.DueDate == nil {
		return DuePending
	}
	if now.After(*a.DueDate) {
		return DueOverdue
	}
	if a.DueDate.Sub(now) <= dueSoonDays*24*time.Hour {
		return DueSoon
	}
	return DuePending
}

// SortTaskList puts unfinished work first, earliest due date first.
func SortTaskList(list []*model.AssignedQuiz) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.IsDone() != b.IsDone() {
			return !a.IsDone()
		}
		if a.DueDate != nil && b.DueDate != nil {
			return a.DueDate.Before(*b.DueDate)
		}
		return false
	})
}
