package analytics

import (
	"testing"
	"time"

	"iquizu/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday
var now = time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func sub(student, teacher, quiz string, at time.Time, raw float64) *model.QuizSubmission {
	return &model.QuizSubmission{
		StudentID:             student,
		TeacherEmail:          teacher,
		QuizID:                quiz,
		SubmittedAt:           at,
		TotalPoints:           10,
		RawScorePercentage:    raw,
		Base50ScorePercentage: 50 + raw/2,
		Score:                 fptr(50 + raw/2),
	}
}

func TestCounts(t *testing.T) {
	users := []*model.User{
		{Role: model.RoleStudent, Program: "BSIT"},
		{Role: model.RoleStudent, Program: "BSIT"},
		{Role: model.RoleStudent},
		{Role: model.RoleTeacher},
		{Role: model.RoleAdmin},
	}
	s, tch := CountUsers(users)
	assert.Equal(t, 3, s)
	assert.Equal(t, 1, tch)

	quizzes := []*model.Quiz{{Status: "published"}, {Status: "active"}, {Status: "draft"}}
	assert.Equal(t, 2, CountActiveQuizzes(quizzes))

	classes := []*model.Class{{Status: "active", Subject: "Math"}, {Status: "archived"}}
	assert.Equal(t, 1, CountActiveClasses(classes))

	dist := ProgramDistribution(users)
	require.Len(t, dist, 2)
	assert.Equal(t, Slice{Label: "BSIT", Value: 2, Color: palette[0]}, dist[0])
	assert.Equal(t, "Others", dist[1].Label)

	subj := SubjectDistribution(classes)
	assert.Equal(t, []Slice{{Label: "Math", Value: 1, Color: palette[0]}, {Label: "Others", Value: 1, Color: palette[1]}}, subj)
}

func TestAverageScoreAndCompletion(t *testing.T) {
	subs := []*model.QuizSubmission{{Score: fptr(80)}, {Score: fptr(91)}, {}}
	assert.Equal(t, 85.5, AverageScore(subs))
	assert.Equal(t, 0.0, AverageScore(nil))

	assignments := []*model.AssignedQuiz{
		{Status: model.AssignmentStatusSubmitted, Completed: true},
		{Status: model.AssignmentStatusPending},
		{Status: model.AssignmentStatusInProgress},
	}
	assert.Equal(t, 33.3, CompletionRate(assignments))
	assert.Equal(t, 0.0, CompletionRate(nil))
}

func TestQuizPerformanceTrend(t *testing.T) {
	subs := []*model.QuizSubmission{
		sub("s1", "t@x", "q1", now.AddDate(0, 0, -1), 80),
		sub("s2", "t@x", "q1", now.AddDate(0, 0, -2), 90),
		sub("s1", "t@x", "q2", now.AddDate(0, -2, 0), 70),
		// Same month name a year earlier stays out of the window.
		sub("s1", "t@x", "q3", now.AddDate(-1, 0, 0), 10),
	}
	assignments := []*model.AssignedQuiz{
		{AssignedAt: now.AddDate(0, 0, -3), Completed: true},
		{AssignedAt: now.AddDate(0, 0, -3)},
	}

	trend := QuizPerformanceTrend(subs, assignments, now)
	require.Len(t, trend, 6)
	assert.Equal(t, "Oct", trend[0].Month)
	assert.Equal(t, MonthPoint{Month: "Mar", AvgScore: 85, QuizzesTaken: 2, Completion: 50}, trend[5])
	assert.Equal(t, MonthPoint{Month: "Jan", AvgScore: 70, QuizzesTaken: 1}, trend[3])
}

func TestStudentActivity(t *testing.T) {
	subs := []*model.QuizSubmission{
		sub("s1", "", "", now.Add(-time.Hour), 50),    // Wed
		sub("s1", "", "", now.Add(-2*time.Hour), 50),  // Wed, same student
		sub("s2", "", "", now.AddDate(0, 0, -2), 50),  // Mon
		sub("s3", "", "", now.AddDate(0, 0, -10), 50), // too old
	}
	activity := StudentActivity(subs, 4, now)
	require.Len(t, activity, 7)
	assert.Equal(t, DayActivity{Day: "Mon", Active: 1, Inactive: 3}, activity[0])
	assert.Equal(t, DayActivity{Day: "Wed", Active: 1, Inactive: 3}, activity[2])
	assert.Equal(t, DayActivity{Day: "Sun", Active: 0, Inactive: 4}, activity[6])
}

func TestTeacherPerformance(t *testing.T) {
	subs := []*model.QuizSubmission{
		sub("s1", "b@x", "q1", now, 60),
		sub("s2", "b@x", "q1", now, 71),
		sub("s1", "a@x", "q2", now, 100),
		sub("s1", "", "q3", now, 100),
	}
	perf := TeacherPerformance(subs)
	require.Len(t, perf, 2)
	assert.Equal(t, "a@x", perf[0].Email)
	assert.Equal(t, TeacherStat{Email: "b@x", Quizzes: 1, Students: 2, AvgScore: 66}, perf[1])
}

func TestEngagementTrend(t *testing.T) {
	subs := []*model.QuizSubmission{
		sub("s1", "", "", now.Add(-time.Hour), 50),
		sub("s1", "", "", now.Add(-2*time.Hour), 50),
		sub("s2", "", "", now.AddDate(0, 0, -8), 50),
	}
	trend := EngagementTrend(subs, 2, now)
	require.Len(t, trend, 6)
	assert.Equal(t, WeekPoint{Week: "Week 6", Engagement: 50, Participation: 100}, trend[5])
	assert.Equal(t, WeekPoint{Week: "Week 5", Engagement: 50, Participation: 50}, trend[4])
	assert.Equal(t, WeekPoint{Week: "Week 1"}, trend[0])

	for _, p := range EngagementTrend(subs, 0, now) {
		assert.Zero(t, p.Engagement)
	}
}

func TestBuildDashboard(t *testing.T) {
	d := BuildDashboard(Dataset{
		Users:       []*model.User{{Role: model.RoleStudent}},
		Submissions: []*model.QuizSubmission{sub("s1", "t@x", "q", now, 100)},
	}, now)
	assert.Equal(t, 1, d.TotalStudents)
	assert.Equal(t, 100.0, d.AvgScore)
	assert.Len(t, d.EngagementTrend, 6)
	assert.Equal(t, now, d.GeneratedAt)
}

func TestSummarizeStudent(t *testing.T) {
	subs := []*model.QuizSubmission{
		{QuizMode: model.QuizModeAsynchronous, Base50ScorePercentage: 80},
		{QuizMode: model.QuizModeAsynchronous, Base50ScorePercentage: 91},
		{QuizMode: model.QuizModeSynchronous, Base50ScorePercentage: 70},
	}
	s := SummarizeStudent(subs)
	assert.Equal(t, 3, s.TotalQuizzes)
	assert.Equal(t, ModeStats{Completed: 2, AvgScore: 86}, s.Asynchronous)
	assert.Equal(t, ModeStats{Completed: 1, AvgScore: 70}, s.Synchronous)
	assert.Equal(t, 80, s.OverallAvgScore)
	assert.Equal(t, StudentSummary{}, SummarizeStudent(nil))
}

func TestDueStatusAndSort(t *testing.T) {
	in2Days := now.AddDate(0, 0, 2)
	in10Days := now.AddDate(0, 0, 10)
	yesterday := now.AddDate(0, 0, -1)

	done := &model.AssignedQuiz{ID: "done", Completed: true, DueDate: &yesterday}
	overdue := &model.AssignedQuiz{ID: "overdue", DueDate: &yesterday}
	soon := &model.AssignedQuiz{ID: "soon", DueDate: &in2Days}
	later := &model.AssignedQuiz{ID: "later", DueDate: &in10Days}
	open := &model.AssignedQuiz{ID: "open"}

	assert.Equal(t, DueCompleted, DueStatus(done, now))
	assert.Equal(t, DueOverdue, DueStatus(overdue, now))
	assert.Equal(t, DueSoon, DueStatus(soon, now))
	assert.Equal(t, DuePending, DueStatus(later, now))
	assert.Equal(t, DuePending, DueStatus(open, now))

	list := []*model.AssignedQuiz{done, later, soon, overdue}
	SortTaskList(list)
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"overdue", "soon", "later", "done"}, ids)
}
