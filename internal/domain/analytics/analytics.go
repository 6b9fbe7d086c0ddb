// Package analytics aggregates users, classes, quizzes, assignments and
// submissions into dashboard figures. Every function is pure; callers pass now.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"iquizu/internal/domain/grading"
	"iquizu/internal/domain/model"
)

const (
	trendMonths = 6
	trendWeeks  = 6
	othersLabel = "Others"
)

var palette = []string{"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899", "#06B6D4"}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

type MonthPoint struct {
	Month        string `json:"month"`
	AvgScore     int    `json:"avg_score"`
	QuizzesTaken int    `json:"quizzes_taken"`
	Completion   int    `json:"completion"`
}

type DayActivity struct {
	Day      string `json:"day"`
	Active   int    `json:"active"`
	Inactive int    `json:"inactive"`
}

type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type TeacherStat struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Quizzes  int    `json:"quizzes"`
	Students int    `json:"students"`
	AvgScore int    `json:"avg_score"`
}

type WeekPoint struct {
	Week          string `json:"week"`
	Engagement    int    `json:"engagement"`
	Participation int    `json:"participation"`
}

// Dashboard is the admin analytics page.
type Dashboard struct {
	TotalStudents       int           `json:"total_students"`
	TotalTeachers       int           `json:"total_teachers"`
	ActiveQuizzes       int           `json:"active_quizzes"`
	ActiveClasses       int           `json:"active_classes"`
	AvgScore            float64       `json:"avg_score"`
	CompletionRate      float64       `json:"completion_rate"`
	QuizPerformance     []MonthPoint  `json:"quiz_performance"`
	StudentActivity     []DayActivity `json:"student_activity"`
	ProgramDistribution []Slice       `json:"program_distribution"`
	SubjectDistribution []Slice       `json:"subject_distribution"`
	TeacherPerformance  []TeacherStat `json:"teacher_performance"`
	EngagementTrend     []WeekPoint   `json:"engagement_trend"`
	GeneratedAt         time.Time     `json:"generated_at"`
}

// Dataset is everything the dashboard reads.
type Dataset struct {
	Users       []*model.User
	Classes     []*model.Class
	Quizzes     []*model.Quiz
	Assignments []*model.AssignedQuiz
	Submissions []*model.QuizSubmission
}

func BuildDashboard(ds Dataset, now time.Time) *Dashboard {
	students, teachers := CountUsers(ds.Users)
	return &Dashboard{
		TotalStudents:       students,
		TotalTeachers:       teachers,
		ActiveQuizzes:       CountActiveQuizzes(ds.Quizzes),
		ActiveClasses:       CountActiveClasses(ds.Classes),
		AvgScore:            AverageScore(ds.Submissions),
		CompletionRate:      CompletionRate(ds.Assignments),
		QuizPerformance:     QuizPerformanceTrend(ds.Submissions, ds.Assignments, now),
		StudentActivity:     StudentActivity(ds.Submissions, students, now),
		ProgramDistribution: ProgramDistribution(ds.Users),
		SubjectDistribution: SubjectDistribution(ds.Classes),
		TeacherPerformance:  TeacherPerformance(ds.Submissions),
		EngagementTrend:     EngagementTrend(ds.Submissions, students, now),
		GeneratedAt:         now,
	}
}

func CountUsers(users []*model.User) (students, teachers int) {
	for _, u := range users {
		switch u.Role {
		case model.RoleStudent:
			students++
		case model.RoleTeacher:
			teachers++
		}
	}
	return students, teachers
}

func CountActiveQuizzes(quizzes []*model.Quiz) int {
	n := 0
	for _, q := range quizzes {
		if q.Status == model.QuizStatusPublished || q.Status == model.QuizStatusActive {
			n++
		}
	}
	return n
}

func CountActiveClasses(classes []*model.Class) int {
	n := 0
	for _, c := range classes {
		if c.Status == model.ClassStatusActive {
			n++
		}
	}
	return n
}

// AverageScore is the mean submission score to one decimal, ignoring unscored rows.
func AverageScore(subs []*model.QuizSubmission) float64 {
	var total float64
	var n int
	for _, s := range subs {
		if s.Score == nil {
			continue
		}
		total += *s.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return grading.Round(total/float64(n), 1)
}

// CompletionRate is the percentage of assignments already turned in, to one decimal.
func CompletionRate(assignments []*model.AssignedQuiz) float64 {
	if len(assignments) == 0 {
		return 0
	}
	done := 0
	for _, a := range assignments {
		if a.IsDone() {
			done++
		}
	}
	return grading.Round(float64(done)/float64(len(assignments))*100, 1)
}

// QuizPerformanceTrend covers the current month and the five before it, oldest first.
func QuizPerformanceTrend(subs []*model.QuizSubmission, assignments []*model.AssignedQuiz, now time.Time) []MonthPoint {
	type bucket struct {
		total          float64
		scored, taken  int
		assigned, done int
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	keys := make([]string, trendMonths)
	buckets := make(map[string]*bucket, trendMonths)
	for i := 0; i < trendMonths; i++ {
		m := start.AddDate(0, i-(trendMonths-1), 0)
		keys[i] = monthKey(m)
		buckets[keys[i]] = &bucket{}
	}

	for _, s := range subs {
		b, ok := buckets[monthKey(s.SubmittedAt.In(now.Location()))]
		if !ok {
			continue
		}
		b.taken++
		b.total += scoreOf(s)
		b.scored++
	}
	for _, a := range assignments {
		b, ok := buckets[monthKey(a.AssignedAt.In(now.Location()))]
		if !ok {
			continue
		}
		b.assigned++
		if a.IsDone() {
			b.done++
		}
	}

	points := make([]MonthPoint, trendMonths)
	for i, k := range keys {
		b := buckets[k]
		p := MonthPoint{Month: k[5:], QuizzesTaken: b.taken}
		if b.scored > 0 {
			p.AvgScore = roundInt(b.total / float64(b.scored))
		}
		if b.assigned > 0 {
			p.Completion = roundInt(float64(b.done) / float64(b.assigned) * 100)
		}
		points[i] = p
	}
	return points
}

// StudentActivity counts distinct students submitting on each weekday over the last 7 days.
func StudentActivity(subs []*model.QuizSubmission, totalStudents int, now time.Time) []DayActivity {
	since := now.AddDate(0, 0, -7)
	active := make(map[time.Weekday]map[string]struct{}, 7)
	for _, s := range subs {
		if s.SubmittedAt.Before(since) || s.SubmittedAt.After(now) {
			continue
		}
		day := s.SubmittedAt.In(now.Location()).Weekday()
		if active[day] == nil {
			active[day] = make(map[string]struct{})
		}
		active[day][s.StudentID] = struct{}{}
	}

	out := make([]DayActivity, 0, len(weekdays))
	for _, d := range weekdays {
		n := len(active[d])
		out = append(out, DayActivity{
			Day:      d.String()[:3],
			Active:   n,
			Inactive: max(0, totalStudents-n),
		})
	}
	return out
}

func ProgramDistribution(users []*model.User) []Slice {
	counts := make(map[string]int)
	for _, u := range users {
		if u.Role != model.RoleStudent {
			continue
		}
		counts[labelOrOthers(u.Program)]++
	}
	return toSlices(counts)
}

func SubjectDistribution(classes []*model.Class) []Slice {
	counts := make(map[string]int)
	for _, c := range classes {
		counts[labelOrOthers(c.Subject)]++
	}
	return toSlices(counts)
}

// TeacherPerformance groups submissions by the teacher who owns the quiz.
func TeacherPerformance(subs []*model.QuizSubmission) []TeacherStat {
	type agg struct {
		name     string
		total    float64
		n        int
		quizzes  map[string]struct{}
		students map[string]struct{}
	}
	byTeacher := make(map[string]*agg)
	for _, s := range subs {
		if s.TeacherEmail == "" {
			continue
		}
		a, ok := byTeacher[s.TeacherEmail]
		if !ok {
			a = &agg{name: s.TeacherName, quizzes: map[string]struct{}{}, students: map[string]struct{}{}}
			byTeacher[s.TeacherEmail] = a
		}
		a.total += scoreOf(s)
		a.n++
		if s.QuizID != "" {
			a.quizzes[s.QuizID] = struct{}{}
		}
		if s.StudentID != "" {
			a.students[s.StudentID] = struct{}{}
		}
	}

	out := make([]TeacherStat, 0, len(byTeacher))
	for email, a := range byTeacher {
		st := TeacherStat{Email: email, Name: a.name, Quizzes: len(a.quizzes), Students: len(a.students)}
		if a.n > 0 {
			st.AvgScore = roundInt(a.total / float64(a.n))
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// EngagementTrend walks six trailing 7-day windows ending at now, oldest first.
func EngagementTrend(subs []*model.QuizSubmission, totalStudents int, now time.Time) []WeekPoint {
	out := make([]WeekPoint, 0, trendWeeks)
	for i := trendWeeks - 1; i >= 0; i-- {
		end := now.AddDate(0, 0, -7*i)
		start := end.AddDate(0, 0, -7)

		count := 0
		students := make(map[string]struct{})
		for _, s := range subs {
			if s.SubmittedAt.Before(start) || !s.SubmittedAt.Before(end) {
				continue
			}
			count++
			students[s.StudentID] = struct{}{}
		}

		p := WeekPoint{Week: fmt.Sprintf("Week %d", trendWeeks-i)}
		if totalStudents > 0 {
			p.Engagement = roundInt(float64(len(students)) / float64(totalStudents) * 100)
			p.Participation = min(roundInt(float64(count)/float64(totalStudents)*100), 100)
		}
		out = append(out, p)
	}
	return out
}

func scoreOf(s *model.QuizSubmission) float64 {
	if s.RawScorePercentage != 0 || s.TotalPoints > 0 {
		return s.RawScorePercentage
	}
	return s.Base50ScorePercentage
}

func monthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%s", t.Year(), t.Month().String()[:3])
}

func labelOrOthers(s string) string {
	if s == "" {
		return othersLabel
	}
	return s
}

func toSlices(counts map[string]int) []Slice {
	out := make([]Slice, 0, len(counts))
	for label, v := range counts {
		out = append(out, Slice{Label: label, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	for i := range out {
		out[i].Color = palette[i%len(palette)]
	}
	return out
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
