// Package memory implements the repository interfaces over in-process maps.
// It backs DB_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"iquizu/internal/domain/model"
)

// Store holds every table. Transactions are serialised by txMu.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users       map[string]*model.User
	members     map[string]map[string]struct{} // class id -> user ids
	classes     map[string]*model.Class
	quizzes     map[string]*model.Quiz
	assignments map[string]*model.AssignedQuiz
	submissions map[string]*model.QuizSubmission
	archClasses map[string]*model.ArchivedClass
	archQuizzes map[string]*model.ArchivedQuiz
	jobs        map[string]*model.RecommendationJob
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]*model.User),
		members:     make(map[string]map[string]struct{}),
		classes:     make(map[string]*model.Class),
		quizzes:     make(map[string]*model.Quiz),
		assignments: make(map[string]*model.AssignedQuiz),
		submissions: make(map[string]*model.QuizSubmission),
		archClasses: make(map[string]*model.ArchivedClass),
		archQuizzes: make(map[string]*model.ArchivedQuiz),
		jobs:        make(map[string]*model.RecommendationJob),
	}
}

// WithTx runs fn with a nil tx while holding the store-wide transaction lock.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(nil)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.ClassIDs = cloneStrings(u.ClassIDs)
	return &c
}

func cloneQuiz(q *model.Quiz) *model.Quiz {
	c := *q
	if q.Questions != nil {
		c.Questions = make([]model.Question, len(q.Questions))
		for i, qq := range q.Questions {
			qq.Choices = append([]model.Choice(nil), qq.Choices...)
			c.Questions[i] = qq
		}
	}
	return &c
}

func cloneAssignment(a *model.AssignedQuiz) *model.AssignedQuiz {
	c := *a
	c.Answers = cloneStrings(a.Answers)
	return &c
}

func cloneSubmission(s *model.QuizSubmission) *model.QuizSubmission {
	c := *s
	if s.Answers != nil {
		c.Answers = append([]model.AnswerRecord(nil), s.Answers...)
	}
	c.Recommendations = cloneStrings(s.Recommendations)
	return &c
}
