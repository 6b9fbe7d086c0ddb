package service

import (
	"context"
	"log"
	"time"

	"iquizu/internal/domain/analytics"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
)

const dashboardCacheKey = "admin-dashboard"

type AnalyticsService struct {
	userRepo       repository.UserRepository
	classRepo      repository.ClassRepository
	quizRepo       repository.QuizRepository
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	cache          Cache
	ttl            time.Duration
	now            func() time.Time
}

func NewAnalyticsService(
	userRepo repository.UserRepository,
	classRepo repository.ClassRepository,
	quizRepo repository.QuizRepository,
	assignmentRepo repository.AssignmentRepository,
	submissionRepo repository.SubmissionRepository,
	cache Cache,
	ttl time.Duration,
) *AnalyticsService {
	return &AnalyticsService{
		userRepo:       userRepo,
		classRepo:      classRepo,
		quizRepo:       quizRepo,
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		cache:          cache,
		ttl:            ttl,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard returns the admin analytics, served from cache while fresh.
// refresh forces a recomputation.
func (s *AnalyticsService) Dashboard(ctx context.Context, refresh bool) (*analytics.Dashboard, error) {
	if s.cache != nil && !refresh {
		var cached analytics.Dashboard
		hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err != nil {
			log.Printf("WARN: analytics cache read failed: %v", err)
		} else if hit {
			return &cached, nil
		}
	}

	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	dash := analytics.BuildDashboard(ds, s.now())

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, dashboardCacheKey, dash, s.ttl); err != nil {
			log.Printf("WARN: analytics cache write failed: %v", err)
		}
	}
	return dash, nil
}

func (s *AnalyticsService) load(ctx context.Context) (analytics.Dataset, error) {
	var ds analytics.Dataset
	var err error
	if ds.Users, err = s.userRepo.List(ctx, model.UserFilter{}); err != nil {
		return ds, err
	}
	if ds.Classes, err = s.classRepo.ListAll(ctx); err != nil {
		return ds, err
	}
	if ds.Quizzes, err = s.quizRepo.ListAll(ctx); err != nil {
		return ds, err
	}
	if ds.Assignments, err = s.assignmentRepo.List(ctx, nil, model.AssignmentFilter{}); err != nil {
		return ds, err
	}
	if ds.Submissions, err = s.submissionRepo.List(ctx, model.SubmissionFilter{}); err != nil {
		return ds, err
	}
	return ds, nil
}
