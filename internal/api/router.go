package api

import (
	"net/http"
	"time"

	"iquizu/internal/api/handler"
	"iquizu/internal/api/middleware"
	"iquizu/internal/app/service"
	"iquizu/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth        *service.AuthService
	Accounts    *service.AccountService
	Analytics   *service.AnalyticsService
	Classes     *service.ClassService
	Quizzes     *service.QuizService
	Sessions    *service.SessionService
	Submissions *service.SubmissionService
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	// Searches for a token in "Authorization: Bearer T" and puts its claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(s.Auth)
	adminHandler := handler.NewAdminHandler(s.Accounts, s.Analytics)
	classHandler := handler.NewClassHandler(s.Classes)
	quizHandler := handler.NewQuizHandler(s.Quizzes)
	sessionHandler := handler.NewSessionHandler(s.Sessions)
	studentHandler := handler.NewStudentHandler(s.Submissions)

	r.Route("/api/v1", func(v1 chi.Router) {
		// Event streams stay open, so they live outside the request timeout.
		v1.With(middleware.Authenticator).Get("/events/{quizID}/{classID}", sessionHandler.Events)

		v1.Group(func(api chi.Router) {
			api.Use(chiMiddleware.Timeout(60 * time.Second))

			api.Route("/auth", authHandler.RegisterRoutes)

			api.Group(func(authed chi.Router) {
				authed.Use(middleware.Authenticator)

				authed.With(middleware.AdminOnly).Route("/admin", adminHandler.RegisterRoutes)
				authed.With(middleware.TeacherOnly).Route("/classes", classHandler.RegisterRoutes)
				authed.With(middleware.TeacherOnly).Route("/quizzes", quizHandler.RegisterRoutes)
				authed.Route("/sessions", func(sr chi.Router) {
					sr.With(middleware.StudentOnly).Group(sessionHandler.RegisterStudentRoutes)
					sr.With(middleware.TeacherOnly).Group(sessionHandler.RegisterTeacherRoutes)
				})
				authed.With(middleware.StudentOnly).Route("/me", studentHandler.RegisterRoutes)
				authed.Get("/submissions/{submissionID}", studentHandler.GetSubmission)
			})
		})
	})

	return r
}
