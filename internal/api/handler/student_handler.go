package handler

import (
	"net/http"

	"iquizu/internal/app/service"
	"iquizu/internal/common"

	"github.com/go-chi/chi/v5"
)

// StudentHandler serves a student's own assignments and results.
type StudentHandler struct {
	submissionService *service.SubmissionService
}

func NewStudentHandler(ss *service.SubmissionService) *StudentHandler {
	return &StudentHandler{submissionService: ss}
}

func (h *StudentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/assignments", h.listTasks)
	r.Post("/assignments/{assignmentID}/start", h.start)
	r.Post("/assignments/{assignmentID}/submit", h.submit)
	r.Get("/submissions", h.listSubmissions)
	r.Get("/performance", h.performance)
}

func (h *StudentHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	studentID, _, ok := caller(w, r)
	if !ok {
		return
	}
	tasks, err := h.submissionService.ListTasks(r.Context(), studentID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, tasks)
}

func (h *StudentHandler) start(w http.ResponseWriter, r *http.Request) {
	studentID, _, ok := caller(w, r)
	if !ok {
		return
	}
	attempt, err := h.submissionService.StartAttempt(r.Context(), studentID, chi.URLParam(r, "assignmentID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, attempt)
}

func (h *StudentHandler) submit(w http.ResponseWriter, r *http.Request) {
	studentID, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.submissionService.Submit(r.Context(), studentID, chi.URLParam(r, "assignmentID"), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sub)
}

func (h *StudentHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	studentID, _, ok := caller(w, r)
	if !ok {
		return
	}
	subs, err := h.submissionService.ListMySubmissions(r.Context(), studentID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *StudentHandler) performance(w http.ResponseWriter, r *http.Request) {
	studentID, _, ok := caller(w, r)
	if !ok {
		return
	}
	perf, err := h.submissionService.Performance(r.Context(), studentID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, perf)
}

// GetSubmission is shared by every role; the service decides visibility.
func (h *StudentHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := caller(w, r)
	if !ok {
		return
	}
	sub, err := h.submissionService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}
