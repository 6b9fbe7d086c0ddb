package handler

import (
	"net/http"

	"iquizu/internal/app/service"
	"iquizu/internal/common"

	"github.com/go-chi/chi/v5"
)

type QuizHandler struct {
	quizService *service.QuizService
}

func NewQuizHandler(qs *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: qs}
}

func (h *QuizHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createQuiz)
	r.Get("/", h.listQuizzes)
	r.Get("/archived", h.listArchived)
	r.Post("/archived/{archiveID}/restore", h.restore)
	r.Delete("/archived/{archiveID}", h.deleteArchived)
	r.Get("/{quizID}", h.getQuiz)
	r.Put("/{quizID}", h.updateQuiz)
	r.Post("/{quizID}/publish", h.publish)
	r.Post("/{quizID}/assign", h.assign)
	r.Get("/{quizID}/classes", h.assignedClasses)
	r.Post("/{quizID}/archive", h.archive)
}

func (h *QuizHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.QuizInput
	if !decode(w, r, &in) {
		return
	}
	quiz, err := h.quizService.CreateQuiz(r.Context(), teacherID, in)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	quizzes, err := h.quizService.ListQuizzes(r.Context(), teacherID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, quizzes)
}

func (h *QuizHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	quiz, err := h.quizService.GetQuiz(r.Context(), teacherID, chi.URLParam(r, "quizID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.QuizInput
	if !decode(w, r, &in) {
		return
	}
	quiz, err := h.quizService.UpdateQuiz(r.Context(), teacherID, chi.URLParam(r, "quizID"), in)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) publish(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	quiz, err := h.quizService.PublishQuiz(r.Context(), teacherID, chi.URLParam(r, "quizID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) assign(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.AssignRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.quizService.AssignQuiz(r.Context(), teacherID, chi.URLParam(r, "quizID"), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, res)
}

func (h *QuizHandler) assignedClasses(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.quizService.ListAssignedClasses(r.Context(), teacherID, chi.URLParam(r, "quizID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	if list == nil {
		list = []service.AssignedClass{}
	}
	common.RespondWithJSON(w, http.StatusOK, list)
}

func (h *QuizHandler) archive(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	archived, err := h.quizService.ArchiveQuiz(r.Context(), teacherID, chi.URLParam(r, "quizID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, archived)
}

func (h *QuizHandler) listArchived(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.quizService.ListArchivedQuizzes(r.Context(), teacherID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, list)
}

func (h *QuizHandler) restore(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	quiz, err := h.quizService.RestoreQuiz(r.Context(), teacherID, chi.URLParam(r, "archiveID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) deleteArchived(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.quizService.DeleteArchivedQuiz(r.Context(), teacherID, chi.URLParam(r, "archiveID")); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
