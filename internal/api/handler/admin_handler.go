package handler

import (
	"net/http"

	"iquizu/internal/app/service"
	"iquizu/internal/common"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves account management and the analytics dashboard.
type AdminHandler struct {
	accounts  *service.AccountService
	analytics *service.AnalyticsService
}

func NewAdminHandler(accounts *service.AccountService, analytics *service.AnalyticsService) *AdminHandler {
	return &AdminHandler{accounts: accounts, analytics: analytics}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Post("/teachers", h.createTeacher)
	r.Patch("/users/{userID}/status", h.setStatus)
	r.Delete("/users/{userID}", h.deleteUser)
	r.Post("/users/{userID}/password-reset", h.sendPasswordReset)
	r.Get("/analytics", h.dashboard)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.accounts.ListUsers(r.Context(), q.Get("role"), q.Get("search"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) createTeacher(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTeacherRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.CreateTeacher(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.SetStatusRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.SetStatus(r.Context(), actorID, chi.URLParam(r, "userID"), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.accounts.DeleteUser(r.Context(), actorID, chi.URLParam(r, "userID")); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) sendPasswordReset(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SendPasswordReset(r.Context(), chi.URLParam(r, "userID")); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Password reset email sent."})
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.analytics.Dashboard(r.Context(), r.URL.Query().Get("refresh") == "true")
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, dash)
}
