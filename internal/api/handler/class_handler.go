package handler

import (
	"fmt"
	"io"
	"net/http"

	"iquizu/internal/app/service"
	"iquizu/internal/common"

	"github.com/go-chi/chi/v5"
)

const maxClasslistBytes = 10 << 20

type ClassHandler struct {
	classService *service.ClassService
}

func NewClassHandler(cs *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: cs}
}

func (h *ClassHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.importClass)
	r.Get("/", h.listClasses)
	r.Get("/archived", h.listArchived)
	r.Post("/archived/{archiveID}/restore", h.restore)
	r.Delete("/archived/{archiveID}", h.deleteArchived)
	r.Get("/{classID}", h.getClass)
	r.Post("/{classID}/archive", h.archive)
}

// importClass takes a multipart form with "name", "subject" and the classlist in "file".
func (h *ClassHandler) importClass(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxClasslistBytes+1<<20)
	if err := r.ParseMultipartForm(maxClasslistBytes); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "A classlist file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxClasslistBytes+1))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Could not read upload: "+err.Error())
		return
	}
	if len(data) > maxClasslistBytes {
		common.RespondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Classlist must be at most %d MB", maxClasslistBytes>>20))
		return
	}

	result, err := h.classService.ImportClass(r.Context(), teacherID, service.ImportClassRequest{
		Name:     r.FormValue("name"),
		Subject:  r.FormValue("subject"),
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *ClassHandler) listClasses(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	classes, err := h.classService.ListClasses(r.Context(), teacherID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, classes)
}

func (h *ClassHandler) getClass(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	detail, err := h.classService.GetClass(r.Context(), teacherID, chi.URLParam(r, "classID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *ClassHandler) archive(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	archived, err := h.classService.ArchiveClass(r.Context(), teacherID, chi.URLParam(r, "classID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, archived)
}

func (h *ClassHandler) listArchived(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.classService.ListArchivedClasses(r.Context(), teacherID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, list)
}

func (h *ClassHandler) restore(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	class, err := h.classService.RestoreClass(r.Context(), teacherID, chi.URLParam(r, "archiveID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, class)
}

func (h *ClassHandler) deleteArchived(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.classService.DeleteArchivedClass(r.Context(), teacherID, chi.URLParam(r, "archiveID")); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
