package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"iquizu/internal/app/export"
	"iquizu/internal/app/service"
	"iquizu/internal/common"
	"iquizu/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

const heartbeatInterval = 25 * time.Second

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(ss *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: ss}
}

// RegisterTeacherRoutes mounts live session control for quiz owners.
func (h *SessionHandler) RegisterTeacherRoutes(r chi.Router) {
	r.Get("/{quizID}/{classID}", h.panel)
	r.Post("/{quizID}/{classID}/start", h.control(h.sessionService.StartSession))
	r.Post("/{quizID}/{classID}/end", h.control(h.sessionService.EndSession))
	r.Post("/{quizID}/{classID}/restart", h.control(h.sessionService.RestartSession))
	r.Get("/{quizID}/{classID}/export", h.export)
}

func (h *SessionHandler) RegisterStudentRoutes(r chi.Router) {
	r.Post("/join", h.join)
}

type transitionFunc func(ctx context.Context, teacherID, quizID, classID string) (*model.SessionState, error)

func (h *SessionHandler) control(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teacherID, _, ok := caller(w, r)
		if !ok {
			return
		}
		state, err := fn(r.Context(), teacherID, chi.URLParam(r, "quizID"), chi.URLParam(r, "classID"))
		if err != nil {
			common.RespondWithServiceError(w, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, state)
	}
}

func (h *SessionHandler) panel(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	panel, err := h.sessionService.Panel(r.Context(), teacherID, chi.URLParam(r, "quizID"), chi.URLParam(r, "classID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, panel)
}

func (h *SessionHandler) export(w http.ResponseWriter, r *http.Request) {
	teacherID, _, ok := caller(w, r)
	if !ok {
		return
	}
	name, data, err := h.sessionService.Export(r.Context(), teacherID, chi.URLParam(r, "quizID"), chi.URLParam(r, "classID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("WARN: failed to write export %s: %v", name, err)
	}
}

type joinRequest struct {
	Code string `json:"code"`
}

func (h *SessionHandler) join(w http.ResponseWriter, r *http.Request) {
	studentID, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.sessionService.Join(r.Context(), studentID, req.Code)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

// Events streams session events as Server-Sent Events until the client leaves.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := caller(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.RespondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ctx := r.Context()
	events, stop, err := h.sessionService.Subscribe(ctx, userID, role, chi.URLParam(r, "quizID"), chi.URLParam(r, "classID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ERROR: failed to encode session event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
