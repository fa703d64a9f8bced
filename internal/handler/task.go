package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/get-it-done-api/internal/auth"
	"github.com/BuzzLyutic/get-it-done-api/internal/model"
	"github.com/BuzzLyutic/get-it-done-api/internal/repo"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
	"github.com/BuzzLyutic/get-it-done-api/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req model.Task
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("failed to decode task", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	task, err := h.service.Create(r.Context(), owner(r), req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, task)
}

// List serves one of the category listings for the owner in ?query=.
func (h *TaskHandler) List(c service.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := h.service.List(r.Context(), owner(r), c)
		if err != nil {
			h.handleErrors(w, r, err)
			return
		}
		respond.JSON(w, r, http.StatusOK, tasks)
	}
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	modified, err := h.service.Update(r.Context(), owner(r), chi.URLParam(r, "id"), fields)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, map[string]int64{"modifiedCount": modified})
}

func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req service.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.service.Reorder(r.Context(), owner(r), req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.Message(w, r, http.StatusOK, "Task order updated successfully", map[string]interface{}{
		"result": result,
	})
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	if err := h.service.Complete(r.Context(), owner(r), chi.URLParam(r, "id"), fields); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.Message(w, r, http.StatusOK, "Task updated successfully", map[string]interface{}{
		"updated": true,
	})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.Delete(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, map[string]int64{"deletedCount": deleted})
}

func (h *TaskHandler) decodeFields(w http.ResponseWriter, r *http.Request) (model.Fields, bool) {
	var fields model.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return nil, false
	}
	return fields, true
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrOwnership):
		respond.Error(w, r, http.StatusForbidden, "forbidden access")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

// owner возвращает email из токена; маршруты задач всегда идут после Authenticate
func owner(r *http.Request) string {
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		return c.Email
	}
	return ""
}
