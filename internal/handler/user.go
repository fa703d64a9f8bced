package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
	"github.com/BuzzLyutic/get-it-done-api/pkg/respond"
)

type UserHandler struct {
	service *service.UserService
	logger  *zap.Logger
}

func NewUserHandler(srv *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: srv, logger: logger}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	created, err := h.service.Register(r.Context(), u)
	switch {
	case errors.Is(err, service.ErrUserExists):
		respond.Message(w, r, http.StatusBadRequest, "USER ALREADY EXISTS", map[string]interface{}{
			"insertedId": nil,
		})
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("failed to register user", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	default:
		respond.JSON(w, r, http.StatusCreated, created)
	}
}

func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	token, err := h.service.IssueToken(req.Email)
	switch {
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("failed to issue token", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	default:
		respond.JSON(w, r, http.StatusOK, map[string]string{"token": token})
	}
}
