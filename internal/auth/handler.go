package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/api"
)

// Handler exposes the register / login / refresh-token endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Message(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	profile, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Username, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "Email, password, and username are required.")
		case errors.Is(err, ErrEmailTaken):
			api.Message(w, http.StatusBadRequest, "Email or username already registered.")
		default:
			h.logger.Errorw("register failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to register user.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, profile)
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Message(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	pair, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			api.Message(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to log in.")
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user,
	})
}

// RefreshRequest refresh-token payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Message(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			api.Message(w, http.StatusUnauthorized, "Invalid or expired refresh token.")
			return
		}
		h.logger.Errorw("refresh failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to refresh token.")
		return
	}
	api.JSON(w, http.StatusOK, pair)
}
