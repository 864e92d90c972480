package comment

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/auth"
)

// Handler exposes the comment endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest create payload.
type CreateRequest struct {
	PostID          string  `json:"postId"`
	ParentCommentID *string `json:"parentCommentId"`
	Content         string  `json:"content"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID == "" {
		api.Message(w, http.StatusBadRequest, "Post id is required.")
		return
	}
	c, err := h.svc.Create(r.Context(), auth.SubjectFromContext(r.Context()), req.PostID, req.ParentCommentID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "Comment content is required.")
		case errors.Is(err, ErrPostNotFound):
			api.Message(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Parent comment not found.")
		default:
			h.logger.Errorw("create comment failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to create comment.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 20)
	var parent *string
	if v := r.URL.Query().Get("parentCommentId"); v != "" {
		parent = &v
	}
	views, err := h.svc.List(r.Context(), r.PathValue("postId"), parent, auth.SubjectFromContext(r.Context()), limit, offset)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			api.Message(w, http.StatusNotFound, "Post not found.")
			return
		}
		h.logger.Errorw("list comments failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch comments.")
		return
	}
	api.JSON(w, http.StatusOK, views)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Comment not found.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "You are not allowed to delete this comment.")
		case errors.Is(err, ErrDeleted):
			api.Message(w, http.StatusBadRequest, "This comment has already been deleted.")
		default:
			h.logger.Errorw("delete comment failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to delete comment.")
		}
		return
	}
	api.Message(w, http.StatusOK, "Comment deleted.")
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Like(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Comment not found.")
		case errors.Is(err, ErrOwnComment):
			api.Message(w, http.StatusBadRequest, "You cannot like your own comment.")
		case errors.Is(err, ErrDeleted):
			api.Message(w, http.StatusBadRequest, "You cannot like a deleted comment.")
		case errors.Is(err, ErrAlreadyLiked):
			api.Message(w, http.StatusBadRequest, "You have already liked this comment.")
		default:
			h.logger.Errorw("like comment failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to like comment.")
		}
		return
	}
	api.Message(w, http.StatusCreated, "Comment liked.")
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unlike(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotLiked) {
			api.Message(w, http.StatusBadRequest, "You have not liked this comment.")
			return
		}
		h.logger.Errorw("unlike comment failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to unlike comment.")
		return
	}
	api.Message(w, http.StatusOK, "Comment unliked.")
}

func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Bookmark(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Comment not found.")
		case errors.Is(err, ErrOwnComment):
			api.Message(w, http.StatusBadRequest, "You cannot bookmark your own comment.")
		case errors.Is(err, ErrDeleted):
			api.Message(w, http.StatusBadRequest, "You cannot bookmark a deleted comment.")
		case errors.Is(err, ErrAlreadyBookmarked):
			api.Message(w, http.StatusBadRequest, "You have already bookmarked this comment.")
		default:
			h.logger.Errorw("bookmark comment failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to bookmark comment.")
		}
		return
	}
	api.Message(w, http.StatusCreated, "Comment bookmarked.")
}

func (h *Handler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unbookmark(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotBookmarked) {
			api.Message(w, http.StatusBadRequest, "You have not bookmarked this comment.")
			return
		}
		h.logger.Errorw("unbookmark comment failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to unbookmark comment.")
		return
	}
	api.Message(w, http.StatusOK, "Comment unbookmarked.")
}
