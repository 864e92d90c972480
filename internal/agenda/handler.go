package agenda

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/auth"
	"github.com/wadahkita/service-forum-go/internal/storage"
)

// Handler exposes the agenda endpoints.
type Handler struct {
	svc     *Service
	storage *storage.Client
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, storageClient *storage.Client, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, storage: storageClient, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(api.MaxUploadBytes); err != nil {
		api.Message(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}
	in := CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Image:       api.FormFile(r, "image"),
	}
	if v := r.FormValue("forumId"); v != "" {
		in.ForumID = &v
	}
	if v := r.FormValue("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			in.StartDate = t
		}
	}
	session := h.storage.Session(auth.BearerFromContext(r.Context()))
	item, err := h.svc.Create(r.Context(), in, session)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			api.Message(w, http.StatusBadRequest, "Title, description, start date, and image are required.")
			return
		}
		h.logger.Errorw("create agenda failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to create agenda item.")
		return
	}
	api.JSON(w, http.StatusCreated, item)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 20)
	var forumID *string
	if v := r.URL.Query().Get("forumId"); v != "" {
		forumID = &v
	}
	items, err := h.svc.Upcoming(r.Context(), forumID, limit, offset)
	if err != nil {
		h.logger.Errorw("list agenda failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch agenda.")
		return
	}
	api.JSON(w, http.StatusOK, items)
}
