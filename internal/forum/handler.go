package forum

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/auth"
	"github.com/wadahkita/service-forum-go/internal/storage"
)

// Handler exposes forum CRUD and the join / approve / leave endpoints.
type Handler struct {
	svc     *Service
	storage *storage.Client
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, storageClient *storage.Client, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, storage: storageClient, logger: logger}
}

func (h *Handler) session(r *http.Request) *storage.Session {
	return h.storage.Session(auth.BearerFromContext(r.Context()))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(api.MaxUploadBytes); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		in.Name = r.FormValue("name")
		in.Description = r.FormValue("description")
		in.IsCoi = r.FormValue("isCoi") == "true"
		in.Avatar = api.FormFile(r, "avatar")
		in.Cover = api.FormFile(r, "cover")
	} else {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			IsCoi       bool   `json:"isCoi"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		in.Name, in.Description, in.IsCoi = body.Name, body.Description, body.IsCoi
	}
	f, err := h.svc.Create(r.Context(), auth.SubjectFromContext(r.Context()), in, h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "Forum name is required.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "Only admins are allowed to create Bidang forums.")
		default:
			h.logger.Errorw("create forum failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to create forum.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, f)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 20)
	isCoi := boolParam(r, "isCoi")
	forums, err := h.svc.List(r.Context(), isCoi, limit, offset)
	if err != nil {
		h.logger.Errorw("list forums failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch forums.")
		return
	}
	api.JSON(w, http.StatusOK, forums)
}

func (h *Handler) Joined(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 20)
	var role *string
	if v := r.URL.Query().Get("role"); v != "" {
		role = &v
	}
	items, err := h.svc.Joined(r.Context(), auth.SubjectFromContext(r.Context()), role, boolParam(r, "isCoi"), limit, offset)
	if err != nil {
		h.logger.Errorw("list joined forums failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch joined forums.")
		return
	}
	api.JSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.Message(w, http.StatusNotFound, "Forum not found.")
			return
		}
		h.logger.Errorw("get forum failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch forum.")
		return
	}
	api.JSON(w, http.StatusOK, detail)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(api.MaxUploadBytes); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		in.Name = api.FormValue(r, "name")
		in.Description = api.FormValue(r, "description")
		if v := api.FormValue(r, "isCoi"); v != nil {
			b := *v == "true"
			in.IsCoi = &b
		}
		in.Avatar = api.FormFile(r, "avatar")
		in.Cover = api.FormFile(r, "cover")
	} else {
		var body struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			IsCoi       *bool   `json:"isCoi"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		in.Name, in.Description, in.IsCoi = body.Name, body.Description, body.IsCoi
	}
	f, err := h.svc.Update(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), in, h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Forum not found.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "You are not allowed to edit this forum.")
		default:
			h.logger.Errorw("update forum failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to update forum.")
		}
		return
	}
	api.JSON(w, http.StatusOK, f)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Forum not found.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "You are not allowed to delete this forum.")
		default:
			h.logger.Errorw("delete forum failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to delete forum.")
		}
		return
	}
	api.Message(w, http.StatusOK, "Forum deleted.")
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Join(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Forum not found.")
		case errors.Is(err, ErrAlreadyMember):
			api.Message(w, http.StatusBadRequest, "You are already a member of this forum.")
		case errors.Is(err, ErrAlreadyRequested):
			api.Message(w, http.StatusBadRequest, "You have already requested to join this forum.")
		default:
			h.logger.Errorw("join forum failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to join forum.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, m)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		api.Message(w, http.StatusBadRequest, "User id is required.")
		return
	}
	m, err := h.svc.Approve(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), body.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "Only core members may approve join requests.")
		case errors.Is(err, ErrNoRequest):
			api.Message(w, http.StatusNotFound, "Join request not found.")
		case errors.Is(err, ErrAlreadyMember):
			api.Message(w, http.StatusBadRequest, "This user is already a member of the forum.")
		default:
			h.logger.Errorw("approve member failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to approve member.")
		}
		return
	}
	api.JSON(w, http.StatusOK, m)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Leave(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			api.Message(w, http.StatusNotFound, "You are not a member of this forum.")
			return
		}
		h.logger.Errorw("leave forum failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to leave forum.")
		return
	}
	api.Message(w, http.StatusOK, "Successfully left the forum.")
}

func boolParam(r *http.Request, key string) *bool {
	switch r.URL.Query().Get(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
