package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/auth"
	"github.com/wadahkita/service-forum-go/internal/storage"
)

// Handler exposes the user, follow-graph, and membership endpoints.
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

// List returns members or registrants with pagination and metrics.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "member"
	}
	_, limit, offset := api.Page(r, 20)
	items, metrics, err := h.svc.List(r.Context(), status, limit, offset)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			api.Message(w, http.StatusBadRequest, "Invalid status filter.")
			return
		}
		h.logger.Errorw("list users failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch users.")
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"users": items, "metrics": metrics})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.Message(w, http.StatusNotFound, "User not found.")
			return
		}
		h.logger.Errorw("get user failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch user.")
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
		in.DisplayName = api.FormValue(r, "displayName")
		in.Bio = api.FormValue(r, "bio")
		if v := api.FormValue(r, "isPrivate"); v != nil {
			b := *v == "true"
			in.IsPrivate = &b
		}
		in.Avatar = api.FormFile(r, "avatar")
		in.Cover = api.FormFile(r, "cover")
	} else {
		var body struct {
			DisplayName *string `json:"displayName"`
			Bio         *string `json:"bio"`
			IsPrivate   *bool   `json:"isPrivate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		in.DisplayName, in.Bio, in.IsPrivate = body.DisplayName, body.Bio, body.IsPrivate
	}
	profile, err := h.svc.Update(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), in, h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "You are not allowed to edit this profile.")
		default:
			h.logger.Errorw("update user failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to update user.")
		}
		return
	}
	api.JSON(w, http.StatusOK, profile)
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Follow(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfFollow):
			api.Message(w, http.StatusBadRequest, "You cannot follow yourself.")
		case errors.Is(err, ErrAlreadyFollowing):
			api.Message(w, http.StatusBadRequest, "You are already following this user.")
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "User not found.")
		default:
			h.logger.Errorw("follow failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to follow user.")
		}
		return
	}
	api.Message(w, http.StatusCreated, "Successfully followed user.")
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unfollow(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFollowing) {
			api.Message(w, http.StatusNotFound, "You are not following this user.")
			return
		}
		h.logger.Errorw("unfollow failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to unfollow user.")
		return
	}
	api.Message(w, http.StatusOK, "Successfully unfollowed user.")
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 20)
	items, err := h.svc.Followers(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), limit, offset)
	if err != nil {
		h.logger.Errorw("list followers failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch followers.")
		return
	}
	api.JSON(w, http.StatusOK, items)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 20)
	items, err := h.svc.Following(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), limit, offset)
	if err != nil {
		h.logger.Errorw("list following failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch following.")
		return
	}
	api.JSON(w, http.StatusOK, items)
}

// RegisterMember submits the caller's membership application.
func (h *Handler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(api.MaxUploadBytes); err != nil {
		api.Message(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}
	in := RegistrationInput{
		IDNumber:        r.FormValue("idNumber"),
		BirthPlace:      r.FormValue("birthPlace"),
		Zone:            r.FormValue("zone"),
		LatestEducation: r.FormValue("latestEducation"),
		Address:         r.FormValue("address"),
		NIK:             r.FormValue("nik"),
		PhoneNumber:     r.FormValue("phoneNumber"),
		Referral:        r.FormValue("referral"),
		IDCard:          api.FormFile(r, "idCard"),
	}
	if v := r.FormValue("birthDate"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			in.BirthDate = &t
		}
	}
	reg, err := h.svc.RegisterMember(r.Context(), auth.SubjectFromContext(r.Context()), in, h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "ID number and zone are required.")
		case errors.Is(err, ErrAlreadyMember):
			api.Message(w, http.StatusBadRequest, "You are already a member.")
		case errors.Is(err, ErrAlreadyRegistered):
			api.Message(w, http.StatusBadRequest, "You have already submitted a registration.")
		default:
			h.logger.Errorw("register member failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to submit registration.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, reg)
}

// Registrant returns one pending application for admin review.
func (h *Handler) Registrant(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Registrant(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "Only admins may view registrations.")
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Registration not found.")
		default:
			h.logger.Errorw("get registrant failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to fetch registration.")
		}
		return
	}
	api.JSON(w, http.StatusOK, reg)
}

// AcceptMember promotes a registration into a member row.
func (h *Handler) AcceptMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.svc.AcceptMember(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "Only admins may accept members.")
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Registration not found.")
		case errors.Is(err, ErrAlreadyMember):
			api.Message(w, http.StatusBadRequest, "This registration has already been accepted.")
		default:
			h.logger.Errorw("accept member failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to accept member.")
		}
		return
	}
	api.JSON(w, http.StatusOK, member)
}

// ToggleAdmin grants or revokes the admin role.
func (h *Handler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	isAdmin, err := h.svc.ToggleAdmin(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "Only admins may change admin roles.")
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "User not found.")
		default:
			h.logger.Errorw("toggle admin failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to change admin role.")
		}
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"isAdmin": isAdmin})
}
