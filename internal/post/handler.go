package post

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/auth"
	"github.com/wadahkita/service-forum-go/internal/post/entity"
	"github.com/wadahkita/service-forum-go/internal/storage"
)

// Handler exposes the post endpoints: the sum-type CRUD, the feed, and the
// like / bookmark / share / vote interactions.
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
		in.Type = entity.Type(r.FormValue("type"))
		if v := r.FormValue("forumId"); v != "" {
			in.ForumID = &v
		}
		in.Content = r.FormValue("content")
		in.Title = r.FormValue("title")
		in.Question = r.FormValue("question")
		in.IsAnonymous = r.FormValue("isAnonymous") == "true"
		in.AllowMultipleChoices = r.FormValue("allowMultipleChoices") == "true"
		if r.MultipartForm != nil {
			in.Options = r.MultipartForm.Value["options"]
		}
		in.StartDatetime = parseTime(r.FormValue("startDatetime"))
		in.EndDatetime = parseTime(r.FormValue("endDatetime"))
		in.Media = api.FormFiles(r, "media")
	} else {
		var body struct {
			Type                 entity.Type `json:"type"`
			ForumID              *string     `json:"forumId"`
			Content              string      `json:"content"`
			Title                string      `json:"title"`
			Question             string      `json:"question"`
			StartDatetime        time.Time   `json:"startDatetime"`
			EndDatetime          time.Time   `json:"endDatetime"`
			IsAnonymous          bool        `json:"isAnonymous"`
			AllowMultipleChoices bool        `json:"allowMultipleChoices"`
			Options              []string    `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		in = CreateInput{
			Type: body.Type, ForumID: body.ForumID, Content: body.Content,
			Title: body.Title, Question: body.Question,
			StartDatetime: body.StartDatetime, EndDatetime: body.EndDatetime,
			IsAnonymous: body.IsAnonymous, AllowMultipleChoices: body.AllowMultipleChoices,
			Options: body.Options,
		}
	}
	created, err := h.svc.Create(r.Context(), auth.SubjectFromContext(r.Context()), in, h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "Invalid post payload for the given type.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "Only core members can post in this forum.")
		default:
			h.logger.Errorw("create post failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to create post.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	_, limit, offset := api.Page(r, 10)
	q := r.URL.Query()
	f := FeedFilter{Limit: limit, Offset: offset}
	if v := q.Get("type"); v != "" {
		t := entity.Type(v)
		f.Type = &t
	}
	if v := q.Get("forumId"); v != "" {
		f.ForumID = &v
	}
	if v := q.Get("userId"); v != "" {
		f.UserID = &v
	}
	if v := q.Get("lastCreatedAt"); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			f.LastCreatedAt = &t
		}
	}
	if v := q.Get("lastId"); v != "" {
		f.LastID = &v
	}
	views, err := h.svc.Feed(r.Context(), auth.SubjectFromContext(r.Context()), f)
	if err != nil {
		h.logger.Errorw("feed failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch posts.")
		return
	}
	api.JSON(w, http.StatusOK, views)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.Message(w, http.StatusNotFound, "Post not found.")
			return
		}
		h.logger.Errorw("get post failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch post.")
		return
	}
	api.JSON(w, http.StatusOK, view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(api.MaxUploadBytes); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		in.Content = api.FormValue(r, "content")
		in.Title = api.FormValue(r, "title")
		if r.MultipartForm != nil {
			in.PreviousMediaURLs = r.MultipartForm.Value["previousMediaUrls"]
		}
		in.NewMedia = api.FormFiles(r, "media")
	} else {
		var body struct {
			Content           *string  `json:"content"`
			Title             *string  `json:"title"`
			PreviousMediaURLs []string `json:"previousMediaUrls"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.Message(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		in.Content, in.Title, in.PreviousMediaURLs = body.Content, body.Title, body.PreviousMediaURLs
	}
	view, err := h.svc.Update(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), in, h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "You are not allowed to edit this post.")
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "Only personal and article posts can be edited.")
		default:
			h.logger.Errorw("update post failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to update post.")
		}
		return
	}
	api.JSON(w, http.StatusOK, view)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), h.session(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, ErrForbidden):
			api.Message(w, http.StatusForbidden, "You are not allowed to delete this post.")
		default:
			h.logger.Errorw("delete post failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to delete post.")
		}
		return
	}
	api.Message(w, http.StatusOK, "Post deleted.")
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Like(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, ErrAlreadyLiked):
			api.Message(w, http.StatusBadRequest, "You have already liked this post.")
		default:
			h.logger.Errorw("like post failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to like post.")
		}
		return
	}
	api.Message(w, http.StatusCreated, "Post liked.")
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unlike(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotLiked) {
			api.Message(w, http.StatusBadRequest, "You have not liked this post.")
			return
		}
		h.logger.Errorw("unlike post failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to unlike post.")
		return
	}
	api.Message(w, http.StatusOK, "Post unliked.")
}

func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Bookmark(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, ErrAlreadyBookmarked):
			api.Message(w, http.StatusBadRequest, "You have already bookmarked this post.")
		default:
			h.logger.Errorw("bookmark post failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to bookmark post.")
		}
		return
	}
	api.Message(w, http.StatusCreated, "Post bookmarked.")
}

func (h *Handler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unbookmark(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotBookmarked) {
			api.Message(w, http.StatusBadRequest, "You have not bookmarked this post.")
			return
		}
		h.logger.Errorw("unbookmark post failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to unbookmark post.")
		return
	}
	api.Message(w, http.StatusOK, "Post unbookmarked.")
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Interaction string `json:"interaction"`
		Content     string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Message(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	created, err := h.svc.Share(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"), body.Interaction, body.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidShare):
			api.Message(w, http.StatusBadRequest, "Interaction must be repost or quote.")
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "Quote content is required.")
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Post not found.")
		default:
			h.logger.Errorw("share post failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to share post.")
		}
		return
	}
	api.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Unshare(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unshare(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotShared) {
			api.Message(w, http.StatusNotFound, "You have not shared this post.")
			return
		}
		h.logger.Errorw("unshare post failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to remove share.")
		return
	}
	api.Message(w, http.StatusOK, "Share removed.")
}

func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OptionIDs []string `json:"optionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.OptionIDs) == 0 {
		api.Message(w, http.StatusBadRequest, "Option ids are required.")
		return
	}
	err := h.svc.Vote(r.Context(), auth.SubjectFromContext(r.Context()), r.PathValue("id"), body.OptionIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.Message(w, http.StatusNotFound, "Poll not found.")
		case errors.Is(err, ErrValidation):
			api.Message(w, http.StatusBadRequest, "This poll accepts a single option.")
		case errors.Is(err, ErrPollEnded):
			api.Message(w, http.StatusBadRequest, "This poll has ended.")
		case errors.Is(err, ErrAlreadyVoted):
			api.Message(w, http.StatusBadRequest, "You have already voted in this poll.")
		case errors.Is(err, ErrInvalidOption):
			api.Message(w, http.StatusBadRequest, "One or more options do not belong to this poll.")
		case errors.Is(err, ErrOptionVoted):
			api.Message(w, http.StatusBadRequest, "You have already voted for this option.")
		default:
			h.logger.Errorw("vote failed", "err", err)
			api.Message(w, http.StatusInternalServerError, "Failed to submit vote.")
		}
		return
	}
	api.Message(w, http.StatusCreated, "Vote recorded.")
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	poll, err := h.svc.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.Message(w, http.StatusNotFound, "Poll not found.")
			return
		}
		h.logger.Errorw("poll results failed", "err", err)
		api.Message(w, http.StatusInternalServerError, "Failed to fetch poll results.")
		return
	}
	api.JSON(w, http.StatusOK, poll)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
