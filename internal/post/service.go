package post

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/post/entity"
	"github.com/wadahkita/service-forum-go/internal/storage"
	"github.com/wadahkita/service-forum-go/pkg/database"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

var (
	ErrNotFound          = errors.New("post not found")
	ErrForbidden         = errors.New("not allowed")
	ErrValidation        = errors.New("missing required field")
	ErrAlreadyLiked      = errors.New("already liked")
	ErrNotLiked          = errors.New("not liked")
	ErrAlreadyBookmarked = errors.New("already bookmarked")
	ErrNotBookmarked     = errors.New("not bookmarked")
	ErrInvalidShare      = errors.New("invalid share interaction")
	ErrNotShared         = errors.New("share not found")
	ErrPollEnded         = errors.New("poll has ended")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrInvalidOption     = errors.New("option does not belong to poll")
	ErrOptionVoted       = errors.New("option already voted")
)

// CreateInput is the create form, one variant populated per the Type tag.
type CreateInput struct {
	Type                 entity.Type
	ForumID              *string
	Content              string
	Title                string
	Question             string
	StartDatetime        time.Time
	EndDatetime          time.Time
	IsAnonymous          bool
	AllowMultipleChoices bool
	Options              []string
	Media                []api.FileUpload
}

// UpdateInput edits personal or article posts only.
type UpdateInput struct {
	Content           *string
	Title             *string
	PreviousMediaURLs []string
	NewMedia          []api.FileUpload
}

// FeedFilter selects and pages the feed. Keyset fields take precedence over
// offset paging when set.
type FeedFilter struct {
	Type          *entity.Type
	ForumID       *string
	UserID        *string
	Limit         int
	Offset        int
	LastCreatedAt *time.Time
	LastID        *string
}

// Store is the persistence surface. Creation, deletion, toggles, shares,
// and votes are transactional composites owned by the implementation.
type Store interface {
	PostByID(ctx context.Context, id string) (*entity.Post, error)
	CreatePersonal(ctx context.Context, p entity.Post, content string) (*entity.Post, error)
	CreateArticle(ctx context.Context, p entity.Post, a entity.Article) (*entity.Post, error)
	CreatePolling(ctx context.Context, p entity.Post, poll entity.Polling, options []entity.Option) (*entity.Post, error)
	InsertMedia(ctx context.Context, media []entity.Media) error
	MediaByPost(ctx context.Context, postID string) ([]entity.Media, error)
	DeleteMediaByURLs(ctx context.Context, postID string, urls []string) error
	Feed(ctx context.Context, viewerID string, f FeedFilter) ([]entity.View, error)
	View(ctx context.Context, id, viewerID string) (*entity.View, error)
	UpdatePersonal(ctx context.Context, postID, content string) error
	UpdateArticle(ctx context.Context, postID, title, content string) error
	DeletePost(ctx context.Context, p *entity.Post) error

	HasLiked(ctx context.Context, userID, postID string) (bool, error)
	InsertLike(ctx context.Context, id, userID, postID string) error
	DeleteLike(ctx context.Context, userID, postID string) (bool, error)
	HasBookmarked(ctx context.Context, userID, postID string) (bool, error)
	InsertBookmark(ctx context.Context, id, userID, postID string) error
	DeleteBookmark(ctx context.Context, userID, postID string) (bool, error)

	CreateShare(ctx context.Context, derivative entity.Post, shareID string, quote *string) (*entity.Post, error)
	ShareByUser(ctx context.Context, userID, originalPostID string) (*entity.Post, error)
	DeleteShare(ctx context.Context, derivative *entity.Post) error

	PollingByPostID(ctx context.Context, postID string) (*entity.Polling, error)
	UserVotedPoll(ctx context.Context, postID, userID string) (bool, error)
	OptionsBelong(ctx context.Context, postID string, optionIDs []string) (bool, error)
	UserVotedOptions(ctx context.Context, postID, userID string, optionIDs []string) ([]string, error)
	InsertVotes(ctx context.Context, postID string, userID *string, optionIDs []string) error
}

// Service owns the post sum type and everything hanging off it.
type Service struct {
	store Store
	authz *authz.Checker
}

func NewService(store Store, checker *authz.Checker) *Service {
	return &Service{store: store, authz: checker}
}

// Create dispatches on the type tag. Forum posts require approved core
// membership. Personal media is uploaded after the post commits; a failed
// upload skips that attachment.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput, session *storage.Session) (*entity.Post, error) {
	if !in.Type.Valid() {
		return nil, ErrValidation
	}
	if in.ForumID != nil {
		core, err := s.authz.IsForumCore(ctx, *in.ForumID, userID)
		if err != nil {
			return nil, err
		}
		if !core {
			return nil, ErrForbidden
		}
	}
	base := entity.Post{
		ID:      utilities.NewID(),
		UserID:  userID,
		ForumID: in.ForumID,
		Type:    in.Type,
	}
	switch in.Type {
	case entity.TypePersonal:
		if strings.TrimSpace(in.Content) == "" && len(in.Media) == 0 {
			return nil, ErrValidation
		}
		created, err := s.store.CreatePersonal(ctx, base, in.Content)
		if err != nil {
			return nil, err
		}
		if err := s.attachMedia(ctx, created.ID, in.Media, session); err != nil {
			return nil, err
		}
		return created, nil
	case entity.TypeArticle:
		if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
			return nil, ErrValidation
		}
		return s.store.CreateArticle(ctx, base, entity.Article{Title: in.Title, Content: in.Content})
	case entity.TypePolling:
		if strings.TrimSpace(in.Question) == "" || len(in.Options) < 2 {
			return nil, ErrValidation
		}
		if !in.EndDatetime.After(in.StartDatetime) {
			return nil, ErrValidation
		}
		poll := entity.Polling{
			Question:             in.Question,
			StartDatetime:        in.StartDatetime,
			EndDatetime:          in.EndDatetime,
			IsAnonymous:          in.IsAnonymous,
			AllowMultipleChoices: in.AllowMultipleChoices,
		}
		options := make([]entity.Option, 0, len(in.Options))
		for _, text := range in.Options {
			if strings.TrimSpace(text) == "" {
				return nil, ErrValidation
			}
			options = append(options, entity.Option{ID: utilities.NewID(), PollingPostID: base.ID, Text: text})
		}
		return s.store.CreatePolling(ctx, base, poll, options)
	}
	return nil, ErrValidation
}

func (s *Service) attachMedia(ctx context.Context, postID string, files []api.FileUpload, session *storage.Session) error {
	var media []entity.Media
	for _, f := range files {
		path := storage.ObjectPath("posts", postID, "media", f.Name)
		url := session.Upload(ctx, "media", path, f.Data, f.ContentType)
		if url == "" {
			continue
		}
		media = append(media, entity.Media{
			ID:     utilities.NewID(),
			PostID: postID,
			URL:    url,
			Type:   f.ContentType,
			Size:   int64(len(f.Data)),
		})
	}
	if len(media) == 0 {
		return nil
	}
	return s.store.InsertMedia(ctx, media)
}

// Feed returns a page of assembled post views. Interaction flags are
// relative to the viewer regardless of any userId filter.
func (s *Service) Feed(ctx context.Context, viewerID string, f FeedFilter) ([]entity.View, error) {
	if f.Limit < 1 {
		f.Limit = 10
	}
	return s.store.Feed(ctx, viewerID, f)
}

func (s *Service) Get(ctx context.Context, id, viewerID string) (*entity.View, error) {
	view, err := s.store.View(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

// Update edits personal or article posts; polls are immutable. Owner or
// admin. previousMediaUrls are removed from storage and post_media before
// new files are attached.
func (s *Service) Update(ctx context.Context, id, actorID string, in UpdateInput, session *storage.Session) (*entity.View, error) {
	current, err := s.store.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	allowed, err := s.authz.IsOwnerOrAdmin(ctx, current.UserID, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}
	switch current.Type {
	case entity.TypePersonal:
		if in.Content != nil {
			if err := s.store.UpdatePersonal(ctx, id, *in.Content); err != nil {
				return nil, err
			}
		}
		if len(in.PreviousMediaURLs) > 0 {
			for _, url := range in.PreviousMediaURLs {
				session.Delete(ctx, "media", url)
			}
			if err := s.store.DeleteMediaByURLs(ctx, id, in.PreviousMediaURLs); err != nil {
				return nil, err
			}
		}
		if err := s.attachMedia(ctx, id, in.NewMedia, session); err != nil {
			return nil, err
		}
	case entity.TypeArticle:
		if in.Title == nil || in.Content == nil ||
			strings.TrimSpace(*in.Title) == "" || strings.TrimSpace(*in.Content) == "" {
			return nil, ErrValidation
		}
		if err := s.store.UpdateArticle(ctx, id, *in.Title, *in.Content); err != nil {
			return nil, err
		}
	default:
		return nil, ErrValidation
	}
	return s.store.View(ctx, id, actorID)
}

// Delete removes a post and its variant payload. Owner only. Storage
// objects go best-effort before the transactional cascade.
func (s *Service) Delete(ctx context.Context, id, actorID string, session *storage.Session) error {
	current, err := s.store.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !s.authz.IsOwner(current.UserID, actorID) {
		return ErrForbidden
	}
	if current.Type == entity.TypePersonal {
		media, err := s.store.MediaByPost(ctx, id)
		if err != nil {
			return err
		}
		for _, m := range media {
			session.Delete(ctx, "media", m.URL)
		}
	}
	return s.store.DeletePost(ctx, current)
}

// Like inserts the like row and bumps the counter in one transaction.
// Liking twice is a conflict, not a no-op.
func (s *Service) Like(ctx context.Context, userID, postID string) error {
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	liked, err := s.store.HasLiked(ctx, userID, postID)
	if err != nil {
		return err
	}
	if liked {
		return ErrAlreadyLiked
	}
	err = s.store.InsertLike(ctx, utilities.NewID(), userID, postID)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyLiked
	}
	return err
}

func (s *Service) Unlike(ctx context.Context, userID, postID string) error {
	deleted, err := s.store.DeleteLike(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotLiked
	}
	return nil
}

func (s *Service) Bookmark(ctx context.Context, userID, postID string) error {
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	marked, err := s.store.HasBookmarked(ctx, userID, postID)
	if err != nil {
		return err
	}
	if marked {
		return ErrAlreadyBookmarked
	}
	err = s.store.InsertBookmark(ctx, utilities.NewID(), userID, postID)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyBookmarked
	}
	return err
}

func (s *Service) Unbookmark(ctx context.Context, userID, postID string) error {
	deleted, err := s.store.DeleteBookmark(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotBookmarked
	}
	return nil
}

// Share creates a repost or quote: a derivative post pointing at the
// original plus a post_shares row, shares_count bumped, one transaction.
// Quotes carry their own personal content.
func (s *Service) Share(ctx context.Context, userID, postID, interaction, content string) (*entity.Post, error) {
	if interaction != "repost" && interaction != "quote" {
		return nil, ErrInvalidShare
	}
	original, err := s.store.PostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	derivative := entity.Post{
		ID:             utilities.NewID(),
		UserID:         userID,
		OriginalPostID: &original.ID,
		Type:           original.Type,
	}
	var quote *string
	if interaction == "quote" {
		if strings.TrimSpace(content) == "" {
			return nil, ErrValidation
		}
		derivative.Type = entity.TypePersonal
		quote = &content
	}
	return s.store.CreateShare(ctx, derivative, utilities.NewID(), quote)
}

// Unshare finds the caller's derivative of the original and reverses the
// share: derivative (and its personal row) deleted, shares_count floored
// at zero.
func (s *Service) Unshare(ctx context.Context, userID, postID string) error {
	derivative, err := s.store.ShareByUser(ctx, userID, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotShared
		}
		return err
	}
	return s.store.DeleteShare(ctx, derivative)
}

// Vote runs the validation chain and inserts one vote row per option, all
// counters moving in the same transaction. Anonymous polls store a null
// voter id and skip per-option dedup.
func (s *Service) Vote(ctx context.Context, userID, postID string, optionIDs []string) error {
	if len(optionIDs) == 0 {
		return ErrValidation
	}
	poll, err := s.store.PollingByPostID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if time.Now().After(poll.EndDatetime) {
		return ErrPollEnded
	}
	if !poll.AllowMultipleChoices {
		if len(optionIDs) > 1 {
			return ErrValidation
		}
		voted, err := s.store.UserVotedPoll(ctx, postID, userID)
		if err != nil {
			return err
		}
		if voted {
			return ErrAlreadyVoted
		}
	}
	belong, err := s.store.OptionsBelong(ctx, postID, optionIDs)
	if err != nil {
		return err
	}
	if !belong {
		return ErrInvalidOption
	}
	voterID := &userID
	if poll.IsAnonymous {
		voterID = nil
	} else {
		dup, err := s.store.UserVotedOptions(ctx, postID, userID, optionIDs)
		if err != nil {
			return err
		}
		if len(dup) > 0 {
			return ErrOptionVoted
		}
	}
	return s.store.InsertVotes(ctx, postID, voterID, optionIDs)
}

// Results returns the poll payload with per-option tallies.
func (s *Service) Results(ctx context.Context, postID string) (*entity.Polling, error) {
	poll, err := s.store.PollingByPostID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return poll, nil
}

func (s *Service) requirePost(ctx context.Context, postID string) error {
	if _, err := s.store.PostByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
