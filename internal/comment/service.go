package comment

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/comment/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrNotFound          = errors.New("comment not found")
	ErrForbidden         = errors.New("not allowed")
	ErrValidation        = errors.New("missing required field")
	ErrDeleted           = errors.New("comment is deleted")
	ErrOwnComment        = errors.New("cannot act on own comment")
	ErrAlreadyLiked      = errors.New("already liked")
	ErrNotLiked          = errors.New("not liked")
	ErrAlreadyBookmarked = errors.New("already bookmarked")
	ErrNotBookmarked     = errors.New("not bookmarked")
)

// Store is the persistence surface. Creation, soft-deletion, and the
// toggles are transactional composites owned by the implementation.
type Store interface {
	PostExists(ctx context.Context, postID string) (bool, error)
	CommentByID(ctx context.Context, id string) (*entity.Comment, error)
	CreateComment(ctx context.Context, c entity.Comment) (*entity.Comment, error)
	List(ctx context.Context, postID string, parentCommentID *string, viewerID string, limit, offset int) ([]entity.View, error)
	SoftDelete(ctx context.Context, c *entity.Comment) error

	HasLiked(ctx context.Context, userID, commentID string) (bool, error)
	InsertLike(ctx context.Context, id, userID, commentID string) error
	DeleteLike(ctx context.Context, userID, commentID string) (bool, error)
	HasBookmarked(ctx context.Context, userID, commentID string) (bool, error)
	InsertBookmark(ctx context.Context, id, userID, commentID string) error
	DeleteBookmark(ctx context.Context, userID, commentID string) (bool, error)
}

// Service owns comment creation, listing, soft-deletion, and the comment
// toggles.
type Service struct {
	store Store
	authz *authz.Checker
}

func NewService(store Store, checker *authz.Checker) *Service {
	return &Service{store: store, authz: checker}
}

// Create inserts the comment and moves the post counter, plus the parent
// reply counter for replies, in one transaction.
func (s *Service) Create(ctx context.Context, userID, postID string, parentCommentID *string, content string) (*entity.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrValidation
	}
	exists, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}
	if parentCommentID != nil {
		parent, err := s.store.CommentByID(ctx, *parentCommentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if parent.PostID != postID || parent.IsDeleted {
			return nil, ErrValidation
		}
	}
	c := entity.Comment{
		ID:              utilities.NewID(),
		UserID:          userID,
		PostID:          postID,
		ParentCommentID: parentCommentID,
		Content:         content,
	}
	return s.store.CreateComment(ctx, c)
}

// List pages a post's comments, top-level by default or one reply thread
// when parentCommentID is set.
func (s *Service) List(ctx context.Context, postID string, parentCommentID *string, viewerID string, limit, offset int) ([]entity.View, error) {
	exists, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}
	return s.store.List(ctx, postID, parentCommentID, viewerID, limit, offset)
}

// Delete soft-deletes the caller's comment. The post counter is recomputed
// from live rows rather than blindly decremented.
func (s *Service) Delete(ctx context.Context, commentID, actorID string) error {
	c, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !s.authz.IsOwner(c.UserID, actorID) {
		return ErrForbidden
	}
	if c.IsDeleted {
		return ErrDeleted
	}
	return s.store.SoftDelete(ctx, c)
}

// Like rejects deleted targets and the caller's own comments before the
// usual check-then-act toggle.
func (s *Service) Like(ctx context.Context, userID, commentID string) error {
	c, err := s.targetable(ctx, userID, commentID)
	if err != nil {
		return err
	}
	liked, err := s.store.HasLiked(ctx, userID, c.ID)
	if err != nil {
		return err
	}
	if liked {
		return ErrAlreadyLiked
	}
	err = s.store.InsertLike(ctx, utilities.NewID(), userID, c.ID)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyLiked
	}
	return err
}

func (s *Service) Unlike(ctx context.Context, userID, commentID string) error {
	deleted, err := s.store.DeleteLike(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotLiked
	}
	return nil
}

func (s *Service) Bookmark(ctx context.Context, userID, commentID string) error {
	c, err := s.targetable(ctx, userID, commentID)
	if err != nil {
		return err
	}
	marked, err := s.store.HasBookmarked(ctx, userID, c.ID)
	if err != nil {
		return err
	}
	if marked {
		return ErrAlreadyBookmarked
	}
	err = s.store.InsertBookmark(ctx, utilities.NewID(), userID, c.ID)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyBookmarked
	}
	return err
}

func (s *Service) Unbookmark(ctx context.Context, userID, commentID string) error {
	deleted, err := s.store.DeleteBookmark(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotBookmarked
	}
	return nil
}

// targetable loads the comment and rejects deleted or self-owned targets.
// The own-comment rule fires before existence of the toggle row matters.
func (s *Service) targetable(ctx context.Context, userID, commentID string) (*entity.Comment, error) {
	c, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if c.UserID == userID {
		return nil, ErrOwnComment
	}
	if c.IsDeleted {
		return nil, ErrDeleted
	}
	return c, nil
}
