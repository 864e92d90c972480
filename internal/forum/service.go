package forum

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/forum/entity"
	"github.com/wadahkita/service-forum-go/internal/storage"
	"github.com/wadahkita/service-forum-go/pkg/database"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

var (
	ErrNotFound         = errors.New("forum not found")
	ErrForbidden        = errors.New("not allowed")
	ErrValidation       = errors.New("missing required field")
	ErrAlreadyMember    = errors.New("already a member")
	ErrAlreadyRequested = errors.New("join already requested")
	ErrNoRequest        = errors.New("join request not found")
	ErrNotMember        = errors.New("not a member")
)

// CreateInput is the create/edit form. Nil pointers on edit leave the
// column untouched.
type CreateInput struct {
	Name        string
	Description string
	IsCoi       bool
	Avatar      *api.FileUpload
	Cover       *api.FileUpload
}

type UpdateInput struct {
	Name        *string
	Description *string
	IsCoi       *bool
	Avatar      *api.FileUpload
	Cover       *api.FileUpload
}

// Store is the persistence surface. CreateForum, Approve, and Leave are
// transactional composites owned by the implementation.
type Store interface {
	ForumByID(ctx context.Context, id string) (*entity.Forum, error)
	List(ctx context.Context, isCoi *bool, limit, offset int) ([]entity.Forum, error)
	Joined(ctx context.Context, userID string, role *string, isCoi *bool, limit, offset int) ([]entity.JoinedItem, error)
	Membership(ctx context.Context, forumID, userID string) (*entity.Membership, error)
	CreateForum(ctx context.Context, f entity.Forum, creatorMembershipID string) (*entity.Forum, error)
	UpdateForum(ctx context.Context, id string, name, description *string, isCoi *bool, avatarURL, coverURL *string) (*entity.Forum, error)
	DeleteForum(ctx context.Context, id string) error
	InsertPendingMember(ctx context.Context, m entity.Membership) error
	ApproveMember(ctx context.Context, forumID, userID string) (*entity.Membership, error)
	RemoveMember(ctx context.Context, forumID, userID string, wasApproved bool) error
}

// Service owns forum CRUD and the join / approve / leave workflow.
type Service struct {
	store Store
	authz *authz.Checker
}

func NewService(store Store, checker *authz.Checker) *Service {
	return &Service{store: store, authz: checker}
}

// Create makes a forum and seats the creator as an approved core member,
// one transaction. Non-COI ("Bidang") forums are admin-only.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateInput, session *storage.Session) (*entity.Forum, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrValidation
	}
	if !in.IsCoi {
		isAdmin, err := s.authz.IsAdmin(ctx, creatorID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, ErrForbidden
		}
	}
	f := entity.Forum{
		ID:          utilities.NewID(),
		CreatorID:   creatorID,
		Name:        in.Name,
		Description: in.Description,
		IsCoi:       in.IsCoi,
	}
	if in.Avatar != nil {
		path := storage.ObjectPath("forums", f.ID, "avatar", in.Avatar.Name)
		if url := session.Upload(ctx, "avatars", path, in.Avatar.Data, in.Avatar.ContentType); url != "" {
			f.AvatarURL = &url
		}
	}
	if in.Cover != nil {
		path := storage.ObjectPath("forums", f.ID, "cover", in.Cover.Name)
		if url := session.Upload(ctx, "covers", path, in.Cover.Data, in.Cover.ContentType); url != "" {
			f.CoverURL = &url
		}
	}
	return s.store.CreateForum(ctx, f, utilities.NewID())
}

func (s *Service) List(ctx context.Context, isCoi *bool, limit, offset int) ([]entity.Forum, error) {
	return s.store.List(ctx, isCoi, limit, offset)
}

// Joined lists the forums the user belongs to, optionally filtered by role
// and COI flag.
func (s *Service) Joined(ctx context.Context, userID string, role *string, isCoi *bool, limit, offset int) ([]entity.JoinedItem, error) {
	return s.store.Joined(ctx, userID, role, isCoi, limit, offset)
}

// Get returns the forum with the viewer's membership state.
func (s *Service) Get(ctx context.Context, id, viewerID string) (*entity.Detail, error) {
	f, err := s.store.ForumByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	detail := &entity.Detail{Forum: *f}
	if viewerID != "" {
		m, err := s.store.Membership(ctx, id, viewerID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			detail.IsFollowing = m.IsApproved
			detail.IsPending = !m.IsApproved
			detail.IsCoreMember = m.IsApproved && m.Role == "core"
		}
	}
	return detail, nil
}

// Update edits a forum. Owner or admin; flipping is_coi is admin-only.
// Replaced avatar/cover objects are removed from storage.
func (s *Service) Update(ctx context.Context, id, actorID string, in UpdateInput, session *storage.Session) (*entity.Forum, error) {
	current, err := s.store.ForumByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	allowed, err := s.authz.IsOwnerOrAdmin(ctx, current.CreatorID, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}
	if in.IsCoi != nil && *in.IsCoi != current.IsCoi {
		isAdmin, err := s.authz.IsAdmin(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, ErrForbidden
		}
	}

	var avatarURL, coverURL *string
	if in.Avatar != nil {
		path := storage.ObjectPath("forums", id, "avatar", in.Avatar.Name)
		if url := session.Upload(ctx, "avatars", path, in.Avatar.Data, in.Avatar.ContentType); url != "" {
			avatarURL = &url
			if current.AvatarURL != nil {
				session.Delete(ctx, "avatars", *current.AvatarURL)
			}
		}
	}
	if in.Cover != nil {
		path := storage.ObjectPath("forums", id, "cover", in.Cover.Name)
		if url := session.Upload(ctx, "covers", path, in.Cover.Data, in.Cover.ContentType); url != "" {
			coverURL = &url
			if current.CoverURL != nil {
				session.Delete(ctx, "covers", *current.CoverURL)
			}
		}
	}
	return s.store.UpdateForum(ctx, id, in.Name, in.Description, in.IsCoi, avatarURL, coverURL)
}

// Delete removes the forum. Owner or admin. Storage objects go best-effort.
func (s *Service) Delete(ctx context.Context, id, actorID string, session *storage.Session) error {
	current, err := s.store.ForumByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	allowed, err := s.authz.IsOwnerOrAdmin(ctx, current.CreatorID, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	if current.AvatarURL != nil {
		session.Delete(ctx, "avatars", *current.AvatarURL)
	}
	if current.CoverURL != nil {
		session.Delete(ctx, "covers", *current.CoverURL)
	}
	return s.store.DeleteForum(ctx, id)
}

// Join files a pending membership request. The row does not count toward
// members_count until approved.
func (s *Service) Join(ctx context.Context, forumID, userID string) (*entity.Membership, error) {
	if _, err := s.store.ForumByID(ctx, forumID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	existing, err := s.store.Membership(ctx, forumID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsApproved {
			return nil, ErrAlreadyMember
		}
		return nil, ErrAlreadyRequested
	}
	m := entity.Membership{
		ID:      utilities.NewID(),
		ForumID: forumID,
		UserID:  userID,
		Role:    "member",
	}
	if err := s.store.InsertPendingMember(ctx, m); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyRequested
		}
		return nil, err
	}
	return &m, nil
}

// Approve lets a core member confirm a pending request; the members counter
// moves in the same transaction as the approval flag.
func (s *Service) Approve(ctx context.Context, forumID, actorID, targetUserID string) (*entity.Membership, error) {
	core, err := s.authz.IsForumCore(ctx, forumID, actorID)
	if err != nil {
		return nil, err
	}
	if !core {
		return nil, ErrForbidden
	}
	existing, err := s.store.Membership(ctx, forumID, targetUserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNoRequest
	}
	if existing.IsApproved {
		return nil, ErrAlreadyMember
	}
	return s.store.ApproveMember(ctx, forumID, targetUserID)
}

// Leave removes the caller's membership row; the counter only moves when
// the row was approved.
func (s *Service) Leave(ctx context.Context, forumID, userID string) error {
	existing, err := s.store.Membership(ctx, forumID, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotMember
	}
	return s.store.RemoveMember(ctx, forumID, userID, existing.IsApproved)
}
