package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/storage"
	"github.com/wadahkita/service-forum-go/internal/user/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrForbidden         = errors.New("not allowed")
	ErrValidation        = errors.New("missing required field")
	ErrSelfFollow        = errors.New("cannot follow yourself")
	ErrAlreadyFollowing  = errors.New("already following")
	ErrNotFollowing      = errors.New("not following")
	ErrAlreadyRegistered = errors.New("registration already submitted")
	ErrAlreadyMember     = errors.New("already a member")
)

// FollowListItem is one row of a followers/following listing with the
// viewer-relative follow flag.
type FollowListItem struct {
	entity.Summary
	IsFollowing bool `db:"is_following" json:"isFollowing"`
}

// UpdateInput carries the editable profile fields. Nil pointers leave the
// column untouched.
type UpdateInput struct {
	DisplayName *string
	Bio         *string
	IsPrivate   *bool
	Avatar      *api.FileUpload
	Cover       *api.FileUpload
}

// RegistrationInput is the register-as-member form.
type RegistrationInput struct {
	IDNumber        string
	BirthPlace      string
	BirthDate       *time.Time
	Zone            string
	LatestEducation string
	Address         string
	NIK             string
	PhoneNumber     string
	Referral        string
	IDCard          *api.FileUpload
}

// Store is the persistence surface for user operations. Composite writes
// (promotion, admin toggle) are transactional inside the implementation.
type Store interface {
	ProfileByID(ctx context.Context, id string) (*entity.Profile, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]entity.ListItem, error)
	StatusMetrics(ctx context.Context, status string) (*entity.Metrics, error)
	UpdateProfile(ctx context.Context, id string, displayName, bio *string, isPrivate *bool, avatarURL, coverURL *string) (*entity.Profile, error)

	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	FollowCounts(ctx context.Context, userID string) (followers, following int, err error)
	InsertFollow(ctx context.Context, id, followerID, followingID string) error
	DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error)
	Followers(ctx context.Context, userID, viewerID string, limit, offset int) ([]FollowListItem, error)
	Following(ctx context.Context, userID, viewerID string, limit, offset int) ([]FollowListItem, error)

	MemberByUserID(ctx context.Context, userID string) (*entity.Member, error)
	RegistrationByUserID(ctx context.Context, userID string) (*entity.Registration, error)
	RegistrationByID(ctx context.Context, id string) (*entity.Registration, error)
	InsertRegistration(ctx context.Context, reg entity.Registration) (*entity.Registration, error)
	PromoteRegistration(ctx context.Context, reg *entity.Registration) (*entity.Member, error)
	SetAdmin(ctx context.Context, userID string, admin bool) error
}

// Service owns profile, follow-graph, and membership-promotion operations.
type Service struct {
	store Store
	authz *authz.Checker
}

func NewService(store Store, checker *authz.Checker) *Service {
	return &Service{store: store, authz: checker}
}

// List returns users filtered by membership status plus the zone/status
// metrics for that slice. status is "member" or "registrant".
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]entity.ListItem, *entity.Metrics, error) {
	if status != "member" && status != "registrant" {
		return nil, nil, ErrValidation
	}
	items, err := s.store.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := s.store.StatusMetrics(ctx, status)
	if err != nil {
		return nil, nil, err
	}
	return items, metrics, nil
}

// Get assembles the full user detail relative to the viewer.
func (s *Service) Get(ctx context.Context, id, viewerID string) (*entity.Detail, error) {
	profile, err := s.store.ProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	detail := &entity.Detail{Profile: *profile}
	if detail.IsAdmin, err = s.authz.IsAdmin(ctx, id); err != nil {
		return nil, err
	}
	if viewerID != "" && viewerID != id {
		if detail.IsFollowing, err = s.store.IsFollowing(ctx, viewerID, id); err != nil {
			return nil, err
		}
	}
	if detail.FollowersCount, detail.FollowingCount, err = s.store.FollowCounts(ctx, id); err != nil {
		return nil, err
	}
	if detail.Member, err = s.store.MemberByUserID(ctx, id); err != nil {
		return nil, err
	}
	if detail.Member == nil {
		if detail.Registration, err = s.store.RegistrationByUserID(ctx, id); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// Update edits a profile. Only the owner or an admin may edit; replaced
// avatar/cover objects are removed from storage.
func (s *Service) Update(ctx context.Context, id, actorID string, in UpdateInput, session *storage.Session) (*entity.Profile, error) {
	current, err := s.store.ProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	allowed, err := s.authz.IsOwnerOrAdmin(ctx, current.ID, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	var avatarURL, coverURL *string
	if in.Avatar != nil {
		path := storage.ObjectPath("users", id, "avatar", in.Avatar.Name)
		if url := session.Upload(ctx, "avatars", path, in.Avatar.Data, in.Avatar.ContentType); url != "" {
			avatarURL = &url
			if current.AvatarURL != nil {
				session.Delete(ctx, "avatars", *current.AvatarURL)
			}
		}
	}
	if in.Cover != nil {
		path := storage.ObjectPath("users", id, "cover", in.Cover.Name)
		if url := session.Upload(ctx, "covers", path, in.Cover.Data, in.Cover.ContentType); url != "" {
			coverURL = &url
			if current.CoverURL != nil {
				session.Delete(ctx, "covers", *current.CoverURL)
			}
		}
	}
	return s.store.UpdateProfile(ctx, id, in.DisplayName, in.Bio, in.IsPrivate, avatarURL, coverURL)
}

// Follow records an asymmetric follow edge. Duplicate follows are rejected,
// the unique index backstops the advisory check.
func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return ErrSelfFollow
	}
	if _, err := s.store.ProfileByID(ctx, followingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	following, err := s.store.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if following {
		return ErrAlreadyFollowing
	}
	err = s.store.InsertFollow(ctx, utilities.NewID(), followerID, followingID)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyFollowing
	}
	return err
}

// Unfollow removes the edge; removing an absent edge is a 404.
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	deleted, err := s.store.DeleteFollow(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFollowing
	}
	return nil
}

func (s *Service) Followers(ctx context.Context, userID, viewerID string, limit, offset int) ([]FollowListItem, error) {
	return s.store.Followers(ctx, userID, viewerID, limit, offset)
}

func (s *Service) Following(ctx context.Context, userID, viewerID string, limit, offset int) ([]FollowListItem, error) {
	return s.store.Following(ctx, userID, viewerID, limit, offset)
}

// RegisterMember submits a membership application for the caller. One
// application per user; existing members cannot re-apply.
func (s *Service) RegisterMember(ctx context.Context, userID string, in RegistrationInput, session *storage.Session) (*entity.Registration, error) {
	if strings.TrimSpace(in.IDNumber) == "" || strings.TrimSpace(in.Zone) == "" {
		return nil, ErrValidation
	}
	if member, err := s.store.MemberByUserID(ctx, userID); err != nil {
		return nil, err
	} else if member != nil {
		return nil, ErrAlreadyMember
	}
	if existing, err := s.store.RegistrationByUserID(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadyRegistered
	}
	if in.IDCard != nil {
		path := storage.ObjectPath("users", userID, "id-card", in.IDCard.Name)
		session.Upload(ctx, "documents", path, in.IDCard.Data, in.IDCard.ContentType)
	}
	reg := entity.Registration{
		ID:              utilities.NewID(),
		UserID:          userID,
		IDNumber:        in.IDNumber,
		BirthPlace:      in.BirthPlace,
		BirthDate:       in.BirthDate,
		Zone:            in.Zone,
		LatestEducation: in.LatestEducation,
		Address:         in.Address,
		NIK:             in.NIK,
		PhoneNumber:     in.PhoneNumber,
		Referral:        in.Referral,
		Status:          "pending",
	}
	out, err := s.store.InsertRegistration(ctx, reg)
	if database.IsUniqueViolation(err) {
		return nil, ErrAlreadyRegistered
	}
	return out, err
}

// Registrant returns one application for admin review.
func (s *Service) Registrant(ctx context.Context, actorID, registrationID string) (*entity.Registration, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	reg, err := s.store.RegistrationByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

// AcceptMember promotes a pending registration into a member row. The
// promotion happens at most once per user.
func (s *Service) AcceptMember(ctx context.Context, actorID, registrationID string) (*entity.Member, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	reg, err := s.store.RegistrationByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if reg.Status == "active" {
		return nil, ErrAlreadyMember
	}
	if member, err := s.store.MemberByUserID(ctx, reg.UserID); err != nil {
		return nil, err
	} else if member != nil {
		return nil, ErrAlreadyMember
	}
	member, err := s.store.PromoteRegistration(ctx, reg)
	if database.IsUniqueViolation(err) {
		return nil, ErrAlreadyMember
	}
	return member, err
}

// ToggleAdmin grants or revokes the admin role on the target user.
func (s *Service) ToggleAdmin(ctx context.Context, actorID, targetID string) (bool, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return false, err
	}
	if _, err := s.store.ProfileByID(ctx, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	isAdmin, err := s.authz.IsAdmin(ctx, targetID)
	if err != nil {
		return false, err
	}
	if err := s.store.SetAdmin(ctx, targetID, !isAdmin); err != nil {
		return false, err
	}
	return !isAdmin, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	ok, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
