package agenda

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wadahkita/service-forum-go/internal/agenda/entity"
	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/storage"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

var ErrValidation = errors.New("missing required field")

// CreateInput is the create form. The image is required.
type CreateInput struct {
	ForumID     *string
	Title       string
	Description string
	StartDate   time.Time
	Image       *api.FileUpload
}

type Store interface {
	Insert(ctx context.Context, item entity.Item) (*entity.Item, error)
	Upcoming(ctx context.Context, forumID *string, limit, offset int) ([]entity.Item, error)
}

// Service owns the forum calendar.
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

func (s *Service) Create(ctx context.Context, in CreateInput, session *storage.Session) (*entity.Item, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" ||
		in.StartDate.IsZero() || in.Image == nil {
		return nil, ErrValidation
	}
	id := utilities.NewID()
	path := storage.ObjectPath("agenda", id, "image", in.Image.Name)
	url := session.Upload(ctx, "media", path, in.Image.Data, in.Image.ContentType)
	if url == "" {
		return nil, ErrValidation
	}
	return s.store.Insert(ctx, entity.Item{
		ID:          id,
		ForumID:     in.ForumID,
		ImageURL:    url,
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
	})
}

// Upcoming lists future items, optionally scoped to one forum.
func (s *Service) Upcoming(ctx context.Context, forumID *string, limit, offset int) ([]entity.Item, error) {
	return s.store.Upcoming(ctx, forumID, limit, offset)
}
