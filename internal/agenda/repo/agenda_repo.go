package repo

import (
	"context"

	"github.com/wadahkita/service-forum-go/internal/agenda/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
)

// AgendaRepo is the sqlx implementation of agenda.Store.
type AgendaRepo struct {
	db *database.DB
}

func NewAgendaRepo(db *database.DB) *AgendaRepo { return &AgendaRepo{db: db} }

func (r *AgendaRepo) Insert(ctx context.Context, item entity.Item) (*entity.Item, error) {
	var out entity.Item
	err := r.db.GetContext(ctx, &out, `
		INSERT INTO agenda (id, forum_id, image_url, title, description, start_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, forum_id, image_url, title, description, start_date, created_at, updated_at`,
		item.ID, item.ForumID, item.ImageURL, item.Title, item.Description, item.StartDate)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AgendaRepo) Upcoming(ctx context.Context, forumID *string, limit, offset int) ([]entity.Item, error) {
	q := `
		SELECT id, forum_id, image_url, title, description, start_date, created_at, updated_at
		FROM agenda
		WHERE start_date >= NOW()`
	args := []any{}
	if forumID != nil {
		q += ` AND forum_id = $1`
		args = append(args, *forumID)
	}
	if len(args) == 0 {
		q += ` ORDER BY start_date ASC LIMIT $1 OFFSET $2`
	} else {
		q += ` ORDER BY start_date ASC LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)
	items := []entity.Item{}
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}
