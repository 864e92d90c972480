package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wadahkita/service-forum-go/pkg/database"
)

// AuthzRepo answers role lookups from users_admin and forum_members.
type AuthzRepo struct {
	db *database.DB
}

func NewAuthzRepo(db *database.DB) *AuthzRepo { return &AuthzRepo{db: db} }

func (r *AuthzRepo) HasAdminRow(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users_admin WHERE user_id = $1)`, userID)
	return exists, err
}

func (r *AuthzRepo) ForumRole(ctx context.Context, forumID, userID string) (string, bool, error) {
	var row struct {
		Role       string `db:"role"`
		IsApproved bool   `db:"is_approved"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT role, is_approved FROM forum_members WHERE forum_id = $1 AND user_id = $2`,
		forumID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Role, row.IsApproved, nil
}
