package repo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/wadahkita/service-forum-go/internal/forum/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
)

const forumColumns = `id, creator_id, name, description, avatar_url, cover_url,
	is_coi, members_count, created_at, updated_at`

// ForumRepo is the sqlx implementation of forum.Store.
type ForumRepo struct {
	db *database.DB
}

func NewForumRepo(db *database.DB) *ForumRepo { return &ForumRepo{db: db} }

func (r *ForumRepo) ForumByID(ctx context.Context, id string) (*entity.Forum, error) {
	var f entity.Forum
	if err := r.db.GetContext(ctx, &f, `SELECT `+forumColumns+` FROM forums WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *ForumRepo) List(ctx context.Context, isCoi *bool, limit, offset int) ([]entity.Forum, error) {
	q := `SELECT ` + forumColumns + ` FROM forums`
	args := []any{}
	if isCoi != nil {
		q += ` WHERE is_coi = $1`
		args = append(args, *isCoi)
	}
	q += ` ORDER BY created_at DESC`
	q += sqlLimit(len(args), &args, limit, offset)
	forums := []entity.Forum{}
	if err := r.db.SelectContext(ctx, &forums, q, args...); err != nil {
		return nil, err
	}
	return forums, nil
}

func (r *ForumRepo) Joined(ctx context.Context, userID string, role *string, isCoi *bool, limit, offset int) ([]entity.JoinedItem, error) {
	q := `
		SELECT f.id, f.creator_id, f.name, f.description, f.avatar_url, f.cover_url,
		       f.is_coi, f.members_count, f.created_at, f.updated_at,
		       m.role, m.is_approved
		FROM forum_members m
		JOIN forums f ON f.id = m.forum_id
		WHERE m.user_id = $1 AND m.is_approved = TRUE`
	args := []any{userID}
	if role != nil {
		args = append(args, *role)
		q += ` AND m.role = $2`
	}
	if isCoi != nil {
		args = append(args, *isCoi)
		q += ` AND f.is_coi = $` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY m.joined_at DESC`
	q += sqlLimit(len(args), &args, limit, offset)
	items := []entity.JoinedItem{}
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ForumRepo) Membership(ctx context.Context, forumID, userID string) (*entity.Membership, error) {
	var m entity.Membership
	err := r.db.GetContext(ctx, &m, `
		SELECT id, forum_id, user_id, role, is_approved, approved_at, joined_at
		FROM forum_members WHERE forum_id = $1 AND user_id = $2`, forumID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateForum inserts the forum with members_count = 1 and the creator's
// approved core membership in one transaction.
func (r *ForumRepo) CreateForum(ctx context.Context, f entity.Forum, creatorMembershipID string) (*entity.Forum, error) {
	var out entity.Forum
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &out, `
			INSERT INTO forums (id, creator_id, name, description, avatar_url, cover_url, is_coi, members_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
			RETURNING `+forumColumns,
			f.ID, f.CreatorID, f.Name, f.Description, f.AvatarURL, f.CoverURL, f.IsCoi)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO forum_members (id, forum_id, user_id, role, is_approved, approved_at)
			VALUES ($1, $2, $3, 'core', TRUE, NOW())`,
			creatorMembershipID, f.ID, f.CreatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ForumRepo) UpdateForum(ctx context.Context, id string, name, description *string, isCoi *bool, avatarURL, coverURL *string) (*entity.Forum, error) {
	var f entity.Forum
	err := r.db.GetContext(ctx, &f, `
		UPDATE forums SET
		  name        = COALESCE($2, name),
		  description = COALESCE($3, description),
		  is_coi      = COALESCE($4, is_coi),
		  avatar_url  = COALESCE($5, avatar_url),
		  cover_url   = COALESCE($6, cover_url),
		  updated_at  = NOW()
		WHERE id = $1
		RETURNING `+forumColumns,
		id, name, description, isCoi, avatarURL, coverURL)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *ForumRepo) DeleteForum(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM forums WHERE id = $1`, id)
	return err
}

func (r *ForumRepo) InsertPendingMember(ctx context.Context, m entity.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forum_members (id, forum_id, user_id, role, is_approved)
		VALUES ($1, $2, $3, $4, FALSE)`,
		m.ID, m.ForumID, m.UserID, m.Role)
	return err
}

// ApproveMember flips the approval flag and moves members_count in one
// transaction.
func (r *ForumRepo) ApproveMember(ctx context.Context, forumID, userID string) (*entity.Membership, error) {
	var m entity.Membership
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &m, `
			UPDATE forum_members SET is_approved = TRUE, approved_at = NOW()
			WHERE forum_id = $1 AND user_id = $2 AND is_approved = FALSE
			RETURNING id, forum_id, user_id, role, is_approved, approved_at, joined_at`,
			forumID, userID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE forums SET members_count = members_count + 1 WHERE id = $1`, forumID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMember deletes the membership row; the counter only moves when the
// row was approved, clamped at zero.
func (r *ForumRepo) RemoveMember(ctx context.Context, forumID, userID string, wasApproved bool) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM forum_members WHERE forum_id = $1 AND user_id = $2`, forumID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 || !wasApproved {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE forums SET members_count = GREATEST(members_count - 1, 0) WHERE id = $1`, forumID)
		return err
	})
}

func sqlLimit(argc int, args *[]any, limit, offset int) string {
	*args = append(*args, limit, offset)
	return ` LIMIT $` + strconv.Itoa(argc+1) + ` OFFSET $` + strconv.Itoa(argc+2)
}
