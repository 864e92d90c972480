package repo

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/wadahkita/service-forum-go/internal/comment/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
)

const commentColumns = `id, user_id, post_id, parent_comment_id, content,
	is_deleted, likes_count, bookmarks_count, replies_count, created_at, updated_at`

// CommentRepo is the sqlx implementation of comment.Store.
type CommentRepo struct {
	db *database.DB
}

func NewCommentRepo(db *database.DB) *CommentRepo { return &CommentRepo{db: db} }

func (r *CommentRepo) PostExists(ctx context.Context, postID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID)
	return exists, err
}

func (r *CommentRepo) CommentByID(ctx context.Context, id string) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.db.GetContext(ctx, &c, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment inserts the row and bumps the post comment counter, plus
// the parent reply counter for replies, one transaction.
func (r *CommentRepo) CreateComment(ctx context.Context, c entity.Comment) (*entity.Comment, error) {
	var out entity.Comment
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &out, `
			INSERT INTO comments (id, user_id, post_id, parent_comment_id, content)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+commentColumns,
			c.ID, c.UserID, c.PostID, c.ParentCommentID, c.Content)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, c.PostID)
		if err != nil {
			return err
		}
		if c.ParentCommentID != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE comments SET replies_count = replies_count + 1 WHERE id = $1`,
				*c.ParentCommentID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// listRow flattens the comment, author, and viewer flags from one query.
// entity.View keeps Author as a named field, so it cannot be the scan target.
type listRow struct {
	entity.Comment
	entity.Author
	HasLiked      bool `db:"has_liked"`
	HasBookmarked bool `db:"has_bookmarked"`
}

const listSelect = `
	SELECT c.id, c.user_id, c.post_id, c.parent_comment_id, c.content,
	       c.is_deleted, c.likes_count, c.bookmarks_count, c.replies_count,
	       c.created_at, c.updated_at,
	       u.id AS author_id, u.username AS author_username,
	       u.display_name AS author_display_name, u.avatar_url AS author_avatar_url,
	       u.is_verified AS author_is_verified,
	       EXISTS (SELECT 1 FROM comment_likes l WHERE l.comment_id = c.id AND l.user_id = $2) AS has_liked,
	       EXISTS (SELECT 1 FROM comment_bookmarks b WHERE b.comment_id = c.id AND b.user_id = $2) AS has_bookmarked
	FROM comments c
	JOIN users u ON u.id = c.user_id
	WHERE c.post_id = $1`

func (r *CommentRepo) List(ctx context.Context, postID string, parentCommentID *string, viewerID string, limit, offset int) ([]entity.View, error) {
	q := listSelect
	args := []any{postID, viewerID}
	if parentCommentID != nil {
		q += ` AND c.parent_comment_id = $3`
		args = append(args, *parentCommentID)
	} else {
		q += ` AND c.parent_comment_id IS NULL`
	}
	q += ` ORDER BY c.created_at ASC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)
	var rows []listRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	views := make([]entity.View, len(rows))
	for i, row := range rows {
		views[i] = entity.View{
			Comment:       row.Comment,
			Author:        row.Author,
			HasLiked:      row.HasLiked,
			HasBookmarked: row.HasBookmarked,
		}
	}
	return views, nil
}

// SoftDelete flags the row and recomputes the post counter from live rows,
// one transaction.
func (r *CommentRepo) SoftDelete(ctx context.Context, c *entity.Comment) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE comments SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`, c.ID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE posts SET comments_count = (
				SELECT COUNT(*) FROM comments
				WHERE post_id = $1 AND is_deleted = FALSE
			) WHERE id = $1`, c.PostID)
		return err
	})
}

func (r *CommentRepo) HasLiked(ctx context.Context, userID, commentID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM comment_likes WHERE user_id = $1 AND comment_id = $2)`,
		userID, commentID)
	return exists, err
}

func (r *CommentRepo) InsertLike(ctx context.Context, id, userID, commentID string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comment_likes (id, user_id, comment_id) VALUES ($1, $2, $3)`,
			id, userID, commentID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET likes_count = likes_count + 1 WHERE id = $1`, commentID)
		return err
	})
}

func (r *CommentRepo) DeleteLike(ctx context.Context, userID, commentID string) (bool, error) {
	var deleted bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM comment_likes WHERE user_id = $1 AND comment_id = $2`, userID, commentID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		deleted = true
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`, commentID)
		return err
	})
	return deleted, err
}

func (r *CommentRepo) HasBookmarked(ctx context.Context, userID, commentID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM comment_bookmarks WHERE user_id = $1 AND comment_id = $2)`,
		userID, commentID)
	return exists, err
}

func (r *CommentRepo) InsertBookmark(ctx context.Context, id, userID, commentID string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comment_bookmarks (id, user_id, comment_id) VALUES ($1, $2, $3)`,
			id, userID, commentID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET bookmarks_count = bookmarks_count + 1 WHERE id = $1`, commentID)
		return err
	})
}

func (r *CommentRepo) DeleteBookmark(ctx context.Context, userID, commentID string) (bool, error) {
	var deleted bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM comment_bookmarks WHERE user_id = $1 AND comment_id = $2`, userID, commentID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		deleted = true
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET bookmarks_count = GREATEST(bookmarks_count - 1, 0) WHERE id = $1`, commentID)
		return err
	})
	return deleted, err
}
