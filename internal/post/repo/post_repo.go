package repo

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/wadahkita/service-forum-go/internal/post"
	"github.com/wadahkita/service-forum-go/internal/post/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

const postColumns = `id, user_id, forum_id, original_post_id, type,
	likes_count, comments_count, shares_count, bookmarks_count,
	created_at, updated_at`

// PostRepo is the sqlx implementation of post.Store.
type PostRepo struct {
	db *database.DB
}

func NewPostRepo(db *database.DB) *PostRepo { return &PostRepo{db: db} }

func (r *PostRepo) PostByID(ctx context.Context, id string) (*entity.Post, error) {
	var p entity.Post
	if err := r.db.GetContext(ctx, &p, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) CreatePersonal(ctx context.Context, p entity.Post, content string) (*entity.Post, error) {
	var out entity.Post
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertPost(ctx, tx, &p, &out); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO posts_personal (post_id, content) VALUES ($1, $2)`, out.ID, content)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostRepo) CreateArticle(ctx context.Context, p entity.Post, a entity.Article) (*entity.Post, error) {
	var out entity.Post
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertPost(ctx, tx, &p, &out); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO posts_article (post_id, title, content) VALUES ($1, $2, $3)`,
			out.ID, a.Title, a.Content)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostRepo) CreatePolling(ctx context.Context, p entity.Post, poll entity.Polling, options []entity.Option) (*entity.Post, error) {
	var out entity.Post
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertPost(ctx, tx, &p, &out); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO posts_polling
			  (post_id, question, start_datetime, end_datetime, is_anonymous, allow_multiple_choices)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			out.ID, poll.Question, poll.StartDatetime, poll.EndDatetime,
			poll.IsAnonymous, poll.AllowMultipleChoices)
		if err != nil {
			return err
		}
		for _, opt := range options {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO polling_options (id, polling_post_id, text) VALUES ($1, $2, $3)`,
				opt.ID, out.ID, opt.Text)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func insertPost(ctx context.Context, tx *sqlx.Tx, p *entity.Post, out *entity.Post) error {
	return tx.GetContext(ctx, out, `
		INSERT INTO posts (id, user_id, forum_id, original_post_id, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+postColumns,
		p.ID, p.UserID, p.ForumID, p.OriginalPostID, p.Type)
}

// InsertMedia appends attachments behind the post's existing ones. created_at
// is transaction-stable in Postgres, so ordering rides on the position column.
func (r *PostRepo) InsertMedia(ctx context.Context, media []entity.Media) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, m := range media {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO post_media (id, post_id, url, type, size, position)
				VALUES ($1, $2, $3, $4, $5,
				  (SELECT COALESCE(MAX(position) + 1, 0) FROM post_media WHERE post_id = $2))`,
				m.ID, m.PostID, m.URL, m.Type, m.Size)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostRepo) MediaByPost(ctx context.Context, postID string) ([]entity.Media, error) {
	media := []entity.Media{}
	err := r.db.SelectContext(ctx, &media, `
		SELECT id, post_id, url, type, size FROM post_media
		WHERE post_id = $1 ORDER BY position ASC`, postID)
	return media, err
}

func (r *PostRepo) DeleteMediaByURLs(ctx context.Context, postID string, urls []string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM post_media WHERE post_id = $1 AND url = ANY($2)`,
		postID, pq.Array(urls))
	return err
}

// feedRow flattens the post, author, and viewer flags from one query.
type feedRow struct {
	entity.Post
	entity.Author
	entity.Flags
}

// The shared flags are scalar subqueries rather than joins: the same viewer
// may hold several derivatives of one post, and a join would fan the page out
// into duplicate rows.
const feedSelect = `
	SELECT p.id, p.user_id, p.forum_id, p.original_post_id, p.type,
	       p.likes_count, p.comments_count, p.shares_count, p.bookmarks_count,
	       p.created_at, p.updated_at,
	       u.id AS author_id, u.username AS author_username,
	       u.display_name AS author_display_name, u.avatar_url AS author_avatar_url,
	       u.is_verified AS author_is_verified,
	       EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1) AS has_liked,
	       EXISTS (SELECT 1 FROM post_bookmarks b WHERE b.post_id = p.id AND b.user_id = $1) AS has_bookmarked,
	       EXISTS (SELECT 1 FROM comments c WHERE c.post_id = p.id AND c.user_id = $1 AND c.is_deleted = FALSE) AS has_commented,
	       EXISTS (SELECT 1 FROM posts sp WHERE sp.original_post_id = p.id AND sp.user_id = $1) AS has_shared,
	       (SELECT sp.id FROM posts sp
	        WHERE sp.original_post_id = p.id AND sp.user_id = $1
	        ORDER BY sp.created_at DESC LIMIT 1) AS shared_post_id,
	       (SELECT CASE WHEN sh.quote IS NULL THEN 'repost' ELSE 'quote' END
	        FROM post_shares sh
	        WHERE sh.post_id = p.id AND sh.user_id = $1
	        ORDER BY sh.created_at DESC LIMIT 1) AS shared_type
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// Feed pages the feed and assembles full views, details batched per page.
func (r *PostRepo) Feed(ctx context.Context, viewerID string, f post.FeedFilter) ([]entity.View, error) {
	q := feedSelect
	args := []any{viewerID}
	conds := ""
	if f.Type != nil {
		args = append(args, *f.Type)
		conds += ` AND p.type = $` + strconv.Itoa(len(args))
	}
	if f.ForumID != nil {
		args = append(args, *f.ForumID)
		conds += ` AND p.forum_id = $` + strconv.Itoa(len(args))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		conds += ` AND p.user_id = $` + strconv.Itoa(len(args))
	}
	if f.LastCreatedAt != nil && f.LastID != nil {
		args = append(args, *f.LastCreatedAt, *f.LastID)
		conds += ` AND (p.created_at, p.id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}
	if conds != "" {
		q += ` WHERE ` + conds[len(` AND `):]
	}
	q += ` ORDER BY p.created_at DESC, p.id DESC`
	args = append(args, f.Limit)
	q += ` LIMIT $` + strconv.Itoa(len(args))
	if f.LastCreatedAt == nil && f.Offset > 0 {
		args = append(args, f.Offset)
		q += ` OFFSET $` + strconv.Itoa(len(args))
	}

	var rows []feedRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return r.assemble(ctx, viewerID, rows, true)
}

// View loads a single post as a full view, original included.
func (r *PostRepo) View(ctx context.Context, id, viewerID string) (*entity.View, error) {
	var row feedRow
	if err := r.db.GetContext(ctx, &row, feedSelect+` WHERE p.id = $2`, viewerID, id); err != nil {
		return nil, err
	}
	views, err := r.assemble(ctx, viewerID, []feedRow{row}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// assemble batches the variant payloads for a page of rows and resolves
// originals one level deep.
func (r *PostRepo) assemble(ctx context.Context, viewerID string, rows []feedRow, withOriginals bool) ([]entity.View, error) {
	views := make([]entity.View, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		views[i] = entity.View{Post: row.Post, Author: row.Author, Flags: row.Flags}
		ids[i] = row.Post.ID
	}
	if len(ids) == 0 {
		return views, nil
	}
	byID := make(map[string]*entity.View, len(views))
	for i := range views {
		byID[views[i].ID] = &views[i]
	}

	var personals []struct {
		PostID  string `db:"post_id"`
		Content string `db:"content"`
	}
	err := r.db.SelectContext(ctx, &personals,
		`SELECT post_id, content FROM posts_personal WHERE post_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, row := range personals {
		byID[row.PostID].Personal = &entity.Personal{Content: row.Content, Media: []entity.Media{}}
	}

	var media []entity.Media
	err = r.db.SelectContext(ctx, &media, `
		SELECT id, post_id, url, type, size FROM post_media
		WHERE post_id = ANY($1) ORDER BY position ASC`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, m := range media {
		if v := byID[m.PostID]; v != nil && v.Personal != nil {
			v.Personal.Media = append(v.Personal.Media, m)
		}
	}

	var articles []struct {
		PostID string `db:"post_id"`
		entity.Article
	}
	err = r.db.SelectContext(ctx, &articles,
		`SELECT post_id, title, content FROM posts_article WHERE post_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, row := range articles {
		a := row.Article
		byID[row.PostID].Article = &a
	}

	var polls []struct {
		PostID string `db:"post_id"`
		entity.Polling
	}
	err = r.db.SelectContext(ctx, &polls, `
		SELECT post_id, question, start_datetime, end_datetime, is_anonymous, allow_multiple_choices
		FROM posts_polling WHERE post_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	if len(polls) > 0 {
		pollIDs := make([]string, len(polls))
		for i, row := range polls {
			pollIDs[i] = row.PostID
		}
		var options []entity.Option
		err = r.db.SelectContext(ctx, &options, `
			SELECT id, polling_post_id, text, votes_count FROM polling_options
			WHERE polling_post_id = ANY($1) ORDER BY id ASC`, pq.Array(pollIDs))
		if err != nil {
			return nil, err
		}
		for _, row := range polls {
			p := row.Polling
			p.Options = []entity.Option{}
			byID[row.PostID].Polling = &p
		}
		for _, opt := range options {
			if v := byID[opt.PollingPostID]; v != nil && v.Polling != nil {
				v.Polling.Options = append(v.Polling.Options, opt)
			}
		}
	}

	if withOriginals {
		var originalIDs []string
		for i := range views {
			if views[i].OriginalPostID != nil {
				originalIDs = append(originalIDs, *views[i].OriginalPostID)
			}
		}
		if len(originalIDs) > 0 {
			var originals []feedRow
			err = r.db.SelectContext(ctx, &originals,
				feedSelect+` WHERE p.id = ANY($2)`, viewerID, pq.Array(originalIDs))
			if err != nil {
				return nil, err
			}
			originalViews, err := r.assemble(ctx, viewerID, originals, false)
			if err != nil {
				return nil, err
			}
			origByID := make(map[string]*entity.View, len(originalViews))
			for i := range originalViews {
				origByID[originalViews[i].ID] = &originalViews[i]
			}
			for i := range views {
				if views[i].OriginalPostID != nil {
					views[i].Original = origByID[*views[i].OriginalPostID]
				}
			}
		}
	}
	return views, nil
}

func (r *PostRepo) UpdatePersonal(ctx context.Context, postID, content string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE posts_personal SET content = $2 WHERE post_id = $1`, postID, content)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE posts SET updated_at = NOW() WHERE id = $1`, postID)
		return err
	})
}

func (r *PostRepo) UpdateArticle(ctx context.Context, postID, title, content string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE posts_article SET title = $2, content = $3 WHERE post_id = $1`,
			postID, title, content)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE posts SET updated_at = NOW() WHERE id = $1`, postID)
		return err
	})
}

// DeletePost runs the tag-specific cascade then removes the post row, one
// transaction.
func (r *PostRepo) DeletePost(ctx context.Context, p *entity.Post) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		switch p.Type {
		case entity.TypePersonal:
			if _, err := tx.ExecContext(ctx, `DELETE FROM post_media WHERE post_id = $1`, p.ID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM posts_personal WHERE post_id = $1`, p.ID); err != nil {
				return err
			}
		case entity.TypeArticle:
			if _, err := tx.ExecContext(ctx, `DELETE FROM posts_article WHERE post_id = $1`, p.ID); err != nil {
				return err
			}
		case entity.TypePolling:
			if _, err := tx.ExecContext(ctx, `DELETE FROM polling_votes WHERE polling_post_id = $1`, p.ID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM polling_options WHERE polling_post_id = $1`, p.ID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM posts_polling WHERE post_id = $1`, p.ID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, p.ID)
		return err
	})
}

func (r *PostRepo) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM post_likes WHERE user_id = $1 AND post_id = $2)`,
		userID, postID)
	return exists, err
}

func (r *PostRepo) InsertLike(ctx context.Context, id, userID, postID string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_likes (id, user_id, post_id) VALUES ($1, $2, $3)`, id, userID, postID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1`, postID)
		return err
	})
}

func (r *PostRepo) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	var deleted bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM post_likes WHERE user_id = $1 AND post_id = $2`, userID, postID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		deleted = true
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`, postID)
		return err
	})
	return deleted, err
}

func (r *PostRepo) HasBookmarked(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM post_bookmarks WHERE user_id = $1 AND post_id = $2)`,
		userID, postID)
	return exists, err
}

func (r *PostRepo) InsertBookmark(ctx context.Context, id, userID, postID string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_bookmarks (id, user_id, post_id) VALUES ($1, $2, $3)`, id, userID, postID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET bookmarks_count = bookmarks_count + 1 WHERE id = $1`, postID)
		return err
	})
}

func (r *PostRepo) DeleteBookmark(ctx context.Context, userID, postID string) (bool, error) {
	var deleted bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM post_bookmarks WHERE user_id = $1 AND post_id = $2`, userID, postID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		deleted = true
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET bookmarks_count = GREATEST(bookmarks_count - 1, 0) WHERE id = $1`, postID)
		return err
	})
	return deleted, err
}

// CreateShare inserts the derivative post, its personal row for quotes,
// the post_shares row, and the counter bump, one transaction.
func (r *PostRepo) CreateShare(ctx context.Context, derivative entity.Post, shareID string, quote *string) (*entity.Post, error) {
	var out entity.Post
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertPost(ctx, tx, &derivative, &out); err != nil {
			return err
		}
		if quote != nil {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO posts_personal (post_id, content) VALUES ($1, $2)`, out.ID, *quote)
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_shares (id, user_id, post_id, quote) VALUES ($1, $2, $3, $4)`,
			shareID, derivative.UserID, *derivative.OriginalPostID, quote)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET shares_count = shares_count + 1 WHERE id = $1`,
			*derivative.OriginalPostID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ShareByUser finds the caller's derivative of the original post.
func (r *PostRepo) ShareByUser(ctx context.Context, userID, originalPostID string) (*entity.Post, error) {
	var p entity.Post
	err := r.db.GetContext(ctx, &p, `
		SELECT `+postColumns+` FROM posts
		WHERE user_id = $1 AND original_post_id = $2
		ORDER BY created_at DESC LIMIT 1`, userID, originalPostID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) DeleteShare(ctx context.Context, derivative *entity.Post) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM posts_personal WHERE post_id = $1`, derivative.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM post_shares WHERE id = (
				SELECT id FROM post_shares
				WHERE user_id = $1 AND post_id = $2
				ORDER BY created_at DESC LIMIT 1
			)`, derivative.UserID, *derivative.OriginalPostID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM posts WHERE id = $1`, derivative.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE posts SET shares_count = GREATEST(shares_count - 1, 0) WHERE id = $1`,
			*derivative.OriginalPostID)
		return err
	})
}

func (r *PostRepo) PollingByPostID(ctx context.Context, postID string) (*entity.Polling, error) {
	var poll entity.Polling
	err := r.db.GetContext(ctx, &poll, `
		SELECT question, start_datetime, end_datetime, is_anonymous, allow_multiple_choices
		FROM posts_polling WHERE post_id = $1`, postID)
	if err != nil {
		return nil, err
	}
	poll.Options = []entity.Option{}
	err = r.db.SelectContext(ctx, &poll.Options, `
		SELECT id, polling_post_id, text, votes_count FROM polling_options
		WHERE polling_post_id = $1 ORDER BY id ASC`, postID)
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *PostRepo) UserVotedPoll(ctx context.Context, postID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM polling_votes WHERE polling_post_id = $1 AND user_id = $2)`,
		postID, userID)
	return exists, err
}

func (r *PostRepo) OptionsBelong(ctx context.Context, postID string, optionIDs []string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM polling_options
		WHERE polling_post_id = $1 AND id = ANY($2)`,
		postID, pq.Array(optionIDs))
	if err != nil {
		return false, err
	}
	return count == len(optionIDs), nil
}

func (r *PostRepo) UserVotedOptions(ctx context.Context, postID, userID string, optionIDs []string) ([]string, error) {
	voted := []string{}
	err := r.db.SelectContext(ctx, &voted, `
		SELECT option_id FROM polling_votes
		WHERE polling_post_id = $1 AND user_id = $2 AND option_id = ANY($3)`,
		postID, userID, pq.Array(optionIDs))
	return voted, err
}

// InsertVotes writes one row per option with the matching tallies, one
// transaction. userID nil marks an anonymous ballot.
func (r *PostRepo) InsertVotes(ctx context.Context, postID string, userID *string, optionIDs []string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, optionID := range optionIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO polling_votes (id, polling_post_id, user_id, option_id)
				VALUES ($1, $2, $3, $4)`,
				utilities.NewID(), postID, userID, optionID)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE polling_options SET votes_count = votes_count + 1 WHERE id = $1`, optionID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
