package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/wadahkita/service-forum-go/internal/user"
	"github.com/wadahkita/service-forum-go/internal/user/entity"
	"github.com/wadahkita/service-forum-go/pkg/database"
)

// UserRepo is the sqlx implementation of user.Store.
type UserRepo struct {
	db *database.DB
}

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) ProfileByID(ctx context.Context, id string) (*entity.Profile, error) {
	var p entity.Profile
	err := r.db.GetContext(ctx, &p, `
		SELECT id, email, username, display_name, bio, avatar_url, cover_url,
		       is_verified, is_private, created_at, updated_at
		FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *UserRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]entity.ListItem, error) {
	var q string
	switch status {
	case "member":
		q = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, u.is_verified,
			       m.zone, m.status
			FROM users u
			JOIN users_member m ON m.user_id = u.id
			ORDER BY u.created_at DESC
			LIMIT $1 OFFSET $2`
	default:
		q = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, u.is_verified,
			       reg.zone, reg.status
			FROM users u
			JOIN users_registration reg ON reg.user_id = u.id
			WHERE reg.status = 'pending'
			ORDER BY reg.created_at DESC
			LIMIT $1 OFFSET $2`
	}
	items := []entity.ListItem{}
	if err := r.db.SelectContext(ctx, &items, q, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *UserRepo) StatusMetrics(ctx context.Context, status string) (*entity.Metrics, error) {
	table := "users_registration"
	where := "WHERE status = 'pending'"
	if status == "member" {
		table = "users_member"
		where = ""
	}
	var rows []struct {
		Zone   string `db:"zone"`
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT zone, status, COUNT(*) AS count FROM `+table+` `+where+` GROUP BY zone, status`)
	if err != nil {
		return nil, err
	}
	m := &entity.Metrics{ByZone: map[string]int{}, ByStatus: map[string]int{}}
	for _, row := range rows {
		m.Total += row.Count
		m.ByZone[row.Zone] += row.Count
		m.ByStatus[row.Status] += row.Count
	}
	return m, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, displayName, bio *string, isPrivate *bool, avatarURL, coverURL *string) (*entity.Profile, error) {
	var p entity.Profile
	err := r.db.GetContext(ctx, &p, `
		UPDATE users SET
		  display_name = COALESCE($2, display_name),
		  bio          = COALESCE($3, bio),
		  is_private   = COALESCE($4, is_private),
		  avatar_url   = COALESCE($5, avatar_url),
		  cover_url    = COALESCE($6, cover_url),
		  updated_at   = NOW()
		WHERE id = $1
		RETURNING id, email, username, display_name, bio, avatar_url, cover_url,
		          is_verified, is_private, created_at, updated_at`,
		id, displayName, bio, isPrivate, avatarURL, coverURL)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *UserRepo) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM user_follows WHERE follower_id = $1 AND following_id = $2
		)`, followerID, followingID)
	return exists, err
}

func (r *UserRepo) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	var row struct {
		Followers int `db:"followers"`
		Following int `db:"following"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT
		  (SELECT COUNT(*) FROM user_follows WHERE following_id = $1) AS followers,
		  (SELECT COUNT(*) FROM user_follows WHERE follower_id = $1) AS following`,
		userID)
	return row.Followers, row.Following, err
}

func (r *UserRepo) InsertFollow(ctx context.Context, id, followerID, followingID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_follows (id, follower_id, following_id) VALUES ($1, $2, $3)`,
		id, followerID, followingID)
	return err
}

func (r *UserRepo) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *UserRepo) Followers(ctx context.Context, userID, viewerID string, limit, offset int) ([]user.FollowListItem, error) {
	const q = `
		SELECT u.id, u.username, u.display_name, u.avatar_url, u.is_verified,
		       EXISTS (
		         SELECT 1 FROM user_follows v
		         WHERE v.follower_id = $2 AND v.following_id = u.id
		       ) AS is_following
		FROM user_follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
		LIMIT $3 OFFSET $4`
	items := []user.FollowListItem{}
	if err := r.db.SelectContext(ctx, &items, q, userID, viewerID, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *UserRepo) Following(ctx context.Context, userID, viewerID string, limit, offset int) ([]user.FollowListItem, error) {
	const q = `
		SELECT u.id, u.username, u.display_name, u.avatar_url, u.is_verified,
		       EXISTS (
		         SELECT 1 FROM user_follows v
		         WHERE v.follower_id = $2 AND v.following_id = u.id
		       ) AS is_following
		FROM user_follows f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
		LIMIT $3 OFFSET $4`
	items := []user.FollowListItem{}
	if err := r.db.SelectContext(ctx, &items, q, userID, viewerID, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *UserRepo) MemberByUserID(ctx context.Context, userID string) (*entity.Member, error) {
	var m entity.Member
	err := r.db.GetContext(ctx, &m, `
		SELECT user_id, id_number, birth_place, birth_date, zone, latest_education,
		       address, nik, phone_number, referral, position, status
		FROM users_member WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *UserRepo) RegistrationByUserID(ctx context.Context, userID string) (*entity.Registration, error) {
	var reg entity.Registration
	err := r.db.GetContext(ctx, &reg, registrationColumns+` WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *UserRepo) RegistrationByID(ctx context.Context, id string) (*entity.Registration, error) {
	var reg entity.Registration
	if err := r.db.GetContext(ctx, &reg, registrationColumns+` WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

const registrationColumns = `
	SELECT id, user_id, id_number, birth_place, birth_date, zone, latest_education,
	       address, nik, phone_number, referral, status, created_at
	FROM users_registration`

func (r *UserRepo) InsertRegistration(ctx context.Context, reg entity.Registration) (*entity.Registration, error) {
	var out entity.Registration
	err := r.db.GetContext(ctx, &out, `
		INSERT INTO users_registration
		  (id, user_id, id_number, birth_place, birth_date, zone, latest_education,
		   address, nik, phone_number, referral, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, user_id, id_number, birth_place, birth_date, zone,
		          latest_education, address, nik, phone_number, referral, status,
		          created_at`,
		reg.ID, reg.UserID, reg.IDNumber, reg.BirthPlace, reg.BirthDate, reg.Zone,
		reg.LatestEducation, reg.Address, reg.NIK, reg.PhoneNumber, reg.Referral,
		reg.Status)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PromoteRegistration copies the application into users_member and marks it
// active, as one transaction. The users_member primary key makes a second
// promotion fail.
func (r *UserRepo) PromoteRegistration(ctx context.Context, reg *entity.Registration) (*entity.Member, error) {
	var member entity.Member
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &member, `
			INSERT INTO users_member
			  (user_id, id_number, birth_place, birth_date, zone, latest_education,
			   address, nik, phone_number, referral, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active')
			RETURNING user_id, id_number, birth_place, birth_date, zone,
			          latest_education, address, nik, phone_number, referral,
			          position, status`,
			reg.UserID, reg.IDNumber, reg.BirthPlace, reg.BirthDate, reg.Zone,
			reg.LatestEducation, reg.Address, reg.NIK, reg.PhoneNumber, reg.Referral)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users_registration SET status = 'active', updated_at = NOW() WHERE id = $1`,
			reg.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *UserRepo) SetAdmin(ctx context.Context, userID string, admin bool) error {
	if admin {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users_admin (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
			userID)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM users_admin WHERE user_id = $1`, userID)
	return err
}
