package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wadahkita/service-forum-go/internal/auth"
	"github.com/wadahkita/service-forum-go/pkg/database"
)

// AuthRepo persists credentials, profiles created at signup, and refresh
// sessions.
type AuthRepo struct {
	db *database.DB
}

func NewAuthRepo(db *database.DB) *AuthRepo { return &AuthRepo{db: db} }

// CreateAccount inserts the profile row, its users_normal marker, and the
// credential row in one transaction so a half-registered user can never
// exist.
func (r *AuthRepo) CreateAccount(ctx context.Context, acct auth.Account, profile auth.Profile) (*auth.Profile, error) {
	var out auth.Profile
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		const insertUser = `
			INSERT INTO users (id, email, username, display_name)
			VALUES ($1, $2, $3, $4)
			RETURNING id, email, username, display_name, created_at, updated_at`
		if err := tx.GetContext(ctx, &out, insertUser,
			profile.ID, profile.Email, profile.Username, profile.DisplayName); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users_normal (user_id) VALUES ($1)`, out.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO auth_accounts (user_id, email, password_hash, password_algo)
			 VALUES ($1, $2, $3, $4)`,
			acct.UserID, acct.Email, acct.PasswordHash, acct.PasswordAlgo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AuthRepo) AccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	const q = `
		SELECT a.user_id, a.email, a.password_hash, a.password_algo, u.is_verified
		FROM auth_accounts a
		JOIN users u ON u.id = a.user_id
		WHERE a.email = $1`
	var acct auth.Account
	if err := r.db.GetContext(ctx, &acct, q, email); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *AuthRepo) AccountByID(ctx context.Context, userID string) (*auth.Account, error) {
	const q = `
		SELECT a.user_id, a.email, a.password_hash, a.password_algo, u.is_verified
		FROM auth_accounts a
		JOIN users u ON u.id = a.user_id
		WHERE a.user_id = $1`
	var acct auth.Account
	if err := r.db.GetContext(ctx, &acct, q, userID); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *AuthRepo) SaveRefresh(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_refresh_sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt)
	return err
}

func (r *AuthRepo) GetRefresh(ctx context.Context, token string) (string, time.Time, error) {
	var row struct {
		UserID    string    `db:"user_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT user_id, expires_at FROM auth_refresh_sessions WHERE token = $1`, token)
	if err != nil {
		return "", time.Time{}, err
	}
	return row.UserID, row.ExpiresAt, nil
}

func (r *AuthRepo) DeleteRefresh(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_refresh_sessions WHERE token = $1`, token)
	return err
}
