package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/wadahkita/service-forum-go/pkg/database"
	"github.com/wadahkita/service-forum-go/pkg/utilities"
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrEmailTaken     = errors.New("email or username already registered")
	ErrInvalidRefresh = errors.New("invalid refresh token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrValidation     = errors.New("missing required field")
)

// Account is a credential row in auth_accounts plus the verification flag
// from the profile it belongs to.
type Account struct {
	UserID       string `db:"user_id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	PasswordAlgo string `db:"password_algo"`
	IsVerified   bool   `db:"is_verified"`
}

// Profile is the users-table projection echoed by register.
type Profile struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"displayName"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Store is the persistence surface the service needs.
type Store interface {
	CreateAccount(ctx context.Context, acct Account, profile Profile) (*Profile, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, userID string) (*Account, error)
	SaveRefresh(ctx context.Context, token, userID string, expiresAt time.Time) error
	GetRefresh(ctx context.Context, token string) (userID string, expiresAt time.Time, err error)
	DeleteRefresh(ctx context.Context, token string) error
}

// Service owns registration and the token lifecycle.
type Service struct {
	store  Store
	hasher PasswordHasher
	tokens TokenConfig
}

func NewService(store Store, hasher PasswordHasher, tokens TokenConfig) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{store: store, hasher: hasher, tokens: tokens}
}

// Register creates the credential row and the profile row as one unit.
func (s *Service) Register(ctx context.Context, email, password, username, displayName string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || password == "" || username == "" {
		return nil, ErrValidation
	}
	hash, algo, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	id := utilities.NewID()
	profile, err := s.store.CreateAccount(ctx,
		Account{UserID: id, Email: email, PasswordHash: hash, PasswordAlgo: algo},
		Profile{ID: id, Email: email, Username: username, DisplayName: displayName},
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return profile, nil
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionUser is the minimal user view returned alongside the tokens.
type SessionUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// Login authenticates a password and issues a token pair. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *SessionUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, ErrBadCredentials
	}
	acct, err := s.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrBadCredentials
		}
		return nil, nil, err
	}
	if !s.hasher.Verify(acct.PasswordHash, password) {
		return nil, nil, ErrBadCredentials
	}
	pair, err := s.issuePair(ctx, acct.UserID, acct.Email)
	if err != nil {
		return nil, nil, err
	}
	return pair, &SessionUser{ID: acct.UserID, Email: acct.Email, IsVerified: acct.IsVerified}, nil
}

// Refresh rotates a refresh session: the presented token is revoked and a
// fresh pair issued. Unknown or expired tokens fail uniformly.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}
	userID, expiresAt, err := s.store.GetRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if expiresAt.Before(time.Now()) {
		_ = s.store.DeleteRefresh(ctx, refreshToken)
		return nil, ErrInvalidRefresh
	}
	acct, err := s.store.AccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	// revoke before issuing so a failed rotation never leaves two live tokens
	if err := s.store.DeleteRefresh(ctx, refreshToken); err != nil {
		return nil, ErrInvalidRefresh
	}
	return s.issuePair(ctx, acct.UserID, acct.Email)
}

func (s *Service) issuePair(ctx context.Context, userID, email string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(userID, email)
	if err != nil {
		return nil, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveRefresh(ctx, refresh, userID, time.Now().Add(s.tokens.RefreshTTL)); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
