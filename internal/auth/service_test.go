package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps accounts and refresh sessions in maps.
type fakeStore struct {
	accounts map[string]Account // by email
	refresh  map[string]struct {
		userID    string
		expiresAt time.Time
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]Account{},
		refresh: map[string]struct {
			userID    string
			expiresAt time.Time
		}{},
	}
}

func (f *fakeStore) CreateAccount(_ context.Context, acct Account, profile Profile) (*Profile, error) {
	f.accounts[acct.Email] = acct
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt
	return &profile, nil
}

func (f *fakeStore) AccountByEmail(_ context.Context, email string) (*Account, error) {
	acct, ok := f.accounts[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &acct, nil
}

func (f *fakeStore) AccountByID(_ context.Context, userID string) (*Account, error) {
	for _, acct := range f.accounts {
		if acct.UserID == userID {
			return &acct, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) SaveRefresh(_ context.Context, token, userID string, expiresAt time.Time) error {
	f.refresh[token] = struct {
		userID    string
		expiresAt time.Time
	}{userID, expiresAt}
	return nil
}

func (f *fakeStore) GetRefresh(_ context.Context, token string) (string, time.Time, error) {
	s, ok := f.refresh[token]
	if !ok {
		return "", time.Time{}, sql.ErrNoRows
	}
	return s.userID, s.expiresAt, nil
}

func (f *fakeStore) DeleteRefresh(_ context.Context, token string) error {
	delete(f.refresh, token)
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, BcryptHasher{Cost: 4}, testTokenConfig())
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Register(context.Background(), "", "pw", "name", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(context.Background(), "a@b.test", "", "name", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	profile, err := svc.Register(context.Background(), "  A@B.Test ", "pw", "user", "User")
	require.NoError(t, err)
	assert.Equal(t, "a@b.test", profile.Email)
	_, ok := store.accounts["a@b.test"]
	assert.True(t, ok)
}

func TestLoginFlow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	_, err := svc.Register(context.Background(), "a@b.test", "pw", "user", "")
	require.NoError(t, err)

	pair, user, err := svc.Login(context.Background(), "a@b.test", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "a@b.test", user.Email)

	_, _, err = svc.Login(context.Background(), "a@b.test", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = svc.Login(context.Background(), "nobody@b.test", "pw")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRefreshRotates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	_, err := svc.Register(context.Background(), "a@b.test", "pw", "user", "")
	require.NoError(t, err)
	pair, _, err := svc.Login(context.Background(), "a@b.test", "pw")
	require.NoError(t, err)

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// the presented token was revoked
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshExpired(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	_, err := svc.Register(context.Background(), "a@b.test", "pw", "user", "")
	require.NoError(t, err)

	store.refresh["stale"] = struct {
		userID    string
		expiresAt time.Time
	}{store.accounts["a@b.test"].UserID, time.Now().Add(-time.Hour)}

	_, err = svc.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	_, ok := store.refresh["stale"]
	assert.False(t, ok, "expired session should be cleaned up")
}
