package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	admins map[string]bool
	roles  map[string]struct {
		role     string
		approved bool
	}
}

func (f *fakeStore) HasAdminRow(_ context.Context, userID string) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeStore) ForumRole(_ context.Context, forumID, userID string) (string, bool, error) {
	m, ok := f.roles[forumID+"/"+userID]
	if !ok {
		return "", false, nil
	}
	return m.role, m.approved, nil
}

func newChecker() (*Checker, *fakeStore) {
	store := &fakeStore{
		admins: map[string]bool{},
		roles: map[string]struct {
			role     string
			approved bool
		}{},
	}
	return NewChecker(store), store
}

func TestIsAdmin(t *testing.T) {
	c, store := newChecker()
	store.admins["alice"] = true

	ok, err := c.IsAdmin(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsAdmin(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsForumCore(t *testing.T) {
	c, store := newChecker()
	store.roles["f1/alice"] = struct {
		role     string
		approved bool
	}{"core", true}
	store.roles["f1/bob"] = struct {
		role     string
		approved bool
	}{"member", true}
	store.roles["f1/carol"] = struct {
		role     string
		approved bool
	}{"core", false}

	ok, err := c.IsForumCore(context.Background(), "f1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.IsForumCore(context.Background(), "f1", "bob")
	assert.False(t, ok, "approved plain member is not core")

	ok, _ = c.IsForumCore(context.Background(), "f1", "carol")
	assert.False(t, ok, "unapproved core row does not count")

	ok, _ = c.IsForumCore(context.Background(), "f1", "dave")
	assert.False(t, ok)
}

func TestIsOwnerOrAdmin(t *testing.T) {
	c, store := newChecker()
	store.admins["admin"] = true

	assert.True(t, c.IsOwner("u1", "u1"))
	assert.False(t, c.IsOwner("u1", "u2"))
	assert.False(t, c.IsOwner("", ""))

	ok, err := c.IsOwnerOrAdmin(context.Background(), "u1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.IsOwnerOrAdmin(context.Background(), "u1", "admin")
	assert.True(t, ok)

	ok, _ = c.IsOwnerOrAdmin(context.Background(), "u1", "u2")
	assert.False(t, ok)
}
