package comment

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/comment/entity"
)

type fakeAuthzStore struct{}

func (fakeAuthzStore) HasAdminRow(context.Context, string) (bool, error) { return false, nil }
func (fakeAuthzStore) ForumRole(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

type fakeStore struct {
	posts     map[string]bool
	comments  map[string]*entity.Comment
	likes     map[string]bool // userID/commentID
	bookmarks map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:     map[string]bool{},
		comments:  map[string]*entity.Comment{},
		likes:     map[string]bool{},
		bookmarks: map[string]bool{},
	}
}

func (f *fakeStore) PostExists(_ context.Context, postID string) (bool, error) {
	return f.posts[postID], nil
}

func (f *fakeStore) CommentByID(_ context.Context, id string) (*entity.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateComment(_ context.Context, c entity.Comment) (*entity.Comment, error) {
	f.comments[c.ID] = &c
	if c.ParentCommentID != nil {
		f.comments[*c.ParentCommentID].RepliesCount++
	}
	cp := c
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, _ string, _ *string, _ string, _, _ int) ([]entity.View, error) {
	return nil, nil
}

func (f *fakeStore) SoftDelete(_ context.Context, c *entity.Comment) error {
	f.comments[c.ID].IsDeleted = true
	return nil
}

func (f *fakeStore) HasLiked(_ context.Context, userID, commentID string) (bool, error) {
	return f.likes[userID+"/"+commentID], nil
}

func (f *fakeStore) InsertLike(_ context.Context, _, userID, commentID string) error {
	f.likes[userID+"/"+commentID] = true
	f.comments[commentID].LikesCount++
	return nil
}

func (f *fakeStore) DeleteLike(_ context.Context, userID, commentID string) (bool, error) {
	if !f.likes[userID+"/"+commentID] {
		return false, nil
	}
	delete(f.likes, userID+"/"+commentID)
	f.comments[commentID].LikesCount--
	return true, nil
}

func (f *fakeStore) HasBookmarked(_ context.Context, userID, commentID string) (bool, error) {
	return f.bookmarks[userID+"/"+commentID], nil
}

func (f *fakeStore) InsertBookmark(_ context.Context, _, userID, commentID string) error {
	f.bookmarks[userID+"/"+commentID] = true
	return nil
}

func (f *fakeStore) DeleteBookmark(_ context.Context, userID, commentID string) (bool, error) {
	if !f.bookmarks[userID+"/"+commentID] {
		return false, nil
	}
	delete(f.bookmarks, userID+"/"+commentID)
	return true, nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	store.posts["p1"] = true
	return NewService(store, authz.NewChecker(fakeAuthzStore{})), store
}

func TestCreate(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "p1", nil, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "u1", "missing", nil, "hello")
	assert.ErrorIs(t, err, ErrPostNotFound)

	c, err := svc.Create(ctx, "u1", "p1", nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, "p1", c.PostID)
	assert.Nil(t, c.ParentCommentID)

	reply, err := svc.Create(ctx, "u2", "p1", &c.ID, "hi back")
	require.NoError(t, err)
	assert.Equal(t, c.ID, *reply.ParentCommentID)
	assert.Equal(t, 1, store.comments[c.ID].RepliesCount)
}

func TestCreateReplyValidation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.posts["p2"] = true

	parent, err := svc.Create(ctx, "u1", "p1", nil, "hello")
	require.NoError(t, err)

	missing := "missing"
	_, err = svc.Create(ctx, "u2", "p1", &missing, "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	// parent belongs to another post
	_, err = svc.Create(ctx, "u2", "p2", &parent.ID, "hi")
	assert.ErrorIs(t, err, ErrValidation)

	// deleted parent takes no replies
	require.NoError(t, svc.Delete(ctx, parent.ID, "u1"))
	_, err = svc.Create(ctx, "u2", "p1", &parent.ID, "hi")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDelete(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "u1", "p1", nil, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "missing", "u1"), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, c.ID, "u2"), ErrForbidden)

	require.NoError(t, svc.Delete(ctx, c.ID, "u1"))
	assert.True(t, store.comments[c.ID].IsDeleted)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID, "u1"), ErrDeleted)
}

func TestLikeRules(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "author", "p1", nil, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Like(ctx, "u2", "missing"), ErrNotFound)
	assert.ErrorIs(t, svc.Like(ctx, "author", c.ID), ErrOwnComment)

	require.NoError(t, svc.Like(ctx, "u2", c.ID))
	assert.Equal(t, 1, store.comments[c.ID].LikesCount)
	assert.ErrorIs(t, svc.Like(ctx, "u2", c.ID), ErrAlreadyLiked)

	require.NoError(t, svc.Unlike(ctx, "u2", c.ID))
	assert.Equal(t, 0, store.comments[c.ID].LikesCount)
	assert.ErrorIs(t, svc.Unlike(ctx, "u2", c.ID), ErrNotLiked)

	// deleted comments take no new likes
	require.NoError(t, svc.Delete(ctx, c.ID, "author"))
	assert.ErrorIs(t, svc.Like(ctx, "u2", c.ID), ErrDeleted)
}

func TestBookmarkRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "author", "p1", nil, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Bookmark(ctx, "author", c.ID), ErrOwnComment)

	require.NoError(t, svc.Bookmark(ctx, "u2", c.ID))
	assert.ErrorIs(t, svc.Bookmark(ctx, "u2", c.ID), ErrAlreadyBookmarked)

	require.NoError(t, svc.Unbookmark(ctx, "u2", c.ID))
	assert.ErrorIs(t, svc.Unbookmark(ctx, "u2", c.ID), ErrNotBookmarked)
}

func TestListRequiresPost(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.List(context.Background(), "missing", nil, "u1", 10, 0)
	assert.ErrorIs(t, err, ErrPostNotFound)
}
