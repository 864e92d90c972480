package forum

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/forum/entity"
	"github.com/wadahkita/service-forum-go/internal/storage"
)

type fakeAuthzStore struct {
	admins map[string]bool
	core   map[string]bool // forumID/userID
}

func (f *fakeAuthzStore) HasAdminRow(_ context.Context, userID string) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeAuthzStore) ForumRole(_ context.Context, forumID, userID string) (string, bool, error) {
	if f.core[forumID+"/"+userID] {
		return "core", true, nil
	}
	return "", false, nil
}

type fakeStore struct {
	forums      map[string]*entity.Forum
	memberships map[string]*entity.Membership // forumID/userID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		forums:      map[string]*entity.Forum{},
		memberships: map[string]*entity.Membership{},
	}
}

func (f *fakeStore) ForumByID(_ context.Context, id string) (*entity.Forum, error) {
	forum, ok := f.forums[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *forum
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, _ *bool, _, _ int) ([]entity.Forum, error) {
	return nil, nil
}

func (f *fakeStore) Joined(_ context.Context, _ string, _ *string, _ *bool, _, _ int) ([]entity.JoinedItem, error) {
	return nil, nil
}

func (f *fakeStore) Membership(_ context.Context, forumID, userID string) (*entity.Membership, error) {
	m, ok := f.memberships[forumID+"/"+userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) CreateForum(_ context.Context, forum entity.Forum, membershipID string) (*entity.Forum, error) {
	forum.MembersCount = 1
	forum.CreatedAt = time.Now()
	f.forums[forum.ID] = &forum
	now := time.Now()
	f.memberships[forum.ID+"/"+forum.CreatorID] = &entity.Membership{
		ID: membershipID, ForumID: forum.ID, UserID: forum.CreatorID,
		Role: "core", IsApproved: true, ApprovedAt: &now,
	}
	return &forum, nil
}

func (f *fakeStore) UpdateForum(_ context.Context, id string, name, description *string, isCoi *bool, avatarURL, coverURL *string) (*entity.Forum, error) {
	forum := f.forums[id]
	if name != nil {
		forum.Name = *name
	}
	if description != nil {
		forum.Description = *description
	}
	if isCoi != nil {
		forum.IsCoi = *isCoi
	}
	cp := *forum
	return &cp, nil
}

func (f *fakeStore) DeleteForum(_ context.Context, id string) error {
	delete(f.forums, id)
	return nil
}

func (f *fakeStore) InsertPendingMember(_ context.Context, m entity.Membership) error {
	f.memberships[m.ForumID+"/"+m.UserID] = &m
	return nil
}

func (f *fakeStore) ApproveMember(_ context.Context, forumID, userID string) (*entity.Membership, error) {
	m := f.memberships[forumID+"/"+userID]
	now := time.Now()
	m.IsApproved = true
	m.ApprovedAt = &now
	f.forums[forumID].MembersCount++
	cp := *m
	return &cp, nil
}

func (f *fakeStore) RemoveMember(_ context.Context, forumID, userID string, wasApproved bool) error {
	delete(f.memberships, forumID+"/"+userID)
	if wasApproved && f.forums[forumID].MembersCount > 0 {
		f.forums[forumID].MembersCount--
	}
	return nil
}

func newTestService(admins ...string) (*Service, *fakeStore, *fakeAuthzStore) {
	az := &fakeAuthzStore{admins: map[string]bool{}, core: map[string]bool{}}
	for _, a := range admins {
		az.admins[a] = true
	}
	store := newFakeStore()
	return NewService(store, authz.NewChecker(az)), store, az
}

func nopSession() *storage.Session {
	return storage.NewClient(storage.Config{}, zap.NewNop().Sugar()).Session("")
}

func TestCreateCoiRule(t *testing.T) {
	svc, store, _ := newTestService("admin")
	ctx := context.Background()

	// non-admin cannot create a non-COI (Bidang) forum
	_, err := svc.Create(ctx, "alice", CreateInput{Name: "Bidang A", IsCoi: false}, nopSession())
	assert.ErrorIs(t, err, ErrForbidden)

	// any user can create a COI forum, creator seated as core
	f, err := svc.Create(ctx, "alice", CreateInput{Name: "Hobby", IsCoi: true}, nopSession())
	require.NoError(t, err)
	assert.Equal(t, 1, f.MembersCount)
	m := store.memberships[f.ID+"/alice"]
	require.NotNil(t, m)
	assert.Equal(t, "core", m.Role)
	assert.True(t, m.IsApproved)

	// admins may create Bidang forums
	_, err = svc.Create(ctx, "admin", CreateInput{Name: "Bidang B", IsCoi: false}, nopSession())
	assert.NoError(t, err)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), "alice", CreateInput{Name: "  ", IsCoi: true}, nopSession())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestJoinStateMachine(t *testing.T) {
	svc, store, az := newTestService()
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", CreateInput{Name: "Hobby", IsCoi: true}, nopSession())
	require.NoError(t, err)
	az.core[f.ID+"/owner"] = true

	// unknown forum
	_, err = svc.Join(ctx, "missing", "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	// join files a pending row, counter untouched
	m, err := svc.Join(ctx, f.ID, "bob")
	require.NoError(t, err)
	assert.False(t, m.IsApproved)
	assert.Equal(t, 1, store.forums[f.ID].MembersCount)

	// repeat join while pending
	_, err = svc.Join(ctx, f.ID, "bob")
	assert.ErrorIs(t, err, ErrAlreadyRequested)

	// non-core cannot approve
	_, err = svc.Approve(ctx, f.ID, "stranger", "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	// approval flips the flag and bumps the counter
	approved, err := svc.Approve(ctx, f.ID, "owner", "bob")
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	assert.Equal(t, 2, store.forums[f.ID].MembersCount)

	// joining when already approved
	_, err = svc.Join(ctx, f.ID, "bob")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// approving twice
	_, err = svc.Approve(ctx, f.ID, "owner", "bob")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// approving a user who never asked
	_, err = svc.Approve(ctx, f.ID, "owner", "carol")
	assert.ErrorIs(t, err, ErrNoRequest)

	// leave decrements because the row was approved
	require.NoError(t, svc.Leave(ctx, f.ID, "bob"))
	assert.Equal(t, 1, store.forums[f.ID].MembersCount)

	// repeat leave
	assert.ErrorIs(t, svc.Leave(ctx, f.ID, "bob"), ErrNotMember)
}

func TestLeavePendingDoesNotTouchCounter(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", CreateInput{Name: "Hobby", IsCoi: true}, nopSession())
	require.NoError(t, err)

	_, err = svc.Join(ctx, f.ID, "bob")
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, f.ID, "bob"))
	assert.Equal(t, 1, store.forums[f.ID].MembersCount)
}

func TestUpdateAuthorization(t *testing.T) {
	svc, _, _ := newTestService("admin")
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", CreateInput{Name: "Hobby", IsCoi: true}, nopSession())
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.Update(ctx, f.ID, "stranger", UpdateInput{Name: &name}, nopSession())
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := svc.Update(ctx, f.ID, "owner", UpdateInput{Name: &name}, nopSession())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", out.Name)

	// owner cannot flip the COI flag, admins can
	flip := false
	_, err = svc.Update(ctx, f.ID, "owner", UpdateInput{IsCoi: &flip}, nopSession())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Update(ctx, f.ID, "admin", UpdateInput{IsCoi: &flip}, nopSession())
	assert.NoError(t, err)
}

func TestGetViewerState(t *testing.T) {
	svc, _, az := newTestService()
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", CreateInput{Name: "Hobby", IsCoi: true}, nopSession())
	require.NoError(t, err)
	az.core[f.ID+"/owner"] = true

	detail, err := svc.Get(ctx, f.ID, "owner")
	require.NoError(t, err)
	assert.True(t, detail.IsCoreMember)
	assert.True(t, detail.IsFollowing)

	_, err = svc.Join(ctx, f.ID, "bob")
	require.NoError(t, err)
	detail, err = svc.Get(ctx, f.ID, "bob")
	require.NoError(t, err)
	assert.False(t, detail.IsFollowing)
	assert.True(t, detail.IsPending)
}
