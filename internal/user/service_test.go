package user

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/authz"
	"github.com/wadahkita/service-forum-go/internal/storage"
	"github.com/wadahkita/service-forum-go/internal/user/entity"
)

type fakeAuthzStore struct {
	admins map[string]bool
}

func (f *fakeAuthzStore) HasAdminRow(_ context.Context, userID string) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeAuthzStore) ForumRole(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

type fakeStore struct {
	az            *fakeAuthzStore
	profiles      map[string]*entity.Profile
	follows       map[string]bool // followerID/followingID
	members       map[string]*entity.Member
	registrations map[string]*entity.Registration // keyed by registration id
}

func newFakeStore(az *fakeAuthzStore) *fakeStore {
	return &fakeStore{
		az:            az,
		profiles:      map[string]*entity.Profile{},
		follows:       map[string]bool{},
		members:       map[string]*entity.Member{},
		registrations: map[string]*entity.Registration{},
	}
}

func (f *fakeStore) addUser(id string) {
	f.profiles[id] = &entity.Profile{ID: id, Username: id}
}

func (f *fakeStore) ProfileByID(_ context.Context, id string) (*entity.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, _ string, _, _ int) ([]entity.ListItem, error) {
	return nil, nil
}

func (f *fakeStore) StatusMetrics(_ context.Context, _ string) (*entity.Metrics, error) {
	return &entity.Metrics{ByZone: map[string]int{}, ByStatus: map[string]int{}}, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id string, displayName, bio *string, isPrivate *bool, avatarURL, coverURL *string) (*entity.Profile, error) {
	p := f.profiles[id]
	if displayName != nil {
		p.DisplayName = *displayName
	}
	if bio != nil {
		p.Bio = *bio
	}
	if isPrivate != nil {
		p.IsPrivate = *isPrivate
	}
	if avatarURL != nil {
		p.AvatarURL = avatarURL
	}
	if coverURL != nil {
		p.CoverURL = coverURL
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	return f.follows[followerID+"/"+followingID], nil
}

func (f *fakeStore) FollowCounts(_ context.Context, userID string) (int, int, error) {
	var followers, following int
	for key := range f.follows {
		if strings.HasSuffix(key, "/"+userID) {
			followers++
		}
		if strings.HasPrefix(key, userID+"/") {
			following++
		}
	}
	return followers, following, nil
}

func (f *fakeStore) InsertFollow(_ context.Context, _, followerID, followingID string) error {
	f.follows[followerID+"/"+followingID] = true
	return nil
}

func (f *fakeStore) DeleteFollow(_ context.Context, followerID, followingID string) (bool, error) {
	if !f.follows[followerID+"/"+followingID] {
		return false, nil
	}
	delete(f.follows, followerID+"/"+followingID)
	return true, nil
}

func (f *fakeStore) Followers(_ context.Context, _, _ string, _, _ int) ([]FollowListItem, error) {
	return nil, nil
}

func (f *fakeStore) Following(_ context.Context, _, _ string, _, _ int) ([]FollowListItem, error) {
	return nil, nil
}

func (f *fakeStore) MemberByUserID(_ context.Context, userID string) (*entity.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) RegistrationByUserID(_ context.Context, userID string) (*entity.Registration, error) {
	for _, reg := range f.registrations {
		if reg.UserID == userID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RegistrationByID(_ context.Context, id string) (*entity.Registration, error) {
	reg, ok := f.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *reg
	return &cp, nil
}

func (f *fakeStore) InsertRegistration(_ context.Context, reg entity.Registration) (*entity.Registration, error) {
	f.registrations[reg.ID] = &reg
	cp := reg
	return &cp, nil
}

func (f *fakeStore) PromoteRegistration(_ context.Context, reg *entity.Registration) (*entity.Member, error) {
	f.registrations[reg.ID].Status = "active"
	m := &entity.Member{
		UserID:   reg.UserID,
		IDNumber: reg.IDNumber,
		Zone:     reg.Zone,
		Status:   "active",
	}
	f.members[reg.UserID] = m
	cp := *m
	return &cp, nil
}

func (f *fakeStore) SetAdmin(_ context.Context, userID string, admin bool) error {
	if admin {
		f.az.admins[userID] = true
	} else {
		delete(f.az.admins, userID)
	}
	return nil
}

func newTestService(admins ...string) (*Service, *fakeStore) {
	az := &fakeAuthzStore{admins: map[string]bool{}}
	for _, a := range admins {
		az.admins[a] = true
	}
	store := newFakeStore(az)
	return NewService(store, authz.NewChecker(az)), store
}

func nopSession() *storage.Session {
	return storage.NewClient(storage.Config{}, zap.NewNop().Sugar()).Session("")
}

func registration() RegistrationInput {
	return RegistrationInput{IDNumber: "A-100", Zone: "Jakarta"}
}

func TestFollowRules(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addUser("alice")
	store.addUser("bob")

	assert.ErrorIs(t, svc.Follow(ctx, "alice", "alice"), ErrSelfFollow)
	assert.ErrorIs(t, svc.Follow(ctx, "alice", "ghost"), ErrNotFound)

	require.NoError(t, svc.Follow(ctx, "alice", "bob"))
	assert.ErrorIs(t, svc.Follow(ctx, "alice", "bob"), ErrAlreadyFollowing)

	// the edge is asymmetric
	require.NoError(t, svc.Follow(ctx, "bob", "alice"))

	require.NoError(t, svc.Unfollow(ctx, "alice", "bob"))
	assert.ErrorIs(t, svc.Unfollow(ctx, "alice", "bob"), ErrNotFollowing)
}

func TestGetViewerRelative(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addUser("alice")
	store.addUser("bob")
	require.NoError(t, svc.Follow(ctx, "bob", "alice"))

	detail, err := svc.Get(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, detail.IsFollowing)
	assert.Equal(t, 1, detail.FollowersCount)

	detail, err = svc.Get(ctx, "alice", "alice")
	require.NoError(t, err)
	assert.False(t, detail.IsFollowing)

	_, err = svc.Get(ctx, "ghost", "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAuthorization(t *testing.T) {
	svc, store := newTestService("admin")
	ctx := context.Background()
	store.addUser("alice")

	name := "Alice A."
	_, err := svc.Update(ctx, "alice", "mallory", UpdateInput{DisplayName: &name}, nopSession())
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := svc.Update(ctx, "alice", "alice", UpdateInput{DisplayName: &name}, nopSession())
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", out.DisplayName)

	bio := "moderated"
	_, err = svc.Update(ctx, "alice", "admin", UpdateInput{Bio: &bio}, nopSession())
	assert.NoError(t, err)
}

func TestRegisterMemberOnce(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addUser("alice")

	_, err := svc.RegisterMember(ctx, "alice", RegistrationInput{}, nopSession())
	assert.ErrorIs(t, err, ErrValidation)

	reg, err := svc.RegisterMember(ctx, "alice", registration(), nopSession())
	require.NoError(t, err)
	assert.Equal(t, "pending", reg.Status)

	_, err = svc.RegisterMember(ctx, "alice", registration(), nopSession())
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestAcceptMemberOnce(t *testing.T) {
	svc, store := newTestService("admin")
	ctx := context.Background()
	store.addUser("alice")

	reg, err := svc.RegisterMember(ctx, "alice", registration(), nopSession())
	require.NoError(t, err)

	_, err = svc.AcceptMember(ctx, "notadmin", reg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AcceptMember(ctx, "admin", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	member, err := svc.AcceptMember(ctx, "admin", reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", member.UserID)
	assert.Equal(t, "active", store.registrations[reg.ID].Status)

	_, err = svc.AcceptMember(ctx, "admin", reg.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// members cannot file a new application either
	_, err = svc.RegisterMember(ctx, "alice", registration(), nopSession())
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestRegistrantAdminOnly(t *testing.T) {
	svc, store := newTestService("admin")
	ctx := context.Background()
	store.addUser("alice")
	reg, err := svc.RegisterMember(ctx, "alice", registration(), nopSession())
	require.NoError(t, err)

	_, err = svc.Registrant(ctx, "alice", reg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Registrant(ctx, "admin", reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)
}

func TestToggleAdmin(t *testing.T) {
	svc, store := newTestService("admin")
	ctx := context.Background()
	store.addUser("alice")

	_, err := svc.ToggleAdmin(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ToggleAdmin(ctx, "admin", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	granted, err := svc.ToggleAdmin(ctx, "admin", "alice")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = svc.ToggleAdmin(ctx, "admin", "alice")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestListStatusValidation(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.List(context.Background(), "everyone", 10, 0)
	assert.ErrorIs(t, err, ErrValidation)
}
