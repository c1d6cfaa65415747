package service

import (
	"context"
	"sort"
	"testing"
	"time"

	dom "github.com/gwa2100/dndnotus/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNoteRepo struct {
	notes     map[int64]dom.Note
	users     *fakeUserRepo
	nextID    int64
	now       time.Time
	listCalls int
}

func newFakeNoteRepo(users *fakeUserRepo) *fakeNoteRepo {
	return &fakeNoteRepo{
		notes:  map[int64]dom.Note{},
		users:  users,
		nextID: 1,
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick advances the clock so successive notes get distinct timestamps.
func (r *fakeNoteRepo) tick() time.Time {
	r.now = r.now.Add(time.Minute)
	return r.now
}

func (r *fakeNoteRepo) Create(_ context.Context, userID int64, content string) (dom.Note, error) {
	n := dom.Note{ID: r.nextID, Content: content, UserID: userID, DatePosted: r.tick()}
	r.notes[n.ID] = n
	r.nextID++
	return n, nil
}

func (r *fakeNoteRepo) CreateBroadcast(_ context.Context, content string) (int64, error) {
	users, _ := r.users.List(context.Background())
	at := r.tick()
	for _, u := range users {
		n := dom.Note{ID: r.nextID, Content: content, UserID: u.ID, DatePosted: at, DMPost: true}
		r.notes[n.ID] = n
		r.nextID++
	}
	return int64(len(users)), nil
}

func (r *fakeNoteRepo) GetByID(_ context.Context, id int64) (dom.Note, error) {
	n, ok := r.notes[id]
	if !ok {
		return dom.Note{}, pgx.ErrNoRows
	}
	return n, nil
}

func (r *fakeNoteRepo) ListByUser(_ context.Context, userID int64) ([]dom.Note, error) {
	r.listCalls++
	var list []dom.Note
	for _, n := range r.notes {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].DatePosted.Equal(list[j].DatePosted) {
			return list[i].DatePosted.After(list[j].DatePosted)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *fakeNoteRepo) Delete(_ context.Context, id int64) error {
	delete(r.notes, id)
	return nil
}

type fakeNoteCache struct {
	lists map[int64][]dom.Note
}

func newFakeNoteCache() *fakeNoteCache {
	return &fakeNoteCache{lists: map[int64][]dom.Note{}}
}

func (c *fakeNoteCache) GetUserNotes(_ context.Context, userID int64) ([]dom.Note, error) {
	return c.lists[userID], nil
}

func (c *fakeNoteCache) SetUserNotes(_ context.Context, userID int64, list []dom.Note) error {
	if list == nil {
		list = []dom.Note{}
	}
	c.lists[userID] = list
	return nil
}

func (c *fakeNoteCache) InvalidateUser(_ context.Context, userID int64) error {
	delete(c.lists, userID)
	return nil
}

func (c *fakeNoteCache) InvalidateAll(_ context.Context) error {
	c.lists = map[int64][]dom.Note{}
	return nil
}

func setupNoteService(t *testing.T) (*NoteService, *fakeUserRepo, *fakeNoteRepo) {
	t.Helper()
	users := newFakeUserRepo()
	notes := newFakeNoteRepo(users)
	return NewNoteService(notes, users, nil), users, notes
}

func setupCachedNoteService(t *testing.T) (*NoteService, *fakeUserRepo, *fakeNoteRepo, *fakeNoteCache) {
	t.Helper()
	users := newFakeUserRepo()
	notes := newFakeNoteRepo(users)
	nc := newFakeNoteCache()
	return NewNoteService(notes, users, nc), users, notes, nc
}

func addUser(t *testing.T, users *fakeUserRepo, name string, permissions int) dom.User {
	t.Helper()
	u, err := users.Create(context.Background(), name, "x")
	require.NoError(t, err)
	require.NoError(t, users.SetPermissions(context.Background(), u.ID, permissions))
	u.Permissions = permissions
	return u
}

func TestCreateNote(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)

	n, err := svc.Create(ctx, alice.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", n.Content)
	assert.Equal(t, alice.ID, n.UserID)
	assert.False(t, n.DMPost)
}

func TestCreateNoteEmptyContent(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	alice := addUser(t, users, "alice", 1)

	_, err := svc.Create(context.Background(), alice.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestBroadcastRequiresDM(t *testing.T) {
	svc, users, notes := setupNoteService(t)
	alice := addUser(t, users, "alice", 1)

	_, err := svc.Broadcast(context.Background(), alice, "raid tonight")
	assert.ErrorIs(t, err, ErrNotDM)
	assert.Empty(t, notes.notes)
}

func TestBroadcastCreatesOneNotePerUser(t *testing.T) {
	svc, users, notes := setupNoteService(t)
	ctx := context.Background()
	dm := addUser(t, users, "dm_gwa", 5)
	addUser(t, users, "alice", 1)
	addUser(t, users, "bob", 1)

	count, err := svc.Broadcast(ctx, dm, "raid tonight")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	owners := map[int64]bool{}
	for _, n := range notes.notes {
		assert.Equal(t, "raid tonight", n.Content)
		assert.True(t, n.DMPost)
		assert.False(t, owners[n.UserID], "one note per user")
		owners[n.UserID] = true
	}
	assert.Len(t, owners, 3)
}

func TestListForUserNonDM(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)
	bob := addUser(t, users, "bob", 1)

	_, err := svc.Create(ctx, alice.ID, "first")
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice.ID, "second")
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob.ID, "bobs note")
	require.NoError(t, err)

	groups, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, alice.ID, groups[0].User.ID)
	require.Len(t, groups[0].Notes, 2)
	// Newest first.
	assert.Equal(t, "second", groups[0].Notes[0].Content)
	assert.Equal(t, "first", groups[0].Notes[1].Content)
}

func TestListForUserDMSeesEveryone(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	ctx := context.Background()
	dm := addUser(t, users, "dm_gwa", 5)
	alice := addUser(t, users, "alice", 1)

	_, err := svc.Create(ctx, alice.ID, "alices note")
	require.NoError(t, err)
	_, err = svc.Create(ctx, dm.ID, "dm prep")
	require.NoError(t, err)

	groups, err := svc.ListForUser(ctx, dm)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, dm.ID, groups[0].User.ID)
	assert.Equal(t, alice.ID, groups[1].User.ID)
	assert.Equal(t, "dm prep", groups[0].Notes[0].Content)
	assert.Equal(t, "alices note", groups[1].Notes[0].Content)
}

func TestDeleteNote(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)

	n, err := svc.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice.ID, n.ID))

	groups, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, groups[0].Notes)
}

func TestDeleteNoteNotFound(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	alice := addUser(t, users, "alice", 1)

	err := svc.Delete(context.Background(), alice.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNoteOfAnotherUser(t *testing.T) {
	svc, users, _ := setupNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)
	bob := addUser(t, users, "bob", 1)

	n, err := svc.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)

	err = svc.Delete(ctx, bob.ID, n.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListCacheMissThenHit(t *testing.T) {
	svc, users, notes, nc := setupCachedNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)

	_, err := svc.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)

	groups, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, groups[0].Notes, 1)
	assert.Equal(t, 1, notes.listCalls, "miss goes to the repo")
	assert.Contains(t, nc.lists, alice.ID, "result is cached")

	groups, err = svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, groups[0].Notes, 1)
	assert.Equal(t, "hello", groups[0].Notes[0].Content)
	assert.Equal(t, 1, notes.listCalls, "hit stays off the repo")
}

func TestListCacheEmptyListStillCaches(t *testing.T) {
	svc, users, notes, nc := setupCachedNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)

	groups, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, groups[0].Notes)
	require.Contains(t, nc.lists, alice.ID)
	assert.NotNil(t, nc.lists[alice.ID], "empty list cached as non-nil")

	_, err = svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, notes.listCalls, "empty result served from cache")
}

func TestCreateAndDeleteInvalidateCache(t *testing.T) {
	svc, users, _, nc := setupCachedNoteService(t)
	ctx := context.Background()
	alice := addUser(t, users, "alice", 1)

	_, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Contains(t, nc.lists, alice.ID)

	n, err := svc.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)
	assert.NotContains(t, nc.lists, alice.ID, "create drops the cached list")

	groups, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, groups[0].Notes, 1)

	require.NoError(t, svc.Delete(ctx, alice.ID, n.ID))
	assert.NotContains(t, nc.lists, alice.ID, "delete drops the cached list")

	groups, err = svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, groups[0].Notes, "deleted note gone from the listing")
}

func TestBroadcastInvalidatesEveryUsersCache(t *testing.T) {
	svc, users, _, nc := setupCachedNoteService(t)
	ctx := context.Background()
	dm := addUser(t, users, "dm_gwa", 5)
	alice := addUser(t, users, "alice", 1)

	// Warm both users' cached lists.
	_, err := svc.ListForUser(ctx, dm)
	require.NoError(t, err)
	require.Contains(t, nc.lists, dm.ID)
	require.Contains(t, nc.lists, alice.ID)

	_, err = svc.Broadcast(ctx, dm, "raid tonight")
	require.NoError(t, err)
	assert.Empty(t, nc.lists, "broadcast drops every cached list")

	groups, err := svc.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, groups[0].Notes, 1)
	assert.Equal(t, "raid tonight", groups[0].Notes[0].Content)
	assert.True(t, groups[0].Notes[0].DMPost)
}

func TestDeleteBroadcastNoteAlwaysForbidden(t *testing.T) {
	svc, users, notes := setupNoteService(t)
	ctx := context.Background()
	dm := addUser(t, users, "dm_gwa", 5)
	alice := addUser(t, users, "alice", 1)

	_, err := svc.Broadcast(ctx, dm, "raid tonight")
	require.NoError(t, err)

	// Neither the recipient nor the DM can delete a broadcast note.
	for _, n := range notes.notes {
		assert.ErrorIs(t, svc.Delete(ctx, alice.ID, n.ID), ErrForbidden)
		assert.ErrorIs(t, svc.Delete(ctx, dm.ID, n.ID), ErrForbidden)
	}
}
