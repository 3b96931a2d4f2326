package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/configs"
	"blog-backend/internal/apperr"
	"blog-backend/internal/repository/inmemory"
	"blog-backend/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *configs.Config {
	return &configs.Config{
		AdminCanEditComments: true,
		OrphanPolicy:         configs.OrphanPolicyLeave,
	}
}

func newCommentEnv(t *testing.T, cfg *configs.Config) (*inmemory.Store, *CommentService, *ReconcileService) {
	t.Helper()
	store := inmemory.New()
	svc := NewCommentService(store.Posts(), store.Comments(), store.Users(), store, cfg, testLogger())
	rec := NewReconcileService(store.Posts(), store.Comments(), store.Users(), testLogger())
	return store, svc, rec
}

func seedUser(t *testing.T, store *inmemory.Store, username, role string) model.Caller {
	t.Helper()
	u := model.NewUser(username, username+"@example.com", "x")
	u.Role = role
	require.NoError(t, store.InsertUser(context.Background(), u))
	return u.Caller()
}

func seedPost(t *testing.T, store *inmemory.Store, author model.Caller) *model.Post {
	t.Helper()
	p := model.NewPost(author.ID, "A post about nothing "+author.Username, "some long enough content", nil, "", model.StatusPublished)
	require.NoError(t, store.Insert(context.Background(), p))
	return p
}

func TestCreateCommentIncrementsCount(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	const n = 4
	for i := 0; i < n; i++ {
		_, err := svc.Create(ctx, post.ID, author, "comment text", nil)
		require.NoError(t, err)
	}

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.CommentsCount)

	rows, err := store.CountCommentsByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), rows)
}

func TestCreateCommentValidation(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	_, err := svc.Create(ctx, post.ID, author, "   ", nil)
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	_, err = svc.Create(ctx, bson.NewObjectID(), author, "hello", nil)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	missing := bson.NewObjectID()
	_, err = svc.Create(ctx, post.ID, author, "hello", &missing)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCreateCommentRejectsParentFromOtherPost(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	postA := seedPost(t, store, author)
	postB := seedPost(t, store, seedUser(t, store, "bob", model.RoleUser))

	onB, err := svc.Create(ctx, postB.ID, author, "on post B", nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, postA.ID, author, "reply across posts", &onB.ID)
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestPreviewBoundedAndNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	var last *model.Comment
	for i := 0; i < model.PreviewLimit+2; i++ {
		c, err := svc.Create(ctx, post.ID, author, "comment", nil)
		require.NoError(t, err)
		last = c
		time.Sleep(time.Millisecond)
	}

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.CommentsPreview, model.PreviewLimit)
	assert.Equal(t, last.ID, got.CommentsPreview[0].CommentID)
	for i := 1; i < len(got.CommentsPreview); i++ {
		assert.False(t, got.CommentsPreview[i].CreatedAt.After(got.CommentsPreview[i-1].CreatedAt),
			"preview must be sorted newest first")
	}
}

func TestPreviewEntryCarriesAuthorAndPrefix(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	long := make([]byte, model.PreviewTextLen+50)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Create(ctx, post.ID, author, string(long), nil)
	require.NoError(t, err)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.CommentsPreview, 1)
	assert.Equal(t, "alice", got.CommentsPreview[0].AuthorName)
	assert.Len(t, got.CommentsPreview[0].TextPrefix, model.PreviewTextLen)
}

func TestDeleteCommentDecrementsAndPrunesPreview(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "to be removed", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID, author))

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CommentsCount)
	assert.Empty(t, got.CommentsPreview)
}

func TestDeleteCommentOutsidePreviewLeavesCache(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	first, err := svc.Create(ctx, post.ID, author, "oldest", nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	for i := 0; i < model.PreviewLimit; i++ {
		_, err := svc.Create(ctx, post.ID, author, "newer", nil)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	before, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, before.CommentsPreview, model.PreviewLimit)

	require.NoError(t, svc.Delete(ctx, first.ID, author))

	after, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, before.CommentsPreview, after.CommentsPreview)
	assert.Equal(t, int64(model.PreviewLimit), after.CommentsCount)
}

func TestDeleteAuthorizationMatrix(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	postOwner := seedUser(t, store, "owner", model.RoleUser)
	commenter := seedUser(t, store, "commenter", model.RoleUser)
	stranger := seedUser(t, store, "stranger", model.RoleUser)
	admin := seedUser(t, store, "root", model.RoleAdmin)
	post := seedPost(t, store, postOwner)

	c1, err := svc.Create(ctx, post.ID, commenter, "one", nil)
	require.NoError(t, err)
	c2, err := svc.Create(ctx, post.ID, commenter, "two", nil)
	require.NoError(t, err)
	c3, err := svc.Create(ctx, post.ID, commenter, "three", nil)
	require.NoError(t, err)

	err = svc.Delete(ctx, c1.ID, stranger)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	assert.NoError(t, svc.Delete(ctx, c1.ID, commenter))
	assert.NoError(t, svc.Delete(ctx, c2.ID, postOwner))
	assert.NoError(t, svc.Delete(ctx, c3.ID, admin))
}

func TestConcurrentDeleteSecondObservesNotFound(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	store.TxnSupported = false
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "contested", nil)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Delete(ctx, c.ID, author)
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.NotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CommentsCount)
}

func TestConcurrentCreatesOnFallbackPath(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	store.TxnSupported = false
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, post.ID, author, "concurrent", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.CommentsCount)
	assert.LessOrEqual(t, len(got.CommentsPreview), model.PreviewLimit)
}

func TestCountNeverNegative(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "only one", nil)
	require.NoError(t, err)

	// Simulate drift that already lost the increment.
	require.NoError(t, store.SetCommentsState(ctx, post.ID, 0, nil))

	require.NoError(t, svc.Delete(ctx, c.ID, author))

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CommentsCount)
}

func TestFallbackPartialFailureRepairedByReconcile(t *testing.T) {
	ctx := context.Background()
	store, svc, rec := newCommentEnv(t, testConfig())
	store.TxnSupported = false
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	store.FailNext(inmemory.OpPostInc, apperr.New(apperr.Unavailable, "post update dropped"))

	// The comment insert is durable; the dropped count update is accepted
	// drift, not an error.
	c, err := svc.Create(ctx, post.ID, author, "orphaned increment", nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	stale, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stale.CommentsCount)

	count, err := rec.Reconcile(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	repaired, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repaired.CommentsCount)
	require.Len(t, repaired.CommentsPreview, 1)
	assert.Equal(t, c.ID, repaired.CommentsPreview[0].CommentID)
}

func TestTxnFailureFallsBackTransparently(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	store.TxnSupported = false

	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "created without transactions", nil)
	require.NoError(t, err)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CommentsCount)
	require.Len(t, got.CommentsPreview, 1)
	assert.Equal(t, c.ID, got.CommentsPreview[0].CommentID)
}

func TestUpdateCommentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "before", nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	updated, err := svc.Update(ctx, c.ID, author, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Text)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))

	reread, err := store.FindCommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", reread.Text)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.CommentsPreview, 1)
	assert.Equal(t, "after", got.CommentsPreview[0].TextPrefix)
}

func TestUpdateCommentAuthorization(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store, svc, _ := newCommentEnv(t, cfg)
	author := seedUser(t, store, "alice", model.RoleUser)
	other := seedUser(t, store, "bob", model.RoleUser)
	admin := seedUser(t, store, "root", model.RoleAdmin)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "mine", nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.ID, other, "hijack")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = svc.Update(ctx, c.ID, admin, "admin edit")
	assert.NoError(t, err)
}

func TestUpdateCommentAdminToggleOff(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.AdminCanEditComments = false
	store, svc, _ := newCommentEnv(t, cfg)
	author := seedUser(t, store, "alice", model.RoleUser)
	admin := seedUser(t, store, "root", model.RoleAdmin)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "mine", nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.ID, admin, "admin edit")
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestUpdateCommentPreviewFailureNonFatal(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c, err := svc.Create(ctx, post.ID, author, "before", nil)
	require.NoError(t, err)

	store.FailNext(inmemory.OpPostSetPreview, apperr.New(apperr.Unavailable, "cache down"))
	updated, err := svc.Update(ctx, c.ID, author, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Text)
}

func TestDeleteParentLeavesDanglingReply(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c1, err := svc.Create(ctx, post.ID, author, "parent", nil)
	require.NoError(t, err)
	c2, err := svc.Create(ctx, post.ID, author, "reply", &c1.ID)
	require.NoError(t, err)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CommentsCount)

	require.NoError(t, svc.Delete(ctx, c1.ID, author))

	got, err = store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CommentsCount)

	reply, err := store.FindCommentByID(ctx, c2.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, c1.ID, *reply.ParentID)
}

func TestDeleteParentDetachPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.OrphanPolicy = configs.OrphanPolicyDetach
	store, svc, _ := newCommentEnv(t, cfg)
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	c1, err := svc.Create(ctx, post.ID, author, "parent", nil)
	require.NoError(t, err)
	c2, err := svc.Create(ctx, post.ID, author, "reply", &c1.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c1.ID, author))

	reply, err := store.FindCommentByID(ctx, c2.ID)
	require.NoError(t, err)
	assert.Nil(t, reply.ParentID)
}

func TestReconcileMissingPost(t *testing.T) {
	ctx := context.Background()
	_, _, rec := newCommentEnv(t, testConfig())

	_, err := rec.Reconcile(ctx, bson.NewObjectID())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestListCommentsResolvesAuthors(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, author)

	_, err := svc.Create(ctx, post.ID, author, "hello", nil)
	require.NoError(t, err)

	comments, total, err := svc.List(ctx, post.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, comments, 1)
	assert.Equal(t, "alice", comments[0].AuthorName)
}
