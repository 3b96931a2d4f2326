package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-backend/model"
)

func TestSweepRepairsAllPosts(t *testing.T) {
	ctx := context.Background()
	store, svc, rec := newCommentEnv(t, testConfig())
	author := seedUser(t, store, "alice", model.RoleUser)
	postA := seedPost(t, store, author)
	postB := seedPost(t, store, seedUser(t, store, "bob", model.RoleUser))

	_, err := svc.Create(ctx, postA.ID, author, "on A", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, postB.ID, author, "on B", nil)
	require.NoError(t, err)

	// Corrupt both counters.
	require.NoError(t, store.SetCommentsState(ctx, postA.ID, 99, nil))
	require.NoError(t, store.SetCommentsState(ctx, postB.ID, 0, nil))

	rec.Sweep(ctx)

	gotA, err := store.FindByID(ctx, postA.ID)
	require.NoError(t, err)
	gotB, err := store.FindByID(ctx, postB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotA.CommentsCount)
	assert.Equal(t, int64(1), gotB.CommentsCount)
	assert.Len(t, gotA.CommentsPreview, 1)
	assert.Len(t, gotB.CommentsPreview, 1)
}

func TestScheduleValidation(t *testing.T) {
	_, _, rec := newCommentEnv(t, testConfig())

	stop, err := rec.Schedule("")
	require.NoError(t, err)
	stop()

	_, err = rec.Schedule("not a cron spec")
	assert.Error(t, err)

	stop, err = rec.Schedule("@every 1h")
	require.NoError(t, err)
	stop()
}
