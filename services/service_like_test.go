package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/internal/apperr"
	"blog-backend/model"
)

func TestToggleLikeInvolution(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCommentEnv(t, testConfig())
	user := seedUser(t, store, "alice", model.RoleUser)
	post := seedPost(t, store, user)
	svc := NewLikeService(store.Posts())

	resp, err := svc.Toggle(ctx, post.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, resp.Liked)
	assert.Equal(t, int64(1), resp.Likes)

	resp, err = svc.Toggle(ctx, post.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, resp.Liked)
	assert.Equal(t, int64(0), resp.Likes)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LikedBy)
	assert.Equal(t, int64(0), got.Likes)
}

func TestToggleLikeCountMatchesMembership(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCommentEnv(t, testConfig())
	owner := seedUser(t, store, "owner", model.RoleUser)
	post := seedPost(t, store, owner)
	svc := NewLikeService(store.Posts())

	users := []model.Caller{
		seedUser(t, store, "u1", model.RoleUser),
		seedUser(t, store, "u2", model.RoleUser),
		seedUser(t, store, "u3", model.RoleUser),
	}
	for _, u := range users {
		_, err := svc.Toggle(ctx, post.ID, u.ID)
		require.NoError(t, err)
	}

	// One of them changes their mind.
	_, err := svc.Toggle(ctx, post.ID, users[1].ID)
	require.NoError(t, err)

	got, err := store.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Likes)
	assert.Len(t, got.LikedBy, 2)
	assert.Equal(t, int64(len(got.LikedBy)), got.Likes)
	assert.True(t, got.LikedByUser(users[0].ID))
	assert.False(t, got.LikedByUser(users[1].ID))
	assert.True(t, got.LikedByUser(users[2].ID))
}

func TestToggleLikeMissingPost(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCommentEnv(t, testConfig())
	user := seedUser(t, store, "alice", model.RoleUser)
	svc := NewLikeService(store.Posts())

	_, err := svc.Toggle(ctx, bson.NewObjectID(), user.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
