package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-backend/internal/apperr"
	"blog-backend/internal/repository/inmemory"
)

func newAuthEnv(t *testing.T) (*inmemory.Store, *AuthService) {
	t.Helper()
	store := inmemory.New()
	svc := NewAuthService(store.Users(), "test-secret", time.Hour, 4)
	return store, svc
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthEnv(t)

	token, user, err := svc.Register(ctx, "alice", "Alice@Example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash, "password must be stored hashed")

	token2, user2, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token2)
	assert.Equal(t, user.ID, user2.ID)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthEnv(t)

	_, _, err := svc.Register(ctx, "", "a@b.com", "hunter22")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	_, _, err = svc.Register(ctx, "alice", "not-an-email", "hunter22")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	_, _, err = svc.Register(ctx, "alice", "a@b.com", "short")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthEnv(t)

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "alice", "other@example.com", "hunter22")
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, _, err = svc.Register(ctx, "other", "alice@example.com", "hunter22")
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestLoginBadCredentials(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthEnv(t)

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))

	// Unknown account reads the same as a wrong password.
	_, _, err = svc.Login(ctx, "ghost@example.com", "hunter22")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestResolveCaller(t *testing.T) {
	ctx := context.Background()
	_, svc := newAuthEnv(t)

	token, user, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	resolved, err := svc.ResolveCaller(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "alice", resolved.Username)

	_, err = svc.ResolveCaller(ctx, "not.a.token")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestResolveCallerWrongSecret(t *testing.T) {
	ctx := context.Background()
	store, svc := newAuthEnv(t)

	_, user, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	forger := NewAuthService(store.Users(), "other-secret", time.Hour, 4)
	forged, err := forger.SignToken(user)
	require.NoError(t, err)

	_, err = svc.ResolveCaller(ctx, forged)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestResolveCallerExpiredToken(t *testing.T) {
	ctx := context.Background()
	store, _ := newAuthEnv(t)

	expired := NewAuthService(store.Users(), "test-secret", -time.Hour, 4)
	_, user, err := expired.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	token, err := expired.SignToken(user)
	require.NoError(t, err)

	fresh := NewAuthService(store.Users(), "test-secret", time.Hour, 4)
	_, err = fresh.ResolveCaller(ctx, token)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}
