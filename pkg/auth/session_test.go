package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frontendmu/frontend.mu/pkg/storage/redis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users map[uuid.UUID]*User
	err   error
}

func (f *fakeUsers) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func setupSessionProvider(t *testing.T, users *fakeUsers) (*SessionProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(redis.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewSessionProvider(client, users, "session:"), mr
}

func TestSessionProvider_Principal(t *testing.T) {
	ctx := context.Background()
	alice := &User{ID: uuid.New(), Email: "alice@example.com", FullName: "Alice"}
	users := &fakeUsers{users: map[uuid.UUID]*User{alice.ID: alice}}
	provider, mr := setupSessionProvider(t, users)

	t.Run("empty session id is anonymous", func(t *testing.T) {
		p, err := provider.Principal(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("unknown session is anonymous", func(t *testing.T) {
		p, err := provider.Principal(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("saved session resolves", func(t *testing.T) {
		require.NoError(t, provider.Save(ctx, "abc", alice.ID, time.Hour))
		assert.True(t, mr.Exists("session:abc"))

		p, err := provider.Principal(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, alice.ID, p.ID)
		assert.Equal(t, "Alice", p.FullName)
	})

	t.Run("deleted user is anonymous", func(t *testing.T) {
		require.NoError(t, provider.Save(ctx, "ghost", uuid.New(), time.Hour))
		p, err := provider.Principal(ctx, "ghost")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("expired session is anonymous", func(t *testing.T) {
		require.NoError(t, provider.Save(ctx, "short", alice.ID, time.Second))
		mr.FastForward(2 * time.Second)
		p, err := provider.Principal(ctx, "short")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("destroy", func(t *testing.T) {
		require.NoError(t, provider.Save(ctx, "bye", alice.ID, time.Hour))
		require.NoError(t, provider.Destroy(ctx, "bye"))
		p, err := provider.Principal(ctx, "bye")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestSessionProvider_UserStoreError(t *testing.T) {
	users := &fakeUsers{err: errors.New("database down")}
	provider, _ := setupSessionProvider(t, users)
	ctx := context.Background()

	require.NoError(t, provider.Save(ctx, "abc", uuid.New(), time.Hour))
	_, err := provider.Principal(ctx, "abc")
	assert.EqualError(t, err, "database down")
}
