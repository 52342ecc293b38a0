package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, KeyAccessToken, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyRefreshToken, "ref-1"))

	v, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)

	// deleting both plus a missing key is fine
	require.NoError(t, s.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyCurrentUser))

	_, err = s.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = s.Get(ctx, KeyRefreshToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	runStoreContract(t, s)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, KeyCurrentUser, `{"id":1}`))

	s2, err := NewFileStore(path)
	require.NoError(t, err)

	v, err := s2.Get(ctx, KeyCurrentUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, v)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	runStoreContract(t, NewRedisStore(client, "test"))
}

func TestRedisStore_PrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, "storefront")
	require.NoError(t, s.Set(ctx, KeyAccessToken, "tok"))

	got, err := mr.Get("storefront:access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}
