package boltstore_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postsiva/automator-agent/sessionstore"
	"github.com/postsiva/automator-agent/sessionstore/boltstore"
)

func openStore(t *testing.T, path string) *boltstore.Store {
	t.Helper()

	store, err := boltstore.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	t.Run("missing key reads empty", func(t *testing.T) {
		value, err := store.Get(sessionstore.KeyAuthToken)
		require.NoError(t, err)
		require.Empty(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(sessionstore.KeyAuthToken, "token-abc"))
		value, err := store.Get(sessionstore.KeyAuthToken)
		require.NoError(t, err)
		require.Equal(t, "token-abc", value)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.Remove(sessionstore.KeyAuthToken))
		value, err := store.Get(sessionstore.KeyAuthToken)
		require.NoError(t, err)
		require.Empty(t, value)
	})
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := boltstore.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Apply(map[sessionstore.Key]string{
		sessionstore.KeyAuthToken:    "token-abc",
		sessionstore.KeySessionID:    "session_1700000000000_abcdefghijklm",
		sessionstore.KeyActiveUserID: "user-1",
	}, nil))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	value, err := reopened.Get(sessionstore.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "token-abc", value)
	value, err = reopened.Get(sessionstore.KeyActiveUserID)
	require.NoError(t, err)
	require.Equal(t, "user-1", value)
}

func TestStoreApply(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	require.NoError(t, store.Set(sessionstore.KeyHasAIKey, "true"))
	require.NoError(t, store.Apply(map[sessionstore.Key]string{
		sessionstore.KeyAuthToken: "token-abc",
		sessionstore.KeySessionID: "session-id",
	}, []sessionstore.Key{sessionstore.KeyHasAIKey}))

	value, err := store.Get(sessionstore.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "token-abc", value)
	value, err = store.Get(sessionstore.KeyHasAIKey)
	require.NoError(t, err)
	require.Empty(t, value)
}

func TestStoreSubscribe(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	var lock sync.Mutex
	var seen []sessionstore.Key
	cancel := store.Subscribe(func(key sessionstore.Key) {
		lock.Lock()
		defer lock.Unlock()
		seen = append(seen, key)
	})

	require.NoError(t, store.Set(sessionstore.KeyAuthToken, "token-abc"))
	lock.Lock()
	require.Equal(t, []sessionstore.Key{sessionstore.KeyAuthToken}, seen)
	lock.Unlock()

	t.Run("subscriber may read the store from its callback", func(t *testing.T) {
		done := make(chan string, 1)
		readBack := store.Subscribe(func(key sessionstore.Key) {
			if key == sessionstore.KeySessionID {
				value, _ := store.Get(key)
				done <- value
			}
		})
		defer readBack()

		require.NoError(t, store.Set(sessionstore.KeySessionID, "session-id"))
		require.Equal(t, "session-id", <-done)
	})

	t.Run("cancelled subscription stops notifications", func(t *testing.T) {
		cancel()
		lock.Lock()
		count := len(seen)
		lock.Unlock()

		require.NoError(t, store.Set(sessionstore.KeyAuthToken, "token-def"))
		lock.Lock()
		require.Len(t, seen, count)
		lock.Unlock()
	})
}

func TestStoreClosedContract(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, store.Set(sessionstore.KeyAuthToken, "token-abc"))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	value, err := store.Get(sessionstore.KeyAuthToken)
	require.NoError(t, err)
	require.Empty(t, value)

	require.NoError(t, store.Set(sessionstore.KeyAuthToken, "dropped"))
	require.NoError(t, store.Remove(sessionstore.KeyAuthToken))
}
