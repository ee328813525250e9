package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/supabase/siwx/internal/siwx"
)

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f, err := NewFileStore(dir)
	require.NoError(t, err)

	_, ok, err := f.GetItem("@appkit/siwx-auth-token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, f.SetItem("@appkit/siwx-auth-token", "token"))

	value, ok, err := f.GetItem("@appkit/siwx-auth-token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "token", value)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, f.RemoveItem("@appkit/siwx-auth-token"))
	require.NoError(t, f.RemoveItem("@appkit/siwx-auth-token"))

	_, ok, err = f.GetItem("@appkit/siwx-auth-token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalStorageOnFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := NewFileStore(dir)
	require.NoError(t, err)

	s := testSession("bip122:000000000019d6689c085ae165831e93", "bc1qczn7zmd0n8rddeyhfjm9vz5edwznd4vsce4w7a", "1")
	require.NoError(t, NewLocalStorage(f, "").Add(ctx, s))

	// a second process reading the same directory sees the session
	f2, err := NewFileStore(dir)
	require.NoError(t, err)

	sessions, err := NewLocalStorage(f2, "").Get(ctx, s.Data.ChainID, s.Data.AccountAddress)
	require.NoError(t, err)
	require.Equal(t, []siwx.Session{s}, sessions)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()

	_, ok, err := m.GetItem("k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.SetItem("k", ""))
	value, ok, err := m.GetItem("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, value)

	require.NoError(t, m.RemoveItem("k"))
	_, ok, _ = m.GetItem("k")
	require.False(t, ok)
}
