package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, "snapshot", `{"records":[]}`))
	v, ok, err := a.Load(ctx, "snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"records":[]}`, v)
}

func TestLoadMissingKeyIsAbsentNotError(t *testing.T) {
	ctx := context.Background()
	a, err := New(t.TempDir())
	require.NoError(t, err)

	v, ok, err := a.Load(ctx, "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, "k", "v"))
	require.NoError(t, a.Remove(ctx, "k"))
	require.NoError(t, a.Remove(ctx, "k"))

	_, ok, err := a.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeysWithPathCharactersStayInsideDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	key := "app:cutflow/snapshot"
	require.NoError(t, a.Save(ctx, key, "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.ContainsRune(entries[0].Name(), '/'))

	v, ok, err := a.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, "k", "first"))
	require.NoError(t, a.Save(ctx, "k", "second"))

	v, ok, err := a.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	// No temp files left behind.
	matches, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNewCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
