package imagestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocal(root)

	t.Run("EnsureAndWrite", func(t *testing.T) {
		require.NoError(t, store.EnsureDirectory(ctx, "alice"))
		require.NoError(t, store.Write(ctx, "alice", "profile.png", strings.NewReader("png-bytes")))

		data, err := os.ReadFile(filepath.Join(root, "alice", "profile.png"))
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
	})

	t.Run("WriteOverwrites", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "alice", "profile.png", strings.NewReader("new-bytes")))

		data, err := os.ReadFile(filepath.Join(root, "alice", "profile.png"))
		require.NoError(t, err)
		assert.Equal(t, "new-bytes", string(data))
	})

	t.Run("RemoveMatching", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "alice", "profile.jpg", strings.NewReader("jpg-bytes")))
		require.NoError(t, store.RemoveMatching(ctx, "alice", "profile."))

		entries, err := os.ReadDir(filepath.Join(root, "alice"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("RemoveMatchingMissingDirIsNoError", func(t *testing.T) {
		assert.NoError(t, store.RemoveMatching(ctx, "nobody", "profile."))
	})

	t.Run("DeleteDirectory", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "alice", "profile.png", strings.NewReader("x")))
		require.NoError(t, store.DeleteDirectory(ctx, "alice"))

		_, err := os.Stat(filepath.Join(root, "alice"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("DeleteMissingDirIsNoError", func(t *testing.T) {
		assert.NoError(t, store.DeleteDirectory(ctx, "nobody"))
	})

	t.Run("EnsureDirectoryFailure", func(t *testing.T) {
		blocked := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

		err := NewLocal(blocked).EnsureDirectory(ctx, "alice")
		assert.Error(t, err)
	})
}
