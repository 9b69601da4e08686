package checker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStoreRoundTrip(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveScreenshot("mon-1", []byte("shot-data"))
	require.NoError(t, err)
	assert.Contains(t, path, "mon-1")

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("shot-data"), data)

	require.NoError(t, store.Delete(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting an already-deleted artifact is not an error
	require.NoError(t, store.Delete(path))
	require.NoError(t, store.Delete(""))
}

func TestArtifactStoreRefusesEscapes(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "not-ours.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	assert.Error(t, store.Delete(outside))
	_, err = store.Read(outside)
	assert.Error(t, err)
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr, "the outside file is untouched")

	assert.Error(t, store.DeleteAll("../escape"))
}

func TestArtifactStoreDeleteAll(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	shot, err := store.SaveScreenshot("mon-1", []byte("a"))
	require.NoError(t, err)
	diff, err := store.SaveDiffImage("mon-1", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteAll("mon-1"))
	for _, p := range []string{shot, diff} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err))
	}
}
